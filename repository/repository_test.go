// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/princecjqlara/Tokkobeta/models"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/princecjqlara/Tokkobeta/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactUpsert(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		contactRepo := NewContactRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		t.Run("InsertAssignsID", func(t *testing.T) {
			contact := &models.Contact{
				PageID: page.ID,
				PSID:   "psid-upsert-1",
				Name:   utils.ToPtr("First Version"),
			}
			require.NoError(t, contactRepo.Upsert(context.Background(), contact))
			assert.NotZero(t, contact.ID)
		})

		t.Run("NilFieldsDoNotClobber", func(t *testing.T) {
			seeded := &models.Contact{
				PageID:        page.ID,
				PSID:          "psid-upsert-2",
				Name:          utils.ToPtr("Seeded Name"),
				FirstName:     utils.ToPtr("Seeded"),
				ProfilePicURL: utils.ToPtr("https://example.com/pic.jpg"),
			}
			require.NoError(t, contactRepo.Upsert(context.Background(), seeded))

			// A later upsert carrying only a fresh interaction timestamp
			at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			touch := &models.Contact{
				PageID:          page.ID,
				PSID:            "psid-upsert-2",
				LastInteraction: &at,
			}
			require.NoError(t, contactRepo.Upsert(context.Background(), touch))
			assert.Equal(t, seeded.ID, touch.ID)

			stored, err := contactRepo.ByPageAndPSID(context.Background(), page.ID, "psid-upsert-2")
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, "Seeded Name", *stored.Name)
			assert.Equal(t, "Seeded", *stored.FirstName)
			assert.Equal(t, "https://example.com/pic.jpg", *stored.ProfilePicURL)
			require.NotNil(t, stored.LastInteraction)
			assert.Equal(t, at, stored.LastInteraction.UTC())
		})

		t.Run("SamePSIDOnAnotherPageIsDistinct", func(t *testing.T) {
			otherPage, err := fixtures.CreateTestPage(user.ID)
			require.NoError(t, err)

			a := &models.Contact{PageID: page.ID, PSID: "psid-shared"}
			b := &models.Contact{PageID: otherPage.ID, PSID: "psid-shared"}
			require.NoError(t, contactRepo.Upsert(context.Background(), a))
			require.NoError(t, contactRepo.Upsert(context.Background(), b))
			assert.NotEqual(t, a.ID, b.ID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCampaignCreateStoresRecipientTotal(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		campaignRepo := NewCampaignRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)
		contacts, err := fixtures.CreateTestContacts(page.ID, 2)
		require.NoError(t, err)

		campaign := &models.Campaign{
			PageID:    page.ID,
			CreatedBy: user.ID,
			Name:      "Counted",
			Message:   "hello",
		}
		require.NoError(t, campaignRepo.CreateWithRecipients(context.Background(),
			campaign, []uint{contacts[0].ID, contacts[1].ID}))
		assert.Equal(t, 2, campaign.TotalRecipients)

		// The column is written at creation, not derived from recipient rows
		var stored models.Campaign
		require.NoError(t, testDB.DB.First(&stored, campaign.ID).Error)
		assert.Equal(t, 2, stored.TotalRecipients)

		require.NoError(t, testDB.DB.Where("campaign_id = ?", campaign.ID).
			Delete(&models.CampaignRecipient{}).Error)
		require.NoError(t, testDB.DB.First(&stored, campaign.ID).Error)
		assert.Equal(t, 2, stored.TotalRecipients)

		return nil
	})
	require.NoError(t, err)
}

func TestCampaignTransitionStatus(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		campaignRepo := NewCampaignRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, nil)
		require.NoError(t, err)

		// The guarded flip succeeds exactly once
		flipped, err := campaignRepo.TransitionStatus(context.Background(),
			campaign.ID, models.CampaignStatusDraft, models.CampaignStatusSending)
		require.NoError(t, err)
		assert.True(t, flipped)

		flipped, err = campaignRepo.TransitionStatus(context.Background(),
			campaign.ID, models.CampaignStatusDraft, models.CampaignStatusSending)
		require.NoError(t, err)
		assert.False(t, flipped)

		stored, err := campaignRepo.ByID(context.Background(), campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CampaignStatusSending, stored.Status)
		assert.NotNil(t, stored.StartedAt)
		assert.Nil(t, stored.CompletedAt)

		flipped, err = campaignRepo.TransitionStatus(context.Background(),
			campaign.ID, models.CampaignStatusSending, models.CampaignStatusCompleted)
		require.NoError(t, err)
		assert.True(t, flipped)

		stored, err = campaignRepo.ByID(context.Background(), campaign.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.CompletedAt)

		return nil
	})
	require.NoError(t, err)
}

func TestRecipientFailPending(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		recipientRepo := NewCampaignRecipientRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)
		contacts, err := fixtures.CreateTestContacts(page.ID, 3)
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID,
			[]uint{contacts[0].ID, contacts[1].ID, contacts[2].ID})
		require.NoError(t, err)

		// One recipient already went out; it must keep its sent row
		pending, err := recipientRepo.ListPending(context.Background(), campaign.ID)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		require.NoError(t, recipientRepo.MarkSent(context.Background(), pending[0].ID, utils.UTCNow()))

		failed, err := recipientRepo.FailPending(context.Background(), campaign.ID, utils.CampaignCancelledMessage)
		require.NoError(t, err)
		assert.Equal(t, int64(2), failed)

		sentCount, err := recipientRepo.CountByStatus(context.Background(), campaign.ID, models.RecipientStatusSent)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sentCount)

		pendingCount, err := recipientRepo.CountByStatus(context.Background(), campaign.ID, models.RecipientStatusPending)
		require.NoError(t, err)
		assert.Equal(t, int64(0), pendingCount)

		// A dispatcher finishing late must not resurrect a failed row
		require.NoError(t, recipientRepo.MarkSent(context.Background(), pending[1].ID, utils.UTCNow()))

		failedCount, err := recipientRepo.CountByStatus(context.Background(), campaign.ID, models.RecipientStatusFailed)
		require.NoError(t, err)
		assert.Equal(t, int64(2), failedCount)

		return nil
	})
	require.NoError(t, err)
}

func TestContactDeleteBatchIsPageScoped(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		contactRepo := NewContactRepository(testDB.DB)
		tagRepo := NewTagRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)
		otherPage, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		mine, err := fixtures.CreateTestContact(page.ID, "Mine")
		require.NoError(t, err)
		elsewhere, err := fixtures.CreateTestContact(otherPage.ID, "Elsewhere")
		require.NoError(t, err)

		tag, err := fixtures.CreateTestTag(models.TagOwnerUser, user.ID, user.ID)
		require.NoError(t, err)
		require.NoError(t, tagRepo.AddContactTags(context.Background(), []uint{mine.ID}, []uint{tag.ID}))

		// The foreign contact's ID is passed but must survive
		deleted, err := contactRepo.DeleteBatch(context.Background(), page.ID, []uint{mine.ID, elsewhere.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		gone, err := contactRepo.ByID(context.Background(), mine.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		survivor, err := contactRepo.ByID(context.Background(), elsewhere.ID)
		require.NoError(t, err)
		assert.NotNil(t, survivor)

		// Tag links go with the contact
		var linkCount int64
		require.NoError(t, testDB.DB.Model(&models.ContactTag{}).
			Where("contact_id = ?", mine.ID).Count(&linkCount).Error)
		assert.Equal(t, int64(0), linkCount)

		return nil
	})
	require.NoError(t, err)
}

func TestTagListVisible(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		tagRepo := NewTagRepository(testDB.DB)

		owner, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(owner.ID)
		require.NoError(t, err)

		business := &models.Business{Name: "Test Business", CreatedBy: owner.ID}
		require.NoError(t, testDB.DB.Create(business).Error)

		userTag, err := fixtures.CreateTestTag(models.TagOwnerUser, owner.ID, owner.ID)
		require.NoError(t, err)
		pageTag, err := fixtures.CreateTestTag(models.TagOwnerPage, page.ID, owner.ID)
		require.NoError(t, err)
		businessTag, err := fixtures.CreateTestTag(models.TagOwnerBusiness, business.ID, owner.ID)
		require.NoError(t, err)

		// Noise from another operator
		other, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		_, err = fixtures.CreateTestTag(models.TagOwnerUser, other.ID, other.ID)
		require.NoError(t, err)

		visible, err := tagRepo.ListVisible(context.Background(), owner.ID,
			[]uint{page.ID}, []uint{business.ID})
		require.NoError(t, err)
		require.Len(t, visible, 3)

		ids := make(map[uint]bool, len(visible))
		for _, tag := range visible {
			ids[tag.ID] = true
		}
		assert.True(t, ids[userTag.ID])
		assert.True(t, ids[pageTag.ID])
		assert.True(t, ids[businessTag.ID])

		return nil
	})
	require.NoError(t, err)
}
