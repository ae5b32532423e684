// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"testing"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/princecjqlara/Tokkobeta/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignFlowForTest(testDB *testingutil.TestDB, fbClient services.FacebookClient) CampaignFlow {
	return NewCampaignFlow(
		repository.NewCampaignRepository(testDB.DB),
		repository.NewCampaignRecipientRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		repository.NewPageRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		fbClient,
	)
}

func TestCampaignFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		campaignRepo := repository.NewCampaignRepository(testDB.DB)
		recipientRepo := repository.NewCampaignRecipientRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		metadata := &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "Test User Agent"}

		t.Run("CreateCampaignDropsForeignContacts", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contacts, err := fixtures.CreateTestContacts(page.ID, 2)
			require.NoError(t, err)

			// A contact on another page must not become a recipient
			otherUser, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			otherPage, err := fixtures.CreateTestPage(otherUser.ID)
			require.NoError(t, err)
			foreign, err := fixtures.CreateTestContact(otherPage.ID, "Foreign Contact")
			require.NoError(t, err)

			created, err := flow.CreateCampaign(context.Background(), user.ID, &dto.CreateCampaignRequest{
				PageID:     page.ID,
				Name:       "Mixed targets",
				Message:    "hello",
				ContactIDs: []uint{contacts[0].ID, contacts[1].ID, foreign.ID},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, models.CampaignStatusDraft.String(), created.Status)
			assert.Equal(t, int64(2), created.TotalRecipients)
		})

		t.Run("CreateCampaignRejectsEmptyIntersection", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			_, err := flow.CreateCampaign(context.Background(), user.ID, &dto.CreateCampaignRequest{
				PageID:     page.ID,
				Name:       "No targets",
				Message:    "hello",
				ContactIDs: []uint{999999},
			}, metadata)
			require.Error(t, err)
			assert.True(t, IsCampaignNoRecipients(err))
		})

		t.Run("SendCampaignRecordsPerRecipientOutcomes", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contacts, err := fixtures.CreateTestContacts(page.ID, 3)
			require.NoError(t, err)
			mockFB.FailPSIDs[contacts[1].PSID] = "This person isn't available right now"

			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID,
				[]uint{contacts[0].ID, contacts[1].ID, contacts[2].ID})
			require.NoError(t, err)

			result, err := flow.SendCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Sent)
			assert.Equal(t, 1, result.Failed)
			assert.Len(t, mockFB.SentMessages, 2)

			// Counters and terminal state survive in the database
			stored, err := campaignRepo.ByID(context.Background(), campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
			assert.Equal(t, 2, stored.SentCount)
			assert.Equal(t, 1, stored.FailedCount)

			failedCount, err := recipientRepo.CountByStatus(context.Background(), campaign.ID, models.RecipientStatusFailed)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failedCount)
		})

		t.Run("SendCampaignSkipsRecipientsWithoutPSID", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contact, err := fixtures.CreateTestContact(page.ID, "Reachable Contact")
			require.NoError(t, err)
			stub := &models.Contact{PageID: page.ID, PSID: ""}
			require.NoError(t, testDB.DB.Create(stub).Error)

			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, []uint{contact.ID, stub.ID})
			require.NoError(t, err)

			result, err := flow.SendCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Sent)
			assert.Equal(t, 0, result.Failed)

			// The unaddressable row keeps its pending status
			pendingCount, err := recipientRepo.CountByStatus(context.Background(), campaign.ID, models.RecipientStatusPending)
			require.NoError(t, err)
			assert.Equal(t, int64(1), pendingCount)
		})

		t.Run("SendCampaignWithNoPendingRecipientsCompletes", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, nil)
			require.NoError(t, err)

			result, err := flow.SendCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 0, result.Sent)
			assert.Equal(t, 0, result.Failed)

			stored, err := campaignRepo.ByID(context.Background(), campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
		})

		t.Run("SendCampaignRejectsNonDraft", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contact, err := fixtures.CreateTestContact(page.ID, "Repeat Target")
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, []uint{contact.ID})
			require.NoError(t, err)

			_, err = flow.SendCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.NoError(t, err)

			// A completed campaign never dispatches again
			_, err = flow.SendCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsCampaignNotDraft(err))
			assert.Len(t, mockFB.SentMessages, 1)
		})

		t.Run("CancelCampaignFailsPendingRecipients", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contacts, err := fixtures.CreateTestContacts(page.ID, 3)
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID,
				[]uint{contacts[0].ID, contacts[1].ID, contacts[2].ID})
			require.NoError(t, err)

			// Move to sending without running the dispatcher
			flipped, err := campaignRepo.TransitionStatus(context.Background(),
				campaign.ID, models.CampaignStatusDraft, models.CampaignStatusSending)
			require.NoError(t, err)
			require.True(t, flipped)

			result, err := flow.CancelCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(3), result.CancelledPending)

			stored, err := campaignRepo.ByID(context.Background(), campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, models.CampaignStatusCancelled, stored.Status)
			assert.Equal(t, 0, stored.SentCount)
			assert.Equal(t, 3, stored.FailedCount)

			failed, err := recipientRepo.ByFilter(context.Background(),
				models.CampaignRecipientFilter{CampaignID: &campaign.ID}, "id ASC", 0, 0)
			require.NoError(t, err)
			for _, recipient := range failed {
				assert.Equal(t, models.RecipientStatusFailed, recipient.Status)
				require.NotNil(t, recipient.Error)
				assert.Equal(t, utils.CampaignCancelledMessage, *recipient.Error)
			}
		})

		t.Run("CancelCampaignRejectsDraft", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contact, err := fixtures.CreateTestContact(page.ID, "Draft Target")
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, []uint{contact.ID})
			require.NoError(t, err)

			_, err = flow.CancelCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsCampaignNotSending(err))
		})

		t.Run("UpdateCampaignRejectsNonDraft", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contact, err := fixtures.CreateTestContact(page.ID, "Locked Target")
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, []uint{contact.ID})
			require.NoError(t, err)

			_, err = flow.SendCampaign(context.Background(), user.ID, campaign.ID, metadata)
			require.NoError(t, err)

			name := "Renamed"
			_, err = flow.UpdateCampaign(context.Background(), user.ID, campaign.ID,
				&dto.UpdateCampaignRequest{Name: &name}, metadata)
			require.Error(t, err)
		})

		t.Run("CampaignAccessDeniedForStranger", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)

			contact, err := fixtures.CreateTestContact(page.ID, "Private Target")
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(page.ID, user.ID, []uint{contact.ID})
			require.NoError(t, err)

			stranger, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.GetCampaign(context.Background(), stranger.ID, campaign.ID)
			require.Error(t, err)
			assert.True(t, IsCampaignAccessDenied(err))
		})

		t.Run("TotalRecipientsSurvivesContactDeletion", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newCampaignFlowForTest(testDB, mockFB)
			contactRepo := repository.NewContactRepository(testDB.DB)

			contacts, err := fixtures.CreateTestContacts(page.ID, 3)
			require.NoError(t, err)

			created, err := flow.CreateCampaign(context.Background(), user.ID, &dto.CreateCampaignRequest{
				PageID:     page.ID,
				Name:       "Shrinking audience",
				Message:    "hello",
				ContactIDs: []uint{contacts[0].ID, contacts[1].ID, contacts[2].ID},
			}, metadata)
			require.NoError(t, err)
			require.Equal(t, int64(3), created.TotalRecipients)

			_, err = flow.SendCampaign(context.Background(), user.ID, created.ID, metadata)
			require.NoError(t, err)

			// Deleting a contact removes its recipient row, the stored
			// recipient count must keep reporting the dispatch-time total
			deleted, err := contactRepo.DeleteBatch(context.Background(), page.ID, []uint{contacts[0].ID})
			require.NoError(t, err)
			require.Equal(t, int64(1), deleted)

			fetched, err := flow.GetCampaign(context.Background(), user.ID, created.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), fetched.TotalRecipients)

			var remaining int64
			require.NoError(t, testDB.DB.Model(&models.CampaignRecipient{}).
				Where("campaign_id = ?", created.ID).Count(&remaining).Error)
			assert.Equal(t, int64(2), remaining)
		})

		return nil
	})
	require.NoError(t, err)
}
