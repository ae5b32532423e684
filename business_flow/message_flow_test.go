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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessageFlowForTest(testDB *testingutil.TestDB, fbClient services.FacebookClient) MessageFlow {
	return NewMessageFlow(
		repository.NewPageRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		fbClient,
	)
}

func TestSendMessages(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		t.Run("RecordsPerContactOutcomes", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newMessageFlowForTest(testDB, mockFB)

			contacts, err := fixtures.CreateTestContacts(page.ID, 3)
			require.NoError(t, err)
			mockFB.FailPSIDs[contacts[1].PSID] = "(#10) outside allowed window"

			result, err := flow.SendMessages(context.Background(), user.ID, &dto.SendMessagesRequest{
				PageID:     page.ID,
				ContactIDs: []uint{contacts[0].ID, contacts[1].ID, contacts[2].ID},
				Message:    "Your order is ready",
			})
			require.NoError(t, err)
			assert.Equal(t, 2, result.Sent)
			assert.Equal(t, 1, result.Failed)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, contacts[1].ID, result.Errors[0].ContactID)

			// No campaign record for an ad-hoc send
			assert.Len(t, mockFB.SentMessages, 2)
			var campaigns int64
			require.NoError(t, testDB.DB.Model(&models.Campaign{}).Count(&campaigns).Error)
			assert.Equal(t, int64(0), campaigns)
		})

		t.Run("DropsForeignContacts", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			flow := newMessageFlowForTest(testDB, mockFB)

			mine, err := fixtures.CreateTestContact(page.ID, "Mine")
			require.NoError(t, err)

			otherUser, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			otherPage, err := fixtures.CreateTestPage(otherUser.ID)
			require.NoError(t, err)
			foreign, err := fixtures.CreateTestContact(otherPage.ID, "Foreign")
			require.NoError(t, err)

			result, err := flow.SendMessages(context.Background(), user.ID, &dto.SendMessagesRequest{
				PageID:     page.ID,
				ContactIDs: []uint{mine.ID, foreign.ID},
				Message:    "hello",
			})
			require.NoError(t, err)
			assert.Equal(t, 1, result.Sent)
			assert.Equal(t, 0, result.Failed)
		})

		t.Run("RejectsEmptyIntersection", func(t *testing.T) {
			flow := newMessageFlowForTest(testDB, services.NewMockFacebookClient())

			_, err := flow.SendMessages(context.Background(), user.ID, &dto.SendMessagesRequest{
				PageID:     page.ID,
				ContactIDs: []uint{999999},
				Message:    "hello",
			})
			require.Error(t, err)
			assert.True(t, IsNoContactsOnPage(err))
		})

		t.Run("RejectsStranger", func(t *testing.T) {
			flow := newMessageFlowForTest(testDB, services.NewMockFacebookClient())

			contact, err := fixtures.CreateTestContact(page.ID, "Private")
			require.NoError(t, err)
			stranger, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.SendMessages(context.Background(), stranger.ID, &dto.SendMessagesRequest{
				PageID:     page.ID,
				ContactIDs: []uint{contact.ID},
				Message:    "hello",
			})
			require.Error(t, err)
			assert.True(t, IsPageAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}
