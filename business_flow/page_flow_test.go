// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/repository"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPageFlowForTest(testDB *testingutil.TestDB, fbClient services.FacebookClient) PageFlow {
	return NewPageFlow(
		repository.NewPageRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		fbClient,
		newSyncFlowForTest(testDB, fbClient),
		time.Minute,
	)
}

func TestPageFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		pageRepo := repository.NewPageRepository(testDB.DB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		metadata := &ClientMetadata{IPAddress: "127.0.0.1", UserAgent: "Test User Agent"}

		t.Run("ListFacebookPagesMarksConnected", func(t *testing.T) {
			connected, err := fixtures.CreateTestPage(user.ID)
			require.NoError(t, err)

			mockFB := services.NewMockFacebookClient()
			mockFB.Pages = []services.GraphPage{
				{ID: connected.FBPageID, Name: connected.Name, Category: "Cafe", AccessToken: "tok-1"},
				{ID: "fresh-page", Name: "Fresh Page", Category: "Retail", AccessToken: "tok-2"},
			}
			flow := newPageFlowForTest(testDB, mockFB)

			resp, err := flow.ListFacebookPages(context.Background(), user.ID, "user-token")
			require.NoError(t, err)
			require.Len(t, resp.Pages, 2)

			byID := make(map[string]dto.FacebookPageDTO, len(resp.Pages))
			for _, page := range resp.Pages {
				byID[page.ID] = page
			}
			assert.True(t, byID[connected.FBPageID].Connected)
			assert.False(t, byID["fresh-page"].Connected)
		})

		t.Run("ConnectPageGrantsAccessAndSyncs", func(t *testing.T) {
			mockFB := services.NewMockFacebookClient()
			mockFB.Conversations["200123"] = []services.GraphConversation{
				graphConversation("t_connect", "psid-connect", "New Fan", ""),
			}
			flow := newPageFlowForTest(testDB, mockFB)

			resp, err := flow.ConnectPage(context.Background(), user.ID, &dto.ConnectPageRequest{
				FBPageID:    "200123",
				Name:        "Connected Shop",
				AccessToken: "page-token-200123",
			}, metadata)
			require.NoError(t, err)
			assert.True(t, resp.SyncStarted)
			assert.Equal(t, "200123", resp.Page.FBPageID)

			stored, err := pageRepo.ByFBPageID(context.Background(), "200123")
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, "page-token-200123", stored.AccessToken)

			hasAccess, err := pageRepo.HasAccess(context.Background(), user.ID, stored.ID)
			require.NoError(t, err)
			assert.True(t, hasAccess)
		})

		t.Run("ReconnectRefreshesToken", func(t *testing.T) {
			flow := newPageFlowForTest(testDB, services.NewMockFacebookClient())

			_, err := flow.ConnectPage(context.Background(), user.ID, &dto.ConnectPageRequest{
				FBPageID:    "200456",
				Name:        "Rotating Shop",
				AccessToken: "old-token",
			}, metadata)
			require.NoError(t, err)

			_, err = flow.ConnectPage(context.Background(), user.ID, &dto.ConnectPageRequest{
				FBPageID:    "200456",
				Name:        "Rotating Shop",
				AccessToken: "new-token",
			}, metadata)
			require.NoError(t, err)

			stored, err := pageRepo.ByFBPageID(context.Background(), "200456")
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, "new-token", stored.AccessToken)

			// Still exactly one page row for the Facebook page
			pages, err := pageRepo.ListByUser(context.Background(), user.ID)
			require.NoError(t, err)
			seen := 0
			for _, page := range pages {
				if page.FBPageID == "200456" {
					seen++
				}
			}
			assert.Equal(t, 1, seen)
		})

		t.Run("ListPagesReturnsOnlyOwn", func(t *testing.T) {
			stranger, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			flow := newPageFlowForTest(testDB, services.NewMockFacebookClient())
			resp, err := flow.ListPages(context.Background(), stranger.ID)
			require.NoError(t, err)
			assert.Empty(t, resp.Pages)
		})

		return nil
	})
	require.NoError(t, err)
}
