// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/config"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	testingutil "github.com/princecjqlara/Tokkobeta/testing"
	"github.com/princecjqlara/Tokkobeta/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppSecret = "test-app-secret"

func newWebhookFlowForTest(testDB *testingutil.TestDB) WebhookFlow {
	return NewWebhookFlow(
		repository.NewPageRepository(testDB.DB),
		repository.NewContactRepository(testDB.DB),
		&config.FacebookConfig{
			AppSecret:          testAppSecret,
			WebhookVerifyToken: "verify-me",
		},
	)
}

func signedPayload(t *testing.T, payload dto.WebhookPayload) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body, services.SignWebhookPayload(testAppSecret, body)
}

func messageEvent(senderPSID string, at time.Time) dto.MessagingEvent {
	return dto.MessagingEvent{
		Sender:    dto.WebhookParty{ID: senderPSID},
		Timestamp: at.UnixMilli(),
		Message:   &dto.WebhookMessage{MID: "mid.1", Text: "hi"},
	}
}

func TestVerifyHandshake(t *testing.T) {
	flow := NewWebhookFlow(nil, nil, &config.FacebookConfig{WebhookVerifyToken: "verify-me"})

	challenge, err := flow.VerifyHandshake("subscribe", "verify-me", "challenge-123")
	require.NoError(t, err)
	assert.Equal(t, "challenge-123", challenge)

	_, err = flow.VerifyHandshake("subscribe", "wrong-token", "challenge-123")
	require.Error(t, err)
	assert.True(t, IsInvalidVerifyToken(err))

	_, err = flow.VerifyHandshake("unsubscribe", "verify-me", "challenge-123")
	require.Error(t, err)
	assert.True(t, IsInvalidVerifyToken(err))
}

func TestIngestEvents(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		contactRepo := repository.NewContactRepository(testDB.DB)
		flow := newWebhookFlowForTest(testDB)

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		page, err := fixtures.CreateTestPage(user.ID)
		require.NoError(t, err)

		t.Run("RejectsBadSignature", func(t *testing.T) {
			body, _ := signedPayload(t, dto.WebhookPayload{Object: "page"})

			_, err := flow.IngestEvents(context.Background(), body, "sha256=deadbeef")
			require.Error(t, err)
			assert.True(t, IsInvalidSignature(err))

			_, err = flow.IngestEvents(context.Background(), body, "")
			require.Error(t, err)
			assert.True(t, IsInvalidSignature(err))
		})

		t.Run("IgnoresNonPageObjects", func(t *testing.T) {
			body, signature := signedPayload(t, dto.WebhookPayload{Object: "user"})

			result, err := flow.IngestEvents(context.Background(), body, signature)
			require.NoError(t, err)
			assert.Equal(t, 0, result.Processed)
			assert.Equal(t, 0, result.Skipped)
		})

		t.Run("CreatesContactOnFirstMessage", func(t *testing.T) {
			at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
			body, signature := signedPayload(t, dto.WebhookPayload{
				Object: "page",
				Entry: []dto.WebhookEntry{{
					ID:        page.FBPageID,
					Messaging: []dto.MessagingEvent{messageEvent("psid-new", at)},
				}},
			})

			result, err := flow.IngestEvents(context.Background(), body, signature)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 0, result.Skipped)

			stored, err := contactRepo.ByPageAndPSID(context.Background(), page.ID, "psid-new")
			require.NoError(t, err)
			require.NotNil(t, stored)
			require.NotNil(t, stored.LastInteraction)
			assert.Equal(t, at, stored.LastInteraction.UTC())
		})

		t.Run("AdvancesLastInteractionOnRepeatMessage", func(t *testing.T) {
			first := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
			later := first.Add(3 * time.Hour)

			for _, at := range []time.Time{first, later} {
				body, signature := signedPayload(t, dto.WebhookPayload{
					Object: "page",
					Entry: []dto.WebhookEntry{{
						ID:        page.FBPageID,
						Messaging: []dto.MessagingEvent{messageEvent("psid-repeat", at)},
					}},
				})
				_, err := flow.IngestEvents(context.Background(), body, signature)
				require.NoError(t, err)
			}

			stored, err := contactRepo.ByPageAndPSID(context.Background(), page.ID, "psid-repeat")
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, later, stored.LastInteraction.UTC())

			// No duplicate row for the same page and PSID
			count, err := contactRepo.Count(context.Background(), models.ContactFilter{
				PageID: &page.ID,
				PSID:   utils.ToPtr("psid-repeat"),
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("SkipsUnknownPagesAndEchoes", func(t *testing.T) {
			at := time.Now().UTC()
			body, signature := signedPayload(t, dto.WebhookPayload{
				Object: "page",
				Entry: []dto.WebhookEntry{
					{
						// Page never connected to the dashboard
						ID:        "does-not-exist",
						Messaging: []dto.MessagingEvent{messageEvent("psid-a", at), messageEvent("psid-b", at)},
					},
					{
						ID: page.FBPageID,
						Messaging: []dto.MessagingEvent{
							// The page talking to itself is an echo
							messageEvent(page.FBPageID, at),
							// Non-message events carry no contact to touch
							{Sender: dto.WebhookParty{ID: "psid-c"}, Timestamp: at.UnixMilli()},
							messageEvent("psid-real", at),
						},
					},
				},
			})

			result, err := flow.IngestEvents(context.Background(), body, signature)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 4, result.Skipped)
		})

		return nil
	})
	require.NoError(t, err)
}
