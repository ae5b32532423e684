// Package services provides external service integrations and technical concerns like Graph API access and tokens
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/princecjqlara/Tokkobeta/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFacebookClient(serverURL string) FacebookClient {
	return NewFacebookClient(&config.FacebookConfig{
		GraphBaseURL: serverURL,
		APIVersion:   "v19.0",
		AppSecret:    "test-app-secret",
		HTTPTimeout:  5 * time.Second,
	})
}

func TestListPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/me/accounts", r.URL.Path)
		assert.Equal(t, "user-token", r.URL.Query().Get("access_token"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "111", "name": "Coffee Shop", "category": "Cafe", "access_token": "page-token-111"},
				{"id": "222", "name": "Book Store", "category": "Retail", "access_token": "page-token-222"},
			},
		})
	}))
	defer server.Close()

	client := newTestFacebookClient(server.URL)

	pages, err := client.ListPages(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "111", pages[0].ID)
	assert.Equal(t, "Coffee Shop", pages[0].Name)
	assert.Equal(t, "page-token-111", pages[0].AccessToken)
}

func TestListConversationsFollowsPagination(t *testing.T) {
	const pageSize = 60
	const total = 150

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		data := make([]map[string]any, 0, pageSize)
		for i := offset; i < offset+pageSize && i < total; i++ {
			data = append(data, map[string]any{
				"id":           fmt.Sprintf("t_%d", i),
				"updated_time": "2024-01-15T10:30:00+0000",
				"participants": map[string]any{
					"data": []map[string]any{
						{"id": fmt.Sprintf("psid-%d", i), "name": fmt.Sprintf("Person %d", i)},
					},
				},
			})
		}

		response := map[string]any{"data": data}
		if offset+pageSize < total {
			response["paging"] = map[string]any{
				"next": fmt.Sprintf("%s/v19.0/999/conversations?offset=%d", server.URL, offset+pageSize),
			}
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestFacebookClient(server.URL)

	conversations, err := client.ListConversations(context.Background(), "999", "page-token")
	require.NoError(t, err)
	require.Len(t, conversations, total)

	// No duplicates across page boundaries
	seen := make(map[string]bool, total)
	for _, conversation := range conversations {
		assert.False(t, seen[conversation.ID], "duplicate conversation %s", conversation.ID)
		seen[conversation.ID] = true
	}
	assert.Equal(t, "t_0", conversations[0].ID)
	assert.Equal(t, "t_149", conversations[total-1].ID)
}

func TestListConversationsStopsAtCeiling(t *testing.T) {
	// The server would page forever; the client must stop on its own
	const pageSize = 2500

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		data := make([]map[string]any, 0, pageSize)
		for i := offset; i < offset+pageSize; i++ {
			data = append(data, map[string]any{"id": fmt.Sprintf("t_%d", i)})
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": data,
			"paging": map[string]any{
				"next": fmt.Sprintf("%s/v19.0/999/conversations?offset=%d", server.URL, offset+pageSize),
			},
		})
	}))
	defer server.Close()

	client := newTestFacebookClient(server.URL)

	conversations, err := client.ListConversations(context.Background(), "999", "page-token")
	require.NoError(t, err)
	assert.Len(t, conversations, 10000)
}

func TestSendMessageBody(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v19.0/me/messages", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"recipient_id": "psid-1",
			"message_id":   "mid.abc123",
		})
	}))
	defer server.Close()

	client := newTestFacebookClient(server.URL)

	messageID, err := client.SendMessage(context.Background(), "page-token", "psid-1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "mid.abc123", messageID)

	// Messages go out under the ACCOUNT_UPDATE tag so delivery works
	// outside the standard messaging window
	assert.Equal(t, "MESSAGE_TAG", captured["messaging_type"])
	assert.Equal(t, "ACCOUNT_UPDATE", captured["tag"])
	recipient := captured["recipient"].(map[string]any)
	assert.Equal(t, "psid-1", recipient["id"])
	message := captured["message"].(map[string]any)
	assert.Equal(t, "hello there", message["text"])
}

func TestSendMessageGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "This person isn't available right now",
				"type":    "OAuthException",
				"code":    10,
			},
		})
	}))
	defer server.Close()

	client := newTestFacebookClient(server.URL)

	_, err := client.SendMessage(context.Background(), "page-token", "psid-gone", "hello")
	require.Error(t, err)

	var graphErr *GraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, 10, graphErr.Code)
	assert.Equal(t, "OAuthException", graphErr.Type)
}

func TestGetProfileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Unsupported get request",
				"type":    "GraphMethodException",
				"code":    100,
			},
		})
	}))
	defer server.Close()

	client := newTestFacebookClient(server.URL)

	profile, err := client.GetProfile(context.Background(), "psid-unknown", "page-token")
	require.Error(t, err)
	assert.Nil(t, profile)
}

func TestWebhookSignature(t *testing.T) {
	payload := []byte(`{"object":"page","entry":[]}`)
	secret := "test-app-secret"

	header := SignWebhookPayload(secret, payload)
	assert.True(t, VerifyWebhookSignature(secret, payload, header))

	// Tampered payloads and foreign secrets must fail
	assert.False(t, VerifyWebhookSignature(secret, []byte(`{"object":"page","entry":[{}]}`), header))
	assert.False(t, VerifyWebhookSignature("other-secret", payload, header))
	assert.False(t, VerifyWebhookSignature(secret, payload, "sha1=deadbeef"))
	assert.False(t, VerifyWebhookSignature(secret, payload, ""))
}
