// Package services provides external service integrations and technical concerns like Graph API access and tokens
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/princecjqlara/Tokkobeta/config"
	"github.com/princecjqlara/Tokkobeta/utils"
)

// FacebookClient handles Facebook Graph API operations
type FacebookClient interface {
	ListPages(ctx context.Context, userAccessToken string) ([]GraphPage, error)
	ListConversations(ctx context.Context, pageID, pageAccessToken string) ([]GraphConversation, error)
	GetProfile(ctx context.Context, psid, pageAccessToken string) (*GraphProfile, error)
	SendMessage(ctx context.Context, pageAccessToken, psid, text string) (string, error)
}

// GraphPage represents a page the user manages, including its page token
type GraphPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	AccessToken string `json:"access_token"`
	Picture     struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// GraphParticipant represents one side of a conversation
type GraphParticipant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GraphConversation represents a page inbox conversation
type GraphConversation struct {
	ID           string `json:"id"`
	UpdatedTime  string `json:"updated_time"`
	Participants struct {
		Data []GraphParticipant `json:"data"`
	} `json:"participants"`
}

// GraphProfile represents a Messenger user profile
type GraphProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ProfilePic string `json:"profile_pic"`
}

// GraphError represents the Graph API error envelope
type GraphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error %d (%s): %s", e.Code, e.Type, e.Message)
}

type graphErrorEnvelope struct {
	Error *GraphError `json:"error"`
}

type pagedResponse[T any] struct {
	Data   []T `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type sendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// FacebookClientImpl implements FacebookClient against the Graph API
type FacebookClientImpl struct {
	config *config.FacebookConfig
	client *http.Client
}

// NewFacebookClient creates a new Graph API client instance
func NewFacebookClient(cfg *config.FacebookConfig) FacebookClient {
	return &FacebookClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

// ListPages retrieves the pages the user manages along with page tokens
func (f *FacebookClientImpl) ListPages(ctx context.Context, userAccessToken string) ([]GraphPage, error) {
	params := url.Values{}
	params.Set("fields", "id,name,category,access_token,picture{url}")
	params.Set("access_token", userAccessToken)

	endpoint := fmt.Sprintf("%s/me/accounts?%s", f.config.GraphURL(), params.Encode())

	var out pagedResponse[GraphPage]
	if err := f.get(ctx, endpoint, &out); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	return out.Data, nil
}

// ListConversations retrieves every conversation of a page inbox, following
// pagination until exhausted. Fetching stops at the ceiling to bound memory
// and API usage on very large inboxes.
func (f *FacebookClientImpl) ListConversations(ctx context.Context, pageID, pageAccessToken string) ([]GraphConversation, error) {
	params := url.Values{}
	params.Set("fields", "participants,updated_time")
	params.Set("limit", "100")
	params.Set("access_token", pageAccessToken)

	next := fmt.Sprintf("%s/%s/conversations?%s", f.config.GraphURL(), pageID, params.Encode())

	var conversations []GraphConversation
	for next != "" {
		var out pagedResponse[GraphConversation]
		if err := f.get(ctx, next, &out); err != nil {
			return nil, fmt.Errorf("failed to list conversations for page %s: %w", pageID, err)
		}

		conversations = append(conversations, out.Data...)
		if len(conversations) >= utils.ConversationFetchCeiling {
			log.Printf("facebook: page %s has more than %d conversations, truncating fetch", pageID, utils.ConversationFetchCeiling)
			conversations = conversations[:utils.ConversationFetchCeiling]
			break
		}

		next = out.Paging.Next
	}

	return conversations, nil
}

// GetProfile retrieves a Messenger user's profile by PSID. Profiles are
// frequently unavailable for older conversations, so callers should treat
// an error here as a soft failure.
func (f *FacebookClientImpl) GetProfile(ctx context.Context, psid, pageAccessToken string) (*GraphProfile, error) {
	params := url.Values{}
	params.Set("fields", "id,name,first_name,last_name,profile_pic")
	params.Set("access_token", pageAccessToken)

	endpoint := fmt.Sprintf("%s/%s?%s", f.config.GraphURL(), psid, params.Encode())

	var profile GraphProfile
	if err := f.get(ctx, endpoint, &profile); err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", psid, err)
	}

	return &profile, nil
}

// SendMessage delivers a text message to a PSID outside the standard
// messaging window using the ACCOUNT_UPDATE tag, and returns the Graph
// message ID
func (f *FacebookClientImpl) SendMessage(ctx context.Context, pageAccessToken, psid, text string) (string, error) {
	payload := map[string]any{
		"recipient":      map[string]string{"id": psid},
		"message":        map[string]string{"text": text},
		"messaging_type": "MESSAGE_TAG",
		"tag":            "ACCOUNT_UPDATE",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", f.config.GraphURL(), url.QueryEscape(pageAccessToken))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope graphErrorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return "", envelope.Error
		}
		return "", fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode send message response: %w", err)
	}

	return out.MessageID, nil
}

func (f *FacebookClientImpl) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform graph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope graphErrorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}

	return nil
}

// SignWebhookPayload computes the signature header value the Graph API
// attaches to webhook deliveries
func SignWebhookPayload(appSecret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the X-Hub-Signature-256 header against the
// raw request body using a constant-time comparison
func VerifyWebhookSignature(appSecret string, payload []byte, header string) bool {
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	expected := SignWebhookPayload(appSecret, payload)
	return hmac.Equal([]byte(expected), []byte(header))
}

// MockFacebookClient implements FacebookClient for testing
type MockFacebookClient struct {
	Pages         []GraphPage
	Conversations map[string][]GraphConversation
	Profiles      map[string]*GraphProfile
	SentMessages  []MockSentMessage
	FailPSIDs     map[string]string // psid -> error message
}

// MockSentMessage represents a message captured by the mock client
type MockSentMessage struct {
	PSID   string
	Text   string
	SentAt time.Time
}

// NewMockFacebookClient creates a new mock Graph API client
func NewMockFacebookClient() *MockFacebookClient {
	return &MockFacebookClient{
		Conversations: make(map[string][]GraphConversation),
		Profiles:      make(map[string]*GraphProfile),
		FailPSIDs:     make(map[string]string),
	}
}

// ListPages returns the configured pages
func (m *MockFacebookClient) ListPages(ctx context.Context, userAccessToken string) ([]GraphPage, error) {
	return m.Pages, nil
}

// ListConversations returns the configured conversations for a page
func (m *MockFacebookClient) ListConversations(ctx context.Context, pageID, pageAccessToken string) ([]GraphConversation, error) {
	return m.Conversations[pageID], nil
}

// GetProfile returns the configured profile or a not-found error
func (m *MockFacebookClient) GetProfile(ctx context.Context, psid, pageAccessToken string) (*GraphProfile, error) {
	if profile, ok := m.Profiles[psid]; ok {
		return profile, nil
	}
	return nil, &GraphError{Message: "Unsupported get request", Type: "GraphMethodException", Code: 100}
}

// SendMessage captures the message or fails when the PSID is configured to fail
func (m *MockFacebookClient) SendMessage(ctx context.Context, pageAccessToken, psid, text string) (string, error) {
	if reason, ok := m.FailPSIDs[psid]; ok {
		return "", &GraphError{Message: reason, Type: "OAuthException", Code: 10}
	}

	m.SentMessages = append(m.SentMessages, MockSentMessage{
		PSID:   psid,
		Text:   text,
		SentAt: utils.UTCNow(),
	})

	return fmt.Sprintf("mid.mock-%d", len(m.SentMessages)), nil
}
