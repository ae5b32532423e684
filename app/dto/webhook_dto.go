// Package dto contains Data Transfer Objects for API request and response structures
package dto

// WebhookPayload represents a Messenger webhook delivery
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry represents events for one page within a delivery
type WebhookEntry struct {
	ID        string           `json:"id"` // Facebook page ID
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent represents a single messaging event
type MessagingEvent struct {
	Sender    WebhookParty    `json:"sender"`
	Recipient WebhookParty    `json:"recipient"`
	Timestamp int64           `json:"timestamp"` // milliseconds
	Message   *WebhookMessage `json:"message,omitempty"`
}

// WebhookParty identifies one side of a messaging event
type WebhookParty struct {
	ID string `json:"id"`
}

// WebhookMessage represents the message body of an event
type WebhookMessage struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}

// WebhookResultDTO summarizes how a delivery was ingested
type WebhookResultDTO struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}
