// Package businessflow contains the core business logic and use cases for webhook ingestion
package businessflow

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/config"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
)

// WebhookFlow handles the Messenger webhook handshake and event ingestion
type WebhookFlow interface {
	VerifyHandshake(mode, verifyToken, challenge string) (string, error)
	IngestEvents(ctx context.Context, body []byte, signature string) (*dto.WebhookResultDTO, error)
}

// WebhookFlowImpl implements the webhook business flow
type WebhookFlowImpl struct {
	pageRepo    repository.PageRepository
	contactRepo repository.ContactRepository
	fbConfig    *config.FacebookConfig
}

// NewWebhookFlow creates a new webhook flow instance
func NewWebhookFlow(
	pageRepo repository.PageRepository,
	contactRepo repository.ContactRepository,
	fbConfig *config.FacebookConfig,
) WebhookFlow {
	return &WebhookFlowImpl{
		pageRepo:    pageRepo,
		contactRepo: contactRepo,
		fbConfig:    fbConfig,
	}
}

// VerifyHandshake answers the subscription handshake. The challenge is
// echoed back only when the mode and verify token both match.
func (wf *WebhookFlowImpl) VerifyHandshake(mode, verifyToken, challenge string) (string, error) {
	if mode != "subscribe" || verifyToken != wf.fbConfig.WebhookVerifyToken {
		return "", NewBusinessError("INVALID_VERIFY_TOKEN", "Webhook verification failed", ErrInvalidVerifyToken)
	}
	return challenge, nil
}

// IngestEvents validates the payload signature and touches the contact
// behind every message event. Events for unknown pages and events sent by
// the page itself are counted as skipped.
func (wf *WebhookFlowImpl) IngestEvents(ctx context.Context, body []byte, signature string) (*dto.WebhookResultDTO, error) {
	if !services.VerifyWebhookSignature(wf.fbConfig.AppSecret, body, signature) {
		return nil, NewBusinessError("INVALID_SIGNATURE", "Webhook signature mismatch", ErrInvalidSignature)
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, NewBusinessError("WEBHOOK_PARSE_FAILED", "Failed to parse webhook payload", err)
	}

	result := &dto.WebhookResultDTO{}
	if payload.Object != "page" {
		return result, nil
	}

	for _, entry := range payload.Entry {
		page, err := wf.pageRepo.ByFBPageID(ctx, entry.ID)
		if err != nil {
			return nil, NewBusinessError("WEBHOOK_INGEST_FAILED", "Failed to resolve webhook page", err)
		}
		if page == nil {
			result.Skipped += len(entry.Messaging)
			continue
		}

		for _, event := range entry.Messaging {
			if event.Message == nil || event.Sender.ID == "" || event.Sender.ID == page.FBPageID {
				result.Skipped++
				continue
			}

			if err := wf.touchContact(ctx, page.ID, event); err != nil {
				log.Printf("webhook: failed to upsert contact %s on page %d: %v", event.Sender.ID, page.ID, err)
				result.Skipped++
				continue
			}
			result.Processed++
		}
	}

	return result, nil
}

// touchContact creates the contact if it is new and advances its last
// interaction timestamp
func (wf *WebhookFlowImpl) touchContact(ctx context.Context, pageID uint, event dto.MessagingEvent) error {
	interactedAt := time.UnixMilli(event.Timestamp).UTC()
	contact := &models.Contact{
		PageID:          pageID,
		PSID:            event.Sender.ID,
		LastInteraction: &interactedAt,
	}
	return wf.contactRepo.Upsert(ctx, contact)
}
