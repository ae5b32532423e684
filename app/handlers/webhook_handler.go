// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/princecjqlara/Tokkobeta/app/dto"
	businessflow "github.com/princecjqlara/Tokkobeta/business_flow"
)

// WebhookHandlerInterface defines the contract for webhook handlers
type WebhookHandlerInterface interface {
	VerifyWebhook(c fiber.Ctx) error
	ReceiveWebhook(c fiber.Ctx) error
}

// WebhookHandler handles Messenger webhook HTTP requests
type WebhookHandler struct {
	webhookFlow businessflow.WebhookFlow
}

func (h *WebhookHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookFlow businessflow.WebhookFlow) *WebhookHandler {
	return &WebhookHandler{webhookFlow: webhookFlow}
}

// VerifyWebhook answers the Messenger subscription handshake
// @Summary Webhook Handshake
// @Tags Webhooks
// @Produce plain
// @Param hub.mode query string true "Handshake mode"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string "Challenge"
// @Failure 403 {object} dto.APIResponse "Verification failed"
// @Router /api/v1/facebook/webhook [get]
func (h *WebhookHandler) VerifyWebhook(c fiber.Ctx) error {
	challenge, err := h.webhookFlow.VerifyHandshake(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Webhook verification failed", "INVALID_VERIFY_TOKEN", nil)
	}

	return c.Status(fiber.StatusOK).SendString(challenge)
}

// ReceiveWebhook ingests Messenger events after checking the payload signature
// @Summary Receive Webhook Events
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Hub-Signature-256 header string true "HMAC signature of the raw body"
// @Success 200 {object} dto.APIResponse{data=dto.WebhookResultDTO} "Events processed"
// @Failure 403 {object} dto.APIResponse "Signature mismatch"
// @Router /api/v1/facebook/webhook [post]
func (h *WebhookHandler) ReceiveWebhook(c fiber.Ctx) error {
	// The signature covers the raw bytes, grab them before any parsing
	body := c.Body()
	signature := c.Get("X-Hub-Signature-256")

	result, err := h.webhookFlow.IngestEvents(h.createRequestContext(c, "/api/v1/facebook/webhook"), body, signature)
	if err != nil {
		if businessflow.IsInvalidSignature(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Invalid webhook signature", "INVALID_SIGNATURE", nil)
		}

		log.Println("Webhook ingestion failed", err)
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Webhook ingestion failed", "WEBHOOK_INGEST_FAILED", nil)
	}

	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{
		Success: true,
		Message: "Events processed",
		Data:    result,
	})
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *WebhookHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
