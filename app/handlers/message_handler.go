// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/middleware"
	businessflow "github.com/princecjqlara/Tokkobeta/business_flow"
)

// MessageHandlerInterface defines the contract for message handlers
type MessageHandlerInterface interface {
	SendMessages(c fiber.Ctx) error
}

// MessageHandler handles ad-hoc message HTTP requests
type MessageHandler struct {
	messageFlow businessflow.MessageFlow
	validator   *validator.Validate
}

func (h *MessageHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MessageHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageFlow businessflow.MessageFlow) *MessageHandler {
	return &MessageHandler{
		messageFlow: messageFlow,
		validator:   validator.New(),
	}
}

// SendMessages delivers a message to a batch of contacts without a campaign
// @Summary Send Messages
// @Description Send a message to a batch of the page's contacts immediately, without creating a campaign
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body dto.SendMessagesRequest true "Page, contacts and message"
// @Success 200 {object} dto.APIResponse{data=dto.SendMessagesResponse} "Delivery outcome"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Page access denied"
// @Failure 404 {object} dto.APIResponse "Page or contacts not found"
// @Router /api/v1/facebook/messages/send [post]
func (h *MessageHandler) SendMessages(c fiber.Ctx) error {
	var req dto.SendMessagesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.messageFlow.SendMessages(h.createRequestContext(c, "/api/v1/facebook/messages/send"), userID, &req)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}
		if businessflow.IsPageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Page not found", "PAGE_NOT_FOUND", nil)
		}
		if businessflow.IsPageInactive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Page is inactive", "PAGE_INACTIVE", nil)
		}
		if businessflow.IsNoContactsOnPage(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No valid contacts found", "CONTACTS_NOT_FOUND", nil)
		}

		log.Println("Direct send failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send messages", "MESSAGE_SEND_FAILED", nil)
	}

	middleware.ObserveCampaignMessages("sent", result.Sent)
	middleware.ObserveCampaignMessages("failed", result.Failed)

	return h.SuccessResponse(c, fiber.StatusOK, "Messages dispatched", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *MessageHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	// Serial per-contact delivery, give the batch room to finish
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
