// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/princecjqlara/Tokkobeta/app/dto"
	businessflow "github.com/princecjqlara/Tokkobeta/business_flow"
	"github.com/princecjqlara/Tokkobeta/config"
)

// CronHandlerInterface defines the contract for cron handlers
type CronHandlerInterface interface {
	SyncAllPages(c fiber.Ctx) error
}

// CronHandler handles scheduled-jobs HTTP requests
type CronHandler struct {
	syncFlow   businessflow.SyncFlow
	cronConfig *config.CronConfig
}

func (h *CronHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CronHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCronHandler creates a new cron handler
func NewCronHandler(syncFlow businessflow.SyncFlow, cronConfig *config.CronConfig) *CronHandler {
	return &CronHandler{
		syncFlow:   syncFlow,
		cronConfig: cronConfig,
	}
}

// SyncAllPages sweeps the active pages ordered by staleness
// @Summary Cron Contact Sync
// @Description Sync the stalest active pages. Authorized by the cron secret, either as a Bearer token or a secret query parameter.
// @Tags Cron
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SweepResultDTO} "Sweep finished"
// @Failure 401 {object} dto.APIResponse "Invalid cron secret"
// @Router /api/v1/cron/sync [post]
func (h *CronHandler) SyncAllPages(c fiber.Ctx) error {
	if !h.authorized(c) {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid cron secret", "INVALID_CRON_SECRET", nil)
	}

	result, err := h.syncFlow.SyncAllPages(h.createRequestContext(c, "/api/v1/cron/sync"))
	if err != nil {
		log.Println("Cron sync failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Cron sync failed", "CRON_SYNC_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Sync sweep finished", result)
}

// authorized accepts the secret from the Authorization header or, for cron
// providers that cannot set headers, from the secret query parameter
func (h *CronHandler) authorized(c fiber.Ctx) bool {
	if h.cronConfig.Secret == "" {
		return false
	}

	candidate := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	if candidate == "" || candidate == c.Get("Authorization") {
		candidate = c.Query("secret")
	}

	return subtle.ConstantTimeCompare([]byte(candidate), []byte(h.cronConfig.Secret)) == 1
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CronHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	// Sweeps crawl every stale page, give them plenty of room
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
