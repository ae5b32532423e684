// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/middleware"
	businessflow "github.com/princecjqlara/Tokkobeta/business_flow"
)

// PageHandlerInterface defines the contract for page handlers
type PageHandlerInterface interface {
	ListPages(c fiber.Ctx) error
	ListFacebookPages(c fiber.Ctx) error
	ConnectPage(c fiber.Ctx) error
	SyncPage(c fiber.Ctx) error
	LastSyncResult(c fiber.Ctx) error
}

// PageHandler handles page-related HTTP requests
type PageHandler struct {
	pageFlow  businessflow.PageFlow
	syncFlow  businessflow.SyncFlow
	validator *validator.Validate
}

func (h *PageHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *PageHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewPageHandler creates a new page handler
func NewPageHandler(pageFlow businessflow.PageFlow, syncFlow businessflow.SyncFlow) *PageHandler {
	return &PageHandler{
		pageFlow:  pageFlow,
		syncFlow:  syncFlow,
		validator: validator.New(),
	}
}

// ListPages returns the pages connected by the authenticated user
// @Summary List Connected Pages
// @Tags Pages
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListPagesResponse} "Connected pages"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/pages [get]
func (h *PageHandler) ListPages(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.pageFlow.ListPages(h.createRequestContext(c, "/api/v1/pages"), userID)
	if err != nil {
		log.Println("List pages failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list pages", "PAGE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pages retrieved successfully", result)
}

// ListFacebookPages returns the pages the user manages on Facebook
// @Summary List Facebook Pages
// @Description List the Facebook pages the user administers, flagging the already connected ones
// @Tags Pages
// @Produce json
// @Param access_token query string true "Facebook user access token"
// @Success 200 {object} dto.APIResponse{data=dto.ListFacebookPagesResponse} "Facebook pages"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 502 {object} dto.APIResponse "Graph API error"
// @Router /api/v1/facebook/pages [get]
func (h *PageHandler) ListFacebookPages(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	accessToken := c.Query("access_token")
	if accessToken == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "access_token is required", "MISSING_ACCESS_TOKEN", nil)
	}

	result, err := h.pageFlow.ListFacebookPages(h.createRequestContext(c, "/api/v1/facebook/pages"), userID, accessToken)
	if err != nil {
		log.Println("List Facebook pages failed", err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Failed to list Facebook pages", "FACEBOOK_PAGES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Facebook pages retrieved successfully", result)
}

// ConnectPage connects a Facebook page and kicks off the initial sync
// @Summary Connect Page
// @Tags Pages
// @Accept json
// @Produce json
// @Param request body dto.ConnectPageRequest true "Page connection data"
// @Success 200 {object} dto.APIResponse{data=dto.ConnectPageResponse} "Page connected"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/facebook/connect [post]
func (h *PageHandler) ConnectPage(c fiber.Ctx) error {
	var req dto.ConnectPageRequest
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.pageFlow.ConnectPage(h.createRequestContext(c, "/api/v1/facebook/connect"), userID, &req, metadata)
	if err != nil {
		log.Println("Connect page failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to connect page", "PAGE_CONNECT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Page connected successfully", result)
}

// SyncPage pulls the page's conversations into the contact list
// @Summary Sync Page Contacts
// @Tags Pages
// @Produce json
// @Param pageId path int true "Page ID"
// @Success 200 {object} dto.APIResponse{data=dto.SyncResultDTO} "Sync result"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Page access denied"
// @Failure 404 {object} dto.APIResponse "Page not found"
// @Failure 409 {object} dto.APIResponse "Sync already running"
// @Router /api/v1/pages/{pageId}/sync [post]
func (h *PageHandler) SyncPage(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	pageID, err := parsePageID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page ID", "INVALID_PAGE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Syncs can crawl thousands of conversations, give them more room
	result, err := h.syncFlow.SyncPage(h.createRequestContextWithTimeout(c, "/api/v1/pages/:pageId/sync", 5*time.Minute), pageID, userID, metadata)
	if err != nil {
		if businessflow.IsPageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Page not found", "PAGE_NOT_FOUND", nil)
		}
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}
		if businessflow.IsPageInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Page is inactive", "PAGE_INACTIVE", nil)
		}
		if businessflow.IsSyncInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Sync already in progress", "SYNC_IN_PROGRESS", nil)
		}

		log.Println("Page sync failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Page sync failed", "PAGE_SYNC_FAILED", nil)
	}

	middleware.ObserveContactsSynced(result.Synced)

	return h.SuccessResponse(c, fiber.StatusOK, "Page synced successfully", result)
}

// LastSyncResult returns the cached result of the page's last sync
// @Summary Last Sync Result
// @Tags Pages
// @Produce json
// @Param pageId path int true "Page ID"
// @Success 200 {object} dto.APIResponse{data=dto.SyncResultDTO} "Last sync result"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "No sync recorded"
// @Router /api/v1/pages/{pageId}/sync [get]
func (h *PageHandler) LastSyncResult(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	pageID, err := parsePageID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page ID", "INVALID_PAGE_ID", nil)
	}

	result, err := h.syncFlow.LastSyncResult(h.createRequestContext(c, "/api/v1/pages/:pageId/sync"), userID, pageID)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}
		log.Println("Last sync lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read sync result", "SYNC_RESULT_FAILED", nil)
	}
	if result == nil {
		return h.ErrorResponse(c, fiber.StatusNotFound, "No sync recorded for this page", "SYNC_RESULT_NOT_FOUND", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Sync result retrieved successfully", result)
}

func parsePageID(c fiber.Ctx) (uint, error) {
	raw := c.Params("pageId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *PageHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *PageHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
