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
	businessflow "github.com/princecjqlara/Tokkobeta/business_flow"
)

// ContactHandlerInterface defines the contract for contact handlers
type ContactHandlerInterface interface {
	ListContacts(c fiber.Ctx) error
	ExportContacts(c fiber.Ctx) error
	BulkAddTags(c fiber.Ctx) error
	BulkRemoveTags(c fiber.Ctx) error
	BulkDeleteContacts(c fiber.Ctx) error
}

// ContactHandler handles contact-related HTTP requests
type ContactHandler struct {
	contactFlow businessflow.ContactFlow
	validator   *validator.Validate
}

func (h *ContactHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ContactHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactFlow businessflow.ContactFlow) *ContactHandler {
	return &ContactHandler{
		contactFlow: contactFlow,
		validator:   validator.New(),
	}
}

// ListContacts returns a page of the page's contacts
// @Summary List Contacts
// @Tags Contacts
// @Produce json
// @Param pageId path int true "Page ID"
// @Param search query string false "Name or PSID substring"
// @Param tag_id query int false "Only contacts carrying this tag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListContactsResponse} "Contacts"
// @Failure 403 {object} dto.APIResponse "Page access denied"
// @Router /api/v1/pages/{pageId}/contacts [get]
func (h *ContactHandler) ListContacts(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	pageID, err := parsePageID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page ID", "INVALID_PAGE_ID", nil)
	}

	req := h.parseListRequest(c)

	result, err := h.contactFlow.ListContacts(h.createRequestContext(c, "/api/v1/pages/:pageId/contacts"), userID, pageID, req)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}

		log.Println("List contacts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list contacts", "CONTACT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts retrieved successfully", result)
}

// ExportContacts downloads the filtered contacts as an XLSX workbook
// @Summary Export Contacts
// @Tags Contacts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param pageId path int true "Page ID"
// @Param search query string false "Name or PSID substring"
// @Param tag_id query int false "Only contacts carrying this tag"
// @Success 200 {string} string "XLSX file"
// @Failure 403 {object} dto.APIResponse "Page access denied"
// @Router /api/v1/pages/{pageId}/contacts/export [get]
func (h *ContactHandler) ExportContacts(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	pageID, err := parsePageID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page ID", "INVALID_PAGE_ID", nil)
	}

	req := h.parseListRequest(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	filename, data, err := h.contactFlow.ExportContacts(h.createRequestContextWithTimeout(c, "/api/v1/pages/:pageId/contacts/export", 2*time.Minute), userID, pageID, req, metadata)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}

		log.Println("Export contacts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export contacts", "CONTACT_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// BulkAddTags links tags to a batch of contacts
// @Summary Bulk Add Tags
// @Tags Contacts
// @Accept json
// @Produce json
// @Param pageId path int true "Page ID"
// @Param request body dto.BulkTagRequest true "Contact and tag IDs"
// @Success 200 {object} dto.APIResponse{data=dto.BulkTagResponse} "Tags added"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/pages/{pageId}/contacts/bulk-add-tags [post]
func (h *ContactHandler) BulkAddTags(c fiber.Ctx) error {
	return h.bulkTag(c, "/api/v1/pages/:pageId/contacts/bulk-add-tags", h.contactFlow.BulkAddTags)
}

// BulkRemoveTags unlinks tags from a batch of contacts
// @Summary Bulk Remove Tags
// @Tags Contacts
// @Accept json
// @Produce json
// @Param pageId path int true "Page ID"
// @Param request body dto.BulkTagRequest true "Contact and tag IDs"
// @Success 200 {object} dto.APIResponse{data=dto.BulkTagResponse} "Tags removed"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Router /api/v1/pages/{pageId}/contacts/bulk-remove-tags [post]
func (h *ContactHandler) BulkRemoveTags(c fiber.Ctx) error {
	return h.bulkTag(c, "/api/v1/pages/:pageId/contacts/bulk-remove-tags", h.contactFlow.BulkRemoveTags)
}

// BulkDeleteContacts removes a batch of contacts from the page
// @Summary Bulk Delete Contacts
// @Tags Contacts
// @Accept json
// @Produce json
// @Param pageId path int true "Page ID"
// @Param request body dto.BulkDeleteContactsRequest true "Contact IDs"
// @Success 200 {object} dto.APIResponse{data=dto.BulkDeleteContactsResponse} "Contacts deleted"
// @Failure 403 {object} dto.APIResponse "Page access denied"
// @Router /api/v1/pages/{pageId}/contacts/bulk [delete]
func (h *ContactHandler) BulkDeleteContacts(c fiber.Ctx) error {
	var req dto.BulkDeleteContactsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

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

	pageID, err := parsePageID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page ID", "INVALID_PAGE_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.contactFlow.BulkDeleteContacts(h.createRequestContext(c, "/api/v1/pages/:pageId/contacts/bulk"), userID, pageID, &req, metadata)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}

		log.Println("Bulk delete contacts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete contacts", "CONTACT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts deleted successfully", result)
}

// Private helper methods

type bulkTagFunc func(ctx context.Context, userID uint, pageID uint, request *dto.BulkTagRequest) (*dto.BulkTagResponse, error)

func (h *ContactHandler) bulkTag(c fiber.Ctx, endpoint string, fn bulkTagFunc) error {
	var req dto.BulkTagRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

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

	pageID, err := parsePageID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page ID", "INVALID_PAGE_ID", nil)
	}

	result, err := fn(h.createRequestContext(c, endpoint), userID, pageID, &req)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}
		if businessflow.IsTagNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tag not found", "TAG_NOT_FOUND", nil)
		}
		if businessflow.IsTagAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Tag access denied", "TAG_ACCESS_DENIED", nil)
		}
		if businessflow.IsNoContactsOnPage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "None of the contacts belong to this page", "CONTACTS_NOT_ON_PAGE", nil)
		}

		log.Println("Bulk tag operation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk tag operation failed", "BULK_TAG_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tags updated successfully", result)
}

func (h *ContactHandler) parseListRequest(c fiber.Ctx) *dto.ListContactsRequest {
	req := &dto.ListContactsRequest{Search: c.Query("search")}
	if v := c.Query("tag_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.TagID = uint(id)
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Page = n
		}
	}
	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.PageSize = n
		}
	}
	return req
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *ContactHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *ContactHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
