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

// TagHandlerInterface defines the contract for tag handlers
type TagHandlerInterface interface {
	CreateTag(c fiber.Ctx) error
	ListTags(c fiber.Ctx) error
	UpdateTag(c fiber.Ctx) error
	DeleteTag(c fiber.Ctx) error
	BulkDeleteTags(c fiber.Ctx) error
}

// TagHandler handles tag-related HTTP requests
type TagHandler struct {
	tagFlow   businessflow.TagFlow
	validator *validator.Validate
}

func (h *TagHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TagHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagFlow businessflow.TagFlow) *TagHandler {
	return &TagHandler{
		tagFlow:   tagFlow,
		validator: validator.New(),
	}
}

// CreateTag creates a tag under a user, page or business owner
// @Summary Create Tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param request body dto.CreateTagRequest true "Tag data"
// @Success 201 {object} dto.APIResponse{data=dto.TagDTO} "Tag created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Owner access denied"
// @Router /api/v1/tags [post]
func (h *TagHandler) CreateTag(c fiber.Ctx) error {
	var req dto.CreateTagRequest
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

	result, err := h.tagFlow.CreateTag(h.createRequestContext(c, "/api/v1/tags"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidTagOwner(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tag owner type", "INVALID_TAG_OWNER", nil)
		}
		if businessflow.IsTagAccessDenied(err) || businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Tag access denied", "TAG_ACCESS_DENIED", nil)
		}

		log.Println("Create tag failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create tag", "TAG_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Tag created successfully", result)
}

// ListTags returns the tags visible to the caller
// @Summary List Tags
// @Tags Tags
// @Produce json
// @Param scope query string false "user, page, business or all"
// @Param page_id query int false "Restrict page scope to one page"
// @Success 200 {object} dto.APIResponse{data=dto.ListTagsResponse} "Tags"
// @Router /api/v1/tags [get]
func (h *TagHandler) ListTags(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := &dto.ListTagsRequest{Scope: c.Query("scope")}
	if v := c.Query("page_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.PageID = uint(id)
		}
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.tagFlow.ListTags(h.createRequestContext(c, "/api/v1/tags"), userID, req)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}

		log.Println("List tags failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tags", "TAG_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tags retrieved successfully", result)
}

// UpdateTag renames or recolors a tag
// @Summary Update Tag
// @Tags Tags
// @Accept json
// @Produce json
// @Param tagId path int true "Tag ID"
// @Param request body dto.UpdateTagRequest true "Tag changes"
// @Success 200 {object} dto.APIResponse{data=dto.TagDTO} "Tag updated"
// @Failure 403 {object} dto.APIResponse "Tag access denied"
// @Failure 404 {object} dto.APIResponse "Tag not found"
// @Router /api/v1/tags/{tagId} [put]
func (h *TagHandler) UpdateTag(c fiber.Ctx) error {
	var req dto.UpdateTagRequest
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

	tagID, err := parseTagID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tag ID", "INVALID_TAG_ID", nil)
	}

	result, err := h.tagFlow.UpdateTag(h.createRequestContext(c, "/api/v1/tags/:tagId"), userID, tagID, &req)
	if err != nil {
		return h.tagError(c, "Update tag failed", "TAG_UPDATE_FAILED", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tag updated successfully", result)
}

// DeleteTag removes a tag and its contact links
// @Summary Delete Tag
// @Tags Tags
// @Produce json
// @Param tagId path int true "Tag ID"
// @Success 200 {object} dto.APIResponse "Tag deleted"
// @Failure 403 {object} dto.APIResponse "Tag access denied"
// @Failure 404 {object} dto.APIResponse "Tag not found"
// @Router /api/v1/tags/{tagId} [delete]
func (h *TagHandler) DeleteTag(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	tagID, err := parseTagID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tag ID", "INVALID_TAG_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.tagFlow.DeleteTag(h.createRequestContext(c, "/api/v1/tags/:tagId"), userID, tagID, metadata); err != nil {
		return h.tagError(c, "Delete tag failed", "TAG_DELETE_FAILED", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tag deleted successfully", nil)
}

// BulkDeleteTags removes several tags, skipping the ones the caller may not manage
// @Summary Bulk Delete Tags
// @Tags Tags
// @Accept json
// @Produce json
// @Param request body dto.BulkDeleteTagsRequest true "Tag IDs"
// @Success 200 {object} dto.APIResponse{data=dto.BulkDeleteTagsResponse} "Tags deleted"
// @Router /api/v1/tags/bulk-delete [post]
func (h *TagHandler) BulkDeleteTags(c fiber.Ctx) error {
	var req dto.BulkDeleteTagsRequest
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.tagFlow.BulkDeleteTags(h.createRequestContext(c, "/api/v1/tags/bulk-delete"), userID, &req, metadata)
	if err != nil {
		log.Println("Bulk delete tags failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete tags", "TAG_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tags deleted successfully", result)
}

// Private helper methods

func (h *TagHandler) tagError(c fiber.Ctx, logMessage, fallbackCode string, err error) error {
	if businessflow.IsTagNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Tag not found", "TAG_NOT_FOUND", nil)
	}
	if businessflow.IsTagAccessDenied(err) || businessflow.IsPageAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Tag access denied", "TAG_ACCESS_DENIED", nil)
	}

	log.Println(logMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, logMessage, fallbackCode, nil)
}

func parseTagID(c fiber.Ctx) (uint, error) {
	raw := c.Params("tagId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *TagHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
