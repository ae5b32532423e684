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

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	SendCampaign(c fiber.Ctx) error
	CancelCampaign(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// CreateCampaign creates a draft campaign with its recipient list
// @Summary Create Campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign data"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign created"
// @Failure 400 {object} dto.APIResponse "Validation error or no valid recipients"
// @Failure 403 {object} dto.APIResponse "Page access denied"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
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

	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), userID, &req, metadata)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNoRecipients(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No valid recipients on this page", "CAMPAIGN_NO_RECIPIENTS", nil)
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// ListCampaigns returns the campaigns of the caller's pages
// @Summary List Campaigns
// @Tags Campaigns
// @Produce json
// @Param page_id query int false "Restrict to one page"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := &dto.ListCampaignsRequest{}
	if v := c.Query("page_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.PageID = uint(id)
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

	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), userID, req)
	if err != nil {
		if businessflow.IsPageAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Page access denied", "PAGE_ACCESS_DENIED", nil)
		}

		log.Println("List campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "CAMPAIGN_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// GetCampaign returns one campaign with its counters
// @Summary Get Campaign
// @Tags Campaigns
// @Produce json
// @Param campaignId path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{campaignId} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	campaignID, err := parseCampaignID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c, "/api/v1/campaigns/:campaignId"), userID, campaignID)
	if err != nil {
		return h.campaignError(c, "Get campaign failed", "CAMPAIGN_GET_FAILED", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// UpdateCampaign edits the name or message of a draft campaign
// @Summary Update Campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param campaignId path int true "Campaign ID"
// @Param request body dto.UpdateCampaignRequest true "Campaign changes"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign updated"
// @Failure 409 {object} dto.APIResponse "Campaign is not a draft"
// @Router /api/v1/campaigns/{campaignId} [put]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	var req dto.UpdateCampaignRequest
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

	campaignID, err := parseCampaignID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.UpdateCampaign(h.createRequestContext(c, "/api/v1/campaigns/:campaignId"), userID, campaignID, &req, metadata)
	if err != nil {
		return h.campaignError(c, "Update campaign failed", "CAMPAIGN_UPDATE_FAILED", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// DeleteCampaign removes a campaign that is not currently sending
// @Summary Delete Campaign
// @Tags Campaigns
// @Produce json
// @Param campaignId path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse "Campaign deleted"
// @Failure 409 {object} dto.APIResponse "Campaign is sending"
// @Router /api/v1/campaigns/{campaignId} [delete]
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	campaignID, err := parseCampaignID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.campaignFlow.DeleteCampaign(h.createRequestContext(c, "/api/v1/campaigns/:campaignId"), userID, campaignID, metadata); err != nil {
		return h.campaignError(c, "Delete campaign failed", "CAMPAIGN_DELETE_FAILED", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

// SendCampaign dispatches a draft campaign to its pending recipients
// @Summary Send Campaign
// @Tags Campaigns
// @Produce json
// @Param campaignId path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.SendCampaignResponse} "Dispatch finished"
// @Failure 409 {object} dto.APIResponse "Campaign is not a draft"
// @Router /api/v1/campaigns/{campaignId}/send [post]
func (h *CampaignHandler) SendCampaign(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	campaignID, err := parseCampaignID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Dispatch runs serially over the recipient list, give it more room
	result, err := h.campaignFlow.SendCampaign(h.createRequestContextWithTimeout(c, "/api/v1/campaigns/:campaignId/send", 10*time.Minute), userID, campaignID, metadata)
	if err != nil {
		return h.campaignError(c, "Send campaign failed", "CAMPAIGN_SEND_FAILED", err)
	}

	middleware.ObserveCampaignMessages("sent", result.Sent)
	middleware.ObserveCampaignMessages("failed", result.Failed)

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign dispatched", result)
}

// CancelCampaign stops a sending campaign and fails its pending recipients
// @Summary Cancel Campaign
// @Tags Campaigns
// @Produce json
// @Param campaignId path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CancelCampaignResponse} "Campaign cancelled"
// @Failure 409 {object} dto.APIResponse "Campaign is not sending"
// @Router /api/v1/campaigns/{campaignId}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	campaignID, err := parseCampaignID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CancelCampaign(h.createRequestContext(c, "/api/v1/campaigns/:campaignId/cancel"), userID, campaignID, metadata)
	if err != nil {
		return h.campaignError(c, "Cancel campaign failed", "CAMPAIGN_CANCEL_FAILED", err)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign cancelled", result)
}

// Private helper methods

func (h *CampaignHandler) campaignError(c fiber.Ctx, logMessage, fallbackCode string, err error) error {
	if businessflow.IsCampaignNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsCampaignAccessDenied(err) || businessflow.IsPageAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
	}
	if businessflow.IsCampaignNotDraft(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not in draft status", "CAMPAIGN_NOT_DRAFT", nil)
	}
	if businessflow.IsCampaignNotSending(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not in sending status", "CAMPAIGN_NOT_SENDING", nil)
	}

	log.Println(logMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, logMessage, fallbackCode, nil)
}

func parseCampaignID(c fiber.Ctx) (uint, error) {
	raw := c.Params("campaignId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *CampaignHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
