// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CampaignDTO represents a campaign in API responses
type CampaignDTO struct {
	ID              uint    `json:"id" example:"9"`
	UUID            string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	PageID          uint    `json:"page_id" example:"1"`
	Name            string  `json:"name" example:"January promo"`
	Message         string  `json:"message" example:"Hi! Your order status changed."`
	Status          string  `json:"status" example:"draft"`
	SentCount       int     `json:"sent_count" example:"0"`
	FailedCount     int     `json:"failed_count" example:"0"`
	TotalRecipients int64   `json:"total_recipients" example:"120"`
	StartedAt       *string `json:"started_at,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CreatedAt       string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CreateCampaignRequest represents the request to create a draft campaign
type CreateCampaignRequest struct {
	PageID     uint   `json:"page_id" validate:"required" example:"1"`
	Name       string `json:"name" validate:"required,min=1,max=255" example:"January promo"`
	Message    string `json:"message_text" validate:"required,min=1" example:"Hi! Your order status changed."`
	ContactIDs []uint `json:"contact_ids" validate:"required,min=1,dive,required"`
}

// UpdateCampaignRequest represents the request to edit a draft campaign
type UpdateCampaignRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Message *string `json:"message_text,omitempty" validate:"omitempty,min=1"`
}

// ListCampaignsRequest represents query parameters for campaign listing
type ListCampaignsRequest struct {
	PageID   uint `query:"page_id" validate:"omitempty"`
	Page     int  `query:"page" validate:"omitempty,min=1"`
	PageSize int  `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListCampaignsResponse represents a paginated campaign listing
type ListCampaignsResponse struct {
	Campaigns []CampaignDTO `json:"campaigns"`
	Total     int64         `json:"total" example:"12"`
	Page      int           `json:"page" example:"1"`
	PageSize  int           `json:"page_size" example:"20"`
}

// SendCampaignResponse represents the outcome of a campaign dispatch
type SendCampaignResponse struct {
	Sent   int `json:"sent" example:"118"`
	Failed int `json:"failed" example:"2"`
}

// CancelCampaignResponse represents the outcome of a campaign cancellation
type CancelCampaignResponse struct {
	CancelledPending int64 `json:"cancelled_pending" example:"40"`
}

// Common error codes for campaign operations
const (
	ErrorCampaignNotFound     = "CAMPAIGN_NOT_FOUND"
	ErrorCampaignAccessDenied = "CAMPAIGN_ACCESS_DENIED"
	ErrorCampaignNotDraft     = "CAMPAIGN_NOT_DRAFT"
	ErrorCampaignNotSending   = "CAMPAIGN_NOT_SENDING"
)
