// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ContactDTO represents a synced contact in API responses
type ContactDTO struct {
	ID              uint     `json:"id" example:"42"`
	PageID          uint     `json:"page_id" example:"1"`
	PSID            string   `json:"psid" example:"7234098766312345"`
	Name            *string  `json:"name,omitempty" example:"John Doe"`
	FirstName       *string  `json:"first_name,omitempty"`
	LastName        *string  `json:"last_name,omitempty"`
	ProfilePicURL   *string  `json:"profile_pic_url,omitempty"`
	LastInteraction *string  `json:"last_interaction,omitempty" example:"2024-01-15T10:30:00Z"`
	Tags            []TagDTO `json:"tags"`
	CreatedAt       string   `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// ListContactsRequest represents query parameters for contact listing
type ListContactsRequest struct {
	Search   string `query:"search" validate:"omitempty,max=255"`
	TagID    uint   `query:"tag_id" validate:"omitempty"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListContactsResponse represents a paginated contact listing
type ListContactsResponse struct {
	Contacts []ContactDTO `json:"contacts"`
	Total    int64        `json:"total" example:"250"`
	Page     int          `json:"page" example:"1"`
	PageSize int          `json:"page_size" example:"50"`
}

// BulkTagRequest represents the request to add or remove tags on contacts
type BulkTagRequest struct {
	ContactIDs []uint `json:"contact_ids" validate:"required,min=1,dive,required"`
	TagIDs     []uint `json:"tag_ids" validate:"required,min=1,dive,required"`
}

// BulkTagResponse represents the outcome of a bulk tag operation
type BulkTagResponse struct {
	Contacts int `json:"contacts" example:"10"`
	Tags     int `json:"tags" example:"2"`
}

// BulkDeleteContactsRequest represents the request to delete contacts
type BulkDeleteContactsRequest struct {
	ContactIDs []uint `json:"contact_ids" validate:"required,min=1,dive,required"`
}

// BulkDeleteContactsResponse represents the outcome of a bulk delete
type BulkDeleteContactsResponse struct {
	Deleted int64 `json:"deleted" example:"10"`
}
