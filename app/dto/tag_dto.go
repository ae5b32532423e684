// Package dto contains Data Transfer Objects for API request and response structures
package dto

// TagDTO represents a tag in API responses
type TagDTO struct {
	ID        uint    `json:"id" example:"7"`
	Name      string  `json:"name" example:"vip"`
	Color     *string `json:"color,omitempty" example:"#28a745"`
	OwnerType string  `json:"owner_type" example:"page"`
	OwnerID   uint    `json:"owner_id" example:"1"`
	CreatedAt string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CreateTagRequest represents the request to create a tag
type CreateTagRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255" example:"vip"`
	Color     *string `json:"color,omitempty" validate:"omitempty,max=16" example:"#28a745"`
	OwnerType string  `json:"owner_type" validate:"required,oneof=user page business" example:"page"`
	OwnerID   uint    `json:"owner_id" validate:"omitempty" example:"1"`
}

// UpdateTagRequest represents the request to rename or recolor a tag
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Color *string `json:"color,omitempty" validate:"omitempty,max=16"`
}

// ListTagsRequest represents query parameters for tag listing
type ListTagsRequest struct {
	Scope  string `query:"scope" validate:"omitempty,oneof=user page business all"`
	PageID uint   `query:"page_id" validate:"omitempty"`
}

// ListTagsResponse represents the tags visible to the caller
type ListTagsResponse struct {
	Tags []TagDTO `json:"tags"`
}

// BulkDeleteTagsRequest represents the request to delete several tags
type BulkDeleteTagsRequest struct {
	TagIDs []uint `json:"tag_ids" validate:"required,min=1,dive,required"`
}

// BulkDeleteTagsResponse represents the outcome of a tag bulk delete
type BulkDeleteTagsResponse struct {
	Deleted int `json:"deleted" example:"3"`
	Skipped int `json:"skipped" example:"1"`
}

// Common error codes for tag operations
const (
	ErrorTagNotFound     = "TAG_NOT_FOUND"
	ErrorTagAccessDenied = "TAG_ACCESS_DENIED"
)
