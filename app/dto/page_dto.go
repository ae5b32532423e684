// Package dto contains Data Transfer Objects for API request and response structures
package dto

// PageDTO represents a connected page in API responses
type PageDTO struct {
	ID         uint    `json:"id" example:"1"`
	FBPageID   string  `json:"fb_page_id" example:"104915012345678"`
	Name       string  `json:"name" example:"Acme Support"`
	Category   *string `json:"category,omitempty" example:"Retail Company"`
	PictureURL *string `json:"picture_url,omitempty"`
	IsActive   *bool   `json:"is_active" example:"true"`
	LastSyncAt *string `json:"last_sync_at,omitempty" example:"2024-01-15T10:30:00Z"`
}

// ListPagesResponse represents the operator's connected pages
type ListPagesResponse struct {
	Pages []PageDTO `json:"pages"`
}

// ConnectPageRequest represents the request to connect a Facebook page
type ConnectPageRequest struct {
	FBPageID    string  `json:"fb_page_id" validate:"required,max=64" example:"104915012345678"`
	Name        string  `json:"name" validate:"required,max=255" example:"Acme Support"`
	AccessToken string  `json:"access_token" validate:"required" example:"EAAG..."`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=255"`
	PictureURL  *string `json:"picture_url,omitempty"`
}

// ConnectPageResponse represents the connected page after upsert
type ConnectPageResponse struct {
	Page        PageDTO `json:"page"`
	SyncStarted bool    `json:"sync_started" example:"true"`
}

// FacebookPageDTO represents a manageable page listed from the Graph API
type FacebookPageDTO struct {
	ID         string  `json:"id" example:"104915012345678"`
	Name       string  `json:"name" example:"Acme Support"`
	Category   string  `json:"category" example:"Retail Company"`
	PictureURL *string `json:"picture_url,omitempty"`
	Connected  bool    `json:"connected" example:"false"`
}

// ListFacebookPagesResponse represents the Graph API page listing
type ListFacebookPagesResponse struct {
	Pages []FacebookPageDTO `json:"pages"`
}

// SyncResultDTO represents the outcome of one page sync
type SyncResultDTO struct {
	PageID uint `json:"page_id" example:"1"`
	Synced int  `json:"synced" example:"120"`
	Failed int  `json:"failed" example:"2"`
	Total  int  `json:"total" example:"122"`
}

// SweepResultDTO aggregates sync results across pages for the cron sweep
type SweepResultDTO struct {
	Pages   []SyncResultDTO `json:"pages"`
	Skipped int             `json:"skipped" example:"1"`
}
