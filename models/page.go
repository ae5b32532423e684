package models

import "time"

// Page represents a connected Facebook page and its messaging credentials
// Table: pages
// Unique by fb_page_id; access token is never serialized to API responses
type Page struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FBPageID    string     `gorm:"column:fb_page_id;size:64;not null;uniqueIndex:uk_pages_fb_page_id" json:"fb_page_id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Category    *string    `gorm:"size:255" json:"category,omitempty"`
	PictureURL  *string    `gorm:"type:text" json:"picture_url,omitempty"`
	AccessToken string     `gorm:"type:text;not null" json:"-"`
	BusinessID  *uint      `gorm:"index:idx_pages_business_id" json:"business_id,omitempty"`
	IsActive    *bool      `gorm:"default:true;index:idx_pages_is_active" json:"is_active"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Business *Business `gorm:"foreignKey:BusinessID;references:ID" json:"business,omitempty"`
}

func (Page) TableName() string { return "pages" }

// PageFilter represents filter criteria for page queries
type PageFilter struct {
	ID           *uint
	FBPageID     *string
	Name         *string
	BusinessID   *uint
	IsActive     *bool
	SyncedBefore *time.Time
}

// UserPage links an operator to a page they may manage
// Unique on (user_id, page_id)
type UserPage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_user_pages_pair;index:idx_user_pages_user_id" json:"user_id"`
	PageID    uint      `gorm:"not null;uniqueIndex:uk_user_pages_pair;index:idx_user_pages_page_id" json:"page_id"`
	Role      string    `gorm:"size:32;not null;default:'admin'" json:"role"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Page *Page `gorm:"foreignKey:PageID;references:ID" json:"page,omitempty"`
}

func (UserPage) TableName() string { return "user_pages" }

// UserPageFilter represents filter criteria for page membership queries
type UserPageFilter struct {
	ID     *uint
	UserID *uint
	PageID *uint
	Role   *string
}
