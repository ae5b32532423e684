package models

import "time"

// Business groups pages under one organization for tag sharing
type Business struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedBy uint      `gorm:"not null;index:idx_businesses_created_by" json:"created_by"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

// BusinessFilter represents filter criteria for business queries
type BusinessFilter struct {
	ID        *uint
	Name      *string
	CreatedBy *uint
}

// BusinessUser links an operator to a business
// Unique on (business_id, user_id)
type BusinessUser struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"not null;uniqueIndex:uk_business_users_pair;index:idx_business_users_business_id" json:"business_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uk_business_users_pair;index:idx_business_users_user_id" json:"user_id"`
	Role       string    `gorm:"size:32;not null;default:'member'" json:"role"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (BusinessUser) TableName() string { return "business_users" }

// BusinessUserFilter represents filter criteria for business membership queries
type BusinessUserFilter struct {
	ID         *uint
	BusinessID *uint
	UserID     *uint
	Role       *string
}
