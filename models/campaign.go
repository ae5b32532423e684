package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a messaging campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusSending,
		CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign represents a bulk message campaign targeted at a page's contacts
// Table: campaigns
// Lifecycle: draft -> sending -> completed, with cancellation allowed only
// while sending; terminal states never transition again
type Campaign struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	PageID    uint           `gorm:"not null;index:idx_campaigns_page_id" json:"page_id"`
	CreatedBy uint           `gorm:"not null;index:idx_campaigns_created_by" json:"created_by"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Status    CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`
	// TotalRecipients is fixed at creation time. Recipient rows can disappear
	// later when their contacts are bulk-deleted, the stored count must not.
	TotalRecipients int        `gorm:"not null;default:0" json:"total_recipients"`
	SentCount       int        `gorm:"not null;default:0" json:"sent_count"`
	FailedCount     int        `gorm:"not null;default:0" json:"failed_count"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Page       *Page               `gorm:"foreignKey:PageID;references:ID" json:"page,omitempty"`
	Recipients []CampaignRecipient `gorm:"foreignKey:CampaignID;references:ID" json:"recipients,omitempty"`
}

func (Campaign) TableName() string { return "campaigns" }

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// IsEditable checks if the campaign can still be modified
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft
}

// IsTerminal checks if the campaign has reached a final state
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusCompleted || c.Status == CampaignStatusCancelled
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusSending
	case CampaignStatusSending:
		return newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusCancelled
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaign queries
type CampaignFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	PageID        *uint
	CreatedBy     *uint
	Status        *CampaignStatus
	Name          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
