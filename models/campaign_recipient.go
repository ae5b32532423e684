package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// RecipientStatus represents the delivery state of a single campaign recipient
type RecipientStatus string

const (
	RecipientStatusPending RecipientStatus = "pending"
	RecipientStatusSent    RecipientStatus = "sent"
	RecipientStatusFailed  RecipientStatus = "failed"
)

// String returns the string representation of the status
func (s RecipientStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s RecipientStatus) Valid() bool {
	switch s {
	case RecipientStatusPending, RecipientStatusSent, RecipientStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RecipientStatus
func (s *RecipientStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RecipientStatus(v)
	case []byte:
		*s = RecipientStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RecipientStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RecipientStatus
func (s RecipientStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RecipientStatus: %s", s)
	}
	return string(s), nil
}

// CampaignRecipient represents one contact targeted by a campaign
// Table: campaign_recipients
// Unique on (campaign_id, contact_id); each row records the per-contact
// delivery outcome so a campaign's counters can always be recomputed
type CampaignRecipient struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CampaignID uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients_pair;index:idx_campaign_recipients_campaign_id" json:"campaign_id"`
	ContactID  uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients_pair;index:idx_campaign_recipients_contact_id" json:"contact_id"`
	Status     RecipientStatus `gorm:"type:recipient_status;not null;default:'pending';index:idx_campaign_recipients_status" json:"status"`
	Error      *string         `gorm:"type:text" json:"error,omitempty"`
	SentAt     *time.Time      `json:"sent_at,omitempty"`
	CreatedAt  time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Contact  *Contact  `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
}

func (CampaignRecipient) TableName() string { return "campaign_recipients" }

// IsPending checks if the recipient has not been attempted yet
func (r *CampaignRecipient) IsPending() bool {
	return r.Status == RecipientStatusPending
}

// CampaignRecipientFilter represents filter criteria for recipient queries
type CampaignRecipientFilter struct {
	ID         *uint
	CampaignID *uint
	ContactID  *uint
	Status     *RecipientStatus
}
