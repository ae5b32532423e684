package models

import "time"

// Contact represents a Messenger conversation partner synced from a page inbox
// Table: contacts
// Unique on (page_id, psid); a contact may exist as a stub with only a PSID
// until the next sync enriches it with a profile
type Contact struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	PageID          uint       `gorm:"not null;uniqueIndex:uk_contacts_page_psid;index:idx_contacts_page_id" json:"page_id"`
	PSID            string     `gorm:"column:psid;size:64;not null;uniqueIndex:uk_contacts_page_psid" json:"psid"`
	Name            *string    `gorm:"size:255;index:idx_contacts_name" json:"name,omitempty"`
	FirstName       *string    `gorm:"size:255" json:"first_name,omitempty"`
	LastName        *string    `gorm:"size:255" json:"last_name,omitempty"`
	ProfilePicURL   *string    `gorm:"type:text" json:"profile_pic_url,omitempty"`
	ConversationID  *string    `gorm:"size:128" json:"conversation_id,omitempty"`
	LastInteraction *time.Time `gorm:"index:idx_contacts_last_interaction" json:"last_interaction,omitempty"`
	CreatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_contacts_created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Page *Page `gorm:"foreignKey:PageID;references:ID" json:"page,omitempty"`
	Tags []Tag `gorm:"many2many:contact_tags;joinForeignKey:ContactID;joinReferences:TagID" json:"tags,omitempty"`
}

func (Contact) TableName() string { return "contacts" }

// DisplayName returns the best available name for the contact
func (c *Contact) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.PSID
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	ID              *uint
	PageID          *uint
	PSID            *string
	Name            *string
	Search          *string
	TagID           *uint
	InteractedAfter *time.Time
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}
