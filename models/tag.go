package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// TagOwnerType identifies who owns a tag and therefore who may see it
type TagOwnerType string

const (
	TagOwnerUser     TagOwnerType = "user"
	TagOwnerPage     TagOwnerType = "page"
	TagOwnerBusiness TagOwnerType = "business"
)

// String returns the string representation of the owner type
func (t TagOwnerType) String() string {
	return string(t)
}

// Valid checks if the owner type is valid
func (t TagOwnerType) Valid() bool {
	switch t {
	case TagOwnerUser, TagOwnerPage, TagOwnerBusiness:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TagOwnerType
func (t *TagOwnerType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = TagOwnerType(v)
	case []byte:
		*t = TagOwnerType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TagOwnerType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TagOwnerType
func (t TagOwnerType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid TagOwnerType: %s", t)
	}
	return string(t), nil
}

// Tag represents a label applied to contacts for campaign targeting
// Table: tags
// Owner scoping: user tags are private to their creator, page tags are
// shared among a page's operators, business tags span every page under
// the business
type Tag struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"size:255;not null;index:idx_tags_name" json:"name"`
	Color     *string      `gorm:"size:16" json:"color,omitempty"`
	OwnerType TagOwnerType `gorm:"type:tag_owner_type;not null;default:'user';index:idx_tags_owner" json:"owner_type"`
	OwnerID   uint         `gorm:"not null;index:idx_tags_owner" json:"owner_id"`
	CreatedBy uint         `gorm:"not null" json:"created_by"`
	CreatedAt time.Time    `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_tags_created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Tag) TableName() string { return "tags" }

// TagFilter represents filter criteria for tag queries
type TagFilter struct {
	ID            *uint
	Name          *string
	OwnerType     *TagOwnerType
	OwnerID       *uint
	CreatedBy     *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ContactTag links a contact to a tag
// Unique on (contact_id, tag_id); inserts are idempotent at the repository level
type ContactTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContactID uint      `gorm:"not null;uniqueIndex:uk_contact_tags_pair;index:idx_contact_tags_contact_id" json:"contact_id"`
	TagID     uint      `gorm:"not null;uniqueIndex:uk_contact_tags_pair;index:idx_contact_tags_tag_id" json:"tag_id"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (ContactTag) TableName() string { return "contact_tags" }

// ContactTagFilter represents filter criteria for contact tag queries
type ContactTagFilter struct {
	ID        *uint
	ContactID *uint
	TagID     *uint
}
