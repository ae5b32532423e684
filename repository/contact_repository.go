// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princecjqlara/Tokkobeta/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactRepositoryImpl implements ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db, applyContactFilter),
	}
}

func applyContactFilter(db *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("contacts.id = ?", *filter.ID)
	}
	if filter.PageID != nil {
		db = db.Where("contacts.page_id = ?", *filter.PageID)
	}
	if filter.PSID != nil {
		db = db.Where("contacts.psid = ?", *filter.PSID)
	}
	if filter.Name != nil {
		db = db.Where("contacts.name = ?", *filter.Name)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + *filter.Search + "%"
		db = db.Where("contacts.name ILIKE ? OR contacts.psid ILIKE ?", pattern, pattern)
	}
	if filter.TagID != nil {
		db = db.Joins("JOIN contact_tags ON contact_tags.contact_id = contacts.id").
			Where("contact_tags.tag_id = ?", *filter.TagID)
	}
	if filter.InteractedAfter != nil {
		db = db.Where("contacts.last_interaction >= ?", *filter.InteractedAfter)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("contacts.created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("contacts.created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByPageAndPSID retrieves a contact by its page and page-scoped sender ID
func (r *ContactRepositoryImpl) ByPageAndPSID(ctx context.Context, pageID uint, psid string) (*models.Contact, error) {
	db := r.getDB(ctx)

	var contact models.Contact
	err := db.Where("page_id = ? AND psid = ?", pageID, psid).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contact by page and PSID: %w", err)
	}

	return &contact, nil
}

// Upsert inserts a contact or refreshes its profile fields when the
// (page_id, psid) pair already exists. Nil profile fields on the incoming
// contact do not clobber previously synced values.
func (r *ContactRepositoryImpl) Upsert(ctx context.Context, contact *models.Contact) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	assignments := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if contact.Name != nil {
		assignments["name"] = contact.Name
	}
	if contact.FirstName != nil {
		assignments["first_name"] = contact.FirstName
	}
	if contact.LastName != nil {
		assignments["last_name"] = contact.LastName
	}
	if contact.ProfilePicURL != nil {
		assignments["profile_pic_url"] = contact.ProfilePicURL
	}
	if contact.ConversationID != nil {
		assignments["conversation_id"] = contact.ConversationID
	}
	if contact.LastInteraction != nil {
		assignments["last_interaction"] = contact.LastInteraction
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_id"}, {Name: "psid"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(contact).Error
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}

	if contact.ID == 0 {
		var existing models.Contact
		if err = db.Where("page_id = ? AND psid = ?", contact.PageID, contact.PSID).First(&existing).Error; err != nil {
			return fmt.Errorf("failed to reload upserted contact: %w", err)
		}
		contact.ID = existing.ID
	}

	return nil
}

// List retrieves contacts matching the filter with their tags preloaded,
// plus the total count before pagination
func (r *ContactRepositoryImpl) List(ctx context.Context, filter models.ContactFilter, limit, offset int) ([]*models.Contact, int64, error) {
	db := r.getDB(ctx)

	var total int64
	countQuery := applyContactFilter(db.Model(&models.Contact{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	var contacts []*models.Contact
	query := applyContactFilter(db, filter).
		Preload("Tags").
		Order("contacts.last_interaction DESC NULLS LAST")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&contacts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, total, nil
}

// ByIDs retrieves the subset of the given contact IDs that belong to the page
func (r *ContactRepositoryImpl) ByIDs(ctx context.Context, pageID uint, ids []uint) ([]*models.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var contacts []*models.Contact
	err := db.Where("page_id = ? AND id IN ?", pageID, ids).Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts by IDs: %w", err)
	}

	return contacts, nil
}

// DeleteBatch removes contacts of a page along with their tag links and
// campaign recipient rows, and returns the number of contacts removed.
// Campaign counters are unaffected, they were persisted at dispatch time.
func (r *ContactRepositoryImpl) DeleteBatch(ctx context.Context, pageID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Where("contact_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Contact{}).
			Select("id").
			Where("page_id = ? AND id IN ?", pageID, ids),
	).Delete(&models.ContactTag{}).Error
	if err != nil {
		return 0, fmt.Errorf("failed to delete contact tag links: %w", err)
	}

	err = db.Where("contact_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Contact{}).
			Select("id").
			Where("page_id = ? AND id IN ?", pageID, ids),
	).Delete(&models.CampaignRecipient{}).Error
	if err != nil {
		return 0, fmt.Errorf("failed to delete campaign recipient rows: %w", err)
	}

	result := db.Where("page_id = ? AND id IN ?", pageID, ids).Delete(&models.Contact{})
	if result.Error != nil {
		err = result.Error
		return 0, fmt.Errorf("failed to delete contacts: %w", result.Error)
	}

	return result.RowsAffected, nil
}
