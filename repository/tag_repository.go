// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/princecjqlara/Tokkobeta/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepositoryImpl implements TagRepository interface
type TagRepositoryImpl struct {
	*BaseRepository[models.Tag, models.TagFilter]
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &TagRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tag, models.TagFilter](db, applyTagFilter),
	}
}

func applyTagFilter(db *gorm.DB, filter models.TagFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.OwnerType != nil {
		db = db.Where("owner_type = ?", *filter.OwnerType)
	}
	if filter.OwnerID != nil {
		db = db.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ListVisible retrieves every tag the user may see: their own user tags,
// page tags of pages they manage, and business tags of businesses those
// pages belong to
func (r *TagRepositoryImpl) ListVisible(ctx context.Context, userID uint, pageIDs, businessIDs []uint) ([]*models.Tag, error) {
	db := r.getDB(ctx)

	query := db.Where("owner_type = ? AND owner_id = ?", models.TagOwnerUser, userID)
	if len(pageIDs) > 0 {
		query = query.Or("owner_type = ? AND owner_id IN ?", models.TagOwnerPage, pageIDs)
	}
	if len(businessIDs) > 0 {
		query = query.Or("owner_type = ? AND owner_id IN ?", models.TagOwnerBusiness, businessIDs)
	}

	var tags []*models.Tag
	err := db.Where(query).Order("name ASC").Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list visible tags: %w", err)
	}

	return tags, nil
}

// Update persists changes to a tag's mutable fields
func (r *TagRepositoryImpl) Update(ctx context.Context, tag *models.Tag) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Tag{}).
		Where("id = ?", tag.ID).
		Updates(map[string]any{
			"name":       tag.Name,
			"color":      tag.Color,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}

	return nil
}

// DeleteWithLinks removes a tag and all of its contact links
func (r *TagRepositoryImpl) DeleteWithLinks(ctx context.Context, tagID uint) error {
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

	err = db.Where("tag_id = ?", tagID).Delete(&models.ContactTag{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete contact tag links: %w", err)
	}

	err = db.Delete(&models.Tag{}, tagID).Error
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	return nil
}

// AddContactTags links every given contact to every given tag; existing
// links are left untouched so repeated calls are idempotent
func (r *TagRepositoryImpl) AddContactTags(ctx context.Context, contactIDs []uint, tagIDs []uint) error {
	if len(contactIDs) == 0 || len(tagIDs) == 0 {
		return nil
	}

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

	links := make([]models.ContactTag, 0, len(contactIDs)*len(tagIDs))
	for _, contactID := range contactIDs {
		for _, tagID := range tagIDs {
			links = append(links, models.ContactTag{ContactID: contactID, TagID: tagID})
		}
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contact_id"}, {Name: "tag_id"}},
		DoNothing: true,
	}).CreateInBatches(links, 500).Error
	if err != nil {
		return fmt.Errorf("failed to add contact tags: %w", err)
	}

	return nil
}

// RemoveContactTags unlinks the given tags from the given contacts
func (r *TagRepositoryImpl) RemoveContactTags(ctx context.Context, contactIDs []uint, tagIDs []uint) error {
	if len(contactIDs) == 0 || len(tagIDs) == 0 {
		return nil
	}

	db := r.getDB(ctx)

	err := db.Where("contact_id IN ? AND tag_id IN ?", contactIDs, tagIDs).
		Delete(&models.ContactTag{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove contact tags: %w", err)
	}

	return nil
}
