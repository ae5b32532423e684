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

// PageRepositoryImpl implements PageRepository interface
type PageRepositoryImpl struct {
	*BaseRepository[models.Page, models.PageFilter]
}

// NewPageRepository creates a new page repository
func NewPageRepository(db *gorm.DB) PageRepository {
	return &PageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Page, models.PageFilter](db, applyPageFilter),
	}
}

func applyPageFilter(db *gorm.DB, filter models.PageFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.FBPageID != nil {
		db = db.Where("fb_page_id = ?", *filter.FBPageID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.SyncedBefore != nil {
		db = db.Where("last_sync_at IS NULL OR last_sync_at <= ?", *filter.SyncedBefore)
	}
	return db
}

// ByFBPageID retrieves a page by its Facebook page ID
func (r *PageRepositoryImpl) ByFBPageID(ctx context.Context, fbPageID string) (*models.Page, error) {
	db := r.getDB(ctx)

	var page models.Page
	err := db.Where("fb_page_id = ?", fbPageID).First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find page by facebook page ID: %w", err)
	}

	return &page, nil
}

// Upsert inserts a page or refreshes its metadata and access token when the
// Facebook page ID already exists. The page struct is populated with the row's
// ID either way.
func (r *PageRepositoryImpl) Upsert(ctx context.Context, page *models.Page) error {
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

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "fb_page_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":         page.Name,
			"category":     page.Category,
			"picture_url":  page.PictureURL,
			"access_token": page.AccessToken,
			"updated_at":   time.Now().UTC(),
		}),
	}).Create(page).Error
	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	if page.ID == 0 {
		var existing models.Page
		if err = db.Where("fb_page_id = ?", page.FBPageID).First(&existing).Error; err != nil {
			return fmt.Errorf("failed to reload upserted page: %w", err)
		}
		page.ID = existing.ID
	}

	return nil
}

// ListByUser retrieves all pages the user may manage
func (r *PageRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.Page, error) {
	db := r.getDB(ctx)

	var pages []*models.Page
	err := db.Joins("JOIN user_pages ON user_pages.page_id = pages.id").
		Where("user_pages.user_id = ? AND pages.is_active = ?", userID, true).
		Order("pages.name ASC").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pages by user: %w", err)
	}

	return pages, nil
}

// HasAccess checks whether the user is linked to the page
func (r *PageRepositoryImpl) HasAccess(ctx context.Context, userID, pageID uint) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.UserPage{}).
		Where("user_id = ? AND page_id = ?", userID, pageID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check page access: %w", err)
	}

	return count > 0, nil
}

// GrantAccess links a user to a page, ignoring an existing link
func (r *PageRepositoryImpl) GrantAccess(ctx context.Context, userID, pageID uint, role string) error {
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

	link := models.UserPage{UserID: userID, PageID: pageID, Role: role}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "page_id"}},
		DoNothing: true,
	}).Create(&link).Error
	if err != nil {
		return fmt.Errorf("failed to grant page access: %w", err)
	}

	return nil
}

// ListActiveForSync retrieves active pages ordered by stalest sync first
func (r *PageRepositoryImpl) ListActiveForSync(ctx context.Context, limit int) ([]*models.Page, error) {
	db := r.getDB(ctx)

	var pages []*models.Page
	query := db.Where("is_active = ?", true).
		Order("last_sync_at ASC NULLS FIRST")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pages for sync: %w", err)
	}

	return pages, nil
}

// UpdateLastSync stamps the page's last successful sync time
func (r *PageRepositoryImpl) UpdateLastSync(ctx context.Context, pageID uint, at time.Time) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Page{}).
		Where("id = ?", pageID).
		Updates(map[string]any{
			"last_sync_at": at,
			"updated_at":   at,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}

	return nil
}
