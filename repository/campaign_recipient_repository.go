// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/princecjqlara/Tokkobeta/models"
	"gorm.io/gorm"
)

// CampaignRecipientRepositoryImpl implements CampaignRecipientRepository interface
type CampaignRecipientRepositoryImpl struct {
	*BaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter]
}

// NewCampaignRecipientRepository creates a new campaign recipient repository
func NewCampaignRecipientRepository(db *gorm.DB) CampaignRecipientRepository {
	return &CampaignRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter](db, applyCampaignRecipientFilter),
	}
}

func applyCampaignRecipientFilter(db *gorm.DB, filter models.CampaignRecipientFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.ContactID != nil {
		db = db.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}

// ListPending retrieves the campaign's unattempted recipients with their
// contacts preloaded, ordered by row ID for a stable dispatch order
func (r *CampaignRecipientRepositoryImpl) ListPending(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error) {
	db := r.getDB(ctx)

	var recipients []*models.CampaignRecipient
	err := db.Where("campaign_id = ? AND status = ?", campaignID, models.RecipientStatusPending).
		Preload("Contact").
		Order("id ASC").
		Find(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending recipients: %w", err)
	}

	return recipients, nil
}

// MarkSent records a successful delivery for the recipient. The status guard
// keeps a slow dispatcher from resurrecting a row a concurrent cancel
// already failed.
func (r *CampaignRecipientRepositoryImpl) MarkSent(ctx context.Context, recipientID uint, at time.Time) error {
	db := r.getDB(ctx)

	err := db.Model(&models.CampaignRecipient{}).
		Where("id = ? AND status = ?", recipientID, models.RecipientStatusPending).
		Updates(map[string]any{
			"status":  models.RecipientStatusSent,
			"sent_at": at,
			"error":   nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark recipient sent: %w", err)
	}

	return nil
}

// MarkFailed records a failed delivery attempt with its reason
func (r *CampaignRecipientRepositoryImpl) MarkFailed(ctx context.Context, recipientID uint, reason string) error {
	db := r.getDB(ctx)

	err := db.Model(&models.CampaignRecipient{}).
		Where("id = ? AND status = ?", recipientID, models.RecipientStatusPending).
		Updates(map[string]any{
			"status": models.RecipientStatusFailed,
			"error":  reason,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark recipient failed: %w", err)
	}

	return nil
}

// FailPending bulk-fails every remaining pending recipient of a campaign
// and returns how many rows were affected
func (r *CampaignRecipientRepositoryImpl) FailPending(ctx context.Context, campaignID uint, reason string) (int64, error) {
	db := r.getDB(ctx)

	result := db.Model(&models.CampaignRecipient{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.RecipientStatusPending).
		Updates(map[string]any{
			"status": models.RecipientStatusFailed,
			"error":  reason,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to fail pending recipients: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// CountByStatus returns the number of a campaign's recipients in the given status
func (r *CampaignRecipientRepositoryImpl) CountByStatus(ctx context.Context, campaignID uint, status models.RecipientStatus) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.CampaignRecipient{}).
		Where("campaign_id = ? AND status = ?", campaignID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recipients by status: %w", err)
	}

	return count, nil
}
