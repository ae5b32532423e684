// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/princecjqlara/Tokkobeta/models"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db, applyCampaignFilter),
	}
}

func applyCampaignFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.PageID != nil {
		db = db.Where("page_id = ?", *filter.PageID)
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Where("uuid = ?", id).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign by UUID: %w", err)
	}

	return &campaign, nil
}

// ListByPages retrieves campaigns of the given pages, newest first, plus
// the total count before pagination
func (r *CampaignRepositoryImpl) ListByPages(ctx context.Context, pageIDs []uint, limit, offset int) ([]*models.Campaign, int64, error) {
	if len(pageIDs) == 0 {
		return nil, 0, nil
	}

	db := r.getDB(ctx)

	var total int64
	err := db.Model(&models.Campaign{}).
		Where("page_id IN ?", pageIDs).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	var campaigns []*models.Campaign
	query := db.Where("page_id IN ?", pageIDs).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err = query.Find(&campaigns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, total, nil
}

// CreateWithRecipients inserts a campaign and one pending recipient row per
// contact in a single transaction
func (r *CampaignRepositoryImpl) CreateWithRecipients(ctx context.Context, campaign *models.Campaign, contactIDs []uint) error {
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

	if err = campaign.BeforeCreate(); err != nil {
		return fmt.Errorf("failed to prepare campaign: %w", err)
	}
	campaign.TotalRecipients = len(contactIDs)

	err = db.Create(campaign).Error
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	if len(contactIDs) > 0 {
		recipients := make([]models.CampaignRecipient, 0, len(contactIDs))
		for _, contactID := range contactIDs {
			recipients = append(recipients, models.CampaignRecipient{
				CampaignID: campaign.ID,
				ContactID:  contactID,
				Status:     models.RecipientStatusPending,
			})
		}

		err = db.CreateInBatches(recipients, 500).Error
		if err != nil {
			return fmt.Errorf("failed to create campaign recipients: %w", err)
		}
	}

	return nil
}

// Update persists changes to a draft campaign's mutable fields
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Campaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]any{
			"name":       campaign.Name,
			"message":    campaign.Message,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	return nil
}

// Delete removes a campaign and its recipient rows
func (r *CampaignRepositoryImpl) Delete(ctx context.Context, campaignID uint) error {
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

	err = db.Where("campaign_id = ?", campaignID).Delete(&models.CampaignRecipient{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete campaign recipients: %w", err)
	}

	err = db.Delete(&models.Campaign{}, campaignID).Error
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	return nil
}

// TransitionStatus performs a guarded status flip. The update only lands
// when the row still holds the expected status, which keeps concurrent
// dispatch and cancel attempts from clobbering each other.
func (r *CampaignRepositoryImpl) TransitionStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) (bool, error) {
	db := r.getDB(ctx)

	now := time.Now().UTC()
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	if to == models.CampaignStatusSending {
		updates["started_at"] = now
	}
	if to == models.CampaignStatusCompleted || to == models.CampaignStatusCancelled {
		updates["completed_at"] = now
	}

	result := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaignID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition campaign status: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// UpdateCounts persists the campaign's running delivery counters
func (r *CampaignRepositoryImpl) UpdateCounts(ctx context.Context, campaignID uint, sentCount, failedCount int) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]any{
			"sent_count":   sentCount,
			"failed_count": failedCount,
			"updated_at":   time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign counts: %w", err)
	}

	return nil
}

// MarkCompleted stamps the campaign's completion time
func (r *CampaignRepositoryImpl) MarkCompleted(ctx context.Context, campaignID uint, at time.Time) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]any{
			"completed_at": at,
			"updated_at":   at,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark campaign completed: %w", err)
	}

	return nil
}
