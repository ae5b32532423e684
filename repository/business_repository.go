// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/princecjqlara/Tokkobeta/models"
	"gorm.io/gorm"
)

// BusinessRepository defines operations for businesses and their memberships
type BusinessRepository interface {
	Repository[models.Business, models.BusinessFilter]
	ListByUser(ctx context.Context, userID uint) ([]*models.Business, error)
	IsMember(ctx context.Context, businessID, userID uint) (bool, error)
	AddMember(ctx context.Context, businessID, userID uint, role string) error
}

// BusinessRepositoryImpl implements BusinessRepository interface
type BusinessRepositoryImpl struct {
	*BaseRepository[models.Business, models.BusinessFilter]
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &BusinessRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Business, models.BusinessFilter](db, applyBusinessFilter),
	}
}

func applyBusinessFilter(db *gorm.DB, filter models.BusinessFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}
	return db
}

// ListByUser retrieves every business the user belongs to
func (r *BusinessRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.Business, error) {
	db := r.getDB(ctx)

	var businesses []*models.Business
	err := db.Joins("JOIN business_users ON business_users.business_id = businesses.id").
		Where("business_users.user_id = ?", userID).
		Order("businesses.name ASC").
		Find(&businesses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses by user: %w", err)
	}

	return businesses, nil
}

// IsMember checks whether the user belongs to the business
func (r *BusinessRepositoryImpl) IsMember(ctx context.Context, businessID, userID uint) (bool, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.BusinessUser{}).
		Where("business_id = ? AND user_id = ?", businessID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check business membership: %w", err)
	}

	return count > 0, nil
}

// AddMember links a user to a business
func (r *BusinessRepositoryImpl) AddMember(ctx context.Context, businessID, userID uint, role string) error {
	db := r.getDB(ctx)

	member := models.BusinessUser{BusinessID: businessID, UserID: userID, Role: role}
	err := db.Create(&member).Error
	if err != nil {
		return fmt.Errorf("failed to add business member: %w", err)
	}

	return nil
}
