// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/princecjqlara/Tokkobeta/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for dashboard users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByFacebookID(ctx context.Context, facebookID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// UserSessionRepository defines operations for user sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllUserSessions(ctx context.Context, userID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// PageRepository defines operations for connected Facebook pages
type PageRepository interface {
	Repository[models.Page, models.PageFilter]
	ByFBPageID(ctx context.Context, fbPageID string) (*models.Page, error)
	Upsert(ctx context.Context, page *models.Page) error
	ListByUser(ctx context.Context, userID uint) ([]*models.Page, error)
	HasAccess(ctx context.Context, userID, pageID uint) (bool, error)
	GrantAccess(ctx context.Context, userID, pageID uint, role string) error
	ListActiveForSync(ctx context.Context, limit int) ([]*models.Page, error)
	UpdateLastSync(ctx context.Context, pageID uint, at time.Time) error
}

// ContactRepository defines operations for synced Messenger contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByPageAndPSID(ctx context.Context, pageID uint, psid string) (*models.Contact, error)
	Upsert(ctx context.Context, contact *models.Contact) error
	List(ctx context.Context, filter models.ContactFilter, limit, offset int) ([]*models.Contact, int64, error)
	ByIDs(ctx context.Context, pageID uint, ids []uint) ([]*models.Contact, error)
	DeleteBatch(ctx context.Context, pageID uint, ids []uint) (int64, error)
}

// TagRepository defines operations for tags and contact tag links
type TagRepository interface {
	Repository[models.Tag, models.TagFilter]
	ListVisible(ctx context.Context, userID uint, pageIDs, businessIDs []uint) ([]*models.Tag, error)
	Update(ctx context.Context, tag *models.Tag) error
	DeleteWithLinks(ctx context.Context, tagID uint) error
	AddContactTags(ctx context.Context, contactIDs []uint, tagIDs []uint) error
	RemoveContactTags(ctx context.Context, contactIDs []uint, tagIDs []uint) error
}

// CampaignRepository defines operations for messaging campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Campaign, error)
	ListByPages(ctx context.Context, pageIDs []uint, limit, offset int) ([]*models.Campaign, int64, error)
	CreateWithRecipients(ctx context.Context, campaign *models.Campaign, contactIDs []uint) error
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, campaignID uint) error
	// TransitionStatus flips the status only when the current row still holds
	// the expected status and reports whether the flip happened.
	TransitionStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) (bool, error)
	UpdateCounts(ctx context.Context, campaignID uint, sentCount, failedCount int) error
	MarkCompleted(ctx context.Context, campaignID uint, at time.Time) error
}

// CampaignRecipientRepository defines operations for per-contact delivery rows
type CampaignRecipientRepository interface {
	Repository[models.CampaignRecipient, models.CampaignRecipientFilter]
	ListPending(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error)
	MarkSent(ctx context.Context, recipientID uint, at time.Time) error
	MarkFailed(ctx context.Context, recipientID uint, reason string) error
	FailPending(ctx context.Context, campaignID uint, reason string) (int64, error)
	CountByStatus(ctx context.Context, campaignID uint, status models.RecipientStatus) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
