// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/config"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	"github.com/princecjqlara/Tokkobeta/utils"
	"github.com/redis/go-redis/v9"
)

// SyncFlow handles contact synchronization from page inboxes
type SyncFlow interface {
	SyncPage(ctx context.Context, pageID uint, userID uint, metadata *ClientMetadata) (*dto.SyncResultDTO, error)
	SyncAllPages(ctx context.Context) (*dto.SweepResultDTO, error)
	LastSyncResult(ctx context.Context, userID, pageID uint) (*dto.SyncResultDTO, error)
}

// SyncFlowImpl implements the sync business flow
type SyncFlowImpl struct {
	pageRepo    repository.PageRepository
	contactRepo repository.ContactRepository
	auditRepo   repository.AuditLogRepository
	fbClient    services.FacebookClient
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	cronConfig  *config.CronConfig
}

// NewSyncFlow creates a new sync flow instance
func NewSyncFlow(
	pageRepo repository.PageRepository,
	contactRepo repository.ContactRepository,
	auditRepo repository.AuditLogRepository,
	fbClient services.FacebookClient,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	cronConfig *config.CronConfig,
) SyncFlow {
	return &SyncFlowImpl{
		pageRepo:    pageRepo,
		contactRepo: contactRepo,
		auditRepo:   auditRepo,
		fbClient:    fbClient,
		rc:          rc,
		cacheConfig: cacheConfig,
		cronConfig:  cronConfig,
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

func syncLockKey(cfg config.CacheConfig, pageID uint) string {
	return redisKey(cfg, fmt.Sprintf("sync:lock:%d", pageID))
}

func syncResultKey(cfg config.CacheConfig, pageID uint) string {
	return redisKey(cfg, fmt.Sprintf("sync:last:%d", pageID))
}

// SyncPage synchronizes one page's contacts from its inbox. When userID is
// non-zero the caller's page access is verified first. A distributed lock
// keeps a manual sync and the background sweep from overlapping on one page.
func (sf *SyncFlowImpl) SyncPage(ctx context.Context, pageID uint, userID uint, metadata *ClientMetadata) (*dto.SyncResultDTO, error) {
	page, err := sf.pageRepo.ByID(ctx, pageID)
	if err != nil {
		return nil, NewBusinessError("SYNC_FAILED", "Sync failed", err)
	}
	if page == nil {
		return nil, NewBusinessError("PAGE_NOT_FOUND", "Page not found", ErrPageNotFound)
	}
	if !utils.IsTrue(page.IsActive) {
		return nil, NewBusinessError("PAGE_INACTIVE", "Page is inactive", ErrPageInactive)
	}

	if userID != 0 {
		hasAccess, err := sf.pageRepo.HasAccess(ctx, userID, pageID)
		if err != nil {
			return nil, NewBusinessError("SYNC_FAILED", "Sync failed", err)
		}
		if !hasAccess {
			return nil, NewBusinessError("PAGE_ACCESS_DENIED", "Page access denied", ErrPageAccessDenied)
		}
	}

	if sf.rc != nil && sf.cacheConfig.Enabled {
		lockKey := syncLockKey(*sf.cacheConfig, pageID)
		acquired, err := sf.rc.SetNX(ctx, lockKey, "1", sf.cacheConfig.SyncLockTTL).Result()
		if err == nil && !acquired {
			return nil, NewBusinessError("SYNC_IN_PROGRESS", "Sync already in progress", ErrSyncInProgress)
		}
		defer func() {
			_ = sf.rc.Del(context.WithoutCancel(ctx), lockKey).Err()
		}()
	}

	result, err := sf.syncPage(ctx, page)
	if err != nil {
		errMsg := fmt.Sprintf("Sync failed for page %d: %s", pageID, err.Error())
		_ = sf.logSyncEvent(ctx, userID, page, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("SYNC_FAILED", "Sync failed", err)
	}

	msg := fmt.Sprintf("Page %d synced: %d synced, %d failed of %d", pageID, result.Synced, result.Failed, result.Total)
	_ = sf.logSyncEvent(ctx, userID, page, msg, true, nil, metadata)

	return result, nil
}

// SyncAllPages runs a sweep over every active page, skipping pages whose
// sync lock is held
func (sf *SyncFlowImpl) SyncAllPages(ctx context.Context) (*dto.SweepResultDTO, error) {
	pages, err := sf.pageRepo.ListActiveForSync(ctx, sf.cronConfig.PageLimit)
	if err != nil {
		return nil, NewBusinessError("SWEEP_FAILED", "Sync sweep failed", err)
	}

	sweep := &dto.SweepResultDTO{Pages: make([]dto.SyncResultDTO, 0, len(pages))}
	for _, page := range pages {
		result, err := sf.SyncPage(ctx, page.ID, 0, nil)
		if err != nil {
			if IsSyncInProgress(err) {
				sweep.Skipped++
				continue
			}
			// A failing page must not stop the sweep
			log.Printf("sync sweep: page %d failed: %v", page.ID, err)
			continue
		}
		sweep.Pages = append(sweep.Pages, *result)
	}

	return sweep, nil
}

// LastSyncResult returns the cached summary of the page's most recent sync.
// The caller must have access to the page.
func (sf *SyncFlowImpl) LastSyncResult(ctx context.Context, userID, pageID uint) (*dto.SyncResultDTO, error) {
	hasAccess, err := sf.pageRepo.HasAccess(ctx, userID, pageID)
	if err != nil {
		return nil, NewBusinessError("SYNC_RESULT_FAILED", "Failed to read sync result", err)
	}
	if !hasAccess {
		return nil, NewBusinessError("PAGE_ACCESS_DENIED", "Page access denied", ErrPageAccessDenied)
	}

	if sf.rc == nil || !sf.cacheConfig.Enabled {
		return nil, nil
	}

	bs, err := sf.rc.Get(ctx, syncResultKey(*sf.cacheConfig, pageID)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil, nil
	}

	var out dto.SyncResultDTO
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, nil
	}

	return &out, nil
}

func (sf *SyncFlowImpl) syncPage(ctx context.Context, page *models.Page) (*dto.SyncResultDTO, error) {
	conversations, err := sf.fbClient.ListConversations(ctx, page.FBPageID, page.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	result := &dto.SyncResultDTO{PageID: page.ID, Total: len(conversations)}
	for _, conversation := range conversations {
		if err := sf.syncParticipant(ctx, page, conversation); err != nil {
			// Per-participant failures never abort the sync
			log.Printf("sync: page %d conversation %s: %v", page.ID, conversation.ID, err)
			result.Failed++
			continue
		}
		result.Synced++
	}

	if err := sf.pageRepo.UpdateLastSync(ctx, page.ID, utils.UTCNow()); err != nil {
		return nil, fmt.Errorf("failed to record sync time: %w", err)
	}

	if sf.rc != nil && sf.cacheConfig.Enabled {
		if bs, err := json.Marshal(result); err == nil {
			_ = sf.rc.Set(ctx, syncResultKey(*sf.cacheConfig, page.ID), bs, sf.cacheConfig.DefaultTTL).Err()
		}
	}

	return result, nil
}

func (sf *SyncFlowImpl) syncParticipant(ctx context.Context, page *models.Page, conversation services.GraphConversation) error {
	var participant *services.GraphParticipant
	for i := range conversation.Participants.Data {
		if conversation.Participants.Data[i].ID != page.FBPageID {
			participant = &conversation.Participants.Data[i]
			break
		}
	}
	if participant == nil {
		return fmt.Errorf("conversation %s has no non-page participant", conversation.ID)
	}

	contact := &models.Contact{
		PageID:         page.ID,
		PSID:           participant.ID,
		ConversationID: &conversation.ID,
	}

	if conversation.UpdatedTime != "" {
		if updated, err := time.Parse(time.RFC3339, conversation.UpdatedTime); err == nil {
			updatedUTC := updated.UTC()
			contact.LastInteraction = &updatedUTC
		}
	}

	// Profile enrichment is best effort: old conversations frequently return
	// permission errors, in which case the participant name has to do
	profile, err := sf.fbClient.GetProfile(ctx, participant.ID, page.AccessToken)
	if err == nil && profile != nil {
		if profile.Name != "" {
			contact.Name = &profile.Name
		}
		if profile.FirstName != "" {
			contact.FirstName = &profile.FirstName
		}
		if profile.LastName != "" {
			contact.LastName = &profile.LastName
		}
		if profile.ProfilePic != "" {
			contact.ProfilePicURL = &profile.ProfilePic
		}
	} else if participant.Name != "" {
		contact.Name = &participant.Name
	}

	if err := sf.contactRepo.Upsert(ctx, contact); err != nil {
		return fmt.Errorf("failed to upsert contact %s: %w", participant.ID, err)
	}

	return nil
}

func (sf *SyncFlowImpl) logSyncEvent(ctx context.Context, userID uint, page *models.Page, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	var userIDPtr *uint
	if userID != 0 {
		userIDPtr = &userID
	}

	entry := &models.AuditLog{
		UserID:       userIDPtr,
		Action:       models.AuditActionPageSynced,
		Description:  &description,
		Success:      &success,
		ErrorMessage: errMsg,
	}

	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}

	return sf.auditRepo.Save(ctx, entry)
}
