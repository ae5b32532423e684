// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	"github.com/princecjqlara/Tokkobeta/utils"
)

// PageFlow handles connected page management
type PageFlow interface {
	ListPages(ctx context.Context, userID uint) (*dto.ListPagesResponse, error)
	ListFacebookPages(ctx context.Context, userID uint, userAccessToken string) (*dto.ListFacebookPagesResponse, error)
	ConnectPage(ctx context.Context, userID uint, request *dto.ConnectPageRequest, metadata *ClientMetadata) (*dto.ConnectPageResponse, error)
}

// PageFlowImpl implements the page business flow
type PageFlowImpl struct {
	pageRepo    repository.PageRepository
	auditRepo   repository.AuditLogRepository
	fbClient    services.FacebookClient
	syncFlow    SyncFlow
	syncTimeout time.Duration
}

// NewPageFlow creates a new page flow instance
func NewPageFlow(
	pageRepo repository.PageRepository,
	auditRepo repository.AuditLogRepository,
	fbClient services.FacebookClient,
	syncFlow SyncFlow,
	syncTimeout time.Duration,
) PageFlow {
	return &PageFlowImpl{
		pageRepo:    pageRepo,
		auditRepo:   auditRepo,
		fbClient:    fbClient,
		syncFlow:    syncFlow,
		syncTimeout: syncTimeout,
	}
}

// ListPages returns the pages the operator manages
func (pf *PageFlowImpl) ListPages(ctx context.Context, userID uint) (*dto.ListPagesResponse, error) {
	pages, err := pf.pageRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("LIST_PAGES_FAILED", "Failed to list pages", err)
	}

	out := &dto.ListPagesResponse{Pages: make([]dto.PageDTO, 0, len(pages))}
	for _, page := range pages {
		out.Pages = append(out.Pages, ToPageDTO(*page))
	}

	return out, nil
}

// ListFacebookPages lists the pages manageable through the supplied user
// token and marks which ones are already connected
func (pf *PageFlowImpl) ListFacebookPages(ctx context.Context, userID uint, userAccessToken string) (*dto.ListFacebookPagesResponse, error) {
	graphPages, err := pf.fbClient.ListPages(ctx, userAccessToken)
	if err != nil {
		return nil, NewBusinessError("GRAPH_LIST_PAGES_FAILED", "Failed to list Facebook pages", err)
	}

	connected, err := pf.pageRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("LIST_PAGES_FAILED", "Failed to list pages", err)
	}
	connectedIDs := make(map[string]bool, len(connected))
	for _, page := range connected {
		connectedIDs[page.FBPageID] = true
	}

	out := &dto.ListFacebookPagesResponse{Pages: make([]dto.FacebookPageDTO, 0, len(graphPages))}
	for _, gp := range graphPages {
		item := dto.FacebookPageDTO{
			ID:        gp.ID,
			Name:      gp.Name,
			Category:  gp.Category,
			Connected: connectedIDs[gp.ID],
		}
		if gp.Picture.Data.URL != "" {
			url := gp.Picture.Data.URL
			item.PictureURL = &url
		}
		out.Pages = append(out.Pages, item)
	}

	return out, nil
}

// ConnectPage upserts a page with its token, links the operator to it and
// fires an initial sync in the background. Re-connecting an existing page
// refreshes its access token.
func (pf *PageFlowImpl) ConnectPage(ctx context.Context, userID uint, request *dto.ConnectPageRequest, metadata *ClientMetadata) (*dto.ConnectPageResponse, error) {
	page := &models.Page{
		FBPageID:    request.FBPageID,
		Name:        request.Name,
		Category:    request.Category,
		PictureURL:  request.PictureURL,
		AccessToken: request.AccessToken,
		IsActive:    utils.ToPtr(true),
	}

	if err := pf.pageRepo.Upsert(ctx, page); err != nil {
		return nil, NewBusinessError("CONNECT_PAGE_FAILED", "Failed to connect page", err)
	}

	if err := pf.pageRepo.GrantAccess(ctx, userID, page.ID, "admin"); err != nil {
		return nil, NewBusinessError("CONNECT_PAGE_FAILED", "Failed to connect page", err)
	}

	msg := fmt.Sprintf("Page connected: %s (%s)", page.Name, page.FBPageID)
	_ = pf.logPageEvent(ctx, userID, models.AuditActionPageConnected, msg, true, nil, metadata)

	// Initial sync runs detached so connect responds immediately
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), pf.syncTimeout)
		defer cancel()

		if _, err := pf.syncFlow.SyncPage(syncCtx, page.ID, 0, nil); err != nil {
			log.Printf("initial sync for page %d failed: %v", page.ID, err)
		}
	}()

	return &dto.ConnectPageResponse{
		Page:        ToPageDTO(*page),
		SyncStarted: true,
	}, nil
}

func (pf *PageFlowImpl) logPageEvent(ctx context.Context, userID uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	entry := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
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

	return pf.auditRepo.Save(ctx, entry)
}
