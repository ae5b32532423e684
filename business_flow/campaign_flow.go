// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	"github.com/princecjqlara/Tokkobeta/utils"
)

// CampaignFlow handles the campaign lifecycle from draft to dispatch
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, userID uint, request *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, userID uint, request *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	GetCampaign(ctx context.Context, userID uint, campaignID uint) (*dto.CampaignDTO, error)
	UpdateCampaign(ctx context.Context, userID uint, campaignID uint, request *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	DeleteCampaign(ctx context.Context, userID uint, campaignID uint, metadata *ClientMetadata) error
	SendCampaign(ctx context.Context, userID uint, campaignID uint, metadata *ClientMetadata) (*dto.SendCampaignResponse, error)
	CancelCampaign(ctx context.Context, userID uint, campaignID uint, metadata *ClientMetadata) (*dto.CancelCampaignResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.CampaignRecipientRepository
	contactRepo   repository.ContactRepository
	pageRepo      repository.PageRepository
	auditRepo     repository.AuditLogRepository
	fbClient      services.FacebookClient
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.CampaignRecipientRepository,
	contactRepo repository.ContactRepository,
	pageRepo repository.PageRepository,
	auditRepo repository.AuditLogRepository,
	fbClient services.FacebookClient,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		contactRepo:   contactRepo,
		pageRepo:      pageRepo,
		auditRepo:     auditRepo,
		fbClient:      fbClient,
	}
}

// CreateCampaign creates a draft campaign with one pending recipient per
// contact. Contact IDs not belonging to the page are dropped silently; an
// empty intersection is rejected.
func (cf *CampaignFlowImpl) CreateCampaign(ctx context.Context, userID uint, request *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	if err := cf.requirePageAccess(ctx, userID, request.PageID); err != nil {
		return nil, err
	}

	contacts, err := cf.contactRepo.ByIDs(ctx, request.PageID, request.ContactIDs)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Failed to create campaign", err)
	}
	if len(contacts) == 0 {
		return nil, NewBusinessError("CAMPAIGN_NO_RECIPIENTS", "Campaign has no valid recipients", ErrCampaignNoRecipients)
	}

	contactIDs := make([]uint, 0, len(contacts))
	for _, contact := range contacts {
		contactIDs = append(contactIDs, contact.ID)
	}

	campaign := &models.Campaign{
		PageID:    request.PageID,
		CreatedBy: userID,
		Name:      request.Name,
		Message:   request.Message,
		Status:    models.CampaignStatusDraft,
	}

	if err := cf.campaignRepo.CreateWithRecipients(ctx, campaign, contactIDs); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Failed to create campaign", err)
	}

	msg := fmt.Sprintf("Campaign created: %s with %d recipients", campaign.Name, len(contactIDs))
	_ = cf.logCampaignEvent(ctx, userID, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	out := ToCampaignDTO(*campaign)
	return &out, nil
}

// ListCampaigns returns the caller's campaigns across their pages, or for
// one page when a page filter is given
func (cf *CampaignFlowImpl) ListCampaigns(ctx context.Context, userID uint, request *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var pageIDs []uint
	if request.PageID != 0 {
		if err := cf.requirePageAccess(ctx, userID, request.PageID); err != nil {
			return nil, err
		}
		pageIDs = []uint{request.PageID}
	} else {
		pages, err := cf.pageRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
		}
		for _, p := range pages {
			pageIDs = append(pageIDs, p.ID)
		}
	}

	campaigns, total, err := cf.campaignRepo.ListByPages(ctx, pageIDs, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	out := &dto.ListCampaignsResponse{
		Campaigns: make([]dto.CampaignDTO, 0, len(campaigns)),
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}
	for _, campaign := range campaigns {
		out.Campaigns = append(out.Campaigns, ToCampaignDTO(*campaign))
	}

	return out, nil
}

// GetCampaign returns one campaign after an access check
func (cf *CampaignFlowImpl) GetCampaign(ctx context.Context, userID uint, campaignID uint) (*dto.CampaignDTO, error) {
	campaign, err := cf.loadCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	out := ToCampaignDTO(*campaign)
	return &out, nil
}

// UpdateCampaign edits a draft campaign's name and message
func (cf *CampaignFlowImpl) UpdateCampaign(ctx context.Context, userID uint, campaignID uint, request *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := cf.loadCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	if !campaign.IsEditable() {
		return nil, NewBusinessError("CAMPAIGN_NOT_DRAFT", "Only draft campaigns can be edited", ErrCampaignUpdateNotAllowed)
	}

	if request.Name != nil {
		campaign.Name = *request.Name
	}
	if request.Message != nil {
		campaign.Message = *request.Message
	}

	if err := cf.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}

	msg := fmt.Sprintf("Campaign updated: %d", campaign.ID)
	_ = cf.logCampaignEvent(ctx, userID, models.AuditActionCampaignUpdated, msg, true, nil, metadata)

	out := ToCampaignDTO(*campaign)
	return &out, nil
}

// DeleteCampaign removes a campaign and its recipient rows
func (cf *CampaignFlowImpl) DeleteCampaign(ctx context.Context, userID uint, campaignID uint, metadata *ClientMetadata) error {
	campaign, err := cf.loadCampaign(ctx, userID, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status == models.CampaignStatusSending {
		return NewBusinessError("CAMPAIGN_SENDING", "A sending campaign cannot be deleted", ErrCampaignUpdateNotAllowed)
	}

	if err := cf.campaignRepo.Delete(ctx, campaign.ID); err != nil {
		return NewBusinessError("CAMPAIGN_DELETE_FAILED", "Failed to delete campaign", err)
	}

	msg := fmt.Sprintf("Campaign deleted: %d", campaign.ID)
	_ = cf.logCampaignEvent(ctx, userID, models.AuditActionCampaignDeleted, msg, true, nil, metadata)

	return nil
}

// SendCampaign dispatches a draft campaign to its pending recipients.
// The draft->sending flip is guarded so only one dispatcher ever runs per
// campaign. Recipients are attempted serially; a per-recipient failure is
// recorded and never aborts the run, and the campaign's counters are
// persisted after every attempt so progress survives a crash.
func (cf *CampaignFlowImpl) SendCampaign(ctx context.Context, userID uint, campaignID uint, metadata *ClientMetadata) (*dto.SendCampaignResponse, error) {
	campaign, err := cf.loadCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	flipped, err := cf.campaignRepo.TransitionStatus(ctx, campaign.ID, models.CampaignStatusDraft, models.CampaignStatusSending)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}
	if !flipped {
		return nil, NewBusinessError("CAMPAIGN_NOT_DRAFT", "Only draft campaigns can be sent", ErrCampaignNotDraft)
	}

	page, err := cf.pageRepo.ByID(ctx, campaign.PageID)
	if err != nil || page == nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", ErrPageNotFound)
	}

	pending, err := cf.recipientRepo.ListPending(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}

	if len(pending) == 0 {
		if _, err := cf.campaignRepo.TransitionStatus(ctx, campaign.ID, models.CampaignStatusSending, models.CampaignStatusCompleted); err != nil {
			return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
		}
		return &dto.SendCampaignResponse{Sent: 0, Failed: 0}, nil
	}

	sent := campaign.SentCount
	failed := campaign.FailedCount
	for _, recipient := range pending {
		if recipient.Contact == nil || recipient.Contact.PSID == "" {
			// No address to deliver to; the row stays pending
			continue
		}

		messageID, sendErr := cf.fbClient.SendMessage(ctx, page.AccessToken, recipient.Contact.PSID, campaign.Message)
		if sendErr != nil {
			log.Printf("campaign %d: send to %s failed: %v", campaign.ID, recipient.Contact.PSID, sendErr)
			if err := cf.recipientRepo.MarkFailed(ctx, recipient.ID, sendErr.Error()); err != nil {
				return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to persist delivery result", err)
			}
			failed++
		} else {
			_ = messageID
			if err := cf.recipientRepo.MarkSent(ctx, recipient.ID, utils.UTCNow()); err != nil {
				return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to persist delivery result", err)
			}
			sent++
		}

		if err := cf.campaignRepo.UpdateCounts(ctx, campaign.ID, sent, failed); err != nil {
			return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to persist delivery result", err)
		}
	}

	// The flip fails when a concurrent cancel won; the counters are
	// already persisted either way
	if _, err := cf.campaignRepo.TransitionStatus(ctx, campaign.ID, models.CampaignStatusSending, models.CampaignStatusCompleted); err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to complete campaign", err)
	}

	msg := fmt.Sprintf("Campaign %d dispatched: %d sent, %d failed", campaign.ID, sent, failed)
	_ = cf.logCampaignEvent(ctx, userID, models.AuditActionCampaignSent, msg, true, nil, metadata)

	return &dto.SendCampaignResponse{Sent: sent, Failed: failed}, nil
}

// CancelCampaign stops a sending campaign and bulk-fails its remaining
// pending recipients. Recipients already sent or failed keep their rows.
func (cf *CampaignFlowImpl) CancelCampaign(ctx context.Context, userID uint, campaignID uint, metadata *ClientMetadata) (*dto.CancelCampaignResponse, error) {
	campaign, err := cf.loadCampaign(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}

	flipped, err := cf.campaignRepo.TransitionStatus(ctx, campaign.ID, models.CampaignStatusSending, models.CampaignStatusCancelled)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}
	if !flipped {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDING", "Only sending campaigns can be cancelled", ErrCampaignNotSending)
	}

	cancelled, err := cf.recipientRepo.FailPending(ctx, campaign.ID, utils.CampaignCancelledMessage)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}

	sentCount, err := cf.recipientRepo.CountByStatus(ctx, campaign.ID, models.RecipientStatusSent)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}
	failedCount, err := cf.recipientRepo.CountByStatus(ctx, campaign.ID, models.RecipientStatusFailed)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}
	if err := cf.campaignRepo.UpdateCounts(ctx, campaign.ID, int(sentCount), int(failedCount)); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}

	msg := fmt.Sprintf("Campaign %d cancelled, %d pending recipients failed", campaign.ID, cancelled)
	_ = cf.logCampaignEvent(ctx, userID, models.AuditActionCampaignCancelled, msg, true, nil, metadata)

	return &dto.CancelCampaignResponse{CancelledPending: cancelled}, nil
}

// Private helper methods

func (cf *CampaignFlowImpl) loadCampaign(ctx context.Context, userID uint, campaignID uint) (*models.Campaign, error) {
	campaign, err := cf.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_GET_FAILED", "Failed to load campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	if err := cf.requirePageAccess(ctx, userID, campaign.PageID); err != nil {
		return nil, err
	}

	return campaign, nil
}

func (cf *CampaignFlowImpl) requirePageAccess(ctx context.Context, userID, pageID uint) error {
	hasAccess, err := cf.pageRepo.HasAccess(ctx, userID, pageID)
	if err != nil {
		return NewBusinessError("CAMPAIGN_ACCESS_CHECK_FAILED", "Failed to check page access", err)
	}
	if !hasAccess {
		return NewBusinessError("CAMPAIGN_ACCESS_DENIED", "Campaign access denied", ErrCampaignAccessDenied)
	}
	return nil
}

func (cf *CampaignFlowImpl) logCampaignEvent(ctx context.Context, userID uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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

	return cf.auditRepo.Save(ctx, entry)
}
