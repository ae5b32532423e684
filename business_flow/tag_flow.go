package businessflow

import (
	"context"
	"fmt"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
)

// TagFlow handles tag lifecycle and visibility
type TagFlow interface {
	CreateTag(ctx context.Context, userID uint, request *dto.CreateTagRequest, metadata *ClientMetadata) (*dto.TagDTO, error)
	ListTags(ctx context.Context, userID uint, request *dto.ListTagsRequest) (*dto.ListTagsResponse, error)
	UpdateTag(ctx context.Context, userID uint, tagID uint, request *dto.UpdateTagRequest) (*dto.TagDTO, error)
	DeleteTag(ctx context.Context, userID uint, tagID uint, metadata *ClientMetadata) error
	BulkDeleteTags(ctx context.Context, userID uint, request *dto.BulkDeleteTagsRequest, metadata *ClientMetadata) (*dto.BulkDeleteTagsResponse, error)
}

// TagFlowImpl implements the tag business flow
type TagFlowImpl struct {
	tagRepo      repository.TagRepository
	pageRepo     repository.PageRepository
	businessRepo repository.BusinessRepository
	auditRepo    repository.AuditLogRepository
}

// NewTagFlow creates a new tag flow instance
func NewTagFlow(
	tagRepo repository.TagRepository,
	pageRepo repository.PageRepository,
	businessRepo repository.BusinessRepository,
	auditRepo repository.AuditLogRepository,
) TagFlow {
	return &TagFlowImpl{
		tagRepo:      tagRepo,
		pageRepo:     pageRepo,
		businessRepo: businessRepo,
		auditRepo:    auditRepo,
	}
}

// CreateTag creates a tag under the requested owner. The caller must be the
// owner for user tags, have access to the page for page tags, and belong to
// the business for business tags.
func (tf *TagFlowImpl) CreateTag(ctx context.Context, userID uint, request *dto.CreateTagRequest, metadata *ClientMetadata) (*dto.TagDTO, error) {
	ownerType := models.TagOwnerType(request.OwnerType)
	if !ownerType.Valid() {
		return nil, NewBusinessError("INVALID_TAG_OWNER", "Invalid tag owner type", ErrInvalidTagOwner)
	}

	ownerID := request.OwnerID
	if ownerType == models.TagOwnerUser && ownerID == 0 {
		ownerID = userID
	}

	if err := tf.requireOwnerPermission(ctx, userID, ownerType, ownerID); err != nil {
		return nil, err
	}

	tag := &models.Tag{
		Name:      request.Name,
		Color:     request.Color,
		OwnerType: ownerType,
		OwnerID:   ownerID,
		CreatedBy: userID,
	}
	if err := tf.tagRepo.Save(ctx, tag); err != nil {
		return nil, NewBusinessError("TAG_CREATE_FAILED", "Failed to create tag", err)
	}

	msg := fmt.Sprintf("Created %s tag %q", ownerType, tag.Name)
	_ = tf.logTagEvent(ctx, userID, models.AuditActionTagCreated, msg, true, metadata)

	out := ToTagDTO(*tag)
	return &out, nil
}

// ListTags returns the tags visible to the caller: their own user tags,
// tags of pages they can access, and tags of businesses they belong to.
// Scope narrows the result to a single owner type.
func (tf *TagFlowImpl) ListTags(ctx context.Context, userID uint, request *dto.ListTagsRequest) (*dto.ListTagsResponse, error) {
	scope := request.Scope
	if scope == "" {
		scope = "all"
	}

	var visibleUserID uint
	var pageIDs, businessIDs []uint

	if scope == "all" || scope == string(models.TagOwnerUser) {
		visibleUserID = userID
	}

	if scope == "all" || scope == string(models.TagOwnerPage) {
		if request.PageID != 0 {
			if err := tf.requirePageAccess(ctx, userID, request.PageID); err != nil {
				return nil, err
			}
			pageIDs = []uint{request.PageID}
		} else {
			pages, err := tf.pageRepo.ListByUser(ctx, userID)
			if err != nil {
				return nil, NewBusinessError("TAG_LIST_FAILED", "Failed to list tags", err)
			}
			for _, page := range pages {
				pageIDs = append(pageIDs, page.ID)
			}
		}
	}

	if scope == "all" || scope == string(models.TagOwnerBusiness) {
		businesses, err := tf.businessRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, NewBusinessError("TAG_LIST_FAILED", "Failed to list tags", err)
		}
		for _, business := range businesses {
			businessIDs = append(businessIDs, business.ID)
		}
	}

	tags, err := tf.tagRepo.ListVisible(ctx, visibleUserID, pageIDs, businessIDs)
	if err != nil {
		return nil, NewBusinessError("TAG_LIST_FAILED", "Failed to list tags", err)
	}

	out := &dto.ListTagsResponse{Tags: make([]dto.TagDTO, 0, len(tags))}
	for _, tag := range tags {
		out.Tags = append(out.Tags, ToTagDTO(*tag))
	}

	return out, nil
}

// UpdateTag renames or recolors a tag the caller manages
func (tf *TagFlowImpl) UpdateTag(ctx context.Context, userID uint, tagID uint, request *dto.UpdateTagRequest) (*dto.TagDTO, error) {
	tag, err := tf.loadManagedTag(ctx, userID, tagID)
	if err != nil {
		return nil, err
	}

	if request.Name != nil {
		tag.Name = *request.Name
	}
	if request.Color != nil {
		tag.Color = request.Color
	}

	if err := tf.tagRepo.Update(ctx, tag); err != nil {
		return nil, NewBusinessError("TAG_UPDATE_FAILED", "Failed to update tag", err)
	}

	out := ToTagDTO(*tag)
	return &out, nil
}

// DeleteTag removes a tag the caller manages along with its contact links
func (tf *TagFlowImpl) DeleteTag(ctx context.Context, userID uint, tagID uint, metadata *ClientMetadata) error {
	tag, err := tf.loadManagedTag(ctx, userID, tagID)
	if err != nil {
		return err
	}

	if err := tf.tagRepo.DeleteWithLinks(ctx, tag.ID); err != nil {
		return NewBusinessError("TAG_DELETE_FAILED", "Failed to delete tag", err)
	}

	msg := fmt.Sprintf("Deleted %s tag %q", tag.OwnerType, tag.Name)
	_ = tf.logTagEvent(ctx, userID, models.AuditActionTagDeleted, msg, true, metadata)

	return nil
}

// BulkDeleteTags removes the tags the caller manages and counts the rest
// as skipped
func (tf *TagFlowImpl) BulkDeleteTags(ctx context.Context, userID uint, request *dto.BulkDeleteTagsRequest, metadata *ClientMetadata) (*dto.BulkDeleteTagsResponse, error) {
	out := &dto.BulkDeleteTagsResponse{}
	for _, tagID := range request.TagIDs {
		tag, err := tf.loadManagedTag(ctx, userID, tagID)
		if err != nil {
			out.Skipped++
			continue
		}
		if err := tf.tagRepo.DeleteWithLinks(ctx, tag.ID); err != nil {
			return nil, NewBusinessError("TAG_DELETE_FAILED", "Failed to delete tag", err)
		}
		out.Deleted++
	}

	msg := fmt.Sprintf("Bulk deleted %d tags (%d skipped)", out.Deleted, out.Skipped)
	_ = tf.logTagEvent(ctx, userID, models.AuditActionTagDeleted, msg, true, metadata)

	return out, nil
}

// Private helper methods

// loadManagedTag fetches a tag and checks the caller may manage it
func (tf *TagFlowImpl) loadManagedTag(ctx context.Context, userID, tagID uint) (*models.Tag, error) {
	tag, err := tf.tagRepo.ByID(ctx, tagID)
	if err != nil {
		return nil, NewBusinessError("TAG_LOOKUP_FAILED", "Failed to look up tag", err)
	}
	if tag == nil {
		return nil, NewBusinessError("TAG_NOT_FOUND", "Tag not found", ErrTagNotFound)
	}
	if err := tf.requireOwnerPermission(ctx, userID, tag.OwnerType, tag.OwnerID); err != nil {
		return nil, err
	}
	return tag, nil
}

func (tf *TagFlowImpl) requireOwnerPermission(ctx context.Context, userID uint, ownerType models.TagOwnerType, ownerID uint) error {
	switch ownerType {
	case models.TagOwnerUser:
		if ownerID != userID {
			return NewBusinessError("TAG_ACCESS_DENIED", "Tag access denied", ErrTagAccessDenied)
		}
	case models.TagOwnerPage:
		return tf.requirePageAccess(ctx, userID, ownerID)
	case models.TagOwnerBusiness:
		isMember, err := tf.businessRepo.IsMember(ctx, ownerID, userID)
		if err != nil {
			return NewBusinessError("TAG_ACCESS_CHECK_FAILED", "Failed to check tag access", err)
		}
		if !isMember {
			return NewBusinessError("TAG_ACCESS_DENIED", "Tag access denied", ErrTagAccessDenied)
		}
	default:
		return NewBusinessError("INVALID_TAG_OWNER", "Invalid tag owner type", ErrInvalidTagOwner)
	}
	return nil
}

func (tf *TagFlowImpl) requirePageAccess(ctx context.Context, userID, pageID uint) error {
	hasAccess, err := tf.pageRepo.HasAccess(ctx, userID, pageID)
	if err != nil {
		return NewBusinessError("PAGE_ACCESS_CHECK_FAILED", "Failed to check page access", err)
	}
	if !hasAccess {
		return NewBusinessError("PAGE_ACCESS_DENIED", "Page access denied", ErrPageAccessDenied)
	}
	return nil
}

func (tf *TagFlowImpl) logTagEvent(ctx context.Context, userID uint, action, description string, success bool, metadata *ClientMetadata) error {
	entry := &models.AuditLog{
		UserID:      &userID,
		Action:      action,
		Description: &description,
		Success:     &success,
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

	return tf.auditRepo.Save(ctx, entry)
}
