// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/models"
	"github.com/princecjqlara/Tokkobeta/repository"
	"github.com/xuri/excelize/v2"
)

// ContactFlow handles contact listing, tagging and housekeeping
type ContactFlow interface {
	ListContacts(ctx context.Context, userID uint, pageID uint, request *dto.ListContactsRequest) (*dto.ListContactsResponse, error)
	ExportContacts(ctx context.Context, userID uint, pageID uint, request *dto.ListContactsRequest, metadata *ClientMetadata) (string, []byte, error)
	BulkAddTags(ctx context.Context, userID uint, pageID uint, request *dto.BulkTagRequest) (*dto.BulkTagResponse, error)
	BulkRemoveTags(ctx context.Context, userID uint, pageID uint, request *dto.BulkTagRequest) (*dto.BulkTagResponse, error)
	BulkDeleteContacts(ctx context.Context, userID uint, pageID uint, request *dto.BulkDeleteContactsRequest, metadata *ClientMetadata) (*dto.BulkDeleteContactsResponse, error)
}

// ContactFlowImpl implements the contact business flow
type ContactFlowImpl struct {
	contactRepo repository.ContactRepository
	tagRepo     repository.TagRepository
	pageRepo    repository.PageRepository
	auditRepo   repository.AuditLogRepository
}

// NewContactFlow creates a new contact flow instance
func NewContactFlow(
	contactRepo repository.ContactRepository,
	tagRepo repository.TagRepository,
	pageRepo repository.PageRepository,
	auditRepo repository.AuditLogRepository,
) ContactFlow {
	return &ContactFlowImpl{
		contactRepo: contactRepo,
		tagRepo:     tagRepo,
		pageRepo:    pageRepo,
		auditRepo:   auditRepo,
	}
}

// ListContacts returns a page of contacts ordered by most recent interaction,
// optionally narrowed by a name/PSID search or a tag
func (cf *ContactFlowImpl) ListContacts(ctx context.Context, userID uint, pageID uint, request *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	if err := cf.requirePageAccess(ctx, userID, pageID); err != nil {
		return nil, err
	}

	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	filter := cf.buildFilter(pageID, request)

	contacts, total, err := cf.contactRepo.List(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LIST_FAILED", "Failed to list contacts", err)
	}

	out := &dto.ListContactsResponse{
		Contacts: make([]dto.ContactDTO, 0, len(contacts)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, contact := range contacts {
		out.Contacts = append(out.Contacts, ToContactDTO(*contact))
	}

	return out, nil
}

// ExportContacts writes the filtered contacts of a page into an XLSX
// workbook and returns the filename with the file bytes
func (cf *ContactFlowImpl) ExportContacts(ctx context.Context, userID uint, pageID uint, request *dto.ListContactsRequest, metadata *ClientMetadata) (string, []byte, error) {
	if err := cf.requirePageAccess(ctx, userID, pageID); err != nil {
		return "", nil, err
	}

	filter := cf.buildFilter(pageID, request)

	contacts, _, err := cf.contactRepo.List(ctx, filter, 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("CONTACT_EXPORT_FAILED", "Failed to export contacts", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Contacts"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "psid", "name", "first_name", "last_name", "tags", "last_interaction", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, contact := range contacts {
		tagNames := make([]string, 0, len(contact.Tags))
		for _, tag := range contact.Tags {
			tagNames = append(tagNames, tag.Name)
		}

		lastInteraction := ""
		if contact.LastInteraction != nil {
			lastInteraction = contact.LastInteraction.Format(time.RFC3339)
		}

		record := []any{
			contact.ID,
			contact.PSID,
			derefOrEmpty(contact.Name),
			derefOrEmpty(contact.FirstName),
			derefOrEmpty(contact.LastName),
			strings.Join(tagNames, ", "),
			lastInteraction,
			contact.CreatedAt.Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	msg := fmt.Sprintf("Exported %d contacts of page %d", len(contacts), pageID)
	_ = cf.logContactEvent(ctx, userID, models.AuditActionContactsExported, msg, true, nil, metadata)

	filename := fmt.Sprintf("contacts_page_%d.xlsx", pageID)
	return filename, buf.Bytes(), nil
}

// BulkAddTags links tags to contacts; repeated calls are idempotent. Both
// the contacts and the tags must be usable by the caller.
func (cf *ContactFlowImpl) BulkAddTags(ctx context.Context, userID uint, pageID uint, request *dto.BulkTagRequest) (*dto.BulkTagResponse, error) {
	contactIDs, tagIDs, err := cf.resolveBulkTagTargets(ctx, userID, pageID, request)
	if err != nil {
		return nil, err
	}

	if err := cf.tagRepo.AddContactTags(ctx, contactIDs, tagIDs); err != nil {
		return nil, NewBusinessError("BULK_TAG_FAILED", "Failed to add tags", err)
	}

	return &dto.BulkTagResponse{Contacts: len(contactIDs), Tags: len(tagIDs)}, nil
}

// BulkRemoveTags unlinks tags from contacts
func (cf *ContactFlowImpl) BulkRemoveTags(ctx context.Context, userID uint, pageID uint, request *dto.BulkTagRequest) (*dto.BulkTagResponse, error) {
	contactIDs, tagIDs, err := cf.resolveBulkTagTargets(ctx, userID, pageID, request)
	if err != nil {
		return nil, err
	}

	if err := cf.tagRepo.RemoveContactTags(ctx, contactIDs, tagIDs); err != nil {
		return nil, NewBusinessError("BULK_TAG_FAILED", "Failed to remove tags", err)
	}

	return &dto.BulkTagResponse{Contacts: len(contactIDs), Tags: len(tagIDs)}, nil
}

// BulkDeleteContacts removes contacts of a page with their tag links
func (cf *ContactFlowImpl) BulkDeleteContacts(ctx context.Context, userID uint, pageID uint, request *dto.BulkDeleteContactsRequest, metadata *ClientMetadata) (*dto.BulkDeleteContactsResponse, error) {
	if err := cf.requirePageAccess(ctx, userID, pageID); err != nil {
		return nil, err
	}

	deleted, err := cf.contactRepo.DeleteBatch(ctx, pageID, request.ContactIDs)
	if err != nil {
		return nil, NewBusinessError("CONTACT_DELETE_FAILED", "Failed to delete contacts", err)
	}

	msg := fmt.Sprintf("Deleted %d contacts of page %d", deleted, pageID)
	_ = cf.logContactEvent(ctx, userID, models.AuditActionContactsDeleted, msg, true, nil, metadata)

	return &dto.BulkDeleteContactsResponse{Deleted: deleted}, nil
}

// Private helper methods

func (cf *ContactFlowImpl) buildFilter(pageID uint, request *dto.ListContactsRequest) models.ContactFilter {
	filter := models.ContactFilter{PageID: &pageID}
	if request.Search != "" {
		search := request.Search
		filter.Search = &search
	}
	if request.TagID != 0 {
		tagID := request.TagID
		filter.TagID = &tagID
	}
	return filter
}

func (cf *ContactFlowImpl) resolveBulkTagTargets(ctx context.Context, userID uint, pageID uint, request *dto.BulkTagRequest) ([]uint, []uint, error) {
	if err := cf.requirePageAccess(ctx, userID, pageID); err != nil {
		return nil, nil, err
	}

	contacts, err := cf.contactRepo.ByIDs(ctx, pageID, request.ContactIDs)
	if err != nil {
		return nil, nil, NewBusinessError("BULK_TAG_FAILED", "Failed to resolve contacts", err)
	}
	if len(contacts) == 0 {
		return nil, nil, NewBusinessError("CONTACTS_NOT_ON_PAGE", "None of the contacts belong to this page", ErrNoContactsOnPage)
	}

	contactIDs := make([]uint, 0, len(contacts))
	for _, contact := range contacts {
		contactIDs = append(contactIDs, contact.ID)
	}

	tagIDs := make([]uint, 0, len(request.TagIDs))
	for _, tagID := range request.TagIDs {
		tag, err := cf.tagRepo.ByID(ctx, tagID)
		if err != nil {
			return nil, nil, NewBusinessError("BULK_TAG_FAILED", "Failed to resolve tags", err)
		}
		if tag == nil {
			return nil, nil, NewBusinessError("TAG_NOT_FOUND", "Tag not found", ErrTagNotFound)
		}
		if err := cf.requireTagUsable(ctx, userID, pageID, tag); err != nil {
			return nil, nil, err
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	return contactIDs, tagIDs, nil
}

// requireTagUsable checks that the caller may apply the tag in the context
// of the given page
func (cf *ContactFlowImpl) requireTagUsable(ctx context.Context, userID, pageID uint, tag *models.Tag) error {
	switch tag.OwnerType {
	case models.TagOwnerUser:
		if tag.OwnerID != userID {
			return NewBusinessError("TAG_ACCESS_DENIED", "Tag access denied", ErrTagAccessDenied)
		}
	case models.TagOwnerPage:
		if tag.OwnerID != pageID {
			return NewBusinessError("TAG_ACCESS_DENIED", "Tag access denied", ErrTagAccessDenied)
		}
	case models.TagOwnerBusiness:
		page, err := cf.pageRepo.ByID(ctx, pageID)
		if err != nil {
			return NewBusinessError("TAG_ACCESS_CHECK_FAILED", "Failed to check tag access", err)
		}
		if page == nil || page.BusinessID == nil || *page.BusinessID != tag.OwnerID {
			return NewBusinessError("TAG_ACCESS_DENIED", "Tag access denied", ErrTagAccessDenied)
		}
	default:
		return NewBusinessError("TAG_ACCESS_DENIED", "Tag access denied", ErrInvalidTagOwner)
	}
	return nil
}

func (cf *ContactFlowImpl) requirePageAccess(ctx context.Context, userID, pageID uint) error {
	hasAccess, err := cf.pageRepo.HasAccess(ctx, userID, pageID)
	if err != nil {
		return NewBusinessError("PAGE_ACCESS_CHECK_FAILED", "Failed to check page access", err)
	}
	if !hasAccess {
		return NewBusinessError("PAGE_ACCESS_DENIED", "Page access denied", ErrPageAccessDenied)
	}
	return nil
}

func (cf *ContactFlowImpl) logContactEvent(ctx context.Context, userID uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
