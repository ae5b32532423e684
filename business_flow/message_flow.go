package businessflow

import (
	"context"
	"log"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/services"
	"github.com/princecjqlara/Tokkobeta/repository"
	"github.com/princecjqlara/Tokkobeta/utils"
)

// MessageFlow handles ad-hoc message delivery outside the campaign lifecycle
type MessageFlow interface {
	SendMessages(ctx context.Context, userID uint, request *dto.SendMessagesRequest) (*dto.SendMessagesResponse, error)
}

// MessageFlowImpl implements the ad-hoc messaging business flow
type MessageFlowImpl struct {
	pageRepo    repository.PageRepository
	contactRepo repository.ContactRepository
	fbClient    services.FacebookClient
}

// NewMessageFlow creates a new message flow instance
func NewMessageFlow(
	pageRepo repository.PageRepository,
	contactRepo repository.ContactRepository,
	fbClient services.FacebookClient,
) MessageFlow {
	return &MessageFlowImpl{
		pageRepo:    pageRepo,
		contactRepo: contactRepo,
		fbClient:    fbClient,
	}
}

// SendMessages delivers one message to each of the given contacts right
// away, without creating a campaign. Contact IDs not belonging to the page
// are dropped; per-contact failures are collected and never abort the run.
func (mf *MessageFlowImpl) SendMessages(ctx context.Context, userID uint, request *dto.SendMessagesRequest) (*dto.SendMessagesResponse, error) {
	if err := mf.requirePageAccess(ctx, userID, request.PageID); err != nil {
		return nil, err
	}

	page, err := mf.pageRepo.ByID(ctx, request.PageID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send messages", err)
	}
	if page == nil {
		return nil, NewBusinessError("PAGE_NOT_FOUND", "Page not found", ErrPageNotFound)
	}
	if !utils.IsTrue(page.IsActive) {
		return nil, NewBusinessError("PAGE_INACTIVE", "Page is inactive", ErrPageInactive)
	}

	contacts, err := mf.contactRepo.ByIDs(ctx, request.PageID, request.ContactIDs)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send messages", err)
	}
	if len(contacts) == 0 {
		return nil, NewBusinessError("CONTACTS_NOT_FOUND", "No valid contacts found", ErrNoContactsOnPage)
	}

	out := &dto.SendMessagesResponse{}
	for _, contact := range contacts {
		if contact.PSID == "" {
			out.Failed++
			out.Errors = append(out.Errors, dto.SendMessageErrorDTO{ContactID: contact.ID, Error: "contact has no PSID"})
			continue
		}

		if _, sendErr := mf.fbClient.SendMessage(ctx, page.AccessToken, contact.PSID, request.Message); sendErr != nil {
			log.Printf("direct send: page %d contact %d failed: %v", page.ID, contact.ID, sendErr)
			out.Failed++
			out.Errors = append(out.Errors, dto.SendMessageErrorDTO{ContactID: contact.ID, Error: sendErr.Error()})
			continue
		}
		out.Sent++
	}

	return out, nil
}

func (mf *MessageFlowImpl) requirePageAccess(ctx context.Context, userID, pageID uint) error {
	hasAccess, err := mf.pageRepo.HasAccess(ctx, userID, pageID)
	if err != nil {
		return NewBusinessError("PAGE_ACCESS_CHECK_FAILED", "Failed to check page access", err)
	}
	if !hasAccess {
		return NewBusinessError("PAGE_ACCESS_DENIED", "Page access denied", ErrPageAccessDenied)
	}
	return nil
}
