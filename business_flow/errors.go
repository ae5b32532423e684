// Package businessflow contains the core business logic and use cases for the messaging dashboard
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrSessionNotFound   = errors.New("session not found")

	// Page-related errors
	ErrPageNotFound     = errors.New("page not found")
	ErrPageAccessDenied = errors.New("page access denied")
	ErrPageInactive     = errors.New("page is inactive")
	ErrSyncInProgress   = errors.New("sync already in progress for this page")

	// Contact-related errors
	ErrContactNotFound  = errors.New("contact not found")
	ErrNoContactsOnPage = errors.New("none of the contacts belong to this page")

	// Tag-related errors
	ErrTagNotFound     = errors.New("tag not found")
	ErrTagAccessDenied = errors.New("tag access denied")
	ErrInvalidTagOwner = errors.New("invalid tag owner")

	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignAccessDenied     = errors.New("campaign access denied")
	ErrCampaignNotDraft         = errors.New("campaign is not in draft status")
	ErrCampaignNotSending       = errors.New("campaign is not in sending status")
	ErrCampaignUpdateNotAllowed = errors.New("campaign update not allowed")
	ErrCampaignNameRequired     = errors.New("campaign name is required")
	ErrCampaignMessageRequired  = errors.New("campaign message is required")
	ErrCampaignNoRecipients     = errors.New("campaign has no valid recipients")

	// Webhook-related errors
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidVerifyToken = errors.New("invalid webhook verify token")

	// Cron-related errors
	ErrInvalidCronSecret = errors.New("invalid cron secret")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsPageNotFound(err error) bool {
	return errors.Is(err, ErrPageNotFound)
}

func IsPageAccessDenied(err error) bool {
	return errors.Is(err, ErrPageAccessDenied)
}

func IsSyncInProgress(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}

func IsTagNotFound(err error) bool {
	return errors.Is(err, ErrTagNotFound)
}

func IsTagAccessDenied(err error) bool {
	return errors.Is(err, ErrTagAccessDenied)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignNotDraft(err error) bool {
	return errors.Is(err, ErrCampaignNotDraft)
}

func IsCampaignNotSending(err error) bool {
	return errors.Is(err, ErrCampaignNotSending)
}

func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsPageInactive(err error) bool {
	return errors.Is(err, ErrPageInactive)
}

func IsNoContactsOnPage(err error) bool {
	return errors.Is(err, ErrNoContactsOnPage)
}

func IsInvalidTagOwner(err error) bool {
	return errors.Is(err, ErrInvalidTagOwner)
}

func IsCampaignNoRecipients(err error) bool {
	return errors.Is(err, ErrCampaignNoRecipients)
}

func IsInvalidVerifyToken(err error) bool {
	return errors.Is(err, ErrInvalidVerifyToken)
}

func IsInvalidCronSecret(err error) bool {
	return errors.Is(err, ErrInvalidCronSecret)
}
