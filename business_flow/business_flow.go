// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAuthUserDTO converts a user model to AuthUserDTO for authentication responses
func ToAuthUserDTO(user models.User) dto.AuthUserDTO {
	return dto.AuthUserDTO{
		ID:         user.ID,
		UUID:       user.UUID.String(),
		Email:      user.Email,
		Name:       user.Name,
		PictureURL: user.PictureURL,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}

func ToUserSessionDTO(session models.UserSession) dto.UserSessionDTO {
	return dto.UserSessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToPageDTO converts a page model to PageDTO
func ToPageDTO(page models.Page) dto.PageDTO {
	out := dto.PageDTO{
		ID:         page.ID,
		FBPageID:   page.FBPageID,
		Name:       page.Name,
		Category:   page.Category,
		PictureURL: page.PictureURL,
		IsActive:   page.IsActive,
	}
	if page.LastSyncAt != nil {
		formatted := page.LastSyncAt.Format(time.RFC3339)
		out.LastSyncAt = &formatted
	}
	return out
}

// ToTagDTO converts a tag model to TagDTO
func ToTagDTO(tag models.Tag) dto.TagDTO {
	return dto.TagDTO{
		ID:        tag.ID,
		Name:      tag.Name,
		Color:     tag.Color,
		OwnerType: tag.OwnerType.String(),
		OwnerID:   tag.OwnerID,
		CreatedAt: tag.CreatedAt.Format(time.RFC3339),
	}
}

// ToContactDTO converts a contact model with preloaded tags to ContactDTO
func ToContactDTO(contact models.Contact) dto.ContactDTO {
	out := dto.ContactDTO{
		ID:            contact.ID,
		PageID:        contact.PageID,
		PSID:          contact.PSID,
		Name:          contact.Name,
		FirstName:     contact.FirstName,
		LastName:      contact.LastName,
		ProfilePicURL: contact.ProfilePicURL,
		Tags:          make([]dto.TagDTO, 0, len(contact.Tags)),
		CreatedAt:     contact.CreatedAt.Format(time.RFC3339),
	}
	if contact.LastInteraction != nil {
		formatted := contact.LastInteraction.Format(time.RFC3339)
		out.LastInteraction = &formatted
	}
	for _, tag := range contact.Tags {
		out.Tags = append(out.Tags, ToTagDTO(tag))
	}
	return out
}

// ToCampaignDTO converts a campaign model to CampaignDTO
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		ID:              campaign.ID,
		UUID:            campaign.UUID.String(),
		PageID:          campaign.PageID,
		Name:            campaign.Name,
		Message:         campaign.Message,
		Status:          campaign.Status.String(),
		SentCount:       campaign.SentCount,
		FailedCount:     campaign.FailedCount,
		TotalRecipients: int64(campaign.TotalRecipients),
		CreatedAt:       campaign.CreatedAt.Format(time.RFC3339),
	}
	if campaign.StartedAt != nil {
		formatted := campaign.StartedAt.Format(time.RFC3339)
		out.StartedAt = &formatted
	}
	if campaign.CompletedAt != nil {
		formatted := campaign.CompletedAt.Format(time.RFC3339)
		out.CompletedAt = &formatted
	}
	return out
}
