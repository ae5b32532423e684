package dto

// SendMessagesRequest represents an ad-hoc send to a batch of contacts,
// dispatched immediately without a campaign record
type SendMessagesRequest struct {
	PageID     uint   `json:"page_id" validate:"required" example:"1"`
	ContactIDs []uint `json:"contact_ids" validate:"required,min=1,dive,required"`
	Message    string `json:"message_text" validate:"required,min=1" example:"Hi! Your order is ready for pickup."`
}

// SendMessageErrorDTO describes a single failed delivery in an ad-hoc send
type SendMessageErrorDTO struct {
	ContactID uint   `json:"contact_id" example:"7"`
	Error     string `json:"error" example:"(#10) This message is sent outside of allowed window"`
}

// SendMessagesResponse represents the outcome of an ad-hoc send
type SendMessagesResponse struct {
	Sent   int                   `json:"sent" example:"2"`
	Failed int                   `json:"failed" example:"1"`
	Errors []SendMessageErrorDTO `json:"errors,omitempty"`
}
