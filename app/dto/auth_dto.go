// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"operator@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// AuthUserDTO represents user information returned in authentication responses
type AuthUserDTO struct {
	ID         uint    `json:"id" example:"123"`
	UUID       string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email      string  `json:"email" example:"operator@example.com"`
	Name       *string `json:"name,omitempty" example:"Jane Operator"`
	PictureURL *string `json:"picture_url,omitempty"`
	IsActive   *bool   `json:"is_active" example:"true"`
	CreatedAt  string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// UserSessionDTO represents session tokens returned in authentication responses
type UserSessionDTO struct {
	SessionToken string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	TokenType    string  `json:"token_type" example:"Bearer"`
	ExpiresIn    int     `json:"expires_in" example:"3600"`
	CreatedAt    string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	User    AuthUserDTO    `json:"user"`
	Session UserSessionDTO `json:"session"`
}

// RefreshTokenRequest represents the request to rotate session tokens
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Common error codes for auth operations
const (
	ErrorUserNotFound      = "USER_NOT_FOUND"
	ErrorIncorrectPassword = "INCORRECT_PASSWORD"
	ErrorAccountInactive   = "ACCOUNT_INACTIVE"
	ErrorUnauthorized      = "UNAUTHORIZED"
)
