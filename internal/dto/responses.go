package dto

import (
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
)

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken      string          `json:"access_token"`
	RefreshToken     string          `json:"refresh_token"`
	TokenType        string          `json:"token_type"`
	ExpiresIn        int             `json:"expires_in"`
	RefreshExpiresIn int             `json:"refresh_expires_in"`
	Account          AccountResponse `json:"account"`
}

// AccountResponse represents an account as seen by clients
type AccountResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	IsSocial    bool       `json:"is_social"`
	Roles       []string   `json:"roles"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty"`
	BlockReason *string    `json:"block_reason,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OTPDispatchResponse reports that a code was issued. DevCode is only filled
// outside production when the code could not be delivered.
type OTPDispatchResponse struct {
	Status  string `json:"status"`
	Email   string `json:"email"`
	DevCode string `json:"dev_code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewAccountResponse converts a domain account
func NewAccountResponse(a *domain.Account) AccountResponse {
	roles := a.Roles
	if roles == nil {
		roles = []string{}
	}

	return AccountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		AvatarURL:   a.AvatarURL,
		IsActive:    a.IsActive,
		IsVerified:  a.IsVerified,
		IsSocial:    a.IsSocial,
		Roles:       roles,
		BlockedAt:   a.BlockedAt,
		BlockReason: a.BlockReason,
		DeletedAt:   a.DeletedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// NewAuthResponse combines a token pair with the account it was issued for
func NewAuthResponse(pair *domain.TokenPair, a *domain.Account) *AuthResponse {
	return &AuthResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        pair.TokenType,
		ExpiresIn:        pair.ExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
		Account:          NewAccountResponse(a),
	}
}
