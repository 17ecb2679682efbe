package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255"`
	Email    string  `json:"email" validate:"required,email,max=320"`
	Password string  `json:"password" validate:"required,password,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

// RegisterVerifyRequest completes a registration with the emailed code
type RegisterVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SocialLoginRequest carries a provider-issued token
type SocialLoginRequest struct {
	Provider string `json:"provider" validate:"required,oneof=google facebook linkedin"`
	Token    string `json:"token" validate:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest checks a reset code without spending it
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric"`
}

// ResetPasswordRequest spends a reset code and sets a new password
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,numeric"`
	NewPassword string `json:"new_password" validate:"required,password,max=72"`
}

// RefreshRequest carries a refresh token when it is not sent as a cookie
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest optionally names a refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// BlockAccountRequest represents an admin block request
type BlockAccountRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// AssignRolesRequest represents an admin role grant
type AssignRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required,max=64"`
}
