package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
)

// AuthService defines the session flows exposed over HTTP
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.OTPDispatchResponse, error)
	RegisterVerify(ctx context.Context, req *dto.RegisterVerifyRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	SocialLogin(ctx context.Context, req *dto.SocialLoginRequest) (*dto.AuthResponse, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) (*dto.OTPDispatchResponse, error)
	VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, principal *domain.Principal, refreshToken string) error
	GetAccount(ctx context.Context, accountID string) (*dto.AccountResponse, error)
}

// AdminService defines account management for administrators
type AdminService interface {
	BlockAccount(ctx context.Context, actor *domain.Principal, accountID, reason string) (*dto.AccountResponse, error)
	UnblockAccount(ctx context.Context, actor *domain.Principal, accountID string) (*dto.AccountResponse, error)
	DeleteAccount(ctx context.Context, actor *domain.Principal, accountID string) error
	RestoreAccount(ctx context.Context, actor *domain.Principal, accountID string) (*dto.AccountResponse, error)
	AssignRoles(ctx context.Context, actor *domain.Principal, accountID string, roles []string) (*dto.AccountResponse, error)
}

// Authenticator turns an Authorization header into a Principal
type Authenticator interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*domain.Principal, error)
	RequireRole(principal *domain.Principal, role string) error
}

// CodeSender delivers one-time codes. delivered=false with a nil error means
// the transport declined the message and the caller decides what to do.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string, purpose domain.OTPPurpose) (bool, error)
}

// SocialVerifier exchanges a provider token for a verified identity
type SocialVerifier interface {
	Verify(ctx context.Context, provider domain.Provider, token string) (*domain.SocialIdentity, error)
}

// TokenRevoker is the minimal revocation set consulted by the gate and refresh
type TokenRevoker interface {
	DenyToken(ctx context.Context, jti string, ttl time.Duration) error
	DenyTokenOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsTokenDenied(ctx context.Context, jti string) (bool, error)
	RevokeAccountTokens(ctx context.Context, accountID string, at time.Time, ttl time.Duration) error
	AccountRevokedAt(ctx context.Context, accountID string) (time.Time, bool, error)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock in UTC
var SystemClock Clock = systemClock{}
