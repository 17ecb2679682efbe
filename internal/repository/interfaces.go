package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
)

// AccountRepository defines methods for account operations. Every lookup
// skips soft-deleted rows except FindAccountByIDIncludingDeleted.
type AccountRepository interface {
	WithTx(tx dbx.DBTX) AccountRepository

	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
	FindAccountByIDIncludingDeleted(ctx context.Context, id string) (*domain.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error)
	FindAccountByProvider(ctx context.Context, provider domain.Provider, externalID string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	LinkProvider(ctx context.Context, id string, provider domain.Provider, externalID string) error
	BlockAccount(ctx context.Context, id, blockedBy, reason string, at time.Time) error
	UnblockAccount(ctx context.Context, id string) error
	SoftDeleteAccount(ctx context.Context, id string, at time.Time) error
	RestoreAccount(ctx context.Context, id string) error
}

// OTPRepository defines methods for one-time code records
type OTPRepository interface {
	WithTx(tx dbx.DBTX) OTPRepository

	CreateOTP(ctx context.Context, otp *domain.OTP) error
	FindValidOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (*domain.OTP, error)
	FindValidOTPForUpdate(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (*domain.OTP, error)
	MarkOTPUsed(ctx context.Context, id string) error
	InvalidateOutstandingOTPs(ctx context.Context, email string, purpose domain.OTPPurpose) (int64, error)
}

// RoleRepository defines methods for role assignment
type RoleRepository interface {
	WithTx(tx dbx.DBTX) RoleRepository

	EnsureRoles(ctx context.Context, names []string) error
	AssignRoles(ctx context.Context, accountID string, names []string) error
	ListRoleNames(ctx context.Context, accountID string) ([]string, error)
}
