package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
)

const accountColumns = `id, name, email, phone, password_hash, google_id, facebook_id, linkedin_id,
		avatar_url, is_active, is_verified, is_social, blocked_at, blocked_by, block_reason,
		deleted_at, created_at, updated_at`

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db dbx.DBTX
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db dbx.DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) WithTx(tx dbx.DBTX) AccountRepository {
	return &accountRepository{db: tx}
}

// CreateAccount inserts a new account. Unique violations on email, phone or a
// provider id come back as ErrDuplicateEmail, ErrDuplicatePhone or ErrDuplicateProviderID.
func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, phone, password_hash, google_id, facebook_id, linkedin_id,
			avatar_url, is_active, is_verified, is_social, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.GoogleID,
		account.FacebookID,
		account.LinkedInID,
		account.AvatarURL,
		account.IsActive,
		account.IsVerified,
		account.IsSocial,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if dupErr := mapUniqueViolation(err); dupErr != nil {
			return fmt.Errorf("failed to create account %s: %w", account.Email, dupErr)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// FindAccountByID retrieves a live account by ID
func (r *accountRepository) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, "id "+id, query, id)
}

// FindAccountByIDIncludingDeleted is the admin recovery lookup and the only
// one that can see soft-deleted rows.
func (r *accountRepository) FindAccountByIDIncludingDeleted(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.findOne(ctx, "id "+id, query, id)
}

// FindAccountByEmail retrieves a live account by email, ignoring case
func (r *accountRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`
	return r.findOne(ctx, "email "+email, query, email)
}

// FindAccountByPhone retrieves a live account by phone
func (r *accountRepository) FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, "phone", query, phone)
}

// FindAccountByProvider retrieves the live account holding externalID for provider
func (r *accountRepository) FindAccountByProvider(ctx context.Context, provider domain.Provider, externalID string) (*domain.Account, error) {
	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, string(provider)+" id", query, externalID)
}

// UpdatePassword replaces the password hash of a live account
func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectAffected(result, "account "+id)
}

// LinkProvider attaches a provider id to a live account and marks it verified
func (r *accountRepository) LinkProvider(ctx context.Context, id string, provider domain.Provider, externalID string) error {
	column, err := providerColumn(provider)
	if err != nil {
		return err
	}

	query := `
		UPDATE accounts
		SET ` + column + ` = $2, is_verified = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, externalID)
	if err != nil {
		if dupErr := mapUniqueViolation(err); dupErr != nil {
			return fmt.Errorf("failed to link %s to account %s: %w", provider, id, dupErr)
		}
		return fmt.Errorf("failed to link provider: %w", err)
	}
	return expectAffected(result, "account "+id)
}

// BlockAccount deactivates a live account and records who blocked it and why
func (r *accountRepository) BlockAccount(ctx context.Context, id, blockedBy, reason string, at time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, blocked_at = $2, blocked_by = $3, block_reason = $4, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, at, nullIfEmpty(blockedBy), nullIfEmpty(reason))
	if err != nil {
		return fmt.Errorf("failed to block account: %w", err)
	}
	return expectAffected(result, "account "+id)
}

// UnblockAccount reactivates a live account and clears the block metadata
func (r *accountRepository) UnblockAccount(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET is_active = TRUE, blocked_at = NULL, blocked_by = NULL, block_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to unblock account: %w", err)
	}
	return expectAffected(result, "account "+id)
}

// SoftDeleteAccount hides an account from every lookup but the recovery path
func (r *accountRepository) SoftDeleteAccount(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE accounts
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectAffected(result, "account "+id)
}

// RestoreAccount undoes a soft delete
func (r *accountRepository) RestoreAccount(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to restore account: %w", err)
	}
	return expectAffected(result, "deleted account "+id)
}

func (r *accountRepository) findOne(ctx context.Context, what, query string, args ...any) (*domain.Account, error) {
	account := &domain.Account{}
	var blockedAt, deletedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Phone,
		&account.PasswordHash,
		&account.GoogleID,
		&account.FacebookID,
		&account.LinkedInID,
		&account.AvatarURL,
		&account.IsActive,
		&account.IsVerified,
		&account.IsSocial,
		&blockedAt,
		&account.BlockedBy,
		&account.BlockReason,
		&deletedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with %s not found: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if blockedAt.Valid {
		account.BlockedAt = &blockedAt.Time
	}
	if deletedAt.Valid {
		account.DeletedAt = &deletedAt.Time
	}

	return account, nil
}

// providerColumn maps a provider to its id column. Only known providers reach SQL.
func providerColumn(provider domain.Provider) (string, error) {
	switch provider {
	case domain.ProviderGoogle:
		return "google_id", nil
	case domain.ProviderFacebook:
		return "facebook_id", nil
	case domain.ProviderLinkedIn:
		return "linkedin_id", nil
	}
	return "", fmt.Errorf("unsupported provider %q", provider)
}

func expectAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %w", what, ErrNotFound)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
