package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
)

// otpRepository implements OTPRepository interface
type otpRepository struct {
	db dbx.DBTX
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db dbx.DBTX) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) WithTx(tx dbx.DBTX) OTPRepository {
	return &otpRepository{db: tx}
}

// CreateOTP stores a new code. The registration payload is kept as jsonb.
func (r *otpRepository) CreateOTP(ctx context.Context, otp *domain.OTP) error {
	query := `
		INSERT INTO otps (id, email, code, purpose, payload, is_used, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}

	var payload []byte
	if otp.Payload != nil {
		var err error
		payload, err = json.Marshal(otp.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode otp payload: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, query,
		otp.ID,
		otp.Email,
		otp.Code,
		string(otp.Purpose),
		payload,
		otp.IsUsed,
		otp.CreatedAt,
		otp.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}

	return nil
}

// FindValidOTP returns the newest unused, unexpired code matching email, code and purpose
func (r *otpRepository) FindValidOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (*domain.OTP, error) {
	return r.findValid(ctx, email, code, purpose, now, "")
}

// FindValidOTPForUpdate is FindValidOTP that also locks the row until the
// surrounding transaction ends.
func (r *otpRepository) FindValidOTPForUpdate(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (*domain.OTP, error) {
	return r.findValid(ctx, email, code, purpose, now, " FOR UPDATE")
}

func (r *otpRepository) findValid(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time, lock string) (*domain.OTP, error) {
	query := `
		SELECT id, email, code, purpose, payload, is_used, created_at, expires_at
		FROM otps
		WHERE email = $1 AND code = $2 AND purpose = $3 AND is_used = FALSE AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1` + lock

	otp := &domain.OTP{}
	var purposeValue string
	var payload []byte

	err := r.db.QueryRowContext(ctx, query, email, code, string(purpose), now).Scan(
		&otp.ID,
		&otp.Email,
		&otp.Code,
		&purposeValue,
		&payload,
		&otp.IsUsed,
		&otp.CreatedAt,
		&otp.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("valid %s otp not found: %w", purpose, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}

	otp.Purpose = domain.OTPPurpose(purposeValue)
	if len(payload) > 0 {
		otp.Payload = &domain.RegistrationPayload{}
		if err := json.Unmarshal(payload, otp.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode otp payload: %w", err)
		}
	}

	return otp, nil
}

// MarkOTPUsed flips is_used once. A row that is missing or already used is ErrNotFound.
func (r *otpRepository) MarkOTPUsed(ctx context.Context, id string) error {
	query := `UPDATE otps SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark otp used: %w", err)
	}
	return expectAffected(result, "unused otp "+id)
}

// InvalidateOutstandingOTPs marks every unused code for email and purpose as used
func (r *otpRepository) InvalidateOutstandingOTPs(ctx context.Context, email string, purpose domain.OTPPurpose) (int64, error) {
	query := `UPDATE otps SET is_used = TRUE WHERE email = $1 AND purpose = $2 AND is_used = FALSE`

	result, err := r.db.ExecContext(ctx, query, email, string(purpose))
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate otps: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
