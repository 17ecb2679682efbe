package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"github.com/prperemyshlev/hrms-identity/internal/utils"
	"go.uber.org/zap"
)

// OTPLedgerConfig controls code shape and lifetime
type OTPLedgerConfig struct {
	Length       int
	TTL          time.Duration
	SingleActive bool
}

// OTPLedger issues, verifies and consumes one-time codes
type OTPLedger struct {
	otps   repository.OTPRepository
	tx     dbx.TxRunner
	clock  Clock
	cfg    OTPLedgerConfig
	logger *zap.Logger
}

// NewOTPLedger creates a new OTP ledger
func NewOTPLedger(otps repository.OTPRepository, tx dbx.TxRunner, clock Clock, cfg OTPLedgerConfig, logger *zap.Logger) *OTPLedger {
	return &OTPLedger{
		otps:   otps,
		tx:     tx,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "otp_ledger")),
	}
}

// Issue creates a code for email and purpose, valid for the configured TTL.
// With SingleActive set, earlier outstanding codes for the pair stop working.
func (l *OTPLedger) Issue(ctx context.Context, email string, purpose domain.OTPPurpose, payload *domain.RegistrationPayload) (string, error) {
	code, err := utils.GenerateNumericCode(l.cfg.Length)
	if err != nil {
		return "", err
	}

	now := l.clock.Now()
	otp := &domain.OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(l.cfg.TTL),
	}

	err = l.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		otps := l.otps.WithTx(tx)
		if l.cfg.SingleActive {
			n, err := otps.InvalidateOutstandingOTPs(ctx, email, purpose)
			if err != nil {
				return err
			}
			if n > 0 {
				l.logger.Debug("invalidated outstanding codes", zap.String("purpose", string(purpose)), zap.Int64("count", n))
			}
		}
		return otps.CreateOTP(ctx, otp)
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue %s code: %w", purpose, err)
	}

	return code, nil
}

// Verify returns the newest matching code that is unused and unexpired
// without consuming it. Wrong, used and expired codes are indistinguishable.
func (l *OTPLedger) Verify(ctx context.Context, email, code string, purpose domain.OTPPurpose) (*domain.OTP, error) {
	otp, err := l.otps.FindValidOTP(ctx, email, code, purpose, l.clock.Now())
	if err != nil {
		return nil, mapOTPError(err)
	}
	return otp, nil
}

// Consume marks otp used. Losing a race to another consumer is ErrInvalidOrExpiredOTP.
func (l *OTPLedger) Consume(ctx context.Context, otp *domain.OTP) error {
	return mapOTPError(l.otps.MarkOTPUsed(ctx, otp.ID))
}

// VerifyAndConsume locks the matching code inside tx and marks it used, so
// the caller's remaining writes commit or roll back together with it.
func (l *OTPLedger) VerifyAndConsume(ctx context.Context, tx dbx.DBTX, email, code string, purpose domain.OTPPurpose) (*domain.OTP, error) {
	otps := l.otps.WithTx(tx)

	otp, err := otps.FindValidOTPForUpdate(ctx, email, code, purpose, l.clock.Now())
	if err != nil {
		return nil, mapOTPError(err)
	}
	if err := otps.MarkOTPUsed(ctx, otp.ID); err != nil {
		return nil, mapOTPError(err)
	}

	otp.IsUsed = true
	return otp, nil
}

func mapOTPError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrInvalidOrExpiredOTP
	}
	return err
}
