// Package delivery sends one-time codes to account holders.
package delivery

import (
	"fmt"
	"strings"

	"github.com/prperemyshlev/hrms-identity/internal/config"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/service"
	"go.uber.org/zap"
)

const (
	DriverLog  = "log"
	DriverSMTP = "smtp"
)

// New returns the code sender selected by cfg.Driver
func New(cfg config.MailConfig, logger *zap.Logger) (service.CodeSender, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverLog:
		return NewLogSender(logger), nil
	case DriverSMTP:
		sender, err := NewSMTPSender(SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			From:     cfg.From,
			Timeout:  cfg.Timeout.Duration,
		}, logger)
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

func subject(purpose domain.OTPPurpose) string {
	switch purpose {
	case domain.OTPPurposeRegistration:
		return "Confirm your registration"
	case domain.OTPPurposePasswordReset:
		return "Reset your password"
	default:
		return "Your verification code"
	}
}
