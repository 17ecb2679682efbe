package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts session and gate outcomes
type AuthMetrics struct {
	events metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	events, err := meter.Int64Counter(
		"auth_events_total",
		metric.WithDescription("Identity flow outcomes by event and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth events counter: %w", err)
	}
	return &AuthMetrics{events: events}, nil
}

// Record counts one event. The outcome label is derived from err.
func (m *AuthMetrics) Record(ctx context.Context, event string, err error) {
	if m == nil {
		return
	}
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome(err)),
	))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountBlocked):
		return "blocked"
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrMissingCredential):
		return "invalid_token"
	case errors.Is(err, domain.ErrInvalidOrExpiredOTP):
		return "invalid_otp"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_request"
	case errors.Is(err, domain.ErrEmailAlreadyExists), errors.Is(err, domain.ErrPhoneAlreadyExists),
		errors.Is(err, domain.ErrProviderAlreadyLinked):
		return "conflict"
	default:
		return "error"
	}
}
