// Package social verifies provider-issued tokens and turns them into identities.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/config"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"go.uber.org/zap"
)

// ProviderVerifier checks one provider's tokens
type ProviderVerifier interface {
	Verify(ctx context.Context, token string) (*domain.SocialIdentity, error)
}

// Registry dispatches tokens to the verifier registered for their provider
type Registry struct {
	providers map[domain.Provider]ProviderVerifier
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[domain.Provider]ProviderVerifier),
		logger:    logger.With(zap.String("component", "social_registry")),
	}
}

// NewRegistryFromConfig registers every provider that has credentials configured
func NewRegistryFromConfig(cfg config.SocialConfig, logger *zap.Logger) *Registry {
	client := &http.Client{Timeout: cfg.Timeout.Duration}
	r := NewRegistry(logger)

	if cfg.GoogleClientID != "" {
		r.Register(domain.ProviderGoogle, NewGoogleVerifier(client, cfg.GoogleClientID))
	}
	if cfg.FacebookAppID != "" {
		r.Register(domain.ProviderFacebook, NewFacebookVerifier(client, cfg.FacebookAppSecret))
	}
	return r
}

func (r *Registry) Register(provider domain.Provider, v ProviderVerifier) {
	r.providers[provider] = v
}

// Verify never leaks provider failure detail to the caller; it is logged and
// reported as domain.ErrInvalidSocialToken.
func (r *Registry) Verify(ctx context.Context, provider domain.Provider, token string) (*domain.SocialIdentity, error) {
	v, ok := r.providers[provider]
	if !ok {
		r.logger.Warn("social provider not configured", zap.String("provider", string(provider)))
		return nil, domain.ErrInvalidSocialToken
	}

	identity, err := v.Verify(ctx, token)
	if err != nil {
		r.logger.Warn("social token rejected", zap.String("provider", string(provider)), zap.Error(err))
		return nil, domain.ErrInvalidSocialToken
	}
	if identity.ExternalID == "" {
		return nil, domain.ErrInvalidSocialToken
	}

	identity.Provider = provider
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	return identity, nil
}

var errUnexpectedStatus = errors.New("unexpected provider status")

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const defaultTimeout = 10 * time.Second

func clientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}
