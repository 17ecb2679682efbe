package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
)

// tokenClaims is the wire form. Subject is the only claim of record; Type keeps
// access and refresh tokens from standing in for each other.
type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access and refresh tokens
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// TokenManagerOption configures a TokenManager
type TokenManagerOption func(*TokenManager)

// WithTokenClock replaces time.Now, mainly for tests
func WithTokenClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// NewTokenManager creates a token manager. An empty secret is rejected.
func NewTokenManager(secret string, accessTokenExpiry, refreshTokenExpiry time.Duration, opts ...TokenManagerOption) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty: %w", domain.ErrSigningKeyUnavailable)
	}
	if accessTokenExpiry <= 0 || refreshTokenExpiry <= 0 {
		return nil, errors.New("token expiries must be positive")
	}

	m := &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// IssueAccess mints an access token for accountID
func (m *TokenManager) IssueAccess(accountID string) (string, *domain.TokenClaims, error) {
	return m.issue(accountID, domain.TokenKindAccess, m.accessTokenExpiry)
}

// IssueRefresh mints a refresh token for accountID
func (m *TokenManager) IssueRefresh(accountID string) (string, *domain.TokenClaims, error) {
	return m.issue(accountID, domain.TokenKindRefresh, m.refreshTokenExpiry)
}

// IssuePair mints a fresh access and refresh token
func (m *TokenManager) IssuePair(accountID string) (*domain.TokenPair, error) {
	access, _, err := m.IssueAccess(accountID)
	if err != nil {
		return nil, err
	}
	refresh, _, err := m.IssueRefresh(accountID)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int(m.accessTokenExpiry.Seconds()),
		RefreshExpiresIn: int(m.refreshTokenExpiry.Seconds()),
	}, nil
}

func (m *TokenManager) issue(accountID string, kind domain.TokenKind, ttl time.Duration) (string, *domain.TokenClaims, error) {
	if m == nil || len(m.secret) == 0 {
		return "", nil, domain.ErrSigningKeyUnavailable
	}

	now := m.now()
	claims := tokenClaims{
		Type: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return signed, toDomainClaims(&claims), nil
}

// Verify checks algorithm, signature, expiry and kind. It does no I/O; account
// state is the caller's concern. Every failure is domain.ErrInvalidToken except
// a manager without a key, which is domain.ErrSigningKeyUnavailable.
func (m *TokenManager) Verify(tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	if m == nil || len(m.secret) == 0 {
		return nil, domain.ErrSigningKeyUnavailable
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	if claims.Type != string(kind) {
		return nil, fmt.Errorf("%w: expected %s token, got %q", domain.ErrInvalidToken, kind, claims.Type)
	}
	if claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing required claims", domain.ErrInvalidToken)
	}

	return toDomainClaims(claims), nil
}

// AccessTokenExpiry returns the access token lifetime
func (m *TokenManager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// RefreshTokenExpiry returns the refresh token lifetime
func (m *TokenManager) RefreshTokenExpiry() time.Duration {
	return m.refreshTokenExpiry
}

func toDomainClaims(c *tokenClaims) *domain.TokenClaims {
	out := &domain.TokenClaims{
		AccountID: c.Subject,
		Kind:      domain.TokenKind(c.Type),
		ID:        c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
