package domain

import "time"

// TokenKind keeps access and refresh tokens from being used in place of each other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims represents verified JWT claims. AccountID is the only claim of record.
type TokenClaims struct {
	AccountID string
	Kind      TokenKind
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// Principal is the authorized actor attached to a request.
type Principal struct {
	Account *Account
	Claims  *TokenClaims
}
