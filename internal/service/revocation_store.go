package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prperemyshlev/hrms-identity/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RevocationStore keeps denied token ids and per-account revocation cutoffs in Redis
type RevocationStore struct {
	redis *database.Redis
}

// NewRevocationStore creates a new revocation store
func NewRevocationStore(redis *database.Redis) *RevocationStore {
	return &RevocationStore{redis: redis}
}

func deniedTokenKey(jti string) string {
	return fmt.Sprintf("blacklist:token:%s", jti)
}

func accountCutoffKey(accountID string) string {
	return fmt.Sprintf("revoked:account:%s", accountID)
}

// DenyToken adds a token id to the denylist until it would have expired anyway
func (s *RevocationStore) DenyToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Client.Set(ctx, deniedTokenKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to deny token: %w", err)
	}
	return nil
}

// DenyTokenOnce denies a token id and reports whether this call was the one
// that denied it. Refresh rotation relies on it to spend a token exactly once.
func (s *RevocationStore) DenyTokenOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	ok, err := s.redis.Client.SetNX(ctx, deniedTokenKey(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to deny token: %w", err)
	}
	return ok, nil
}

// IsTokenDenied checks if a token id is on the denylist
func (s *RevocationStore) IsTokenDenied(ctx context.Context, jti string) (bool, error) {
	exists, err := s.redis.Client.Exists(ctx, deniedTokenKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token denylist: %w", err)
	}
	return exists > 0, nil
}

// RevokeAccountTokens rejects every token for accountID issued at or before at.
// The cutoff is kept for ttl, after which those tokens have expired on their own.
// Token iat has second precision, so the cutoff is the start of the next second:
// anything issued during the revoking second is rejected as well.
func (s *RevocationStore) RevokeAccountTokens(ctx context.Context, accountID string, at time.Time, ttl time.Duration) error {
	cutoff := at.Truncate(time.Second).Add(time.Second).Unix()
	if err := s.redis.Client.Set(ctx, accountCutoffKey(accountID), cutoff, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke account tokens: %w", err)
	}
	return nil
}

// AccountRevokedAt returns the revocation cutoff for accountID, if one is set
func (s *RevocationStore) AccountRevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	raw, err := s.redis.Client.Get(ctx, accountCutoffKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read account revocation: %w", err)
	}

	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed account revocation %q: %w", raw, err)
	}
	return time.Unix(sec, 0).UTC(), true, nil
}
