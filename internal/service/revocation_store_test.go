package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/hrms-identity/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *database.Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, &database.Redis{Client: client}
}

func TestRevocationStore_DenyToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRevocationStore(rdb)
	ctx := context.Background()

	denied, err := store.IsTokenDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)

	require.NoError(t, store.DenyToken(ctx, "jti-1", time.Minute))
	denied, err = store.IsTokenDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, denied)
	assert.Equal(t, time.Minute, mr.TTL("blacklist:token:jti-1"))

	mr.FastForward(time.Minute)
	denied, err = store.IsTokenDenied(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, denied)

	require.NoError(t, store.DenyToken(ctx, "jti-2", 0))
	assert.False(t, mr.Exists("blacklist:token:jti-2"), "already expired tokens are not stored")
}

func TestRevocationStore_DenyTokenOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRevocationStore(rdb)
	ctx := context.Background()

	first, err := store.DenyTokenOnce(ctx, "jti-r", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.DenyTokenOnce(ctx, "jti-r", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestRevocationStore_AccountCutoff(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRevocationStore(rdb)
	ctx := context.Background()

	_, ok, err := store.AccountRevokedAt(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 5, 4, 9, 30, 15, 700_000_000, time.UTC)
	require.NoError(t, store.RevokeAccountTokens(ctx, "acc-1", at, time.Hour))

	cutoff, ok, err := store.AccountRevokedAt(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 5, 4, 9, 30, 16, 0, time.UTC), cutoff)

	require.NoError(t, mr.Set("revoked:account:acc-2", "not-a-number"))
	_, _, err = store.AccountRevokedAt(ctx, "acc-2")
	assert.Error(t, err)
}

func TestRevocationStore_RedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRevocationStore(rdb)
	mr.Close()

	_, err := store.IsTokenDenied(context.Background(), "jti")
	assert.Error(t, err)
}
