package service

import (
	"context"
	"testing"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_BlockAndUnblock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	admin := h.principalFor(t, h.seedAccount(t, "root@example.com", "R00tPassword", "admin").ID)
	carol := h.seedAccount(t, "carol@example.com", "Car0lPassword", "user")

	blocked, err := h.admin.BlockAccount(ctx, admin, carol.ID, "  policy violation  ")
	require.NoError(t, err)
	assert.False(t, blocked.IsActive)

	stored, err := h.repos.Account.FindAccountByID(ctx, carol.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.BlockReason)
	assert.Equal(t, "policy violation", *stored.BlockReason)
	assert.Equal(t, admin.Account.ID, *stored.BlockedBy)

	_, err = h.auth.Login(ctx, &dto.LoginRequest{Email: "carol@example.com", Password: "Car0lPassword"})
	assert.ErrorIs(t, err, domain.ErrAccountBlocked)

	unblocked, err := h.admin.UnblockAccount(ctx, admin, carol.ID)
	require.NoError(t, err)
	assert.True(t, unblocked.IsActive)

	h.clock.Advance(time.Second)
	resp, err := h.auth.Login(ctx, &dto.LoginRequest{Email: "carol@example.com", Password: "Car0lPassword"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, resp.Account.Roles)
}

func TestAdmin_RejectsSelfAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := h.seedAccount(t, "root@example.com", "R00tPassword", "admin")
	admin := h.principalFor(t, root.ID)

	_, err := h.admin.BlockAccount(ctx, admin, root.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, h.admin.DeleteAccount(ctx, admin, root.ID), domain.ErrValidation)
}

func TestAdmin_MissingAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.principalFor(t, h.seedAccount(t, "root@example.com", "R00tPassword", "admin").ID)

	_, err := h.admin.BlockAccount(ctx, admin, "ghost", "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = h.admin.UnblockAccount(ctx, admin, "ghost")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, h.admin.DeleteAccount(ctx, admin, "ghost"), domain.ErrAccountNotFound)
	_, err = h.admin.RestoreAccount(ctx, admin, "ghost")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = h.admin.AssignRoles(ctx, admin, "ghost", []string{"user"})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAdmin_DeleteAndRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.principalFor(t, h.seedAccount(t, "root@example.com", "R00tPassword", "admin").ID)
	dave := h.seedAccount(t, "dave@example.com", "D4vePassword", "user")

	session, err := h.auth.Login(ctx, &dto.LoginRequest{Email: "dave@example.com", Password: "D4vePassword"})
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	require.NoError(t, h.admin.DeleteAccount(ctx, admin, dave.ID))

	_, err = h.auth.Login(ctx, &dto.LoginRequest{Email: "dave@example.com", Password: "D4vePassword"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.gate.Authenticate(ctx, "Bearer "+session.AccessToken)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	assert.ErrorIs(t, h.admin.DeleteAccount(ctx, admin, dave.ID), domain.ErrAccountNotFound)

	h.clock.Advance(time.Second)
	restored, err := h.admin.RestoreAccount(ctx, admin, dave.ID)
	require.NoError(t, err)
	assert.Equal(t, dave.ID, restored.ID)

	again, err := h.admin.RestoreAccount(ctx, admin, dave.ID)
	require.NoError(t, err, "restoring a live account is a no-op")
	assert.Equal(t, dave.ID, again.ID)

	_, err = h.gate.Authenticate(ctx, "Bearer "+session.AccessToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "tokens from before the delete stay revoked")

	_, err = h.auth.Login(ctx, &dto.LoginRequest{Email: "dave@example.com", Password: "D4vePassword"})
	require.NoError(t, err)
}

func TestAdmin_AssignRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.principalFor(t, h.seedAccount(t, "root@example.com", "R00tPassword", "admin").ID)
	erin := h.seedAccount(t, "erin@example.com", "Er1nPassword", "user")

	resp, err := h.admin.AssignRoles(ctx, admin, erin.ID, []string{"ADMIN", "user"})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "user"}, resp.Roles)

	promoted := h.principalFor(t, erin.ID)
	require.NoError(t, h.gate.RequireRole(promoted, "admin"))

	_, err = h.admin.AssignRoles(ctx, admin, erin.ID, []string{"overlord"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.admin.AssignRoles(ctx, admin, erin.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
