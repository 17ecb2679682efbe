package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"github.com/prperemyshlev/hrms-identity/internal/utils"
	"go.uber.org/zap"
)

// adminService implements AdminService interface
type adminService struct {
	repos       *repository.Repositories
	revocations TokenRevoker
	clock       Clock
	// revocationTTL outlives every token that could predate a cutoff
	revocationTTL time.Duration
	metrics       *AuthMetrics
	logger        *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(repos *repository.Repositories, revocations TokenRevoker, clock Clock, revocationTTL time.Duration, metrics *AuthMetrics, logger *zap.Logger) AdminService {
	return &adminService{
		repos:         repos,
		revocations:   revocations,
		clock:         clock,
		revocationTTL: revocationTTL,
		metrics:       metrics,
		logger:        logger.With(zap.String("component", "admin_service")),
	}
}

// BlockAccount deactivates an account and revokes its outstanding tokens.
// Blocking keeps all account data.
func (s *adminService) BlockAccount(ctx context.Context, actor *domain.Principal, accountID, reason string) (resp *dto.AccountResponse, err error) {
	defer func() { s.metrics.Record(ctx, "admin_block", err) }()

	if err := rejectSelf(actor, accountID, "administrators cannot block their own account"); err != nil {
		return nil, err
	}

	req := dto.BlockAccountRequest{Reason: strings.TrimSpace(reason)}
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.repos.Account.BlockAccount(ctx, accountID, actor.Account.ID, req.Reason, now); err != nil {
		return nil, mapMissingAccount(err)
	}
	s.revokeTokens(ctx, accountID, now)

	s.logger.Info("account blocked", zap.String("account_id", accountID), zap.String("blocked_by", actor.Account.ID))
	return s.load(ctx, accountID)
}

// UnblockAccount reactivates an account. Tokens revoked by the block stay revoked.
func (s *adminService) UnblockAccount(ctx context.Context, actor *domain.Principal, accountID string) (resp *dto.AccountResponse, err error) {
	defer func() { s.metrics.Record(ctx, "admin_unblock", err) }()

	if err := s.repos.Account.UnblockAccount(ctx, accountID); err != nil {
		return nil, mapMissingAccount(err)
	}

	s.logger.Info("account unblocked", zap.String("account_id", accountID), zap.String("unblocked_by", actor.Account.ID))
	return s.load(ctx, accountID)
}

// DeleteAccount soft-deletes an account and revokes its outstanding tokens
func (s *adminService) DeleteAccount(ctx context.Context, actor *domain.Principal, accountID string) (err error) {
	defer func() { s.metrics.Record(ctx, "admin_delete", err) }()

	if err := rejectSelf(actor, accountID, "administrators cannot delete their own account"); err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.repos.Account.SoftDeleteAccount(ctx, accountID, now); err != nil {
		return mapMissingAccount(err)
	}
	s.revokeTokens(ctx, accountID, now)

	s.logger.Info("account deleted", zap.String("account_id", accountID), zap.String("deleted_by", actor.Account.ID))
	return nil
}

// RestoreAccount undoes a soft delete
func (s *adminService) RestoreAccount(ctx context.Context, actor *domain.Principal, accountID string) (resp *dto.AccountResponse, err error) {
	defer func() { s.metrics.Record(ctx, "admin_restore", err) }()

	if _, err := s.repos.Account.FindAccountByIDIncludingDeleted(ctx, accountID); err != nil {
		return nil, mapMissingAccount(err)
	}

	if err := s.repos.Account.RestoreAccount(ctx, accountID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	s.logger.Info("account restored", zap.String("account_id", accountID), zap.String("restored_by", actor.Account.ID))
	return s.load(ctx, accountID)
}

// AssignRoles grants roles to an account. Already-held roles are ignored.
func (s *adminService) AssignRoles(ctx context.Context, actor *domain.Principal, accountID string, roles []string) (resp *dto.AccountResponse, err error) {
	defer func() { s.metrics.Record(ctx, "admin_assign_roles", err) }()

	req := dto.AssignRolesRequest{Roles: roles}
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, err
	}

	if _, err := s.repos.Account.FindAccountByID(ctx, accountID); err != nil {
		return nil, mapMissingAccount(err)
	}

	if err := s.repos.Role.AssignRoles(ctx, accountID, req.Roles); err != nil {
		if errors.Is(err, repository.ErrUnknownRole) {
			return nil, &domain.ValidationError{Fields: map[string]string{"Roles": "Unknown role"}}
		}
		return nil, err
	}

	s.logger.Info("roles assigned", zap.String("account_id", accountID), zap.Strings("roles", req.Roles), zap.String("assigned_by", actor.Account.ID))
	return s.load(ctx, accountID)
}

func (s *adminService) load(ctx context.Context, accountID string) (*dto.AccountResponse, error) {
	account, err := s.repos.Account.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, mapMissingAccount(err)
	}

	roles, err := s.repos.Role.ListRoleNames(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles

	resp := dto.NewAccountResponse(account)
	return &resp, nil
}

// revokeTokens sets the account cutoff. The gate re-reads account state on
// every request, so a failure here is logged rather than returned.
func (s *adminService) revokeTokens(ctx context.Context, accountID string, at time.Time) {
	if err := s.revocations.RevokeAccountTokens(ctx, accountID, at, s.revocationTTL); err != nil {
		s.logger.Error("failed to revoke account tokens", zap.String("account_id", accountID), zap.Error(err))
	}
}

func rejectSelf(actor *domain.Principal, accountID, message string) error {
	if actor != nil && actor.Account != nil && actor.Account.ID == accountID {
		return &domain.ValidationError{Fields: map[string]string{"id": message}}
	}
	return nil
}

func mapMissingAccount(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrAccountNotFound
	}
	return err
}
