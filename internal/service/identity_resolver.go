package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"github.com/prperemyshlev/hrms-identity/internal/utils"
	"go.uber.org/zap"
)

// IdentityResolver maps verified social identities onto accounts
type IdentityResolver struct {
	accounts     repository.AccountRepository
	roles        repository.RoleRepository
	tx           dbx.TxRunner
	defaultRoles []string
	logger       *zap.Logger
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(accounts repository.AccountRepository, roles repository.RoleRepository, tx dbx.TxRunner, defaultRoles []string, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{
		accounts:     accounts,
		roles:        roles,
		tx:           tx,
		defaultRoles: defaultRoles,
		logger:       logger.With(zap.String("component", "identity_resolver")),
	}
}

// ResolveSocial returns the live account holding externalID for provider
func (r *IdentityResolver) ResolveSocial(ctx context.Context, provider domain.Provider, externalID string) (*domain.Account, error) {
	account, err := r.accounts.FindAccountByProvider(ctx, provider, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// LinkOrCreate returns the account for identity. An account already holding
// the provider id wins; otherwise a live account with the same email gets the
// id attached and is marked verified; otherwise a verified social account is
// created with the default roles.
func (r *IdentityResolver) LinkOrCreate(ctx context.Context, identity *domain.SocialIdentity) (*domain.Account, error) {
	// A concurrent first login can create the row between our lookup and insert.
	// The second pass then finds it through the provider id or the email.
	for attempt := 0; ; attempt++ {
		account, err := r.linkOrCreate(ctx, identity)
		if attempt == 0 && (errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateProviderID)) {
			continue
		}
		return account, mapAccountConflict(err)
	}
}

func (r *IdentityResolver) linkOrCreate(ctx context.Context, identity *domain.SocialIdentity) (*domain.Account, error) {
	account, err := r.ResolveSocial(ctx, identity.Provider, identity.ExternalID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	email := utils.NormalizeEmail(identity.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", domain.ErrInvalidSocialToken)
	}

	account, err = r.accounts.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return r.link(ctx, account, identity)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	return r.create(ctx, email, identity)
}

func (r *IdentityResolver) link(ctx context.Context, account *domain.Account, identity *domain.SocialIdentity) (*domain.Account, error) {
	// Blocked accounts are left untouched.
	if account.IsBlocked() {
		return nil, domain.ErrAccountBlocked
	}
	if existing := account.ExternalID(identity.Provider); existing != nil && *existing != identity.ExternalID {
		return nil, domain.ErrProviderAlreadyLinked
	}

	if err := r.accounts.LinkProvider(ctx, account.ID, identity.Provider, identity.ExternalID); err != nil {
		return nil, err
	}

	account.SetExternalID(identity.Provider, identity.ExternalID)
	account.IsVerified = true

	r.logger.Info("linked social identity to existing account",
		zap.String("account_id", account.ID),
		zap.String("provider", string(identity.Provider)),
	)
	return account, nil
}

func (r *IdentityResolver) create(ctx context.Context, email string, identity *domain.SocialIdentity) (*domain.Account, error) {
	account := &domain.Account{
		Name:       displayName(identity.DisplayName, email),
		Email:      email,
		AvatarURL:  identity.AvatarURL,
		IsActive:   true,
		IsVerified: true,
		IsSocial:   true,
	}
	account.SetExternalID(identity.Provider, identity.ExternalID)

	err := r.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.accounts.WithTx(tx).CreateAccount(ctx, account); err != nil {
			return err
		}
		return r.roles.WithTx(tx).AssignRoles(ctx, account.ID, r.defaultRoles)
	})
	if err != nil {
		return nil, err
	}

	account.Roles = append([]string(nil), r.defaultRoles...)

	r.logger.Info("created social account",
		zap.String("account_id", account.ID),
		zap.String("provider", string(identity.Provider)),
	)
	return account, nil
}

func displayName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// mapAccountConflict turns repository uniqueness errors into domain errors
func mapAccountConflict(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateEmail):
		return domain.ErrEmailAlreadyExists
	case errors.Is(err, repository.ErrDuplicatePhone):
		return domain.ErrPhoneAlreadyExists
	case errors.Is(err, repository.ErrDuplicateProviderID):
		return domain.ErrProviderAlreadyLinked
	}
	return err
}
