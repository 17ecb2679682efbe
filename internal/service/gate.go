package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"go.uber.org/zap"
)

// TokenVerifier checks a signed token of the given kind
type TokenVerifier interface {
	Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error)
}

// Gate authorizes requests. Token validity alone is never enough: the account
// is loaded on every request so blocking and deletion take effect immediately.
type Gate struct {
	tokens      TokenVerifier
	accounts    repository.AccountRepository
	roles       repository.RoleRepository
	revocations TokenRevoker
	metrics     *AuthMetrics
	logger      *zap.Logger
}

// NewGate creates a new authorization gate
func NewGate(tokens TokenVerifier, accounts repository.AccountRepository, roles repository.RoleRepository, revocations TokenRevoker, metrics *AuthMetrics, logger *zap.Logger) *Gate {
	return &Gate{
		tokens:      tokens,
		accounts:    accounts,
		roles:       roles,
		revocations: revocations,
		metrics:     metrics,
		logger:      logger.With(zap.String("component", "gate")),
	}
}

// Authenticate resolves a "Bearer <token>" header into a Principal
func (g *Gate) Authenticate(ctx context.Context, authorizationHeader string) (*domain.Principal, error) {
	principal, err := g.authenticate(ctx, authorizationHeader)
	g.metrics.Record(ctx, "authenticate", err)
	return principal, err
}

func (g *Gate) authenticate(ctx context.Context, authorizationHeader string) (*domain.Principal, error) {
	token, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, domain.ErrMissingCredential
	}

	claims, err := g.tokens.Verify(token, domain.TokenKindAccess)
	if err != nil {
		if errors.Is(err, domain.ErrSigningKeyUnavailable) {
			g.logger.Error("token verification has no signing key")
		}
		return nil, err
	}

	denied, err := g.revocations.IsTokenDenied(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if denied {
		return nil, fmt.Errorf("%w: token revoked", domain.ErrInvalidToken)
	}

	account, err := g.accounts.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	if account.IsBlocked() {
		return nil, domain.ErrAccountBlocked
	}

	if err := checkAccountCutoff(ctx, g.revocations, claims); err != nil {
		return nil, err
	}

	roles, err := g.roles.ListRoleNames(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles

	return &domain.Principal{Account: account, Claims: claims}, nil
}

// RequireRole succeeds when the principal holds role, compared case-insensitively
func (g *Gate) RequireRole(principal *domain.Principal, role string) error {
	if principal == nil || principal.Account == nil || !principal.Account.HasRole(role) {
		return domain.ErrInsufficientRole
	}
	return nil
}

// checkAccountCutoff rejects tokens issued before the account's revocation cutoff
func checkAccountCutoff(ctx context.Context, revocations TokenRevoker, claims *domain.TokenClaims) error {
	cutoff, ok, err := revocations.AccountRevokedAt(ctx, claims.AccountID)
	if err != nil {
		return err
	}
	if ok && claims.IssuedAt.Before(cutoff) {
		return fmt.Errorf("%w: issued before account revocation", domain.ErrInvalidToken)
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
