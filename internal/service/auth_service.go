package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"github.com/prperemyshlev/hrms-identity/internal/utils"
	"go.uber.org/zap"
)

const (
	statusOTPSent   = "otp_sent"
	statusOTPIssued = "otp_issued"
)

// AuthConfig holds the orchestrator's tunables
type AuthConfig struct {
	BCryptCost   int
	DefaultRoles []string
	// Production suppresses dev codes and turns undelivered codes into errors
	Production bool
}

// AuthDeps wires the orchestrator to its collaborators
type AuthDeps struct {
	Repos       *repository.Repositories
	Tx          dbx.TxRunner
	Ledger      *OTPLedger
	Resolver    *IdentityResolver
	Tokens      *utils.TokenManager
	Passwords   *utils.PasswordChecker
	Revocations TokenRevoker
	Sender      CodeSender
	Social      SocialVerifier
	Clock       Clock
	Metrics     *AuthMetrics
	Logger      *zap.Logger
}

// authService implements AuthService interface
type authService struct {
	repos       *repository.Repositories
	tx          dbx.TxRunner
	ledger      *OTPLedger
	resolver    *IdentityResolver
	tokens      *utils.TokenManager
	passwords   *utils.PasswordChecker
	revocations TokenRevoker
	sender      CodeSender
	social      SocialVerifier
	clock       Clock
	metrics     *AuthMetrics
	cfg         AuthConfig
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(deps AuthDeps, cfg AuthConfig) AuthService {
	return &authService{
		repos:       deps.Repos,
		tx:          deps.Tx,
		ledger:      deps.Ledger,
		resolver:    deps.Resolver,
		tokens:      deps.Tokens,
		passwords:   deps.Passwords,
		revocations: deps.Revocations,
		sender:      deps.Sender,
		social:      deps.Social,
		clock:       deps.Clock,
		metrics:     deps.Metrics,
		cfg:         cfg,
		logger:      deps.Logger.With(zap.String("component", "auth_service")),
	}
}

// Register checks that email and phone are free, then issues a registration
// code carrying the pending account. No account row is written here.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (resp *dto.OTPDispatchResponse, err error) {
	defer func() { s.metrics.Record(ctx, "register", err) }()

	r := *req
	r.Name = strings.TrimSpace(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = normalizePhone(r.Phone)
	if err := utils.ValidateStruct(&r); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, s.repos, r.Email); err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, s.repos, r.Phone); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(r.Password, s.cfg.BCryptCost)
	if err != nil {
		return nil, err
	}

	payload := &domain.RegistrationPayload{
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: hash,
		Phone:        r.Phone,
	}

	code, err := s.ledger.Issue(ctx, r.Email, domain.OTPPurposeRegistration, payload)
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, r.Email, code, domain.OTPPurposeRegistration)
}

// RegisterVerify spends a registration code and creates the account it
// carries. Consume, create and role assignment commit together.
func (s *authService) RegisterVerify(ctx context.Context, req *dto.RegisterVerifyRequest) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.Record(ctx, "register_verify", err) }()

	r := *req
	r.Email = utils.NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	if err := utils.ValidateStruct(&r); err != nil {
		return nil, err
	}

	var account *domain.Account
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repos := s.repos.WithTx(tx)

		otp, err := s.ledger.VerifyAndConsume(ctx, tx, r.Email, r.Code, domain.OTPPurposeRegistration)
		if err != nil {
			return err
		}
		if otp.Payload == nil {
			return fmt.Errorf("%w: registration code has no payload", domain.ErrInvalidOrExpiredOTP)
		}
		p := otp.Payload

		if err := s.ensureEmailFree(ctx, repos, p.Email); err != nil {
			return err
		}
		if err := s.ensurePhoneFree(ctx, repos, p.Phone); err != nil {
			return err
		}

		hash := p.PasswordHash
		account = &domain.Account{
			Name:         p.Name,
			Email:        p.Email,
			Phone:        p.Phone,
			PasswordHash: &hash,
			IsActive:     true,
			IsVerified:   true,
		}
		if err := repos.Account.CreateAccount(ctx, account); err != nil {
			return mapAccountConflict(err)
		}
		return repos.Role.AssignRoles(ctx, account.ID, s.cfg.DefaultRoles)
	})
	if err != nil {
		return nil, err
	}

	account.Roles = append([]string(nil), s.cfg.DefaultRoles...)
	s.logger.Info("account registered", zap.String("account_id", account.ID))

	return s.issueTokens(account)
}

// Login authenticates with email and password. Unknown email and wrong
// password fail identically.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.Record(ctx, "login", err) }()

	r := *req
	r.Email = utils.NormalizeEmail(r.Email)
	if err := utils.ValidateStruct(&r); err != nil {
		return nil, err
	}

	account, err := s.repos.Account.FindAccountByEmail(ctx, r.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.passwords.CompareDummy(r.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwords.Verify(account.PasswordHash, r.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	if account.IsBlocked() {
		return nil, domain.ErrAccountBlocked
	}

	if err := s.loadRoles(ctx, account); err != nil {
		return nil, err
	}

	return s.issueTokens(account)
}

// SocialLogin verifies a provider token and signs in the linked or new account
func (s *authService) SocialLogin(ctx context.Context, req *dto.SocialLoginRequest) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.Record(ctx, "social_login", err) }()

	r := *req
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	if err := utils.ValidateStruct(&r); err != nil {
		return nil, err
	}

	provider, ok := domain.ParseProvider(r.Provider)
	if !ok {
		return nil, domain.ErrInvalidSocialToken
	}

	identity, err := s.social.Verify(ctx, provider, r.Token)
	if err != nil {
		return nil, err
	}

	account, err := s.resolver.LinkOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	if account.IsBlocked() {
		return nil, domain.ErrAccountBlocked
	}

	if err := s.loadRoles(ctx, account); err != nil {
		return nil, err
	}

	return s.issueTokens(account)
}

// ForgotPassword issues a reset code for a live account. Unlike Login, an
// unknown email is reported as ErrAccountNotFound.
func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) (resp *dto.OTPDispatchResponse, err error) {
	defer func() { s.metrics.Record(ctx, "forgot_password", err) }()

	r := *req
	r.Email = utils.NormalizeEmail(r.Email)
	if err := utils.ValidateStruct(&r); err != nil {
		return nil, err
	}

	account, err := s.repos.Account.FindAccountByEmail(ctx, r.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if account.IsBlocked() {
		return nil, domain.ErrAccountBlocked
	}

	code, err := s.ledger.Issue(ctx, r.Email, domain.OTPPurposePasswordReset, nil)
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, r.Email, code, domain.OTPPurposePasswordReset)
}

// VerifyOTP checks a reset code without spending it
func (s *authService) VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) (err error) {
	defer func() { s.metrics.Record(ctx, "verify_otp", err) }()

	r := *req
	r.Email = utils.NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	if err := utils.ValidateStruct(&r); err != nil {
		return err
	}

	_, err = s.ledger.Verify(ctx, r.Email, r.Code, domain.OTPPurposePasswordReset)
	return err
}

// ResetPassword spends a reset code and replaces the password hash in one
// transaction, then revokes every token issued before the change.
func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) (err error) {
	defer func() { s.metrics.Record(ctx, "reset_password", err) }()

	r := *req
	r.Email = utils.NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	if err := utils.ValidateStruct(&r); err != nil {
		return err
	}

	hash, err := utils.HashPassword(r.NewPassword, s.cfg.BCryptCost)
	if err != nil {
		return err
	}

	var accountID string
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repos := s.repos.WithTx(tx)

		if _, err := s.ledger.VerifyAndConsume(ctx, tx, r.Email, r.Code, domain.OTPPurposePasswordReset); err != nil {
			return err
		}

		account, err := repos.Account.FindAccountByEmail(ctx, r.Email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		accountID = account.ID

		return repos.Account.UpdatePassword(ctx, account.ID, hash)
	})
	if err != nil {
		return err
	}

	if err := s.revocations.RevokeAccountTokens(ctx, accountID, s.clock.Now(), s.tokens.RefreshTokenExpiry()); err != nil {
		s.logger.Error("failed to revoke tokens after password reset", zap.String("account_id", accountID), zap.Error(err))
	}

	s.logger.Info("password reset", zap.String("account_id", accountID))
	return nil
}

// Refresh rotates a refresh token. The presented token is spent; replaying it
// fails with ErrInvalidToken.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (resp *dto.AuthResponse, err error) {
	defer func() { s.metrics.Record(ctx, "refresh", err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil, domain.ErrInvalidToken
	}

	claims, err := s.tokens.Verify(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	denied, err := s.revocations.IsTokenDenied(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if denied {
		return nil, fmt.Errorf("%w: refresh token already used", domain.ErrInvalidToken)
	}

	account, err := s.repos.Account.FindAccountByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	if account.IsBlocked() {
		return nil, domain.ErrAccountBlocked
	}

	if err := checkAccountCutoff(ctx, s.revocations, claims); err != nil {
		return nil, err
	}

	first, err := s.revocations.DenyTokenOnce(ctx, claims.ID, claims.ExpiresAt.Sub(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, fmt.Errorf("%w: refresh token already used", domain.ErrInvalidToken)
	}

	if err := s.loadRoles(ctx, account); err != nil {
		return nil, err
	}

	return s.issueTokens(account)
}

// Logout denies the caller's access token and, when it belongs to the same
// account, the given refresh token.
func (s *authService) Logout(ctx context.Context, principal *domain.Principal, refreshToken string) (err error) {
	defer func() { s.metrics.Record(ctx, "logout", err) }()

	if principal == nil || principal.Claims == nil {
		return domain.ErrMissingCredential
	}

	now := s.clock.Now()
	if err := s.revocations.DenyToken(ctx, principal.Claims.ID, principal.Claims.ExpiresAt.Sub(now)); err != nil {
		return err
	}

	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.Verify(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		s.logger.Debug("ignoring invalid refresh token on logout", zap.Error(err))
		return nil
	}
	if claims.AccountID != principal.Claims.AccountID {
		s.logger.Warn("refresh token on logout belongs to another account",
			zap.String("account_id", principal.Claims.AccountID))
		return nil
	}

	return s.revocations.DenyToken(ctx, claims.ID, claims.ExpiresAt.Sub(now))
}

// GetAccount returns a live account with its roles
func (s *authService) GetAccount(ctx context.Context, accountID string) (*dto.AccountResponse, error) {
	account, err := s.repos.Account.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	if err := s.loadRoles(ctx, account); err != nil {
		return nil, err
	}

	resp := dto.NewAccountResponse(account)
	return &resp, nil
}

// dispatch hands a code to the sender. An undelivered code is returned to
// the caller outside production and is an error in production.
func (s *authService) dispatch(ctx context.Context, email, code string, purpose domain.OTPPurpose) (*dto.OTPDispatchResponse, error) {
	delivered, err := s.sender.SendCode(ctx, email, code, purpose)
	if err != nil {
		s.logger.Warn("code delivery failed", zap.String("purpose", string(purpose)), zap.Error(err))
		delivered = false
	}

	if delivered {
		return &dto.OTPDispatchResponse{Status: statusOTPSent, Email: email}, nil
	}

	if s.cfg.Production {
		return nil, domain.ErrDeliveryFailed
	}

	return &dto.OTPDispatchResponse{Status: statusOTPIssued, Email: email, DevCode: code}, nil
}

func (s *authService) issueTokens(account *domain.Account) (*dto.AuthResponse, error) {
	pair, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewAuthResponse(pair, account), nil
}

func (s *authService) loadRoles(ctx context.Context, account *domain.Account) error {
	roles, err := s.repos.Role.ListRoleNames(ctx, account.ID)
	if err != nil {
		return err
	}
	account.Roles = roles
	return nil
}

func (s *authService) ensureEmailFree(ctx context.Context, repos *repository.Repositories, email string) error {
	_, err := repos.Account.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrEmailAlreadyExists
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return err
}

func (s *authService) ensurePhoneFree(ctx context.Context, repos *repository.Repositories, phone *string) error {
	if phone == nil {
		return nil
	}
	_, err := repos.Account.FindAccountByPhone(ctx, *phone)
	switch {
	case err == nil:
		return domain.ErrPhoneAlreadyExists
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return err
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	p := strings.TrimSpace(*phone)
	if p == "" {
		return nil
	}
	return &p
}
