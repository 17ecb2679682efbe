package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"github.com/prperemyshlev/hrms-identity/internal/utils"
	"github.com/prperemyshlev/hrms-identity/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory stand-in for the accounts, otps and roles tables.
type memStore struct {
	mu         sync.Mutex
	accounts   map[string]*domain.Account
	otps       []*domain.OTP
	grants     map[string]map[string]struct{}
	knownRoles map[string]struct{}
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:   make(map[string]*domain.Account),
		grants:     make(map[string]map[string]struct{}),
		knownRoles: map[string]struct{}{"user": {}, "admin": {}},
	}
}

type memSnapshot struct {
	accounts map[string]*domain.Account
	otps     []*domain.OTP
	grants   map[string]map[string]struct{}
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		accounts: make(map[string]*domain.Account, len(s.accounts)),
		grants:   make(map[string]map[string]struct{}, len(s.grants)),
	}
	for id, a := range s.accounts {
		snap.accounts[id] = cloneAccount(a)
	}
	for _, o := range s.otps {
		c := *o
		snap.otps = append(snap.otps, &c)
	}
	for id, set := range s.grants {
		copied := make(map[string]struct{}, len(set))
		for r := range set {
			copied[r] = struct{}{}
		}
		snap.grants[id] = copied
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.otps = snap.otps
	s.grants = snap.grants
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Account: &memAccountRepo{s: s},
		OTP:     &memOTPRepo{s: s},
		Role:    &memRoleRepo{s: s},
	}
}

func (s *memStore) accountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *memStore) otpsFor(email string, purpose domain.OTPPurpose) []domain.OTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OTP
	for _, o := range s.otps {
		if o.Email == email && o.Purpose == purpose {
			out = append(out, *o)
		}
	}
	return out
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Roles = append([]string(nil), a.Roles...)
	return &c
}

// memTx runs fn against the shared store and restores it when fn fails.
type memTx struct {
	s *memStore
}

func (m *memTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	snap := m.s.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type memAccountRepo struct {
	s *memStore
}

func (r *memAccountRepo) WithTx(dbx.DBTX) repository.AccountRepository { return r }

func (r *memAccountRepo) CreateAccount(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return fmt.Errorf("create: %w", repository.ErrDuplicateEmail)
		}
		if a.Phone != nil && account.Phone != nil && *a.Phone == *account.Phone {
			return fmt.Errorf("create: %w", repository.ErrDuplicatePhone)
		}
		for _, p := range domain.Providers {
			if x, y := a.ExternalID(p), account.ExternalID(p); x != nil && y != nil && *x == *y {
				return fmt.Errorf("create: %w", repository.ErrDuplicateProviderID)
			}
		}
	}

	if account.ID == "" {
		account.ID = r.s.nextID("acc")
	}
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	stored := cloneAccount(account)
	stored.Roles = nil
	r.s.accounts[account.ID] = stored
	return nil
}

func (r *memAccountRepo) find(match func(*domain.Account) bool, includeDeleted bool) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if (includeDeleted || a.DeletedAt == nil) && match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, fmt.Errorf("find: %w", repository.ErrNotFound)
}

func (r *memAccountRepo) FindAccountByID(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id }, false)
}

func (r *memAccountRepo) FindAccountByIDIncludingDeleted(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id }, true)
}

func (r *memAccountRepo) FindAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return strings.EqualFold(a.Email, email) }, false)
}

func (r *memAccountRepo) FindAccountByPhone(_ context.Context, phone string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Phone != nil && *a.Phone == phone }, false)
}

func (r *memAccountRepo) FindAccountByProvider(_ context.Context, provider domain.Provider, externalID string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool {
		id := a.ExternalID(provider)
		return id != nil && *id == externalID
	}, false)
}

func (r *memAccountRepo) update(id string, live bool, fn func(*domain.Account)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || (a.DeletedAt == nil) != live {
		return fmt.Errorf("update: %w", repository.ErrNotFound)
	}
	fn(a)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, true, func(a *domain.Account) { a.PasswordHash = &passwordHash })
}

func (r *memAccountRepo) LinkProvider(_ context.Context, id string, provider domain.Provider, externalID string) error {
	r.s.mu.Lock()
	for _, a := range r.s.accounts {
		if x := a.ExternalID(provider); a.ID != id && x != nil && *x == externalID {
			r.s.mu.Unlock()
			return fmt.Errorf("link: %w", repository.ErrDuplicateProviderID)
		}
	}
	r.s.mu.Unlock()

	return r.update(id, true, func(a *domain.Account) {
		a.SetExternalID(provider, externalID)
		a.IsVerified = true
	})
}

func (r *memAccountRepo) BlockAccount(_ context.Context, id, blockedBy, reason string, at time.Time) error {
	return r.update(id, true, func(a *domain.Account) {
		a.IsActive = false
		a.BlockedAt = &at
		a.BlockedBy = &blockedBy
		a.BlockReason = &reason
	})
}

func (r *memAccountRepo) UnblockAccount(_ context.Context, id string) error {
	return r.update(id, true, func(a *domain.Account) {
		a.IsActive = true
		a.BlockedAt, a.BlockedBy, a.BlockReason = nil, nil, nil
	})
}

func (r *memAccountRepo) SoftDeleteAccount(_ context.Context, id string, at time.Time) error {
	return r.update(id, true, func(a *domain.Account) { a.DeletedAt = &at })
}

func (r *memAccountRepo) RestoreAccount(_ context.Context, id string) error {
	return r.update(id, false, func(a *domain.Account) { a.DeletedAt = nil })
}

type memOTPRepo struct {
	s *memStore
}

func (r *memOTPRepo) WithTx(dbx.DBTX) repository.OTPRepository { return r }

func (r *memOTPRepo) CreateOTP(_ context.Context, otp *domain.OTP) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if otp.ID == "" {
		otp.ID = r.s.nextID("otp")
	}
	c := *otp
	r.s.otps = append(r.s.otps, &c)
	return nil
}

func (r *memOTPRepo) FindValidOTP(_ context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (*domain.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var newest *domain.OTP
	for _, o := range r.s.otps {
		if o.Email == email && o.Code == code && o.Purpose == purpose && o.IsValidAt(now) {
			if newest == nil || !o.CreatedAt.Before(newest.CreatedAt) {
				newest = o
			}
		}
	}
	if newest == nil {
		return nil, fmt.Errorf("find otp: %w", repository.ErrNotFound)
	}
	c := *newest
	return &c, nil
}

func (r *memOTPRepo) FindValidOTPForUpdate(ctx context.Context, email, code string, purpose domain.OTPPurpose, now time.Time) (*domain.OTP, error) {
	return r.FindValidOTP(ctx, email, code, purpose, now)
}

func (r *memOTPRepo) MarkOTPUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.otps {
		if o.ID == id && !o.IsUsed {
			o.IsUsed = true
			return nil
		}
	}
	return fmt.Errorf("mark otp: %w", repository.ErrNotFound)
}

func (r *memOTPRepo) InvalidateOutstandingOTPs(_ context.Context, email string, purpose domain.OTPPurpose) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, o := range r.s.otps {
		if o.Email == email && o.Purpose == purpose && !o.IsUsed {
			o.IsUsed = true
			n++
		}
	}
	return n, nil
}

type memRoleRepo struct {
	s *memStore
}

func (r *memRoleRepo) WithTx(dbx.DBTX) repository.RoleRepository { return r }

func (r *memRoleRepo) EnsureRoles(_ context.Context, names []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range names {
		r.s.knownRoles[strings.ToLower(n)] = struct{}{}
	}
	return nil
}

func (r *memRoleRepo) AssignRoles(_ context.Context, accountID string, names []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range names {
		if _, ok := r.s.knownRoles[strings.ToLower(n)]; !ok {
			return fmt.Errorf("assign %q: %w", n, repository.ErrUnknownRole)
		}
	}
	set, ok := r.s.grants[accountID]
	if !ok {
		set = make(map[string]struct{})
		r.s.grants[accountID] = set
	}
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return nil
}

func (r *memRoleRepo) ListRoleNames(_ context.Context, accountID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var names []string
	for n := range r.s.grants[accountID] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	email   string
	code    string
	purpose domain.OTPPurpose
}

type fakeSender struct {
	mu        sync.Mutex
	delivered bool
	err       error
	sent      []sentCode
}

func (f *fakeSender) SendCode(_ context.Context, email, code string, purpose domain.OTPPurpose) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCode{email: email, code: code, purpose: purpose})
	return f.delivered, f.err
}

func (f *fakeSender) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeSocial maps provider tokens to identities
type fakeSocial struct {
	identities map[string]*domain.SocialIdentity
}

func (f *fakeSocial) Verify(_ context.Context, provider domain.Provider, token string) (*domain.SocialIdentity, error) {
	id, ok := f.identities[token]
	if !ok || id.Provider != provider {
		return nil, domain.ErrInvalidSocialToken
	}
	c := *id
	return &c, nil
}

// compareRecorder counts bcrypt comparisons and remembers which hash each used
type compareRecorder struct {
	mu     sync.Mutex
	hashes []string
}

func (r *compareRecorder) compare(hash, plaintext []byte) error {
	r.mu.Lock()
	r.hashes = append(r.hashes, string(hash))
	r.mu.Unlock()
	return bcrypt.CompareHashAndPassword(hash, plaintext)
}

func (r *compareRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes = nil
}

func (r *compareRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hashes...)
}

type harness struct {
	store       *memStore
	repos       *repository.Repositories
	clock       *fakeClock
	sender      *fakeSender
	social      *fakeSocial
	tokens      *utils.TokenManager
	revocations *RevocationStore
	redis       *miniredis.Miniredis
	ledger      *OTPLedger
	auth        AuthService
	admin       AdminService
	gate        *Gate
	compares    *compareRecorder
}

type harnessOption func(*AuthConfig, *OTPLedgerConfig)

func inProduction() harnessOption {
	return func(c *AuthConfig, _ *OTPLedgerConfig) { c.Production = true }
}

func withMultipleActiveCodes() harnessOption {
	return func(_ *AuthConfig, c *OTPLedgerConfig) { c.SingleActive = false }
}

const testJWTSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	authCfg := AuthConfig{BCryptCost: bcrypt.MinCost, DefaultRoles: []string{"user"}}
	otpCfg := OTPLedgerConfig{Length: 6, TTL: 5 * time.Minute, SingleActive: true}
	for _, opt := range opts {
		opt(&authCfg, &otpCfg)
	}

	logger := zap.NewNop()
	store := newMemStore()
	repos := store.repositories()
	tx := &memTx{s: store}
	clock := newFakeClock()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	revocations := NewRevocationStore(&database.Redis{Client: client})

	tokens, err := utils.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour, utils.WithTokenClock(clock.Now))
	require.NoError(t, err)

	compares := &compareRecorder{}
	passwords, err := utils.NewPasswordChecker(authCfg.BCryptCost, utils.WithCompareFunc(compares.compare))
	require.NoError(t, err)

	metrics, err := NewAuthMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	sender := &fakeSender{}
	social := &fakeSocial{identities: map[string]*domain.SocialIdentity{}}
	ledger := NewOTPLedger(repos.OTP, tx, clock, otpCfg, logger)
	resolver := NewIdentityResolver(repos.Account, repos.Role, tx, authCfg.DefaultRoles, logger)

	auth := NewAuthService(AuthDeps{
		Repos:       repos,
		Tx:          tx,
		Ledger:      ledger,
		Resolver:    resolver,
		Tokens:      tokens,
		Passwords:   passwords,
		Revocations: revocations,
		Sender:      sender,
		Social:      social,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      logger,
	}, authCfg)

	return &harness{
		store:       store,
		repos:       repos,
		clock:       clock,
		sender:      sender,
		social:      social,
		tokens:      tokens,
		revocations: revocations,
		redis:       mr,
		ledger:      ledger,
		auth:        auth,
		admin:       NewAdminService(repos, revocations, clock, tokens.RefreshTokenExpiry(), metrics, logger),
		gate:        NewGate(tokens, repos.Account, repos.Role, revocations, metrics, logger),
		compares:    compares,
	}
}

// seedAccount stores a verified password account with the given roles
func (h *harness) seedAccount(t *testing.T, email, password string, roles ...string) *domain.Account {
	t.Helper()

	account := &domain.Account{Name: "Seeded", Email: email, IsActive: true, IsVerified: true}
	if password != "" {
		hash, err := utils.HashPassword(password, bcrypt.MinCost)
		require.NoError(t, err)
		account.PasswordHash = &hash
	}
	require.NoError(t, h.repos.Account.CreateAccount(context.Background(), account))
	if len(roles) > 0 {
		require.NoError(t, h.repos.Role.AssignRoles(context.Background(), account.ID, roles))
	}
	return account
}

// principalFor authenticates a fresh access token for account
func (h *harness) principalFor(t *testing.T, accountID string) *domain.Principal {
	t.Helper()

	token, _, err := h.tokens.IssueAccess(accountID)
	require.NoError(t, err)
	principal, err := h.gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	return principal
}
