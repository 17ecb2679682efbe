package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/config"
	"github.com/prperemyshlev/hrms-identity/internal/dbx"
	"github.com/prperemyshlev/hrms-identity/internal/delivery"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/handler"
	"github.com/prperemyshlev/hrms-identity/internal/repository"
	"github.com/prperemyshlev/hrms-identity/internal/service"
	"github.com/prperemyshlev/hrms-identity/internal/social"
	"github.com/prperemyshlev/hrms-identity/internal/utils"
	"github.com/prperemyshlev/hrms-identity/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// Overrides replaces collaborators that talk to the outside world. Zero
// fields keep the configured implementation.
type Overrides struct {
	Sender service.CodeSender
	Social service.SocialVerifier
	Clock  service.Clock
}

func NewApp(ctx context.Context, infra Infrastructure, cfg *config.Config, overrides Overrides) (*App, error) {
	logger := infra.Logger()

	if cfg.GeneratedJWTSecret {
		logger.Warn("JWT_SECRET is not set; using a generated secret, tokens will not survive a restart")
	}

	db := infra.Postgres().DB
	repos := repository.NewRepositories(db)

	if err := repos.Role.EnsureRoles(ctx, roleSeed(cfg.Roles.Default)); err != nil {
		return nil, fmt.Errorf("failed to seed roles: %w", err)
	}

	tokens, err := utils.NewTokenManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)
	if err != nil {
		return nil, err
	}

	passwords, err := utils.NewPasswordChecker(cfg.Security.BCryptCost)
	if err != nil {
		return nil, err
	}

	metrics, err := service.NewAuthMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, err
	}

	sender := overrides.Sender
	if sender == nil {
		if sender, err = delivery.New(cfg.Mail, logger); err != nil {
			return nil, err
		}
	}

	var verifier service.SocialVerifier = social.NewRegistryFromConfig(cfg.Social, logger)
	if overrides.Social != nil {
		verifier = overrides.Social
	}

	clock := overrides.Clock
	if clock == nil {
		clock = service.SystemClock
	}

	tx := dbx.NewRunner(db)
	revocations := service.NewRevocationStore(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis(), logger)
	healthChecker := NewHealthChecker(infra.Postgres(), infra.Redis(), logger)

	ledger := service.NewOTPLedger(repos.OTP, tx, clock, service.OTPLedgerConfig{
		Length:       cfg.OTP.Length,
		TTL:          cfg.OTP.TTL.Duration,
		SingleActive: cfg.OTP.SingleActive,
	}, logger)
	resolver := service.NewIdentityResolver(repos.Account, repos.Role, tx, cfg.Roles.Default, logger)

	authService := service.NewAuthService(service.AuthDeps{
		Repos:       repos,
		Tx:          tx,
		Ledger:      ledger,
		Resolver:    resolver,
		Tokens:      tokens,
		Passwords:   passwords,
		Revocations: revocations,
		Sender:      sender,
		Social:      verifier,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      logger,
	}, service.AuthConfig{
		BCryptCost:   cfg.Security.BCryptCost,
		DefaultRoles: cfg.Roles.Default,
		Production:   !cfg.IsDevelopment(),
	})
	adminService := service.NewAdminService(repos, revocations, clock, tokens.RefreshTokenExpiry(), metrics, logger)
	gate := service.NewGate(tokens, repos.Account, repos.Role, revocations, metrics, logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	router.GET("/metrics", observability.PrometheusHandler(infra.MetricsHandler()))
	router.GET("/health", healthChecker.Handler)

	handler.RegisterRoutes(router,
		handler.NewAuthHandler(authService, !cfg.IsDevelopment(), logger),
		handler.NewAdminHandler(adminService, logger),
		gate,
		handler.RateLimit{
			Limiter:  rateLimiter,
			Requests: cfg.Security.RateLimitRequests,
			Window:   cfg.Security.RateLimitWindow.Duration,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// roleSeed is the default roles plus admin, so the admin API is always reachable
func roleSeed(defaults []string) []string {
	roles := slices.Clone(defaults)
	if !slices.Contains(roles, domain.RoleAdmin) {
		roles = append(roles, domain.RoleAdmin)
	}
	return roles
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
			zap.String("env", a.config.Env),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

// Shutdown stops accepting requests, drains in-flight ones, then releases
// the infrastructure.
func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)
	if serverErr != nil {
		a.infra.Logger().Error("HTTP server shutdown failed", zap.Error(serverErr))
	}

	a.infra.Logger().Info("Application exited")
	return errors.Join(serverErr, a.infra.Shutdown(ctx))
}
