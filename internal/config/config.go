package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minJWTSecretLength = 32
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	OTP      OTPConfig      `env:",prefix=OTP_"`
	Mail     MailConfig     `env:",prefix=MAIL_"`
	Social   SocialConfig   `env:",prefix=SOCIAL_"`
	Log      LogConfig      `env:",prefix=LOG_"`
	Roles    RolesConfig    `env:",prefix=ROLES_"`
	Env      string         `env:"ENV,default=development"`

	// GeneratedJWTSecret is set when a development run had no JWT_SECRET and
	// a per-process secret was generated instead.
	GeneratedJWTSecret bool `env:"-"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host          string `env:"HOST,default=localhost"`
	Port          string `env:"PORT,default=5432"`
	User          string `env:"USER,default=hrms_identity"`
	Password      string `env:"PASSWORD"`
	DBName        string `env:"DB,default=hrms_identity_db"`
	SSLMode       string `env:"SSLMODE,default=disable"`
	RunMigrations bool   `env:"RUN_MIGRATIONS,default=true"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// OTPConfig controls one-time code generation. SingleActive invalidates
// earlier outstanding codes for the same email and purpose on every issue.
type OTPConfig struct {
	Length       int      `env:"LENGTH,default=6"`
	TTL          Duration `env:"TTL,default=5m"`
	SingleActive bool     `env:"SINGLE_ACTIVE,default=true"`
}

type MailConfig struct {
	Driver   string   `env:"DRIVER,default=log"`
	Host     string   `env:"HOST"`
	Port     int      `env:"PORT,default=587"`
	User     string   `env:"USER"`
	Password string   `env:"PASSWORD"`
	From     string   `env:"FROM,default=no-reply@localhost"`
	Timeout  Duration `env:"TIMEOUT,default=10s"`
}

type SocialConfig struct {
	GoogleClientID    string   `env:"GOOGLE_CLIENT_ID"`
	FacebookAppID     string   `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret string   `env:"FACEBOOK_APP_SECRET"`
	Timeout           Duration `env:"TIMEOUT,default=10s"`
}

// LogConfig enables a rotating JSON log file next to stdout when File is set.
type LogConfig struct {
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB,default=10"`
	MaxBackups int    `env:"MAX_BACKUPS,default=7"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS,default=28"`
}

type RolesConfig struct {
	Default []string `env:"DEFAULT,default=user"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsDevelopment reports whether non-production fallbacks are allowed.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.applyDevelopmentFallbacks(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDevelopmentFallbacks() error {
	if !c.IsDevelopment() || c.JWT.Secret != "" {
		return nil
	}

	secret := make([]byte, minJWTSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate development jwt secret: %w", err)
	}
	c.JWT.Secret = hex.EncodeToString(secret)
	c.GeneratedJWTSecret = true

	return nil
}

// Validate fails fast on missing secrets. Only the development profile may
// run without explicit credentials.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters long", minJWTSecretLength))
	}

	if c.JWT.AccessTokenExpiry.Duration <= 0 || c.JWT.RefreshTokenExpiry.Duration <= 0 {
		errs = append(errs, errors.New("token expiries must be positive"))
	}

	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.OTP.TTL.Duration <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}

	if len(c.Roles.Default) == 0 {
		errs = append(errs, errors.New("ROLES_DEFAULT must name at least one role"))
	}

	switch strings.ToLower(c.Mail.Driver) {
	case "log":
		if !c.IsDevelopment() {
			errs = append(errs, errors.New("MAIL_DRIVER=log is only allowed in development"))
		}
	case "smtp":
		if c.Mail.Host == "" {
			errs = append(errs, errors.New("MAIL_HOST is required for the smtp driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver))
	}

	if !c.IsDevelopment() {
		if c.Postgres.Password == "" {
			errs = append(errs, errors.New("POSTGRES_PASSWORD is required outside development"))
		}
		if c.Social.FacebookAppID != "" && c.Social.FacebookAppSecret == "" {
			errs = append(errs, errors.New("SOCIAL_FACEBOOK_APP_SECRET is required when SOCIAL_FACEBOOK_APP_ID is set"))
		}
	}

	return errors.Join(errs...)
}
