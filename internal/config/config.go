package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"rajhholding/internal/util"
	apperrors "rajhholding/pkg/errors"
)

// Config holds application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Database  DatabaseConfig
	Supabase  SupabaseConfig
	Session   SessionConfig
	CORS      CORSConfig
	Upload    UploadConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name       string `env:"APP_NAME" envDefault:"R&B Rajh Holding API"`
	Version    string `env:"APP_VERSION" envDefault:"1.0.0"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"8000"`
	Host       string `env:"HOST" envDefault:"0.0.0.0"`
	TrustProxy bool   `env:"TRUST_PROXY" envDefault:"false"` // honour X-Forwarded-For
}

// LogConfig controls the root logger
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text, json, logfmt
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string `env:"DATABASE_URL"`
	AutoMigrate     bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	InstallPolicies bool   `env:"DB_INSTALL_POLICIES" envDefault:"false"`
}

// SupabaseConfig holds the identity provider endpoint and project keys
type SupabaseConfig struct {
	URL            string `env:"SUPABASE_URL"`
	AnonKey        string `env:"SUPABASE_ANON_KEY"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
}

// SessionConfig holds admin session cookie settings
type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"admin-session"`
	MaxAge     time.Duration `env:"SESSION_MAX_AGE" envDefault:"1h"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	AllowedMethods []string `env:"ALLOWED_METHODS" envDefault:"GET,POST,PUT,DELETE,OPTIONS" envSeparator:","`
	AllowedHeaders []string `env:"ALLOWED_HEADERS" envDefault:"Content-Type,Authorization,X-Request-ID" envSeparator:","`
	MaxAge         int      `env:"CORS_MAX_AGE" envDefault:"86400"`
}

// UploadConfig holds image hosting settings
type UploadConfig struct {
	Endpoint string `env:"IMGBB_ENDPOINT" envDefault:"https://api.imgbb.com/1/upload"`
	APIKey   string `env:"IMGBB_API_KEY"`
	MaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"33554432"`
}

// EmailConfig holds the contact notification channel configuration
type EmailConfig struct {
	Enabled   bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost  string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	FromEmail string `env:"EMAIL_FROM" envDefault:"noreply@rajhholding.ch"`
	FromName  string `env:"EMAIL_FROM_NAME" envDefault:"R&B Rajh Holding"`
	NotifyTo  string `env:"CONTACT_NOTIFY_EMAIL"`
}

// RateLimitConfig holds public endpoint throttling settings
type RateLimitConfig struct {
	RedisURL     string        `env:"REDIS_URL"`
	ContactLimit int           `env:"RATE_LIMIT_CONTACT" envDefault:"5"`
	LoginLimit   int           `env:"RATE_LIMIT_LOGIN" envDefault:"10"`
	Window       time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load loads configuration from the process environment, reading .env first
// when present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return Parse(nil)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil, and validates it.
func Parse(environ map[string]string) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, "failed to parse environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every deployment needs. Optional integrations
// (image hosting, SMTP, Redis) are checked by the components that use them.
func (c *Config) Validate() error {
	if c.App.Port == "" {
		return apperrors.Configuration("PORT must be set")
	}
	if c.Database.URL == "" {
		return apperrors.Configuration("DATABASE_URL must be set")
	}
	if err := c.Supabase.Validate(); err != nil {
		return err
	}
	if c.Session.CookieName == "" {
		return apperrors.Configuration("SESSION_COOKIE_NAME must not be empty")
	}
	if c.RateLimit.Window <= 0 {
		return apperrors.Configuration("RATE_LIMIT_WINDOW must be greater than 0")
	}
	return nil
}

// Validate checks the identity provider settings. Keys that are JWTs must
// carry the role their variable names promise.
func (c *SupabaseConfig) Validate() error {
	if c.URL == "" {
		return apperrors.Configuration("SUPABASE_URL must be set")
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.Configuration("SUPABASE_URL must be an absolute URL")
	}
	if c.AnonKey == "" {
		return apperrors.Configuration("SUPABASE_ANON_KEY must be set")
	}
	if role := util.KeyRole(c.AnonKey); role != "" && role != "anon" {
		return apperrors.Configuration("SUPABASE_ANON_KEY has role %q, expected anon", role)
	}
	if c.ServiceRoleKey != "" {
		if role := util.KeyRole(c.ServiceRoleKey); role != "" && role != "service_role" {
			return apperrors.Configuration("SUPABASE_SERVICE_ROLE_KEY has role %q, expected service_role", role)
		}
	}
	return nil
}

// BaseURL returns the provider URL without a trailing slash
func (c *SupabaseConfig) BaseURL() string {
	return strings.TrimRight(c.URL, "/")
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://") ||
		strings.Contains(c.URL, "host=")
}

// GetSQLitePath extracts SQLite database path from URL
func (c *DatabaseConfig) GetSQLitePath() string {
	return strings.TrimPrefix(c.URL, "sqlite:///")
}

// Addr returns the listen address
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
