// Package config loads the order-intake service configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/SIACAML/cooqu-order/pkg/config"
)

// Config holds all configuration for the order-intake service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int      `env:"HTTP_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Redis (session store)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Session cookie
	SessionSecret     string        `env:"SESSION_SECRET,required"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"cooqu_session"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SecureCookies     bool          `env:"SECURE_COOKIES" envDefault:"false"`

	// Marketplace API
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL,required"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`

	// Geocoding API
	GeocodeBaseURL string        `env:"GEOCODE_BASE_URL,required"`
	GeocodeAPIKey  string        `env:"GEOCODE_API_KEY,required"`
	GeocodeTimeout time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"5s"`

	// Auth flow
	OTPLength       int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPResendWindow time.Duration `env:"OTP_RESEND_WINDOW" envDefault:"60s"`

	// Address search
	SearchRPS            int           `env:"PLACE_SEARCH_RPS" envDefault:"5"`
	SearchBurst          int           `env:"PLACE_SEARCH_BURST" envDefault:"10"`
	SearchCoalesceWindow time.Duration `env:"PLACE_SEARCH_COALESCE_WINDOW" envDefault:"300ms"`

	// Order submission
	MaxPhotos       int   `env:"MAX_ORDER_PHOTOS" envDefault:"5"`
	MaxSubmissionMB int64 `env:"MAX_SUBMISSION_MB" envDefault:"25"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes, got %d", len(c.SessionSecret))
	}
	if c.OTPLength < 4 || c.OTPLength > 8 {
		return fmt.Errorf("otp length must be between 4 and 8, got %d", c.OTPLength)
	}
	if c.MaxPhotos < 0 {
		return fmt.Errorf("max order photos must not be negative: %d", c.MaxPhotos)
	}
	return nil
}
