package app

import (
	"errors"
	"time"

	"ripple/internal/auth"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless the database is configured and reachable.
	ReadinessRequireDB bool

	// Signing material for the two token families. Both are required and
	// must differ; there is no development default.
	AccessTokenSecret  string
	RefreshTokenSecret string

	AccessTTL time.Duration
	// RefreshTTL of zero means refresh tokens carry no expiry claim and
	// live until superseded or revoked.
	RefreshTTL time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("RIPPLE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("RIPPLE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("RIPPLE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("RIPPLE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RIPPLE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("RIPPLE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("RIPPLE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("RIPPLE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("RIPPLE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("RIPPLE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("RIPPLE_READINESS_REQUIRE_DB", false),

		AccessTokenSecret:  EnvString("RIPPLE_ACCESS_TOKEN_SECRET", ""),
		RefreshTokenSecret: EnvString("RIPPLE_REFRESH_TOKEN_SECRET", ""),

		AccessTTL:  EnvDuration("RIPPLE_ACCESS_TTL", auth.DefaultAccessTTL),
		RefreshTTL: EnvDuration("RIPPLE_REFRESH_TTL", 0),
	}
}

// TokenConfig converts the relevant Config fields into the token service's
// own config, validating the secrets in the process.
func (c Config) TokenConfig() (auth.TokenConfig, error) {
	if c.AccessTokenSecret == "" {
		return auth.TokenConfig{}, errors.New("RIPPLE_ACCESS_TOKEN_SECRET is required")
	}
	if c.RefreshTokenSecret == "" {
		return auth.TokenConfig{}, errors.New("RIPPLE_REFRESH_TOKEN_SECRET is required")
	}
	return auth.TokenConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
	}, nil
}
