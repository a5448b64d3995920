package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds the application configuration. It is built once at startup
// and passed by reference to whatever needs it.
type Config struct {
	ServerPort  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`

	// TokenLifetimeSeconds is the bearer token lifetime.
	TokenLifetimeSeconds int64 `env:"JWT_EXPIRATION" envDefault:"86400"`

	DBMaxConnections int           `env:"DB_MAX_CONNECTIONS" envDefault:"5"`
	DBAcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"3s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// AuthRateLimitPerMinute caps register/login requests per client IP. Zero disables it.
	AuthRateLimitPerMinute int `env:"AUTH_RATE_LIMIT" envDefault:"0"`

	// StatsSchedule is the cron spec for refreshing the user count gauges.
	StatsSchedule string `env:"STATS_SCHEDULE" envDefault:"@every 1m"`
}

// Load reads an optional .env file, then parses configuration from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.TokenLifetimeSeconds <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be a positive number of seconds, got %d", c.TokenLifetimeSeconds)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.ServerPort)
	}
	if c.DBMaxConnections <= 0 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be positive, got %d", c.DBMaxConnections)
	}
	if c.DBAcquireTimeout <= 0 {
		return fmt.Errorf("DB_ACQUIRE_TIMEOUT must be positive, got %s", c.DBAcquireTimeout)
	}
	if c.AuthRateLimitPerMinute < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must not be negative, got %d", c.AuthRateLimitPerMinute)
	}
	if _, err := cron.ParseStandard(c.StatsSchedule); err != nil {
		return fmt.Errorf("STATS_SCHEDULE is not a valid cron spec: %w", err)
	}
	return nil
}

// TokenLifetime returns the bearer token lifetime as a duration.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeSeconds) * time.Second
}

// DatabasePath strips the URL-style prefixes some tooling puts on SQLite DSNs.
func (c *Config) DatabasePath() string {
	dsn := c.DatabaseURL
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
