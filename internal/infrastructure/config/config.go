// Package config loads navigator configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full navigator configuration.
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Rate    RateConfig
	Session SessionConfig
	Content ContentConfig
	Routes  RoutesConfig
}

// ServerConfig covers the HTTP/WebSocket listener.
type ServerConfig struct {
	Host            string        `envconfig:"NAVIGATOR_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"NAVIGATOR_PORT" default:"8090"`
	ReadTimeout     time.Duration `envconfig:"NAVIGATOR_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"NAVIGATOR_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"NAVIGATOR_SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"NAVIGATOR_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig covers the zap logger.
type LoggingConfig struct {
	Level       string `envconfig:"NAVIGATOR_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"NAVIGATOR_LOG_DEV" default:"false"`
}

// RateConfig covers per-client HTTP rate limiting.
type RateConfig struct {
	Enabled bool    `envconfig:"NAVIGATOR_RATE_ENABLED" default:"true"`
	PerSec  float64 `envconfig:"NAVIGATOR_RATE_PER_SEC" default:"50"`
	Burst   int     `envconfig:"NAVIGATOR_RATE_BURST" default:"100"`
}

// SessionConfig covers snapshot persistence.
type SessionConfig struct {
	Dir string `envconfig:"NAVIGATOR_SESSION_DIR" default:"./data/sessions"`
}

// ContentConfig covers the plant-card CMS client.
type ContentConfig struct {
	BaseURL    string        `envconfig:"NAVIGATOR_CONTENT_URL" default:"http://localhost:9400"`
	Timeout    time.Duration `envconfig:"NAVIGATOR_CONTENT_TIMEOUT" default:"10s"`
	RetryMax   int           `envconfig:"NAVIGATOR_CONTENT_RETRY_MAX" default:"3"`
	RatePerSec float64       `envconfig:"NAVIGATOR_CONTENT_RATE_PER_SEC" default:"5"`
	Burst      int           `envconfig:"NAVIGATOR_CONTENT_BURST" default:"10"`
	CacheTTL   time.Duration `envconfig:"NAVIGATOR_CONTENT_CACHE_TTL" default:"5m"`
}

// RoutesConfig covers the route-manifest directory.
type RoutesConfig struct {
	ManifestDir string `envconfig:"NAVIGATOR_ROUTES_DIR" default:""`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Rate.Enabled && c.Rate.PerSec <= 0 {
		return fmt.Errorf("rate limit must be positive, got %v", c.Rate.PerSec)
	}
	if c.Rate.Enabled && c.Rate.Burst < 1 {
		return fmt.Errorf("rate burst must be at least 1, got %d", c.Rate.Burst)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Logging.Level)
	}
	if c.Session.Dir == "" {
		return fmt.Errorf("session dir must not be empty")
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
