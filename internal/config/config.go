// Package config loads tcpnetlock's server and client defaults from the
// environment, with an optional local .env file for development.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// DefaultPort is the server's default listening port.
const DefaultPort = 7654

var validIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ServerConfig holds the tcpnetlock server's tunables. CLI flags, where
// present, take precedence over these env-sourced defaults.
type ServerConfig struct {
	Listen string `env:"TCPNETLOCK_HOST" envDefault:"localhost"`
	Port   int    `env:"TCPNETLOCK_PORT" envDefault:"7654"`

	// Reaper tuning (spec.md §4.5 defaults).
	ReaperInterval time.Duration `env:"TCPNETLOCK_REAPER_INTERVAL" envDefault:"5s"`
	ReaperMinAge   time.Duration `env:"TCPNETLOCK_REAPER_MIN_AGE" envDefault:"5s"`

	// Optional Prometheus metrics listener; empty disables it.
	MetricsAddr string `env:"TCPNETLOCK_METRICS_ADDR" envDefault:""`

	// Per-remote-IP connection admission guard.
	ConnRateBurst  int     `env:"TCPNETLOCK_CONN_RATE_BURST" envDefault:"20"`
	ConnRatePerSec float64 `env:"TCPNETLOCK_CONN_RATE_PER_SEC" envDefault:"5"`

	LogLevel  string `env:"TCPNETLOCK_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TCPNETLOCK_LOG_FORMAT" envDefault:"json"`
}

// ClientConfig holds defaults shared by the holder/wrap-a-command CLIs.
type ClientConfig struct {
	Host     string `env:"TCPNETLOCK_HOST" envDefault:"localhost"`
	Port     int    `env:"TCPNETLOCK_PORT" envDefault:"7654"`
	ClientID string `env:"TCPNETLOCK_CLIENT_ID" envDefault:""`
}

// LoadServerConfig reads a .env file (if present) then parses ServerConfig
// from the environment.
func LoadServerConfig() (*ServerConfig, error) {
	loadDotEnv()
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig reads a .env file (if present) then parses ClientConfig
// from the environment.
func LoadClientConfig() (*ClientConfig, error) {
	loadDotEnv()
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if cfg.ClientID != "" && !validIDRe.MatchString(cfg.ClientID) {
		return nil, fmt.Errorf("TCPNETLOCK_CLIENT_ID %q does not match %s", cfg.ClientID, validIDRe.String())
	}
	return cfg, nil
}

func loadDotEnv() {
	_ = godotenv.Load() // optional: fine if no .env file is present
}

// Validate checks ServerConfig for internally-consistent values.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("TCPNETLOCK_PORT must be 1-65535, got %d", c.Port)
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("TCPNETLOCK_REAPER_INTERVAL must be > 0, got %s", c.ReaperInterval)
	}
	if c.ReaperMinAge <= 0 {
		return fmt.Errorf("TCPNETLOCK_REAPER_MIN_AGE must be > 0, got %s", c.ReaperMinAge)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("TCPNETLOCK_LOG_LEVEL must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("TCPNETLOCK_LOG_FORMAT must be one of json/pretty, got %q", c.LogFormat)
	}
	return nil
}

// ZerologLevel maps the validated LogLevel string to a zerolog.Level.
func (c *ServerConfig) ZerologLevel() zerolog.Level {
	switch c.LogLevel {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidID reports whether s matches the lock-name/client-id character
// class shared by both (spec.md §6): ^[A-Za-z0-9_-]+$.
func ValidID(s string) bool {
	return validIDRe.MatchString(s)
}
