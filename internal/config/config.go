// Package config loads flowgraph settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the process settings. Command-line flags override them.
type Config struct {
	// DB is the SQLite database path.
	DB string `env:"FLOWGRAPH_DB" envDefault:"flowgraph.db"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"FLOWGRAPH_LOG_LEVEL" envDefault:"info"`

	// LogFormat is text or json.
	LogFormat string `env:"FLOWGRAPH_LOG_FORMAT" envDefault:"text"`

	// MaxPropagationDepth is the nested send budget per goroutine.
	MaxPropagationDepth int `env:"FLOWGRAPH_MAX_PROPAGATION_DEPTH" envDefault:"256"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `env:"FLOWGRAPH_METRICS_ADDR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: expected text or json", c.LogFormat)
	}
	if c.MaxPropagationDepth < 1 {
		return fmt.Errorf("invalid max propagation depth %d: must be positive", c.MaxPropagationDepth)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// Logger builds a logger writing to w in the configured format and level.
// Invalid settings fall back to text at info.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
