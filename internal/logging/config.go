// Package logging provides structured logging for instinct.
//
// Logger wraps zap with context-aware methods. Correlation fields stored in
// the context (run id, project id) are added to every entry:
//
//	ctx = logging.WithRunID(ctx, logging.NewRunID())
//	ctx = logging.WithProjectID(ctx, "a1b2c3d4e5f6")
//	logger.Warn(ctx, "failed to parse instinct file", zap.String("path", p))
//
// Use NewTestLogger in tests to assert on emitted entries.
package logging

import (
	"fmt"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a string into a zapcore.Level, supporting "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Config holds logging configuration.
type Config struct {
	Level  zapcore.Level
	Format string
	Caller bool
	Fields map[string]string
}

// NewDefaultConfig returns config suited to an interactive CLI.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.WarnLevel,
		Format: "console",
		Fields: map[string]string{
			"service": "instinct",
		},
	}
}

// FromSettings builds a Config from the loaded application settings.
func FromSettings(s config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()
	if s.Level != "" {
		level, err := LevelFromString(s.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s.Level, err)
		}
		cfg.Level = level
	}
	if s.Format != "" {
		cfg.Format = s.Format
	}
	return cfg, nil
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}
