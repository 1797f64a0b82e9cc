// Package config provides configuration loading for instinct.
//
// Configuration is an explicit value passed to every component at
// construction. It is built from defaults, an optional YAML file and
// INSTINCT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete instinct configuration.
type Config struct {
	// Home is the storage root holding the global store, the project stores
	// and the project registry.
	Home string `koanf:"home"`

	// ProjectDirEnv names the environment variable that pins the current
	// project root, bypassing git discovery.
	ProjectDirEnv string `koanf:"project_dir_env"`

	Promote PromoteConfig `koanf:"promote"`
	Evolve  EvolveConfig  `koanf:"evolve"`
	Import  ImportConfig  `koanf:"import"`
	Logging LoggingConfig `koanf:"logging"`
}

// PromoteConfig holds cross-project promotion thresholds.
type PromoteConfig struct {
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	MinProjects         int     `koanf:"min_projects"`
}

// EvolveConfig holds clustering and generation limits.
type EvolveConfig struct {
	MinInstincts         int     `koanf:"min_instincts"`
	HighConfidence       float64 `koanf:"high_confidence"`
	CommandMinConfidence float64 `koanf:"command_min_confidence"`
	AgentMinMembers      int     `koanf:"agent_min_members"`
	AgentMinConfidence   float64 `koanf:"agent_min_confidence"`
	MaxSkills            int     `koanf:"max_skills"`
	MaxCommands          int     `koanf:"max_commands"`
	MaxAgents            int     `koanf:"max_agents"`
	SkillNameLen         int     `koanf:"skill_name_len"`
	CommandNameLen       int     `koanf:"command_name_len"`
	AgentNameLen         int     `koanf:"agent_name_len"`
}

// ImportConfig holds import settings.
type ImportConfig struct {
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	ScrubSecrets bool          `koanf:"scrub_secrets"`
}

// LoggingConfig holds CLI logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	home := "~/.claude/homunculus"
	if h, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(h, ".claude", "homunculus")
	}
	return &Config{
		Home:          home,
		ProjectDirEnv: "CLAUDE_PROJECT_DIR",
		Promote: PromoteConfig{
			ConfidenceThreshold: 0.8,
			MinProjects:         2,
		},
		Evolve: EvolveConfig{
			MinInstincts:         3,
			HighConfidence:       0.8,
			CommandMinConfidence: 0.7,
			AgentMinMembers:      3,
			AgentMinConfidence:   0.75,
			MaxSkills:            5,
			MaxCommands:          5,
			MaxAgents:            3,
			SkillNameLen:         30,
			CommandNameLen:       20,
			AgentNameLen:         20,
		},
		Import: ImportConfig{
			FetchTimeout: 30 * time.Second,
			ScrubSecrets: true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Home) == "" {
		return errors.New("home cannot be empty")
	}

	ratios := []struct {
		name string
		v    float64
	}{
		{"promote.confidence_threshold", c.Promote.ConfidenceThreshold},
		{"evolve.high_confidence", c.Evolve.HighConfidence},
		{"evolve.command_min_confidence", c.Evolve.CommandMinConfidence},
		{"evolve.agent_min_confidence", c.Evolve.AgentMinConfidence},
	}
	for _, r := range ratios {
		if r.v < 0 || r.v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", r.name, r.v)
		}
	}

	counts := []struct {
		name string
		v    int
	}{
		{"promote.min_projects", c.Promote.MinProjects},
		{"evolve.agent_min_members", c.Evolve.AgentMinMembers},
		{"evolve.max_skills", c.Evolve.MaxSkills},
		{"evolve.max_commands", c.Evolve.MaxCommands},
		{"evolve.max_agents", c.Evolve.MaxAgents},
		{"evolve.skill_name_len", c.Evolve.SkillNameLen},
		{"evolve.command_name_len", c.Evolve.CommandNameLen},
		{"evolve.agent_name_len", c.Evolve.AgentNameLen},
	}
	for _, n := range counts {
		if n.v < 1 {
			return fmt.Errorf("%s must be positive, got %d", n.name, n.v)
		}
	}

	if c.Evolve.MinInstincts < 0 {
		return fmt.Errorf("evolve.min_instincts cannot be negative, got %d", c.Evolve.MinInstincts)
	}
	if c.Import.FetchTimeout <= 0 {
		return errors.New("import.fetch_timeout must be positive")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}

// Layout returns the storage layout rooted at Home.
func (c *Config) Layout() Layout {
	return Layout{Home: c.Home}
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
