package evolve

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/logging"
	"github.com/fyrsmithlabs/instinct/internal/sanitize"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

// actionPattern captures the first paragraph of a "## Action" section.
var actionPattern = regexp.MustCompile(`(?s)## Action\s*\n\s*(.+?)(?:\n\n|\n##|$)`)

// ActionOf returns the first paragraph under "## Action" in inst's content,
// or inst's id when there is none.
func ActionOf(inst *instinct.Instinct) string {
	if m := actionPattern.FindStringSubmatch(inst.Content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return inst.ID
}

// Generator writes evolved documents for an Analysis.
type Generator struct {
	cfg    config.EvolveConfig
	logger *logging.Logger
}

// NewGenerator creates a Generator with cfg's limits.
func NewGenerator(cfg config.EvolveConfig, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Generator{cfg: cfg, logger: logger}
}

// Generate writes up to the configured number of skills, commands and agents
// under evolvedDir and returns the written paths. Candidates whose derived
// name is empty are skipped.
//
//	<evolvedDir>/skills/<name>/SKILL.md
//	<evolvedDir>/commands/<name>.md
//	<evolvedDir>/agents/<name>.md
func (g *Generator) Generate(ctx context.Context, a *Analysis, evolvedDir string) ([]string, error) {
	var written []string

	write := func(path, body string) error {
		if err := store.WriteFile(path, []byte(body)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
		g.logger.Debug(ctx, "evolved document written", zap.String("path", path))
		return nil
	}

	for _, c := range limit(a.Skills, g.cfg.MaxSkills) {
		name := sanitize.Slug(c.Key, g.cfg.SkillNameLen)
		if name == "" {
			continue
		}
		if err := write(filepath.Join(evolvedDir, "skills", name, "SKILL.md"), skillDoc(name, c)); err != nil {
			return written, err
		}
	}

	for _, inst := range limit(a.Commands, g.cfg.MaxCommands) {
		name := sanitize.Slug(commandSource(inst.Trigger), g.cfg.CommandNameLen)
		if name == "" {
			continue
		}
		if err := write(filepath.Join(evolvedDir, "commands", name+".md"), commandDoc(name, inst)); err != nil {
			return written, err
		}
	}

	for _, c := range limit(a.Agents, g.cfg.MaxAgents) {
		name := sanitize.Slug(c.Key, g.cfg.AgentNameLen)
		if name == "" {
			continue
		}
		if err := write(filepath.Join(evolvedDir, "agents", name+".md"), agentDoc(name, c)); err != nil {
			return written, err
		}
	}

	return written, nil
}

// CommandName returns the display name of a command candidate.
func CommandName(trigger string, maxLen int) string {
	return sanitize.Slug(commandSource(trigger), maxLen)
}

// AgentName returns the display name of an agent candidate.
func AgentName(c Cluster, maxLen int) string {
	return sanitize.Slug(c.Key, maxLen) + "-agent"
}

func commandSource(trigger string) string {
	s := strings.ToLower(trigger)
	s = strings.ReplaceAll(s, "when ", "")
	return strings.ReplaceAll(s, "implementing ", "")
}

func limit[T any](list []T, n int) []T {
	if n >= 0 && len(list) > n {
		return list[:n]
	}
	return list
}

func skillDoc(name string, c Cluster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "Evolved from %d instincts (avg confidence: %s)\n\n", len(c.Members), instinct.FormatPercent(c.AvgConfidence))
	b.WriteString("## When to Apply\n\n")
	fmt.Fprintf(&b, "Trigger: %s\n\n", c.Key)
	b.WriteString("## Actions\n\n")
	for _, m := range c.Members {
		fmt.Fprintf(&b, "- %s\n", ActionOf(m))
	}
	return b.String()
}

func commandDoc(name string, inst *instinct.Instinct) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "Evolved from instinct: %s\n", inst.ID)
	fmt.Fprintf(&b, "Confidence: %s\n\n", instinct.FormatPercent(inst.Confidence))
	b.WriteString(inst.Content)
	return b.String()
}

func agentDoc(name string, c Cluster) string {
	var b strings.Builder
	b.WriteString("---\nmodel: sonnet\ntools: Read, Grep, Glob\n---\n")
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "Evolved from %d instincts (avg confidence: %s)\n", len(c.Members), instinct.FormatPercent(c.AvgConfidence))
	fmt.Fprintf(&b, "Domains: %s\n\n", strings.Join(c.Domains, ", "))
	b.WriteString("## Source Instincts\n\n")
	for _, m := range c.Members {
		fmt.Fprintf(&b, "- %s\n", m.ID)
	}
	return b.String()
}
