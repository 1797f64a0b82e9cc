package evolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
)

func inst(id, trigger string, conf float64, domain string) *instinct.Instinct {
	return &instinct.Instinct{
		ID:         id,
		Trigger:    trigger,
		Confidence: conf,
		Domain:     domain,
		Scope:      instinct.ScopeProject,
		Content:    "## Action\nDo " + id + ".\n\n## Evidence\nSeen often.",
	}
}

func keys(cs []Cluster) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Key)
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"when writing tests":            "tests",
		"When testing APIs":             "apis",
		"  when adding a handler  ":     "a handler",
		"implementing retries":          "retries",
		"whenever adding docs":          "ever  docs",
		"creating":                      "",
		"Deploying to staging":          "deploying to staging",
		"when creating database tables": "database tables",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestClusters_Qualification(t *testing.T) {
	list := []*instinct.Instinct{
		inst("a", "when writing tests", 0.6, "testing"),
		inst("b", "when adding tests", 0.8, "testing"),
		inst("c", "when deploying", 0.9, "workflow"),
	}
	clusters := Clusters(list)
	require.Len(t, clusters, 1, "a single-member cluster is never a candidate")

	c := clusters[0]
	assert.Equal(t, "tests", c.Key)
	assert.Len(t, c.Members, 2)
	assert.InDelta(t, 0.7, c.AvgConfidence, 1e-9)
	assert.Equal(t, []string{"testing"}, c.Domains)
	assert.Equal(t, []string{"project"}, c.Scopes)
}

func TestClusters_Ranking(t *testing.T) {
	list := []*instinct.Instinct{
		inst("x1", "when naming things", 0.5, "style"),
		inst("x2", "naming things", 0.5, "style"),
		inst("y1", "when logging errors", 0.9, "errors"),
		inst("y2", "logging errors", 0.9, "errors"),
		inst("z1", "when writing handlers", 0.4, "api"),
		inst("z2", "adding handlers", 0.4, "api"),
		inst("z3", "handlers", 0.4, "api"),
		inst("w1", "when caching", 0.5, "perf"),
		inst("w2", "caching", 0.5, "perf"),
	}
	assert.Equal(t, []string{"handlers", "logging errors", "naming things", "caching"}, keys(Clusters(list)),
		"size desc, then avg confidence desc, then first appearance")
}

func TestClusters_DomainsAndScopes(t *testing.T) {
	a := inst("a", "when retrying", 0.8, "network")
	b := inst("b", "retrying", 0.8, "errors")
	b.Scope = instinct.ScopeGlobal
	c := inst("c", "retrying", 0.8, "network")
	c.Scope = ""

	clusters := Clusters([]*instinct.Instinct{a, b, c})
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"errors", "network"}, clusters[0].Domains)
	assert.Equal(t, []string{"global", "project"}, clusters[0].Scopes)
}

func TestAnalyze(t *testing.T) {
	an := NewAnalyzer(config.Default().Evolve)

	list := []*instinct.Instinct{
		inst("t1", "when writing tests", 0.9, "testing"),
		inst("t2", "when adding tests", 0.8, "testing"),
		inst("t3", "tests", 0.7, "testing"),
		inst("w1", "when releasing", 0.7, "workflow"),
		inst("w2", "when deploying", 0.65, "workflow"),
		inst("w0", "when tagging", 0.95, "workflow"),
		inst("s1", "when styling", 0.85, "style"),
		inst("s2", "styling", 0.85, "style"),
	}

	res, err := an.Analyze(list)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, 5, res.HighConfidence)
	assert.Equal(t, []string{"tests", "styling"}, keys(res.Skills))

	cmdIDs := make([]string, 0, len(res.Commands))
	for _, c := range res.Commands {
		cmdIDs = append(cmdIDs, c.ID)
	}
	assert.Equal(t, []string{"w1", "w0"}, cmdIDs, "input order preserved")

	// tests: 3 members avg 0.8 qualifies; styling has only 2 members.
	assert.Equal(t, []string{"tests"}, keys(res.Agents))
}

func TestAnalyze_AgentNeedsConfidence(t *testing.T) {
	an := NewAnalyzer(config.Default().Evolve)
	res, err := an.Analyze([]*instinct.Instinct{
		inst("a", "when caching", 0.7, "perf"),
		inst("b", "caching", 0.7, "perf"),
		inst("c", "caching", 0.7, "perf"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Skills, 1)
	assert.Empty(t, res.Agents)
}

func TestAnalyze_TooFew(t *testing.T) {
	an := NewAnalyzer(config.Default().Evolve)
	_, err := an.Analyze([]*instinct.Instinct{inst("a", "x", 0.5, "general"), inst("b", "x", 0.5, "general")})
	assert.ErrorIs(t, err, ErrTooFewInstincts)
}

func TestActionOf(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"first paragraph", "## Action\nUse table tests.\n\n## Evidence\nx", "Use table tests."},
		{"until next heading", "## Action\n\nMulti\nline\n## Evidence\nx", "Multi\nline"},
		{"end of text", "intro\n\n## Action\nLast", "Last"},
		{"missing", "## Evidence\nnone", "fallback-id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActionOf(&instinct.Instinct{ID: "fallback-id", Content: tt.content})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "the-release-pipeline", CommandName("When implementing the release pipeline!", 20))
	assert.Equal(t, "tests-agent", AgentName(Cluster{Key: "tests"}, 20))
}

func TestGenerate(t *testing.T) {
	cfg := config.Default().Evolve
	an := NewAnalyzer(cfg)
	list := []*instinct.Instinct{
		inst("t1", "when writing tests", 0.9, "testing"),
		inst("t2", "when adding tests", 0.8, "testing"),
		inst("t3", "tests", 0.7, "testing"),
		inst("w1", "When implementing Release Flow", 0.9, "workflow"),
		inst("q1", "when ???", 0.9, "misc"),
		inst("q2", "???", 0.9, "misc"),
	}
	res, err := an.Analyze(list)
	require.NoError(t, err)
	require.Equal(t, []string{"tests", "???"}, keys(res.Skills))

	dir := t.TempDir()
	paths, err := NewGenerator(cfg, nil).Generate(context.Background(), res, dir)
	require.NoError(t, err)

	skill := filepath.Join(dir, "skills", "tests", "SKILL.md")
	command := filepath.Join(dir, "commands", "release-flow.md")
	agent := filepath.Join(dir, "agents", "tests.md")
	assert.Equal(t, []string{skill, command, agent}, paths, "empty slug ??? is skipped")

	data, err := os.ReadFile(skill)
	require.NoError(t, err)
	assert.Equal(t, "# tests\n\n"+
		"Evolved from 3 instincts (avg confidence: 80%)\n\n"+
		"## When to Apply\n\n"+
		"Trigger: tests\n\n"+
		"## Actions\n\n"+
		"- Do t1.\n- Do t2.\n- Do t3.\n", string(data))

	data, err = os.ReadFile(command)
	require.NoError(t, err)
	assert.Equal(t, "# release-flow\n\n"+
		"Evolved from instinct: w1\n"+
		"Confidence: 90%\n\n"+
		list[3].Content, string(data))

	data, err = os.ReadFile(agent)
	require.NoError(t, err)
	assert.Equal(t, "---\nmodel: sonnet\ntools: Read, Grep, Glob\n---\n"+
		"# tests\n\n"+
		"Evolved from 3 instincts (avg confidence: 80%)\n"+
		"Domains: testing\n\n"+
		"## Source Instincts\n\n"+
		"- t1\n- t2\n- t3\n", string(data))
}

func TestGenerate_Limits(t *testing.T) {
	cfg := config.Default().Evolve
	cfg.MaxCommands = 1

	res := &Analysis{Commands: []*instinct.Instinct{
		inst("a", "when shipping", 0.9, "workflow"),
		inst("b", "when rolling back", 0.9, "workflow"),
	}}
	paths, err := NewGenerator(cfg, nil).Generate(context.Background(), res, t.TempDir())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "shipping.md", filepath.Base(paths[0]))
}
