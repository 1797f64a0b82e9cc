package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/registry"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

type harness struct {
	t      *testing.T
	home   string
	config string
	layout config.Layout
	proj   project.Project
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("INSTINCT_HOME", home)
	t.Setenv("INSTINCT_LOGGING_LEVEL", "error")
	layout := config.Layout{Home: home}
	return &harness{
		t:      t,
		home:   home,
		config: filepath.Join(t.TempDir(), "absent.yaml"),
		layout: layout,
		proj:   project.New(layout, "a1b2c3d4e5f6", "api", "/src/api", ""),
	}
}

// run executes the CLI with stdin and returns what it printed.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd(options{
		now: func() time.Time { return fixedNow },
		detector: func(*app) project.Detector {
			return project.Static(h.proj)
		},
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) write(dir, name string, list ...*instinct.Instinct) {
	h.t.Helper()
	require.NoError(h.t, store.WriteFile(filepath.Join(dir, name+store.RecordExt), []byte(instinct.Marshal(list...))))
}

func parseFile(t *testing.T, path string) []*instinct.Instinct {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	list, err := instinct.Parse(string(data))
	require.NoError(t, err)
	return list
}

func inst(id, trigger string, conf float64, domain string) *instinct.Instinct {
	return &instinct.Instinct{
		ID:         id,
		Trigger:    trigger,
		Confidence: conf,
		Domain:     domain,
		Content:    "## Action\nDo the thing for " + id + ".",
	}
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd(defaultOptions())
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"status", "import", "export", "evolve", "promote", "projects"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestStatus(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No instincts found.")

	h.write(h.proj.PersonalDir, "mine", inst("early-return", "when writing handlers", 0.9, "style"))
	h.write(h.layout.GlobalPersonalDir(), "shared", inst("table-tests", "when testing", 0.6, "testing"))
	require.NoError(t, store.WriteFile(h.proj.ObservationsFile, []byte("{}\n{}\n")))

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "INSTINCT STATUS - 2 total")
	assert.Contains(t, out, "## PROJECT-SCOPED (api)")
	assert.Contains(t, out, "early-return [project]")
	assert.Contains(t, out, "table-tests [global]")
	assert.Contains(t, out, "Observations: 2 events logged")
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	source := filepath.Join(t.TempDir(), "team.yaml")
	require.NoError(t, os.WriteFile(source, []byte(instinct.Marshal(
		inst("a", "when a", 0.7, "general"),
		inst("b", "when b", 0.9, "general"),
	)), 0o600))

	t.Run("dry run writes nothing", func(t *testing.T) {
		out, err := h.run("", "import", source, "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, out, "NEW (2):")
		assert.Contains(t, out, "[DRY RUN] No changes made.")
		assert.Equal(t, 0, store.CountRecordFiles(h.proj.InheritedDir))
	})

	t.Run("declined", func(t *testing.T) {
		out, err := h.run("n\n", "import", source)
		require.NoError(t, err)
		assert.Contains(t, out, "Import 2 instincts? [y/N]")
		assert.Contains(t, out, "Cancelled.")
		assert.Equal(t, 0, store.CountRecordFiles(h.proj.InheritedDir))
	})

	t.Run("confirmed", func(t *testing.T) {
		out, err := h.run("y\n", "import", source, "--min-confidence", "0.8")
		require.NoError(t, err)
		assert.Contains(t, out, "Import complete!")
		assert.Contains(t, out, "Added: 1")

		path := filepath.Join(h.proj.InheritedDir, "team-20250304-050607.yaml")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# Project: api (a1b2c3d4e5f6)")
		assert.Contains(t, string(data), "id: b")
		assert.NotContains(t, string(data), "id: a\n")
	})

	t.Run("second import skips known ids", func(t *testing.T) {
		out, err := h.run("", "import", source, "--force", "--min-confidence", "0.8")
		require.NoError(t, err)
		assert.Contains(t, out, "SKIP (1")
		assert.Contains(t, out, "Nothing to import.")
	})

	t.Run("global scope", func(t *testing.T) {
		out, err := h.run("", "import", source, "--force", "--scope", "global")
		require.NoError(t, err)
		assert.Contains(t, out, "Target scope: global")
		assert.Equal(t, 1, store.CountRecordFiles(h.layout.GlobalInheritedDir()))
	})
}

func TestImport_Failures(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "import", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = h.run("", "import", "x.yaml", "--scope", "team")
	assert.ErrorContains(t, err, "invalid scope")

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("just text\n"), 0o600))
	out, err := h.run("", "import", empty)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "No valid instincts found in source.")
}

func TestImport_FallsBackToGlobal(t *testing.T) {
	h := newHarness(t)
	h.proj = project.Global(h.layout)
	source := filepath.Join(t.TempDir(), "pack.yaml")
	require.NoError(t, os.WriteFile(source, []byte(instinct.Marshal(inst("a", "t", 0.7, "general"))), 0o600))

	out, err := h.run("", "import", source, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "No project detected. Importing as global scope.")
	assert.Equal(t, 1, store.CountRecordFiles(h.layout.GlobalInheritedDir()))
}

func TestExport(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "export")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "No instincts to export.")

	h.write(h.proj.PersonalDir, "mine", inst("a", "when a", 0.9, "testing"))
	h.write(h.layout.GlobalPersonalDir(), "shared", inst("g", "when g", 0.4, "style"))

	out, err = h.run("", "export", "--domain", "testing")
	require.NoError(t, err)
	assert.Contains(t, out, "# Instincts export")
	assert.Contains(t, out, "# Total: 1")
	assert.Contains(t, out, "id: a")
	assert.NotContains(t, out, "id: g")

	out, err = h.run("", "export", "--min-confidence", "0.95")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "No instincts match the criteria.")

	_, err = h.run("", "export", "--scope", "team")
	assert.ErrorContains(t, err, "invalid scope")

	path := filepath.Join(t.TempDir(), "out", "export.yaml")
	out, err = h.run("", "export", "--scope", "global", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 instincts to")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: g")

	_, err = h.run("", "export", "-o", "/etc/instincts.yaml")
	assert.ErrorContains(t, err, "invalid output path")
}

func TestEvolve(t *testing.T) {
	h := newHarness(t)
	h.write(h.proj.PersonalDir, "one", inst("a", "when testing handlers", 0.9, "testing"))

	out, err := h.run("", "evolve")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Need at least 3 instincts to analyze patterns.")
	assert.Contains(t, out, "Currently have: 1")

	h.write(h.proj.PersonalDir, "two",
		inst("b", "when writing handlers", 0.8, "style"),
		inst("c", "handlers", 0.8, "testing"),
		inst("d", "when implementing deploy", 0.9, "workflow"),
	)

	out, err = h.run("", "evolve")
	require.NoError(t, err)
	assert.Contains(t, out, "EVOLVE ANALYSIS - 4 instincts")
	assert.Contains(t, out, `1. Cluster: "handlers"`)
	assert.NotContains(t, out, "Generated")
	assert.NoFileExists(t, filepath.Join(h.proj.EvolvedDir, "skills", "handlers", "SKILL.md"))

	out, err = h.run("", "evolve", "--generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 3 evolved structures:")
	assert.FileExists(t, filepath.Join(h.proj.EvolvedDir, "skills", "handlers", "SKILL.md"))
	assert.FileExists(t, filepath.Join(h.proj.EvolvedDir, "commands", "deploy.md"))
	assert.FileExists(t, filepath.Join(h.proj.EvolvedDir, "agents", "handlers.md"))
}

func TestEvolve_GlobalShowsPromotionCandidates(t *testing.T) {
	h := newHarness(t)
	h.proj = project.Global(h.layout)
	h.write(h.layout.GlobalPersonalDir(), "g",
		inst("a", "when testing handlers", 0.9, "testing"),
		inst("b", "when writing handlers", 0.8, "style"),
		inst("c", "handlers", 0.8, "testing"),
	)

	reg := registry.New(h.layout.RegistryFile(), nil)
	for _, p := range []struct{ id, name string }{{"p1", "api"}, {"p2", "web"}} {
		require.NoError(t, reg.Touch(context.Background(), p.id, registry.Entry{Name: p.name}))
		h.write(h.layout.ProjectPersonalDir(p.id), "x", inst("shared", "when x", 0.85, "general"))
	}

	out, err := h.run("", "evolve")
	require.NoError(t, err)
	assert.Contains(t, out, "EVOLVE ANALYSIS - 3 instincts")
	assert.Contains(t, out, "## PROMOTION CANDIDATES (project -> global)")
	assert.Contains(t, out, "* shared (avg: 85%)")
}

func TestPromoteByID(t *testing.T) {
	h := newHarness(t)
	h.write(h.proj.PersonalDir, "mine", inst("early-return", "when writing handlers", 0.72, "style"))
	dest := filepath.Join(h.layout.GlobalPersonalDir(), "early-return.yaml")

	out, err := h.run("", "promote", "missing")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Instinct 'missing' not found in project api.")

	out, err = h.run("", "promote", "early-return", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Confidence: 72%")
	assert.NoFileExists(t, dest)

	out, err = h.run("no\n", "promote", "early-return")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.NoFileExists(t, dest)

	out, err = h.run("y\n", "promote", "early-return")
	require.NoError(t, err)
	assert.Contains(t, out, "Promoted 'early-return' to global scope.")

	list := parseFile(t, dest)
	require.Len(t, list, 1)
	assert.Equal(t, 0.72, list[0].Confidence)
	assert.Equal(t, "a1b2c3d4e5f6", list[0].Get(instinct.KeyPromotedFrom))

	out, err = h.run("", "promote", "early-return", "--force")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "already exists in global scope")
}

func TestPromoteByID_NeedsProject(t *testing.T) {
	h := newHarness(t)
	h.proj = project.Global(h.layout)
	out, err := h.run("", "promote", "x")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "no project detected")
}

func TestPromoteAuto(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "promote")
	require.NoError(t, err)
	assert.Contains(t, out, "No instincts qualify for auto-promotion.")

	reg := registry.New(h.layout.RegistryFile(), nil)
	for _, p := range []struct{ id, name string }{{"p1", "api"}, {"p2", "web"}} {
		require.NoError(t, reg.Touch(context.Background(), p.id, registry.Entry{Name: p.name}))
		h.write(h.layout.ProjectPersonalDir(p.id), "x", inst("x", "when x", 0.85, "general"))
	}

	out, err = h.run("", "promote", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "AUTO-PROMOTION CANDIDATES - 1 found")
	assert.Contains(t, out, "Found in 2 projects: api, web")
	assert.Contains(t, out, "[DRY RUN] No changes made.")

	out, err = h.run("", "promote", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Promoted 1 instincts to global scope.")

	list := parseFile(t, filepath.Join(h.layout.GlobalPersonalDir(), "x.yaml"))
	require.Len(t, list, 1)
	assert.InDelta(t, 0.85, list[0].Confidence, 1e-9)
	assert.Equal(t, "auto-promoted", list[0].Get(instinct.KeySource))
}

func TestProjects(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "No projects registered yet.")

	reg := registry.New(h.layout.RegistryFile(), nil, registry.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, reg.Touch(context.Background(), "p1", registry.Entry{Name: "api", Root: "/src/api"}))
	h.write(h.layout.ProjectPersonalDir("p1"), "a", inst("a", "t", 0.5, "general"))
	h.write(h.layout.GlobalInheritedDir(), "g", inst("g", "t", 0.5, "general"))

	out, err = h.run("", "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "KNOWN PROJECTS - 1 total")
	assert.Contains(t, out, "api [p1]")
	assert.Contains(t, out, "Instincts: 1 personal, 0 inherited")
	assert.Contains(t, out, "Observations: 0 events")
	assert.Contains(t, out, "Last seen: 2025-03-04T05:06:07.000000Z")
	assert.Contains(t, out, "Instincts: 0 personal, 1 inherited")
}

func TestConfirm(t *testing.T) {
	tests := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		" y ":   true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"maybe": false,
	}
	for in, want := range tests {
		cmd := newStatusCmd(&app{})
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(in))
		got, err := confirm(cmd, "Proceed?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "%q", in)
		assert.Contains(t, out.String(), "Proceed? [y/N]")
	}
}
