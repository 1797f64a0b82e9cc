package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/sanitize"
	"github.com/fyrsmithlabs/instinct/internal/secrets"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)

type env struct {
	layout config.Layout
	agg    *aggregate.Aggregator
	proj   project.Project
}

func newEnv(t *testing.T) *env {
	t.Helper()
	layout := config.Layout{Home: t.TempDir()}
	return &env{
		layout: layout,
		agg:    aggregate.New(layout, nil, nil),
		proj:   project.New(layout, "aaaaaaaaaaaa", "api", "/src/api", ""),
	}
}

func put(t *testing.T, dir, file string, list ...*instinct.Instinct) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(instinct.Marshal(list...)), 0o644))
}

func rec(id string, conf float64, domain string) *instinct.Instinct {
	return &instinct.Instinct{
		ID:         id,
		Trigger:    "when " + id,
		Confidence: conf,
		Domain:     domain,
		Content:    "## Action\nApply " + id + ".",
	}
}

func ids(list []*instinct.Instinct) []string {
	out := make([]string, 0, len(list))
	for _, i := range list {
		out = append(out, i.ID)
	}
	return out
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/x.yaml"))
	assert.True(t, IsURL("http://example.com/x.yaml"))
	assert.False(t, IsURL("ftp://example.com/x.yaml"))
	assert.False(t, IsURL("./https.yaml"))
}

func TestFetch_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/team.yaml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "---\nid: shared\n---\n")
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	text, err := f.Fetch(context.Background(), srv.URL+"/team.yaml")
	require.NoError(t, err)
	assert.Equal(t, "---\nid: shared\n---\n", text)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.yaml")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewFetcher(50*time.Millisecond).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.yaml")
	require.NoError(t, os.WriteFile(path, []byte("---\nid: x\n---\n"), 0o644))

	f := NewFetcher(time.Second)
	text, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "id: x")

	_, err = f.Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, sanitize.ErrPathNotExist)

	_, err = f.Fetch(context.Background(), "/etc/hosts")
	assert.ErrorIs(t, err, sanitize.ErrSystemPath)
}

func TestPlan_Categorize(t *testing.T) {
	e := newEnv(t)
	put(t, e.proj.PersonalDir, "mine.yaml", rec("known", 0.6, "testing"))
	put(t, e.layout.GlobalPersonalDir(), "g.yaml", rec("same", 0.7, "testing"), rec("higher", 0.9, "testing"))

	incoming := instinct.Marshal(
		rec("fresh", 0.9, "testing"),
		rec("known", 0.8, "testing"),
		rec("same", 0.7, "testing"),
		rec("higher", 0.3, "testing"),
		rec("faint", 0.2, "testing"),
	)

	im := NewImporter(e.layout, e.agg, nil, nil)
	plan, err := im.Plan(context.Background(), e.proj, "team.yaml", incoming, ImportOptions{Scope: instinct.ScopeProject, MinConfidence: 0.5})
	require.NoError(t, err)

	assert.Equal(t, 5, plan.Found)
	assert.Equal(t, []string{"fresh"}, ids(plan.New))
	assert.Equal(t, []string{"known"}, ids(plan.Update))
	assert.Equal(t, []string{"same", "higher"}, ids(plan.Duplicate))
	assert.Equal(t, 1, plan.Filtered)
	assert.Equal(t, instinct.ScopeProject, plan.Scope)
	assert.False(t, plan.FellBack)
	assert.False(t, plan.Empty())
}

func TestPlan_Errors(t *testing.T) {
	e := newEnv(t)
	im := NewImporter(e.layout, e.agg, nil, nil)

	_, err := im.Plan(context.Background(), e.proj, "empty.yaml", "no separators here", ImportOptions{})
	assert.ErrorIs(t, err, ErrNoInstincts)

	_, err = im.Plan(context.Background(), e.proj, "bad.yaml", "---\nid: x\nconfidence: lots\n---\n", ImportOptions{})
	assert.ErrorIs(t, err, instinct.ErrInvalidConfidence)
}

func TestApply_ProjectScope(t *testing.T) {
	e := newEnv(t)
	put(t, e.proj.PersonalDir, "mine.yaml", rec("known", 0.6, "testing"))

	src := rec("fresh", 0.9, "testing")
	src.Set(instinct.KeySourceRepo, "acme/shared")
	src.Set("ignored_key", "dropped")
	text := instinct.Marshal(src, rec("known", 0.8, "testing"))

	im := NewImporter(e.layout, e.agg, nil, nil, WithImportClock(func() time.Time { return fixedNow }))
	plan, err := im.Plan(context.Background(), e.proj, "/tmp/team-pack.yaml", text, ImportOptions{Scope: instinct.ScopeProject})
	require.NoError(t, err)

	path, err := im.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.proj.InheritedDir, "team-pack-20250304-050607.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data),
		"# Imported from /tmp/team-pack.yaml\n"+
			"# Date: 2025-03-04T05:06:07\n"+
			"# Scope: project\n"+
			"# Project: api (aaaaaaaaaaaa)\n\n---\n"))

	written, err := instinct.Parse(string(data))
	require.NoError(t, err)
	require.Equal(t, []string{"fresh", "known"}, ids(written))

	fresh := written[0]
	assert.Equal(t, instinct.ScopeProject, fresh.Scope)
	assert.Equal(t, SourceInherited, fresh.Get(instinct.KeySource))
	assert.Equal(t, "/tmp/team-pack.yaml", fresh.Get(instinct.KeyImportedFrom))
	assert.Equal(t, "aaaaaaaaaaaa", fresh.Get(instinct.KeyProjectID))
	assert.Equal(t, "api", fresh.Get(instinct.KeyProjectName))
	assert.Equal(t, "acme/shared", fresh.Get(instinct.KeySourceRepo))
	assert.Empty(t, fresh.Get("ignored_key"))
	assert.Equal(t, src.Content, fresh.Content)
	assert.Empty(t, written[1].Get(instinct.KeySourceRepo))

	// The update now wins inside the project view.
	view := e.agg.ProjectOnly(context.Background(), e.proj)
	assert.Equal(t, 0.8, instinct.Find(view, "known").Confidence)
}

func TestApply_GlobalFallback(t *testing.T) {
	e := newEnv(t)
	global := project.Global(e.layout)

	im := NewImporter(e.layout, e.agg, nil, nil, WithImportClock(func() time.Time { return fixedNow }))
	plan, err := im.Plan(context.Background(), global, "https://example.com/pack.yaml", instinct.Marshal(rec("x", 0.9, "testing")), ImportOptions{Scope: instinct.ScopeProject})
	require.NoError(t, err)
	assert.True(t, plan.FellBack)
	assert.Equal(t, instinct.ScopeGlobal, plan.Scope)

	path, err := im.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.layout.GlobalInheritedDir(), "web-import-20250304-050607.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "# Project:")
	assert.Contains(t, string(data), `imported_from: "https://example.com/pack.yaml"`)
	assert.NotContains(t, string(data), "project_id")

	assert.Equal(t, []string{"x"}, ids(e.agg.Global(context.Background())))
}

func TestPlan_ScrubsSecrets(t *testing.T) {
	e := newEnv(t)
	leaky := rec("leaky", 0.9, "security")
	leaky.Content = "## Action\nAuthenticate with ghp_" + strings.Repeat("a", 36) + " in CI."

	scrubber, err := secrets.New(nil)
	require.NoError(t, err)
	im := NewImporter(e.layout, e.agg, scrubber, nil)
	plan, err := im.Plan(context.Background(), e.proj, "pack.yaml", instinct.Marshal(leaky), ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Redacted)
	require.Len(t, plan.New, 1)
	assert.Contains(t, plan.New[0].Content, secrets.DefaultRedaction)
	assert.NotContains(t, plan.New[0].Content, "ghp_")
}

func TestPlan_NothingToImport(t *testing.T) {
	e := newEnv(t)
	put(t, e.proj.PersonalDir, "mine.yaml", rec("x", 0.9, "testing"))

	im := NewImporter(e.layout, e.agg, nil, nil)
	plan, err := im.Plan(context.Background(), e.proj, "pack.yaml", instinct.Marshal(rec("x", 0.9, "testing")), ImportOptions{})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestExport_Select(t *testing.T) {
	e := newEnv(t)
	put(t, e.proj.PersonalDir, "p.yaml", rec("p-test", 0.9, "testing"), rec("p-flow", 0.4, "workflow"))
	put(t, e.layout.GlobalPersonalDir(), "g.yaml", rec("g-test", 0.7, "testing"))

	ex := NewExporter(e.agg)
	ctx := context.Background()

	tests := []struct {
		name string
		opts ExportOptions
		want []string
	}{
		{"all", ExportOptions{Scope: ExportAll}, []string{"p-test", "p-flow", "g-test"}},
		{"default scope", ExportOptions{}, []string{"p-test", "p-flow", "g-test"}},
		{"project", ExportOptions{Scope: ExportProject}, []string{"p-test", "p-flow"}},
		{"global", ExportOptions{Scope: ExportGlobal}, []string{"g-test"}},
		{"domain", ExportOptions{Scope: ExportAll, Domain: "testing"}, []string{"p-test", "g-test"}},
		{"min confidence", ExportOptions{Scope: ExportAll, MinConfidence: 0.75}, []string{"p-test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.Select(ctx, e.proj, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := ex.Select(ctx, e.proj, ExportOptions{Scope: ExportAll, Domain: "nope"})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = ex.Select(ctx, project.Global(config.Layout{Home: t.TempDir()}), ExportOptions{Scope: ExportAll})
	assert.ErrorIs(t, err, ErrNoInstincts)

	_, err = ex.Select(ctx, e.proj, ExportOptions{Scope: "elsewhere"})
	assert.Error(t, err)
}

func TestExport_Render(t *testing.T) {
	e := newEnv(t)
	ex := NewExporter(e.agg)
	ex.now = func() time.Time { return fixedNow }

	inst := rec("x", 0.85, "testing")
	inst.Scope = instinct.ScopeProject
	inst.Set(instinct.KeySource, "inherited")
	inst.Set(instinct.KeyImportedFrom, "pack.yaml")

	got := ex.Render(e.proj, ExportOptions{Scope: ExportAll}, []*instinct.Instinct{inst})
	assert.Equal(t, "# Instincts export\n"+
		"# Date: 2025-03-04T05:06:07\n"+
		"# Total: 1\n"+
		"# Scope: all\n"+
		"# Project: api (aaaaaaaaaaaa)\n\n"+
		"---\n"+
		"id: x\n"+
		"trigger: \"when x\"\n"+
		"confidence: 0.85\n"+
		"domain: testing\n"+
		"source: inherited\n"+
		"scope: project\n"+
		"---\n\n"+
		"## Action\nApply x.\n\n", got)

	// The export re-imports cleanly.
	parsed, err := instinct.Parse(got)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, inst.Content, parsed[0].Content)

	assert.NotContains(t, ex.Render(project.Global(e.layout), ExportOptions{}, nil), "# Project:")
}

func TestExport_RenderPreservesValues(t *testing.T) {
	e := newEnv(t)
	ex := NewExporter(e.agg)

	inst := rec("x", 0, "testing")
	inst.Trigger = `when user says "deploy"`
	inst.Set(instinct.KeySource, `"quoted"`)

	got := ex.Render(e.proj, ExportOptions{}, []*instinct.Instinct{inst})
	assert.Contains(t, got, "confidence: 0\n")

	parsed, err := instinct.Parse(got)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, inst.Trigger, parsed[0].Trigger)
	assert.Equal(t, `"quoted"`, parsed[0].Get(instinct.KeySource))
	assert.Equal(t, float64(0), parsed[0].Confidence)
}
