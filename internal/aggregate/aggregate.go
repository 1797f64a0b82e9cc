// Package aggregate merges the project and global instinct stores into one
// view.
//
// Load order is project personal, project inherited, global personal, global
// inherited. An id loaded from a project store hides every global record
// with the same id, whatever their confidence. Inside each level an id
// keeps the position of its first record and the content of its most
// confident one, so a re-imported record with a higher confidence replaces
// the older copy. The global pseudo-project has no project stores, so its
// view is the global stores alone.
package aggregate

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/logging"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

// Aggregator builds merged instinct views.
type Aggregator struct {
	layout config.Layout
	loader *store.Loader
	logger *logging.Logger
}

// New creates an Aggregator over layout.
func New(layout config.Layout, loader *store.Loader, logger *logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Nop()
	}
	if loader == nil {
		loader = store.NewLoader(logger)
	}
	return &Aggregator{layout: layout, loader: loader, logger: logger}
}

// All returns the merged project and global view for p.
func (a *Aggregator) All(ctx context.Context, p project.Project) []*instinct.Instinct {
	return a.Merge(ctx, p, true)
}

// ProjectOnly returns p's own records without the global stores. It is
// empty for the global pseudo-project.
func (a *Aggregator) ProjectOnly(ctx context.Context, p project.Project) []*instinct.Instinct {
	return a.Merge(ctx, p, false)
}

// Global returns the records of the global stores only.
func (a *Aggregator) Global(ctx context.Context) []*instinct.Instinct {
	personal, _ := a.loader.LoadDir(ctx, a.layout.GlobalPersonalDir(), instinct.KindPersonal, instinct.ScopeGlobal)
	inherited, _ := a.loader.LoadDir(ctx, a.layout.GlobalInheritedDir(), instinct.KindInherited, instinct.ScopeGlobal)
	return a.dedupe(ctx, append(personal, inherited...))
}

// Merge loads p's stores and, with includeGlobal, appends every global
// record whose id no project record already uses.
func (a *Aggregator) Merge(ctx context.Context, p project.Project, includeGlobal bool) []*instinct.Instinct {
	var out []*instinct.Instinct

	if !p.IsGlobal() {
		personal, _ := a.loader.LoadDir(ctx, p.PersonalDir, instinct.KindPersonal, instinct.ScopeProject)
		inherited, _ := a.loader.LoadDir(ctx, p.InheritedDir, instinct.KindInherited, instinct.ScopeProject)
		out = a.dedupe(ctx, append(personal, inherited...))
	}

	if !includeGlobal {
		return out
	}

	projectIDs := instinct.IDs(out)
	shadowed := 0
	for _, gi := range a.Global(ctx) {
		if _, ok := projectIDs[gi.ID]; ok {
			shadowed++
			continue
		}
		out = append(out, gi)
	}

	a.logger.Debug(ctx, "merged instinct view",
		zap.String("project.id", p.ID),
		zap.Int("records", len(out)),
		zap.Int("shadowed_global", shadowed),
	)
	return out
}

// dedupe keeps one record per id: the most confident, the earliest on
// ties, at the position where the id first appeared.
func (a *Aggregator) dedupe(ctx context.Context, list []*instinct.Instinct) []*instinct.Instinct {
	index := make(map[string]int, len(list))
	out := make([]*instinct.Instinct, 0, len(list))
	for _, inst := range list {
		i, ok := index[inst.ID]
		if !ok {
			index[inst.ID] = len(out)
			out = append(out, inst)
			continue
		}
		dropped := inst
		if inst.Confidence > out[i].Confidence {
			dropped, out[i] = out[i], inst
		}
		a.logger.Debug(ctx, "duplicate instinct id shadowed",
			zap.String("id", inst.ID),
			zap.String("path", dropped.SourceFile),
		)
	}
	return out
}

// ByScopeLabel splits records by the scope label of the store they were
// loaded from.
func ByScopeLabel(list []*instinct.Instinct) (projectScoped, global []*instinct.Instinct) {
	for _, inst := range list {
		if inst.ScopeLabel == instinct.ScopeGlobal {
			global = append(global, inst)
			continue
		}
		projectScoped = append(projectScoped, inst)
	}
	return projectScoped, global
}
