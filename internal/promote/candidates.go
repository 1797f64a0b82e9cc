package promote

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/registry"
)

// Occurrence is one copy of an instinct found in a registered project.
type Occurrence struct {
	ProjectID   string
	ProjectName string
	Instinct    *instinct.Instinct
}

// Candidate is an instinct id seen in more than one project.
type Candidate struct {
	ID          string
	Occurrences []Occurrence
	// AvgConfidence is the mean over every occurrence.
	AvgConfidence float64
	// Sources is the number of distinct projects holding the id.
	Sources int
}

// Template returns the occurrence with the highest confidence, the first
// one on ties.
func (c Candidate) Template() *instinct.Instinct {
	var best *instinct.Instinct
	for _, o := range c.Occurrences {
		if best == nil || o.Instinct.Confidence > best.Confidence {
			best = o.Instinct
		}
	}
	return best
}

// ProjectNames returns the distinct project names in occurrence order.
func (c Candidate) ProjectNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, o := range c.Occurrences {
		if _, ok := seen[o.ProjectID]; ok {
			continue
		}
		seen[o.ProjectID] = struct{}{}
		names = append(names, o.ProjectName)
	}
	return names
}

// CrossProject returns every id present in at least two registered
// projects, in first-seen order. Projects are visited in sorted
// fingerprint order, personal store before inherited.
func (p *Promoter) CrossProject(ctx context.Context) []Candidate {
	var (
		order []string
		byID  = make(map[string][]Occurrence)
	)

	entries := p.registry.Load(ctx)
	ids := make([]string, 0, len(entries))
	for pid := range entries {
		ids = append(ids, pid)
	}
	sort.Strings(ids)

	for _, pid := range ids {
		if err := registry.ValidateID(pid); err != nil {
			p.logger.Warn(ctx, "skipping registry entry with unsafe id", zap.String("project.id", pid))
			continue
		}
		name := entries[pid].Name
		if name == "" {
			name = pid
		}

		personal, _ := p.loader.LoadDir(ctx, p.layout.ProjectPersonalDir(pid), instinct.KindPersonal, instinct.ScopeProject)
		inherited, _ := p.loader.LoadDir(ctx, p.layout.ProjectInheritedDir(pid), instinct.KindInherited, instinct.ScopeProject)
		for _, inst := range append(personal, inherited...) {
			if _, ok := byID[inst.ID]; !ok {
				order = append(order, inst.ID)
			}
			byID[inst.ID] = append(byID[inst.ID], Occurrence{ProjectID: pid, ProjectName: name, Instinct: inst})
		}
	}

	var out []Candidate
	for _, id := range order {
		c := newCandidate(id, byID[id])
		if c.Sources < 2 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Candidates returns the cross-project ids absent from the global store
// whose mean confidence reaches the threshold.
func (p *Promoter) Candidates(ctx context.Context) []Candidate {
	global := instinct.IDs(p.agg.Global(ctx))

	var out []Candidate
	for _, c := range p.CrossProject(ctx) {
		if _, ok := global[c.ID]; ok {
			continue
		}
		if c.AvgConfidence >= p.cfg.ConfidenceThreshold {
			out = append(out, c)
		}
	}
	return out
}

// AutoCandidates returns the Candidates also seen in at least the
// configured minimum number of projects.
func (p *Promoter) AutoCandidates(ctx context.Context) []Candidate {
	var out []Candidate
	for _, c := range p.Candidates(ctx) {
		if c.Sources >= p.cfg.MinProjects {
			out = append(out, c)
		}
	}
	return out
}

func newCandidate(id string, occ []Occurrence) Candidate {
	var sum float64
	sources := make(map[string]struct{})
	for _, o := range occ {
		sum += o.Instinct.Confidence
		sources[o.ProjectID] = struct{}{}
	}
	return Candidate{
		ID:            id,
		Occurrences:   occ,
		AvgConfidence: sum / float64(len(occ)),
		Sources:       len(sources),
	}
}
