package exchange

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/logging"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/secrets"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

// SourceInherited marks records that arrived through an import.
const SourceInherited = "inherited"

// webImportName names files imported from a URL.
const webImportName = "web-import"

// ImportOptions selects where and what to import.
type ImportOptions struct {
	// Scope is the target store; project falls back to global when no
	// project is detected.
	Scope         instinct.Scope
	MinConfidence float64
}

// Plan is the categorized content of an import source.
type Plan struct {
	Source  string
	Scope   instinct.Scope
	Project project.Project
	// Found is the number of valid records in the source.
	Found int

	// New ids are absent from the current view.
	New []*instinct.Instinct
	// Update ids exist with a strictly lower confidence.
	Update []*instinct.Instinct
	// Duplicate ids exist with an equal or higher confidence.
	Duplicate []*instinct.Instinct

	// Filtered counts new or updated records under the minimum confidence.
	Filtered int

	// Redacted counts secrets removed from incoming text.
	Redacted int
	// FellBack is set when a project import had no project to target.
	FellBack bool
}

// Empty reports whether applying the plan would write nothing.
func (p *Plan) Empty() bool {
	return len(p.New) == 0 && len(p.Update) == 0
}

// Importer plans and applies imports against a project view.
type Importer struct {
	agg      *aggregate.Aggregator
	layout   config.Layout
	scrubber secrets.Scrubber
	logger   *logging.Logger
	now      func() time.Time
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithImportClock overrides the time source for file names and headers.
func WithImportClock(now func() time.Time) ImporterOption {
	return func(im *Importer) { im.now = now }
}

// NewImporter creates an Importer. A nil scrubber leaves text unchanged.
func NewImporter(layout config.Layout, agg *aggregate.Aggregator, scrubber secrets.Scrubber, logger *logging.Logger, opts ...ImporterOption) *Importer {
	if logger == nil {
		logger = logging.Nop()
	}
	if scrubber == nil {
		scrubber = secrets.NoopScrubber{}
	}
	im := &Importer{
		agg:      agg,
		layout:   layout,
		scrubber: scrubber,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Plan parses text from source and sorts its records against proj's merged
// view. Records under opts.MinConfidence are dropped from New and Update.
func (im *Importer) Plan(ctx context.Context, proj project.Project, source, text string, opts ImportOptions) (*Plan, error) {
	incoming, err := instinct.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	if len(incoming) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInstincts, source)
	}

	plan := &Plan{Source: source, Scope: opts.Scope, Project: proj, Found: len(incoming)}
	if plan.Scope == "" {
		plan.Scope = instinct.ScopeProject
	}
	if plan.Scope == instinct.ScopeProject && proj.IsGlobal() {
		plan.Scope = instinct.ScopeGlobal
		plan.FellBack = true
	}

	existing := im.agg.All(ctx, proj)
	for _, inst := range incoming {
		plan.Redacted += im.scrub(ctx, inst)

		current := instinct.Find(existing, inst.ID)
		switch {
		case current != nil && inst.Confidence <= current.Confidence:
			plan.Duplicate = append(plan.Duplicate, inst)
		case inst.Confidence < opts.MinConfidence:
			plan.Filtered++
		case current == nil:
			plan.New = append(plan.New, inst)
		default:
			plan.Update = append(plan.Update, inst)
		}
	}

	im.logger.Debug(ctx, "import planned",
		zap.String("source", source),
		zap.String("scope", string(plan.Scope)),
		zap.Int("new", len(plan.New)),
		zap.Int("update", len(plan.Update)),
		zap.Int("duplicate", len(plan.Duplicate)),
	)
	return plan, nil
}

// scrub redacts secrets in inst's trigger and content in place.
func (im *Importer) scrub(ctx context.Context, inst *instinct.Instinct) int {
	if !im.scrubber.IsEnabled() {
		return 0
	}
	trigger := im.scrubber.Scrub(inst.Trigger)
	content := im.scrubber.Scrub(inst.Content)
	n := trigger.TotalFindings + content.TotalFindings
	if n == 0 {
		return 0
	}
	inst.Trigger = trigger.Scrubbed
	inst.Content = content.Scrubbed
	im.logger.Warn(ctx, "redacted secrets from imported instinct",
		zap.String("id", inst.ID),
		zap.Int("findings", n),
		zap.Strings("rules", append(trigger.RuleIDs(), content.RuleIDs()...)),
	)
	return n
}

// Apply writes plan's new and updated records to one file in the target
// inherited store and returns its path.
func (im *Importer) Apply(ctx context.Context, plan *Plan) (string, error) {
	dir := im.layout.GlobalInheritedDir()
	if plan.Scope == instinct.ScopeProject {
		dir = plan.Project.InheritedDir
	}

	now := im.now()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s%s", importName(plan.Source), now.Format("20060102-150405"), store.RecordExt))

	var b strings.Builder
	fmt.Fprintf(&b, "# Imported from %s\n", plan.Source)
	fmt.Fprintf(&b, "# Date: %s\n", now.Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, "# Scope: %s\n", plan.Scope)
	if plan.Scope == instinct.ScopeProject {
		fmt.Fprintf(&b, "# Project: %s (%s)\n", plan.Project.Name, plan.Project.ID)
	}
	b.WriteString("\n")

	records := make([]*instinct.Instinct, 0, len(plan.New)+len(plan.Update))
	for _, inst := range append(append([]*instinct.Instinct{}, plan.New...), plan.Update...) {
		rec := im.imported(inst, plan)
		if err := instinct.CheckHeader(rec); err != nil {
			return "", err
		}
		records = append(records, rec)
	}
	b.WriteString(instinct.Marshal(records...))

	if err := store.WriteFile(path, []byte(b.String())); err != nil {
		return "", err
	}

	im.logger.Info(ctx, "instincts imported",
		zap.String("source", plan.Source),
		zap.String("path", path),
		zap.Int("added", len(plan.New)),
		zap.Int("updated", len(plan.Update)),
	)
	return path, nil
}

func (im *Importer) imported(inst *instinct.Instinct, plan *Plan) *instinct.Instinct {
	rec := &instinct.Instinct{
		ID:         inst.ID,
		Trigger:    inst.Trigger,
		Confidence: inst.Confidence,
		Domain:     inst.Domain,
		Scope:      plan.Scope,
		Content:    inst.Content,
	}
	rec.Set(instinct.KeySource, SourceInherited)
	rec.Set(instinct.KeyImportedFrom, plan.Source)
	if plan.Scope == instinct.ScopeProject {
		rec.Set(instinct.KeyProjectID, plan.Project.ID)
		rec.Set(instinct.KeyProjectName, plan.Project.Name)
	}
	rec.Set(instinct.KeySourceRepo, inst.Get(instinct.KeySourceRepo))
	return rec
}

// importName derives the file name stem for source.
func importName(source string) string {
	if IsURL(source) {
		return webImportName
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
