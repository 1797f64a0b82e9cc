// Package promote copies instincts from project stores into the global
// store.
//
// Two paths exist. Automatic promotion scans every registered project and
// promotes ids that recur across projects with a high enough mean
// confidence; the promoted copy takes its text from the most confident
// occurrence and stores the mean confidence. Promotion by id copies one
// record of the current project verbatim. Both only ever add files to the
// global personal store.
package promote

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/logging"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/registry"
	"github.com/fyrsmithlabs/instinct/internal/sanitize"
	"github.com/fyrsmithlabs/instinct/internal/store"
)

// Promotion errors.
var (
	ErrNotFound      = errors.New("instinct not found in project")
	ErrAlreadyGlobal = errors.New("instinct already exists in global scope")
	ErrInvalidID     = errors.New("instinct id cannot be used as a file name")
)

// Source markers written to the source key of promoted records.
const (
	SourceAuto     = "auto-promoted"
	SourcePromoted = "promoted"
)

// Status is the result of one promotion attempt.
type Status string

const (
	StatusPromoted      Status = "promoted"
	StatusNotFound      Status = "not_found"
	StatusAlreadyExists Status = "already_exists"
	StatusInvalid       Status = "invalid"
	StatusFailed        Status = "failed"
)

// Outcome reports one promotion attempt.
type Outcome struct {
	ID     string
	Status Status
	Reason string
	// Path is the written file, set when Status is StatusPromoted.
	Path string
}

// Promoter finds and writes promotions.
type Promoter struct {
	cfg      config.PromoteConfig
	layout   config.Layout
	registry *registry.Registry
	agg      *aggregate.Aggregator
	loader   *store.Loader
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures a Promoter.
type Option func(*Promoter)

// WithClock overrides the time source for promoted_date.
func WithClock(now func() time.Time) Option {
	return func(p *Promoter) { p.now = now }
}

// New creates a Promoter.
func New(cfg *config.Config, reg *registry.Registry, agg *aggregate.Aggregator, loader *store.Loader, logger *logging.Logger, opts ...Option) *Promoter {
	if logger == nil {
		logger = logging.Nop()
	}
	if loader == nil {
		loader = store.NewLoader(logger)
	}
	p := &Promoter{
		cfg:      cfg.Promote,
		layout:   cfg.Layout(),
		registry: reg,
		agg:      agg,
		loader:   loader,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare checks that id can be promoted from proj and returns the source
// record. It fails with ErrInvalidID, ErrNotFound or ErrAlreadyGlobal.
func (p *Promoter) Prepare(ctx context.Context, proj project.Project, id string) (*instinct.Instinct, error) {
	if err := sanitize.ValidateFileName(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	src := instinct.Find(p.agg.ProjectOnly(ctx, proj), id)
	if src == nil {
		return nil, fmt.Errorf("%w: %q in project %s", ErrNotFound, id, proj.Name)
	}
	if instinct.Find(p.agg.Global(ctx), id) != nil {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyGlobal, id)
	}
	return src, nil
}

// PromoteByID copies record id of proj into the global personal store with
// its confidence unchanged.
func (p *Promoter) PromoteByID(ctx context.Context, proj project.Project, id string) Outcome {
	src, err := p.Prepare(ctx, proj, id)
	if err != nil {
		return OutcomeFor(id, err)
	}
	return p.write(ctx, PromotedCopy(src, proj.ID, p.now()))
}

// PromoteAuto writes one global record per candidate. Candidates are
// re-checked against the global store so a stale list cannot overwrite.
func (p *Promoter) PromoteAuto(ctx context.Context, candidates []Candidate) []Outcome {
	global := instinct.IDs(p.agg.Global(ctx))
	now := p.now()

	out := make([]Outcome, 0, len(candidates))
	for _, c := range candidates {
		if err := sanitize.ValidateFileName(c.ID); err != nil {
			out = append(out, OutcomeFor(c.ID, fmt.Errorf("%w: %v", ErrInvalidID, err)))
			continue
		}
		if _, ok := global[c.ID]; ok {
			out = append(out, OutcomeFor(c.ID, fmt.Errorf("%w: %q", ErrAlreadyGlobal, c.ID)))
			continue
		}
		out = append(out, p.write(ctx, AutoCopy(c, now)))
	}
	return out
}

// PromotedCopy builds the global copy of a single promoted record.
func PromotedCopy(src *instinct.Instinct, projectID string, now time.Time) *instinct.Instinct {
	source := src.Get(instinct.KeySource)
	if source == "" {
		source = SourcePromoted
	}
	rec := &instinct.Instinct{
		ID:         src.ID,
		Trigger:    src.Trigger,
		Confidence: src.Confidence,
		Domain:     src.Domain,
		Scope:      instinct.ScopeGlobal,
		Content:    src.Content,
	}
	rec.Set(instinct.KeySource, source)
	rec.Set(instinct.KeyPromotedFrom, projectID)
	rec.Set(instinct.KeyPromotedDate, instinct.FormatTimestamp(now))
	return rec
}

// AutoCopy builds the global copy of a cross-project candidate: text from
// the most confident occurrence, confidence from the mean of all of them.
func AutoCopy(c Candidate, now time.Time) *instinct.Instinct {
	tmpl := c.Template()
	rec := &instinct.Instinct{
		ID:         c.ID,
		Trigger:    tmpl.Trigger,
		Confidence: c.AvgConfidence,
		Domain:     tmpl.Domain,
		Scope:      instinct.ScopeGlobal,
		Content:    tmpl.Content,
	}
	rec.Set(instinct.KeySource, SourceAuto)
	rec.Set(instinct.KeyPromotedDate, instinct.FormatTimestamp(now))
	rec.Set(instinct.KeySeenInProjects, strconv.Itoa(c.Sources))
	return rec
}

func (p *Promoter) write(ctx context.Context, rec *instinct.Instinct) Outcome {
	path := filepath.Join(p.layout.GlobalPersonalDir(), rec.ID+store.RecordExt)
	if store.Exists(path) {
		return Outcome{ID: rec.ID, Status: StatusAlreadyExists, Reason: "destination file already exists: " + path}
	}
	if err := instinct.CheckHeader(rec); err != nil {
		return Outcome{ID: rec.ID, Status: StatusFailed, Reason: err.Error()}
	}
	if err := store.WriteFile(path, []byte(instinct.Marshal(rec))); err != nil {
		p.logger.Error(ctx, "failed to write promoted instinct",
			zap.String("id", rec.ID),
			zap.String("path", path),
			zap.Error(err),
		)
		return Outcome{ID: rec.ID, Status: StatusFailed, Reason: err.Error()}
	}
	p.logger.Info(ctx, "instinct promoted",
		zap.String("id", rec.ID),
		zap.String("source", rec.Get(instinct.KeySource)),
		zap.String("path", path),
	)
	return Outcome{ID: rec.ID, Status: StatusPromoted, Path: path}
}

// OutcomeFor maps a promotion error to its reported Outcome.
func OutcomeFor(id string, err error) Outcome {
	status := StatusFailed
	switch {
	case errors.Is(err, ErrNotFound):
		status = StatusNotFound
	case errors.Is(err, ErrAlreadyGlobal):
		status = StatusAlreadyExists
	case errors.Is(err, ErrInvalidID):
		status = StatusInvalid
	}
	return Outcome{ID: id, Status: status, Reason: err.Error()}
}

// Promoted counts the outcomes with StatusPromoted.
func Promoted(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusPromoted {
			n++
		}
	}
	return n
}
