package report

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/promote"
)

// PromotionPreview describes a single promotion before it is confirmed.
func (r *Report) PromotionPreview(src *instinct.Instinct, proj project.Project) {
	r.Blank()
	r.Line("Promoting: %s", r.headerStyle.Render(src.ID))
	r.Field(2, "From", "project '"+proj.Name+"'")
	r.Field(2, "Confidence", instinct.FormatPercent(src.Confidence))
	r.Field(2, "Domain", src.Domain)
}

// NoAutoCandidates explains the auto-promotion criteria when nothing
// qualifies.
func (r *Report) NoAutoCandidates(cfg config.PromoteConfig) {
	r.Line("No instincts qualify for auto-promotion.")
	r.Line("  Criteria: appears in %d+ projects, avg confidence >= %s",
		cfg.MinProjects, instinct.FormatPercent(cfg.ConfidenceThreshold))
}

// AutoCandidates lists the auto-promotion candidates.
func (r *Report) AutoCandidates(cands []promote.Candidate) {
	r.Header(fmt.Sprintf("AUTO-PROMOTION CANDIDATES - %d found", len(cands)))
	for _, c := range cands {
		r.Line("  %s (avg: %s)", c.ID, instinct.FormatPercent(c.AvgConfidence))
		r.Line("    Found in %d projects: %s", c.Sources, strings.Join(c.ProjectNames(), ", "))
	}
}

// DryRun marks the end of a preview.
func (r *Report) DryRun() {
	r.Blank()
	r.Warn("[DRY RUN] No changes made.")
}

// Cancelled reports a declined confirmation.
func (r *Report) Cancelled() {
	r.Line("Cancelled.")
}

// Outcomes reports each promotion attempt and the promoted total.
func (r *Report) Outcomes(outcomes []promote.Outcome) {
	r.Blank()
	for _, o := range outcomes {
		if o.Status == promote.StatusPromoted {
			r.Line("  %s %s", r.okStyle.Render("+"), o.ID)
			continue
		}
		r.Line("  %s %s %s", r.errorStyle.Render("!"), o.ID, r.dimStyle.Render("("+string(o.Status)+": "+o.Reason+")"))
	}
	r.Blank()
	r.Success("Promoted %d instincts to global scope.", promote.Promoted(outcomes))
}

// Outcome reports a single promotion attempt.
func (r *Report) Outcome(proj project.Project, o promote.Outcome) {
	switch o.Status {
	case promote.StatusPromoted:
		r.Blank()
		r.Success("Promoted '%s' to global scope.", o.ID)
		r.Field(2, "Saved to", o.Path)
	case promote.StatusNotFound:
		r.Failure("Instinct '%s' not found in project %s.", o.ID, proj.Name)
	case promote.StatusAlreadyExists:
		r.Failure("Instinct '%s' already exists in global scope.", o.ID)
	default:
		r.Failure("Could not promote '%s': %s", o.ID, o.Reason)
	}
}
