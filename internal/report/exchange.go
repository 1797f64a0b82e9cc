package report

import (
	"fmt"

	"github.com/fyrsmithlabs/instinct/internal/exchange"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
)

// maxSkippedRows bounds the duplicate ids listed by ImportPlan.
const maxSkippedRows = 5

// ImportPlan summarizes what an import would change.
func (r *Report) ImportPlan(plan *exchange.Plan) {
	if plan.FellBack {
		r.Warn("No project detected. Importing as global scope.")
	}
	r.Blank()
	r.Line("Found %d instincts to import.", plan.Found)
	r.Field(0, "Target scope", plan.Scope)
	if plan.Scope == instinct.ScopeProject {
		r.Field(0, "Target project", plan.Project.Name+" ("+plan.Project.ID+")")
	}
	if plan.Redacted > 0 {
		r.Warn("Redacted %d secrets from incoming instincts.", plan.Redacted)
	}
	r.Blank()

	if len(plan.New) > 0 {
		r.Line("%s", r.okStyle.Render(fmt.Sprintf("NEW (%d):", len(plan.New))))
		for _, inst := range plan.New {
			r.Line("  + %s (confidence: %.2f)", inst.ID, inst.Confidence)
		}
	}
	if len(plan.Update) > 0 {
		r.Blank()
		r.Line("%s", r.labelStyle.Render(fmt.Sprintf("UPDATE (%d):", len(plan.Update))))
		for _, inst := range plan.Update {
			r.Line("  ~ %s (confidence: %.2f)", inst.ID, inst.Confidence)
		}
	}
	if len(plan.Duplicate) > 0 {
		r.Blank()
		r.Line("%s", r.dimStyle.Render(fmt.Sprintf("SKIP (%d - already exists with equal/higher confidence):", len(plan.Duplicate))))
		for i, inst := range plan.Duplicate {
			if i == maxSkippedRows {
				r.Line("  ... and %d more", len(plan.Duplicate)-maxSkippedRows)
				break
			}
			r.Line("  - %s", inst.ID)
		}
	}
	if plan.Filtered > 0 {
		r.Blank()
		r.Line("%s", r.dimStyle.Render(fmt.Sprintf("FILTERED (%d below minimum confidence)", plan.Filtered)))
	}
}

// NothingToImport reports an empty plan.
func (r *Report) NothingToImport() {
	r.Blank()
	r.Line("Nothing to import.")
}

// Imported confirms a written import.
func (r *Report) Imported(plan *exchange.Plan, path string) {
	r.Blank()
	r.Success("Import complete!")
	r.Field(3, "Scope", plan.Scope)
	r.Field(3, "Added", len(plan.New))
	r.Field(3, "Updated", len(plan.Update))
	r.Field(3, "Saved to", path)
}

// Exported confirms a written export.
func (r *Report) Exported(n int, path string) {
	r.Success("Exported %d instincts to %s", n, path)
}
