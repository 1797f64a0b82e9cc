package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/evolve"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/project"
	"github.com/fyrsmithlabs/instinct/internal/promote"
)

// listedMembers is the number of member ids shown per skill candidate.
const listedMembers = 3

// maxPromotionRows bounds the promotion candidates shown by Evolve.
const maxPromotionRows = 10

// EvolveView is the input of Evolve.
type EvolveView struct {
	Project       project.Project
	ProjectScoped int
	Global        int
	Analysis      *evolve.Analysis
	Limits        config.EvolveConfig
	Promotions    []promote.Candidate
	MinProjects   int
}

// TooFew explains why an analysis was not run.
func (r *Report) TooFew(min, have int) {
	r.Line("Need at least %d instincts to analyze patterns.", min)
	r.Line("Currently have: %d", have)
}

// Evolve renders a cluster analysis and, for projects, the pending
// promotion candidates. The closing rule is left to Generated or Footer.
func (r *Report) Evolve(v EvolveView) {
	a := v.Analysis
	p := v.Project

	rule := strings.Repeat("=", ruleWidth)
	r.Blank()
	r.Line("%s", r.dimStyle.Render(rule))
	r.Line("  %s", r.headerStyle.Render(fmt.Sprintf("EVOLVE ANALYSIS - %d instincts", a.Total)))
	r.Field(2, "Project", p.Name+" ("+p.ID+")")
	r.Field(2, "Project-scoped", strconv.Itoa(v.ProjectScoped)+" | Global: "+strconv.Itoa(v.Global))
	r.Line("%s", r.dimStyle.Render(rule))
	r.Blank()

	r.Field(0, "High confidence instincts (>="+instinct.FormatPercent(v.Limits.HighConfidence)+")", a.HighConfidence)
	r.Blank()
	r.Field(0, "Potential skill clusters found", len(a.Skills))

	if len(a.Skills) > 0 {
		r.Blank()
		r.Section("SKILL CANDIDATES")
		for i, c := range limitClusters(a.Skills, v.Limits.MaxSkills) {
			r.Line("%d. Cluster: %q", i+1, c.Key)
			r.Field(3, "Instincts", len(c.Members))
			r.Field(3, "Avg confidence", instinct.FormatPercent(c.AvgConfidence))
			r.Field(3, "Domains", strings.Join(c.Domains, ", "))
			r.Field(3, "Scopes", strings.Join(c.Scopes, ", "))
			r.Line("   %s", r.labelStyle.Render("Instincts:"))
			for j, m := range c.Members {
				if j == listedMembers {
					break
				}
				r.Line("     - %s %s", m.ID, r.dimStyle.Render(scopeTag(m)))
			}
			r.Blank()
		}
	}

	if len(a.Commands) > 0 {
		r.Blank()
		r.Section(fmt.Sprintf("COMMAND CANDIDATES (%d)", len(a.Commands)))
		for i, inst := range a.Commands {
			if i == v.Limits.MaxCommands {
				break
			}
			r.Line("  /%s", evolve.CommandName(inst.Trigger, v.Limits.CommandNameLen))
			r.Field(4, "From", inst.ID+" "+scopeTag(inst))
			r.Field(4, "Confidence", instinct.FormatPercent(inst.Confidence))
			r.Blank()
		}
	}

	if len(a.Agents) > 0 {
		r.Blank()
		r.Section(fmt.Sprintf("AGENT CANDIDATES (%d)", len(a.Agents)))
		for _, c := range limitClusters(a.Agents, v.Limits.MaxAgents) {
			r.Line("  %s", evolve.AgentName(c, v.Limits.AgentNameLen))
			r.Line("    Covers %d instincts", len(c.Members))
			r.Field(4, "Avg confidence", instinct.FormatPercent(c.AvgConfidence))
			r.Blank()
		}
	}

	if len(v.Promotions) > 0 {
		r.PromotionCandidates(v.Promotions, v.MinProjects)
	}
}

// PromotionCandidates lists ids that could move to the global store.
func (r *Report) PromotionCandidates(cands []promote.Candidate, minProjects int) {
	r.Blank()
	r.Section("PROMOTION CANDIDATES (project -> global)")
	r.Line("  These instincts appear in %d+ projects with high confidence:", minProjects)
	r.Blank()
	for i, c := range cands {
		if i == maxPromotionRows {
			break
		}
		r.Line("  * %s (avg: %s)", c.ID, instinct.FormatPercent(c.AvgConfidence))
		r.Field(4, "Found in", strings.Join(c.ProjectNames(), ", "))
		r.Blank()
	}
	r.Line("  Run `instinct promote` to promote these to global scope.")
	r.Blank()
}

// Generated lists written evolved documents and closes the Evolve block.
func (r *Report) Generated(paths []string) {
	if len(paths) > 0 {
		r.Blank()
		r.Success("Generated %d evolved structures:", len(paths))
		for _, p := range paths {
			r.Line("   %s", p)
		}
	} else {
		r.Blank()
		r.Warn("No structures generated (need higher-confidence clusters).")
	}
	r.Footer()
}

func limitClusters(list []evolve.Cluster, n int) []evolve.Cluster {
	if n >= 0 && len(list) > n {
		return list[:n]
	}
	return list
}
