package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/evolve"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/project"
)

// StatusView is the input of Status.
type StatusView struct {
	Project   project.Project
	GlobalDir string
	Instincts []*instinct.Instinct
	// Observations is the event count, negative when the log is absent.
	Observations int
}

// Status renders the merged view grouped by origin and domain.
func (r *Report) Status(v StatusView) {
	p := v.Project
	if len(v.Instincts) == 0 {
		r.Line("No instincts found.")
		r.Blank()
		r.Line("Project: %s (%s)", p.Name, p.ID)
		r.Field(2, "Project instincts", " "+p.PersonalDir)
		r.Field(2, "Global instincts", "  "+v.GlobalDir)
		return
	}

	projectScoped, global := aggregate.ByScopeLabel(v.Instincts)

	r.Header(fmt.Sprintf("INSTINCT STATUS - %d total", len(v.Instincts)))
	r.Field(2, "Project", " "+p.Name+" ("+p.ID+")")
	r.Field(2, "Project instincts", len(projectScoped))
	r.Field(2, "Global instincts", " "+strconv.Itoa(len(global)))
	r.Blank()

	if len(projectScoped) > 0 {
		r.Section("PROJECT-SCOPED (" + p.Name + ")")
		r.byDomain(projectScoped)
	}
	if len(global) > 0 {
		r.Section("GLOBAL (apply to all projects)")
		r.byDomain(global)
	}

	if v.Observations >= 0 {
		r.Line("%s", r.dimStyle.Render(strings.Repeat("-", ruleWidth)))
		r.Field(2, "Observations", strconv.Itoa(v.Observations)+" events logged")
		r.Field(2, "File", p.ObservationsFile)
	}
	r.Footer()
}

func (r *Report) byDomain(list []*instinct.Instinct) {
	groups := make(map[string][]*instinct.Instinct)
	for _, inst := range list {
		groups[inst.Domain] = append(groups[inst.Domain], inst)
	}
	domains := make([]string, 0, len(groups))
	for d := range groups {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	for _, d := range domains {
		members := append([]*instinct.Instinct(nil), groups[d]...)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Confidence > members[j].Confidence
		})

		r.Line("  %s", r.sectionStyle.Render(fmt.Sprintf("### %s (%d)", strings.ToUpper(d), len(members))))
		r.Blank()
		for _, inst := range members {
			r.Line("    %s %3d%%  %s %s",
				r.barStyle.Render(ConfidenceBar(inst.Confidence)),
				int(inst.Confidence*100),
				inst.ID,
				r.dimStyle.Render(scopeTag(inst)),
			)
			r.Field(14, "trigger", inst.Trigger)
			if action := firstActionLine(inst); action != "" {
				r.Field(14, "action", Truncate(action, 60))
			}
			r.Blank()
		}
	}
}

// firstActionLine returns the first line of the "## Action" paragraph, or
// "" when the content has no such section.
func firstActionLine(inst *instinct.Instinct) string {
	if !strings.Contains(inst.Content, "## Action") {
		return ""
	}
	line, _, _ := strings.Cut(evolve.ActionOf(inst), "\n")
	return line
}
