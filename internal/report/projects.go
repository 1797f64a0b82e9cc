package report

import (
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/instinct/internal/registry"
)

// ProjectSummary is one registry entry with its store counts.
type ProjectSummary struct {
	registry.Record
	Personal     int
	Inherited    int
	Observations int
}

// ProjectsView is the input of Projects.
type ProjectsView struct {
	// Projects are ordered most recently seen first.
	Projects        []ProjectSummary
	GlobalPersonal  int
	GlobalInherited int
}

// Projects renders the project registry.
func (r *Report) Projects(v ProjectsView) {
	if len(v.Projects) == 0 {
		r.Line("No projects registered yet.")
		r.Line("Projects are auto-detected when you work inside a git repository.")
		return
	}

	r.Header(fmt.Sprintf("KNOWN PROJECTS - %d total", len(v.Projects)))
	for _, p := range v.Projects {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		r.Line("  %s %s", r.headerStyle.Render(name), r.dimStyle.Render("["+p.ID+"]"))
		r.Field(4, "Root", orUnknown(p.Root))
		if p.Remote != "" {
			r.Field(4, "Remote", p.Remote)
		}
		r.Field(4, "Instincts", fmt.Sprintf("%d personal, %d inherited", p.Personal, p.Inherited))
		r.Field(4, "Observations", strconv.Itoa(p.Observations)+" events")
		r.Field(4, "Last seen", orUnknown(p.LastSeen))
		r.Blank()
	}

	r.Line("  %s", r.sectionStyle.Render("GLOBAL"))
	r.Field(4, "Instincts", fmt.Sprintf("%d personal, %d inherited", v.GlobalPersonal, v.GlobalInherited))
	r.Footer()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
