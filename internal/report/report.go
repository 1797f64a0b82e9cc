// Package report renders command results for humans.
//
// Styling uses lipgloss with a renderer bound to the output writer, so
// colors appear on terminals and plain text everywhere else.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/instinct/internal/instinct"
)

const ruleWidth = 60

// Report writes styled output to one writer.
type Report struct {
	w io.Writer

	headerStyle  lipgloss.Style
	sectionStyle lipgloss.Style
	labelStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	okStyle      lipgloss.Style
	warnStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	barStyle     lipgloss.Style
}

// New creates a Report writing to w.
func New(w io.Writer) *Report {
	r := lipgloss.NewRenderer(w)
	return &Report{
		w: w,
		headerStyle: r.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true),
		sectionStyle: r.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true),
		labelStyle: r.NewStyle().
			Foreground(lipgloss.Color("45")),
		dimStyle: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		okStyle: r.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true),
		warnStyle: r.NewStyle().
			Foreground(lipgloss.Color("226")),
		errorStyle: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		barStyle: r.NewStyle().
			Foreground(lipgloss.Color("51")),
	}
}

// Writer returns the underlying writer.
func (r *Report) Writer() io.Writer {
	return r.w
}

// Line writes one formatted line.
func (r *Report) Line(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Blank writes an empty line.
func (r *Report) Blank() {
	fmt.Fprintln(r.w)
}

// Success writes a highlighted confirmation line.
func (r *Report) Success(format string, args ...any) {
	r.Line("%s", r.okStyle.Render(fmt.Sprintf(format, args...)))
}

// Warn writes a highlighted warning line.
func (r *Report) Warn(format string, args ...any) {
	r.Line("%s", r.warnStyle.Render(fmt.Sprintf(format, args...)))
}

// Failure writes a highlighted error line.
func (r *Report) Failure(format string, args ...any) {
	r.Line("%s", r.errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Header writes a title framed by rules.
func (r *Report) Header(title string) {
	rule := strings.Repeat("=", ruleWidth)
	r.Blank()
	r.Line("%s", r.dimStyle.Render(rule))
	r.Line("  %s", r.headerStyle.Render(title))
	r.Line("%s", r.dimStyle.Render(rule))
	r.Blank()
}

// Footer closes a Header block.
func (r *Report) Footer() {
	r.Blank()
	r.Line("%s", r.dimStyle.Render(strings.Repeat("=", ruleWidth)))
	r.Blank()
}

// Section writes a "## TITLE" heading.
func (r *Report) Section(title string) {
	r.Line("%s", r.sectionStyle.Render("## "+title))
	r.Blank()
}

// Field writes an indented "label: value" line.
func (r *Report) Field(indent int, label string, value any) {
	r.Line("%s%s %v", strings.Repeat(" ", indent), r.labelStyle.Render(label+":"), value)
}

// ConfidenceBar renders c as ten filled or empty cells.
func ConfidenceBar(c float64) string {
	filled := int(c * 10)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func scopeTag(inst *instinct.Instinct) string {
	if inst.Scope == "" {
		return "[?]"
	}
	return "[" + string(inst.Scope) + "]"
}
