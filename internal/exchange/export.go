package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/instinct/internal/aggregate"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
	"github.com/fyrsmithlabs/instinct/internal/project"
)

// ExportScope selects which stores an export reads.
type ExportScope string

const (
	ExportProject ExportScope = "project"
	ExportGlobal  ExportScope = "global"
	ExportAll     ExportScope = "all"
)

// Valid reports whether s is a known export scope.
func (s ExportScope) Valid() bool {
	return s == ExportProject || s == ExportGlobal || s == ExportAll
}

// ExportOptions filters an export.
type ExportOptions struct {
	Scope ExportScope
	// Domain keeps only records of this domain when set.
	Domain        string
	MinConfidence float64
}

// exportKeys are written, when non-empty, in this order.
var exportKeys = []string{
	"id", "trigger", "confidence", "domain",
	instinct.KeySource, "scope", instinct.KeyProjectID, instinct.KeyProjectName, instinct.KeySourceRepo,
}

// Exporter renders filtered views as instinct files.
type Exporter struct {
	agg *aggregate.Aggregator
	now func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(agg *aggregate.Aggregator) *Exporter {
	return &Exporter{agg: agg, now: time.Now}
}

// Select returns the records of opts.Scope that pass the filters. It fails
// with ErrNoInstincts when the scope holds nothing and ErrNoMatch when the
// filters remove everything.
func (e *Exporter) Select(ctx context.Context, proj project.Project, opts ExportOptions) ([]*instinct.Instinct, error) {
	var list []*instinct.Instinct
	switch opts.Scope {
	case ExportProject:
		list = e.agg.ProjectOnly(ctx, proj)
	case ExportGlobal:
		list = e.agg.Global(ctx)
	case ExportAll, "":
		list = e.agg.All(ctx, proj)
	default:
		return nil, fmt.Errorf("unknown export scope %q", opts.Scope)
	}
	if len(list) == 0 {
		return nil, ErrNoInstincts
	}

	var out []*instinct.Instinct
	for _, inst := range list {
		if opts.Domain != "" && inst.Domain != opts.Domain {
			continue
		}
		if inst.Confidence < opts.MinConfidence {
			continue
		}
		out = append(out, inst)
	}
	if len(out) == 0 {
		return nil, ErrNoMatch
	}
	return out, nil
}

// Render writes list as an export document with a comment header.
func (e *Exporter) Render(proj project.Project, opts ExportOptions, list []*instinct.Instinct) string {
	var b strings.Builder
	b.WriteString("# Instincts export\n")
	fmt.Fprintf(&b, "# Date: %s\n", e.now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, "# Total: %d\n", len(list))
	if opts.Scope != "" {
		fmt.Fprintf(&b, "# Scope: %s\n", opts.Scope)
	}
	if !proj.IsGlobal() {
		fmt.Fprintf(&b, "# Project: %s (%s)\n", proj.Name, proj.ID)
	}
	b.WriteString("\n")

	for _, inst := range list {
		b.WriteString("---\n")
		for _, key := range exportKeys {
			value := exportValue(inst, key)
			if value == "" {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", key, instinct.FormatValue(key, value))
		}
		b.WriteString("---\n\n")
		b.WriteString(inst.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func exportValue(inst *instinct.Instinct, key string) string {
	switch key {
	case "id":
		return inst.ID
	case "trigger":
		return inst.Trigger
	case "confidence":
		return instinct.FormatConfidence(inst.Confidence)
	case "domain":
		return inst.Domain
	case "scope":
		return string(inst.Scope)
	default:
		return inst.Get(key)
	}
}
