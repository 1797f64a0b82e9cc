package instinct

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout formats dates written into records, UTC with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// metaOrder is the canonical position of well-known meta keys.
var metaOrder = []string{
	KeySource,
	KeySourceRepo,
	KeyProjectID,
	KeyProjectName,
	KeyImportedFrom,
	KeyPromotedFrom,
	KeyPromotedDate,
	KeySeenInProjects,
}

// quotedKeys are always written quoted.
var quotedKeys = map[string]bool{
	"trigger":       true,
	KeyImportedFrom: true,
}

// FormatConfidence renders a confidence in its shortest exact form.
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// FormatPercent renders a confidence as a whole percentage, "85%".
func FormatPercent(c float64) string {
	return fmt.Sprintf("%.0f%%", math.RoundToEven(c*100))
}

// Marshal renders instincts as consecutive blocks.
//
// Header values that Parse could have produced survive a round trip. Values
// starting or ending with a single quote do not; CheckHeader reports them.
// Content lines consisting only of "---" end the block when parsed back.
func Marshal(list ...*Instinct) string {
	var b strings.Builder
	for _, inst := range list {
		writeBlock(&b, inst)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, inst *Instinct) {
	b.WriteString(separator + "\n")
	writePair(b, "id", inst.ID)
	writePair(b, "trigger", inst.Trigger)
	writePair(b, "confidence", FormatConfidence(inst.Confidence))
	domain := inst.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	writePair(b, "domain", domain)
	if inst.Scope != "" {
		writePair(b, "scope", string(inst.Scope))
	}
	for _, key := range metaKeys(inst.Meta) {
		writePair(b, key, inst.Meta[key])
	}
	b.WriteString(separator + "\n\n")
	b.WriteString(inst.Content)
	b.WriteString("\n\n")
}

func writePair(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(FormatValue(key, value))
	b.WriteString("\n")
}

// FormatValue renders a header value so that Parse returns it unchanged.
// Values with a double quote at either edge are wrapped in single quotes.
// Values with surrounding whitespace, and those of always-quoted keys, are
// wrapped in double quotes.
func FormatValue(key, value string) string {
	switch {
	case strings.HasPrefix(value, `"`) || strings.HasSuffix(value, `"`):
		return "'" + value + "'"
	case quotedKeys[key] || value != strings.TrimSpace(value):
		return `"` + value + `"`
	default:
		return value
	}
}

// CheckHeader reports header values of inst that no quoting preserves.
func CheckHeader(inst *Instinct) error {
	pairs := [][2]string{{"id", inst.ID}, {"trigger", inst.Trigger}, {"domain", inst.Domain}}
	for _, key := range metaKeys(inst.Meta) {
		pairs = append(pairs, [2]string{key, inst.Meta[key]})
	}
	for _, kv := range pairs {
		v := kv[1]
		if strings.HasPrefix(v, "'") || strings.HasSuffix(v, "'") || strings.ContainsAny(v, "\r\n") {
			return &HeaderError{ID: inst.ID, Key: kv[0], Value: v}
		}
	}
	return nil
}

// metaKeys returns meta keys in canonical order: well-known keys first, the
// rest sorted.
func metaKeys(meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	known := make(map[string]bool, len(metaOrder))
	for _, k := range metaOrder {
		known[k] = true
		if _, ok := meta[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range meta {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
