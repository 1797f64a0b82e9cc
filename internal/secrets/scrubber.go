package secrets

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultRedaction replaces each detected secret.
const DefaultRedaction = "[REDACTED]"

// Scrubber redacts secrets from content.
type Scrubber interface {
	// Scrub returns content with every detected secret replaced.
	Scrub(content string) *Result

	// IsEnabled reports whether scrubbing does anything.
	IsEnabled() bool
}

// Rule defines a secret detection rule.
type Rule struct {
	ID          string
	Description string
	Pattern     string
	// Keywords gate the rule: at least one must appear (case-insensitive).
	Keywords []string
	Severity string
}

// Config configures the scrubber.
type Config struct {
	Rules           []Rule
	RedactionString string
	// AllowList holds patterns whose matches are never redacted.
	AllowList []string
}

// DefaultConfig returns the built-in rules with the default redaction.
func DefaultConfig() *Config {
	return &Config{
		Rules:           DefaultRules(),
		RedactionString: DefaultRedaction,
	}
}

type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

type scrubber struct {
	rules     []*compiledRule
	allow     []*regexp.Regexp
	redaction string
}

type redaction struct {
	start, end int
}

// New compiles cfg into a Scrubber. A nil cfg uses DefaultConfig.
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &scrubber{redaction: cfg.RedactionString}
	if s.redaction == "" {
		s.redaction = DefaultRedaction
	}

	for i, rule := range cfg.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule %d: ID is required", i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", rule.ID)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", rule.ID, err)
		}
		cr := &compiledRule{Rule: rule, pattern: pattern}
		for _, kw := range rule.Keywords {
			cr.keywords = append(cr.keywords, regexp.MustCompile("(?i)"+regexp.QuoteMeta(kw)))
		}
		s.rules = append(s.rules, cr)
	}

	for i, p := range cfg.AllowList {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("allow_list %d: invalid pattern: %w", i, err)
		}
		s.allow = append(s.allow, re)
	}

	return s, nil
}

func (s *scrubber) Scrub(content string) *Result {
	result := &Result{
		Scrubbed: content,
		ByRule:   make(map[string]int),
	}

	var found []redaction
	for _, rule := range s.rules {
		if !rule.applies(content) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			if s.isAllowed(content[m[0]:m[1]]) {
				continue
			}
			result.ByRule[rule.ID]++
			result.TotalFindings++
			found = append(found, redaction{start: m[0], end: m[1]})
		}
	}

	if len(found) == 0 {
		return result
	}

	merged := mergeRedactions(found)
	scrubbed := content
	// Replace back to front so earlier offsets stay valid.
	for i := len(merged) - 1; i >= 0; i-- {
		r := merged[i]
		scrubbed = scrubbed[:r.start] + s.redaction + scrubbed[r.end:]
	}
	result.Scrubbed = scrubbed
	return result
}

func (s *scrubber) IsEnabled() bool {
	return true
}

func (r *compiledRule) applies(content string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if kw.MatchString(content) {
			return true
		}
	}
	return false
}

func (s *scrubber) isAllowed(match string) bool {
	for _, re := range s.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

// mergeRedactions sorts by start and merges overlapping ranges.
func mergeRedactions(rs []redaction) []redaction {
	sort.Slice(rs, func(i, j int) bool { return rs[i].start < rs[j].start })

	merged := []redaction{rs[0]}
	for _, curr := range rs[1:] {
		last := &merged[len(merged)-1]
		if curr.start <= last.end {
			if curr.end > last.end {
				last.end = curr.end
			}
			continue
		}
		merged = append(merged, curr)
	}
	return merged
}

// NoopScrubber returns content unchanged.
type NoopScrubber struct{}

// Scrub returns content unchanged.
func (NoopScrubber) Scrub(content string) *Result {
	return &Result{Scrubbed: content, ByRule: map[string]int{}}
}

// IsEnabled returns false.
func (NoopScrubber) IsEnabled() bool {
	return false
}

var (
	_ Scrubber = (*scrubber)(nil)
	_ Scrubber = NoopScrubber{}
)
