package secrets

import "sort"

// Result contains the scrubbing result. Matched values are never retained.
type Result struct {
	Scrubbed      string
	TotalFindings int
	// ByRule maps rule IDs to finding counts.
	ByRule map[string]int
}

// HasFindings returns true if any secrets were found.
func (r *Result) HasFindings() bool {
	return r.TotalFindings > 0
}

// RuleIDs returns the matched rule IDs in sorted order.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
