// Package evolve clusters instincts by normalized trigger and turns the
// strongest clusters into skill, command and agent documents.
package evolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/instinct/internal/config"
	"github.com/fyrsmithlabs/instinct/internal/instinct"
)

// MinClusterSize is the member count that makes a cluster a skill candidate.
const MinClusterSize = 2

// CommandDomain is the domain that marks command candidates.
const CommandDomain = "workflow"

// ErrTooFewInstincts is returned when the view is too small to analyze.
var ErrTooFewInstincts = errors.New("not enough instincts to analyze")

// stopwords are removed from triggers, in this order, to form cluster keys.
var stopwords = []string{"when", "creating", "writing", "adding", "implementing", "testing"}

// Normalize returns the cluster key of a trigger: lowercased, with every
// occurrence of each stopword removed and edge whitespace trimmed after each
// removal.
func Normalize(trigger string) string {
	key := strings.ToLower(trigger)
	for _, w := range stopwords {
		key = strings.TrimSpace(strings.ReplaceAll(key, w, ""))
	}
	return key
}

// Cluster is a group of instincts sharing a cluster key.
type Cluster struct {
	Key           string
	Members       []*instinct.Instinct
	AvgConfidence float64
	// Domains and Scopes are distinct and sorted.
	Domains []string
	Scopes  []string
}

// Analysis is the result of clustering one instinct view.
type Analysis struct {
	Total          int
	HighConfidence int

	// Skills are clusters of at least MinClusterSize members, largest first,
	// then by average confidence.
	Skills []Cluster
	// Commands are workflow instincts above the command threshold, in input
	// order.
	Commands []*instinct.Instinct
	// Agents are the skills that are both large and confident enough.
	Agents []Cluster
}

// Analyzer clusters instinct views.
type Analyzer struct {
	cfg config.EvolveConfig
}

// NewAnalyzer creates an Analyzer with cfg's thresholds.
func NewAnalyzer(cfg config.EvolveConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze clusters list. It fails with ErrTooFewInstincts when list is
// shorter than the configured minimum.
func (a *Analyzer) Analyze(list []*instinct.Instinct) (*Analysis, error) {
	if len(list) < a.cfg.MinInstincts {
		return nil, fmt.Errorf("%w: need at least %d, have %d", ErrTooFewInstincts, a.cfg.MinInstincts, len(list))
	}

	res := &Analysis{Total: len(list)}
	for _, inst := range list {
		if inst.Confidence >= a.cfg.HighConfidence {
			res.HighConfidence++
		}
		if inst.Domain == CommandDomain && inst.Confidence >= a.cfg.CommandMinConfidence {
			res.Commands = append(res.Commands, inst)
		}
	}

	res.Skills = Clusters(list)
	for _, c := range res.Skills {
		if len(c.Members) >= a.cfg.AgentMinMembers && c.AvgConfidence >= a.cfg.AgentMinConfidence {
			res.Agents = append(res.Agents, c)
		}
	}
	return res, nil
}

// Clusters groups list by normalized trigger and returns the groups with at
// least MinClusterSize members, ordered by size then average confidence,
// both descending. Equal clusters keep first-appearance order.
func Clusters(list []*instinct.Instinct) []Cluster {
	var (
		order  []string
		groups = make(map[string][]*instinct.Instinct)
	)
	for _, inst := range list {
		key := Normalize(inst.Trigger)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], inst)
	}

	var out []Cluster
	for _, key := range order {
		members := groups[key]
		if len(members) < MinClusterSize {
			continue
		}
		out = append(out, newCluster(key, members))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].AvgConfidence > out[j].AvgConfidence
	})
	return out
}

func newCluster(key string, members []*instinct.Instinct) Cluster {
	var sum float64
	domains := make(map[string]struct{})
	scopes := make(map[string]struct{})
	for _, m := range members {
		sum += m.Confidence
		domains[m.Domain] = struct{}{}
		scopes[string(m.EffectiveScope())] = struct{}{}
	}
	return Cluster{
		Key:           key,
		Members:       members,
		AvgConfidence: sum / float64(len(members)),
		Domains:       sortedKeys(domains),
		Scopes:        sortedKeys(scopes),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
