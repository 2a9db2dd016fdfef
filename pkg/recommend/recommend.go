// Package recommend turns weak rule scores into ranked, actionable suggestions
// and bounds the score improvement they can plausibly deliver.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/scorer"
)

// Priority ranks a recommendation.
type Priority string

// Priorities, most urgent first.
const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

const (
	// DefaultConcernThreshold is the sub-score below which a rule is flagged.
	DefaultConcernThreshold = 0.6
	// DefaultLimit caps the number of recommendations returned.
	DefaultLimit = 5

	severeBelow      = 0.3
	heavyWeightRatio = 1.25
	lightWeightRatio = 0.75
)

func (p Priority) rank() (r int) {
	switch p {
	case High:
		r = 0
	case Medium:
		r = 1
	default:
		r = 2
	}
	return r
}

// Recommendation is a suggested fix for one weak rule.
type Recommendation struct {
	MetricKey   string      `json:"metric_key"`
	DisplayName string      `json:"display_name"`
	Priority    Priority    `json:"priority"`
	Suggestion  string      `json:"suggestion"`
	Cause       string      `json:"cause,omitempty"` // remedy tag of the rule
	SubScore    float64     `json:"sub_score"`
	Value       interface{} `json:"value,omitempty"`
}

// Generator derives recommendations from rule sub-scores.
type Generator struct {
	engine    *scorer.Engine
	threshold float64
	limit     int
}

// Option configures a Generator.
type Option func(*Generator)

// WithConcernThreshold sets the sub-score below which a rule is flagged.
func WithConcernThreshold(threshold float64) (opt Option) {
	opt = func(g *Generator) {
		g.threshold = threshold
	}
	return opt
}

// WithLimit caps the number of recommendations. Values below one are ignored.
func WithLimit(limit int) (opt Option) {
	opt = func(g *Generator) {
		if limit > 0 {
			g.limit = limit
		}
	}
	return opt
}

// NewGenerator creates a recommendation generator backed by the scoring engine.
func NewGenerator(engine *scorer.Engine, opts ...Option) (generator *Generator) {
	generator = &Generator{
		engine:    engine,
		threshold: DefaultConcernThreshold,
		limit:     DefaultLimit,
	}
	for _, opt := range opts {
		opt(generator)
	}
	return generator
}

type candidate struct {
	rec   Recommendation
	order int
}

// Generate returns up to the configured limit of recommendations, ordered by
// priority then by ascending sub-score. Sub-scores are re-derived from
// metrics; score is not consulted.
func (g *Generator) Generate(metrics rules.Metrics, aspect rules.Aspect, score float64) (recs []Recommendation, err error) {
	recs = []Recommendation{}

	var result scorer.Result
	result, err = g.engine.Breakdown(metrics, aspect)
	if err != nil {
		return recs, err
	}

	var set rules.RuleSet
	set, err = g.engine.Registry().RuleSet(aspect)
	if err != nil {
		return recs, err
	}

	meanShare := 1.0 / float64(len(set.Rules))
	candidates := make([]candidate, 0, len(result.Rules))

	for i, rs := range result.Rules {
		if rs.Score >= g.threshold {
			continue
		}

		rule, _ := set.Get(rs.Key)
		candidates = append(candidates, candidate{
			order: i,
			rec: Recommendation{
				MetricKey:   rs.Key,
				DisplayName: rs.DisplayName,
				Priority:    prioritize(rs.Score, rs.Share, meanShare),
				Suggestion:  suggestion(rule, rs),
				Cause:       rule.Remedy,
				SubScore:    rs.Score,
				Value:       rs.Value,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rec.Priority.rank() != b.rec.Priority.rank() {
			return a.rec.Priority.rank() < b.rec.Priority.rank()
		}
		if a.rec.SubScore != b.rec.SubScore {
			return a.rec.SubScore < b.rec.SubScore
		}
		return a.order < b.order
	})

	if len(candidates) > g.limit {
		candidates = candidates[:g.limit]
	}

	for _, c := range candidates {
		recs = append(recs, c.rec)
	}

	return recs, err
}

// prioritize combines the severity of a sub-score with the rule's relative weight.
func prioritize(subScore, share, meanShare float64) (p Priority) {
	heavy := share >= heavyWeightRatio*meanShare
	light := share < lightWeightRatio*meanShare

	if subScore < severeBelow {
		p = High
		if light {
			p = Medium
		}
		return p
	}

	switch {
	case heavy:
		p = High
	case light:
		p = Low
	default:
		p = Medium
	}
	return p
}

func suggestion(rule rules.Rule, rs scorer.RuleScore) (text string) {
	if rule.Advice == "" {
		text = fmt.Sprintf("Improve %s (currently %s).", strings.ToLower(rs.DisplayName), describeValue(rs))
		return text
	}

	if strings.Contains(rule.Advice, "%v") {
		text = fmt.Sprintf(rule.Advice, describeValue(rs))
		return text
	}

	text = rule.Advice
	if !rs.Present {
		text += " This metric was not reported by the analysis."
	}
	return text
}

func describeValue(rs scorer.RuleScore) (desc string) {
	if !rs.Present {
		desc = "not reported"
		return desc
	}

	desc = fmt.Sprintf("%v", rs.Value)
	if rs.Unit != "" && rs.Unit != "ratio" {
		desc += " " + rs.Unit
	}
	return desc
}

// Summary is a one-line description of where the design stands.
func Summary(score float64, recs []Recommendation) (line string) {
	q := scorer.Qualify(score)
	if len(recs) == 0 {
		line = fmt.Sprintf("%s (%.0f%%): no rule falls below the concern threshold.", q, score*100)
		return line
	}

	high := 0
	for _, r := range recs {
		if r.Priority == High {
			high++
		}
	}

	line = fmt.Sprintf("%s (%.0f%%): %d improvement area(s), %d high priority; start with %s.",
		q, score*100, len(recs), high, strings.ToLower(recs[0].DisplayName))
	return line
}
