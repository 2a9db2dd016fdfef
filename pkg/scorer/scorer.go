// Package scorer computes the weighted DfX composite score for a metrics record.
package scorer

import (
	"math"

	"github.com/nikogura/dfx-scorer/pkg/rules"
	"go.uber.org/zap"
)

// RuleScore is one rule's contribution to a composite score.
type RuleScore struct {
	Key         string        `json:"key"`
	DisplayName string        `json:"display_name"`
	Unit        string        `json:"unit,omitempty"`
	Weight      float64       `json:"weight"`
	Share       float64       `json:"share"` // weight / total weight of the aspect
	Value       interface{}   `json:"value,omitempty"`
	Present     bool          `json:"present"`
	Score       float64       `json:"score"`
	Outcome     rules.Outcome `json:"outcome"`
}

// Result is a composite score with its per-rule breakdown, in rule order.
type Result struct {
	Aspect rules.Aspect `json:"aspect"`
	Score  float64      `json:"score"`
	Rules  []RuleScore  `json:"rules"`
}

// Engine scores metrics records against an injected rule registry.
// It holds no mutable state and may be shared between goroutines.
type Engine struct {
	registry *rules.Registry
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report invalid metric values.
func WithLogger(logger *zap.Logger) (opt Option) {
	opt = func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
	return opt
}

// NewEngine creates a scoring engine over the given registry.
func NewEngine(registry *rules.Registry, opts ...Option) (engine *Engine) {
	engine = &Engine{
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Registry returns the registry the engine scores against.
func (e *Engine) Registry() (registry *rules.Registry) {
	registry = e.registry
	return registry
}

// ComputeScore returns the weighted composite score in [0,1].
func (e *Engine) ComputeScore(metrics rules.Metrics, aspect rules.Aspect) (score float64, err error) {
	var result Result
	result, err = e.Breakdown(metrics, aspect)
	if err != nil {
		return score, err
	}

	score = result.Score
	return score, err
}

// Breakdown scores every rule of the aspect and combines them. Missing metrics
// score zero but keep their weight in the denominator; keys outside the rule
// set are ignored.
func (e *Engine) Breakdown(metrics rules.Metrics, aspect rules.Aspect) (result Result, err error) {
	var set rules.RuleSet
	set, err = e.registry.RuleSet(aspect)
	if err != nil {
		return result, err
	}

	total := set.TotalWeight()
	result = Result{
		Aspect: aspect,
		Rules:  make([]RuleScore, 0, len(set.Rules)),
	}

	var weighted float64
	for _, rule := range set.Rules {
		value, present := metrics[rule.Key]

		rs := RuleScore{
			Key:         rule.Key,
			DisplayName: rule.Label(),
			Unit:        rule.Unit,
			Weight:      rule.Weight,
			Share:       rule.Weight / total,
			Value:       value,
			Present:     present && value != nil,
			Outcome:     rules.OutcomeMissing,
		}

		if rs.Present {
			rs.Score, rs.Outcome = rule.Score.Evaluate(value)
			e.logOutcome(aspect, rule.Key, value, rs.Outcome)
		}

		weighted += rs.Score * rule.Weight
		result.Rules = append(result.Rules, rs)
	}

	result.Score = clamp01(weighted / total)

	return result, err
}

func (e *Engine) logOutcome(aspect rules.Aspect, key string, value interface{}, outcome rules.Outcome) {
	switch outcome {
	case rules.OutcomeInvalid:
		e.logger.Warn("invalid metric value scored as zero",
			zap.String("aspect", string(aspect)),
			zap.String("metric", key),
			zap.Any("value", value))
	case rules.OutcomeClamped:
		e.logger.Debug("metric value clamped to rule domain",
			zap.String("aspect", string(aspect)),
			zap.String("metric", key),
			zap.Any("value", value))
	}
}

func clamp01(v float64) (clamped float64) {
	clamped = v
	if clamped < 0 || math.IsNaN(clamped) {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}
	return clamped
}
