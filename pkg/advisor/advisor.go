// Package advisor ties scoring, recommendations and prompt refinement into
// the two operations callers need: evaluate a design and refine its prompt.
package advisor

import (
	"context"

	"go.uber.org/zap"

	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/refine"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/scorer"
)

// Evaluation is the full assessment of one metrics record against one aspect.
type Evaluation struct {
	Aspect          rules.Aspect               `json:"aspect"`
	Category        string                     `json:"category,omitempty"`
	Score           float64                    `json:"score"`
	Qualifier       string                     `json:"qualifier"`
	Summary         string                     `json:"summary"`
	Rules           []scorer.RuleScore         `json:"rules"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Improvement     recommend.Improvement      `json:"improvement"`
}

// Refinement is an evaluation plus the prompt derived from it.
type Refinement struct {
	Evaluation Evaluation    `json:"evaluation"`
	Original   string        `json:"original_prompt"`
	Refined    refine.Result `json:"refined"`
}

// Advisor is safe for concurrent use.
type Advisor struct {
	engine    *scorer.Engine
	generator *recommend.Generator
	refiner   *refine.Refiner
	logger    *zap.Logger
}

// Option configures an Advisor.
type Option func(*settings)

type settings struct {
	logger     *zap.Logger
	recOptions []recommend.Option
}

// WithLogger sets the logger passed to the scoring engine.
func WithLogger(logger *zap.Logger) (opt Option) {
	opt = func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
	return opt
}

// WithRecommendOptions passes options to the recommendation generator.
func WithRecommendOptions(opts ...recommend.Option) (opt Option) {
	opt = func(s *settings) {
		s.recOptions = append(s.recOptions, opts...)
	}
	return opt
}

// New creates an advisor over a registry. A nil refiner refines offline.
func New(registry *rules.Registry, refiner *refine.Refiner, opts ...Option) (advisor *Advisor) {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}

	if registry == nil {
		registry = rules.DefaultRegistry()
	}

	if refiner == nil {
		refiner = refine.NewRefiner(nil, refine.WithLogger(s.logger))
	}

	engine := scorer.NewEngine(registry, scorer.WithLogger(s.logger))

	advisor = &Advisor{
		engine:    engine,
		generator: recommend.NewGenerator(engine, s.recOptions...),
		refiner:   refiner,
		logger:    s.logger,
	}

	return advisor
}

// Registry returns the rule registry in use.
func (a *Advisor) Registry() (registry *rules.Registry) {
	registry = a.engine.Registry()
	return registry
}

// Evaluate scores metrics and derives recommendations and an improvement estimate.
// An unknown aspect is the only error.
func (a *Advisor) Evaluate(metrics rules.Metrics, aspect rules.Aspect, category string) (eval Evaluation, err error) {
	var breakdown scorer.Result
	breakdown, err = a.engine.Breakdown(metrics, aspect)
	if err != nil {
		return eval, err
	}

	var recs []recommend.Recommendation
	recs, err = a.generator.Generate(metrics, aspect, breakdown.Score)
	if err != nil {
		return eval, err
	}

	eval = Evaluation{
		Aspect:          aspect,
		Category:        category,
		Score:           breakdown.Score,
		Qualifier:       scorer.Qualify(breakdown.Score).String(),
		Summary:         recommend.Summary(breakdown.Score, recs),
		Rules:           breakdown.Rules,
		Recommendations: recs,
		Improvement:     recommend.EstimateImprovement(breakdown.Score, recs),
	}

	a.logger.Debug("evaluated design",
		zap.String("aspect", string(aspect)),
		zap.String("category", category),
		zap.Float64("score", eval.Score),
		zap.Int("recommendations", len(recs)))

	return eval, err
}

// Refine evaluates the metrics afresh and returns an improved prompt. The
// score is always recomputed from metrics so the prompt reflects current data.
func (a *Advisor) Refine(ctx context.Context, prompt string, metrics rules.Metrics, aspect rules.Aspect, category string) (refinement Refinement, err error) {
	var eval Evaluation
	eval, err = a.Evaluate(metrics, aspect, category)
	if err != nil {
		return refinement, err
	}

	result := a.refiner.Refine(ctx, refine.Request{
		Prompt:          prompt,
		Recommendations: eval.Recommendations,
		Aspect:          aspect,
		Category:        category,
		Score:           eval.Score,
	})

	refinement = Refinement{
		Evaluation: eval,
		Original:   prompt,
		Refined:    result,
	}

	return refinement, err
}
