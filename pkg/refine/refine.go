// Package refine rewrites a design-generation prompt so the next design
// addresses the weaknesses found by scoring. A language model is tried first;
// on any failure a deterministic rewrite is used, so Refine always answers.
package refine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nikogura/dfx-scorer/pkg/llm"
	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/rules"
)

// DefaultTimeout bounds a single generation attempt.
const DefaultTimeout = 20 * time.Second

// Strategy records how a refined prompt was produced.
type Strategy string

// Strategies.
const (
	StrategyGenerated Strategy = "generated"
	StrategyFallback  Strategy = "fallback"
)

// Request is the input to Refine.
type Request struct {
	Prompt          string
	Recommendations []recommend.Recommendation
	Aspect          rules.Aspect
	Category        string
	Score           float64
}

// Result is the refined prompt and how it was obtained.
type Result struct {
	Text     string   `json:"text"`
	Strategy Strategy `json:"strategy"`
	Clauses  []string `json:"clauses,omitempty"` // appended constraints, fallback only
	Reason   string   `json:"reason,omitempty"`  // why the generator was not used
}

// Refiner orchestrates prompt refinement. It is safe for concurrent use.
type Refiner struct {
	generator llm.TextGenerator
	fallback  *Fallback
	timeout   time.Duration
	topK      int
	maxLength int
	logger    *zap.Logger
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithTimeout sets the generation deadline.
func WithTimeout(timeout time.Duration) (opt Option) {
	opt = func(r *Refiner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
	return opt
}

// WithTopK sets how many recommendations are sent to the generator.
func WithTopK(k int) (opt Option) {
	opt = func(r *Refiner) {
		if k > 0 {
			r.topK = k
		}
	}
	return opt
}

// WithMaxLength sets the rune limit of a generated prompt.
func WithMaxLength(n int) (opt Option) {
	opt = func(r *Refiner) {
		if n > 0 {
			r.maxLength = n
		}
	}
	return opt
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) (opt Option) {
	opt = func(r *Refiner) {
		if logger != nil {
			r.logger = logger
		}
	}
	return opt
}

// NewRefiner creates a refiner. A nil generator means every request uses the fallback.
func NewRefiner(generator llm.TextGenerator, opts ...Option) (refiner *Refiner) {
	refiner = &Refiner{
		generator: generator,
		fallback:  NewFallback(),
		timeout:   DefaultTimeout,
		topK:      llm.DefaultTopK,
		maxLength: llm.DefaultMaxPromptLength,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(refiner)
	}

	return refiner
}

// Refine returns an improved prompt. It never fails: generator errors,
// timeouts and empty output all degrade to the fallback rewrite.
func (r *Refiner) Refine(ctx context.Context, req Request) (result Result) {
	if r.generator == nil {
		result = r.useFallback(req, "no generator configured")
		return result
	}

	text, err := r.generate(ctx, req)
	if err != nil {
		r.logger.Warn("prompt generation failed, using fallback",
			zap.String("aspect", string(req.Aspect)),
			zap.Error(err))
		result = r.useFallback(req, err.Error())
		return result
	}

	cleaned := llm.Sanitize(text, r.maxLength)
	if cleaned == "" {
		r.logger.Warn("generator returned empty prompt, using fallback",
			zap.String("aspect", string(req.Aspect)))
		result = r.useFallback(req, "empty generator output")
		return result
	}

	result = Result{Text: cleaned, Strategy: StrategyGenerated}
	r.logger.Debug("prompt refined by generator",
		zap.String("aspect", string(req.Aspect)),
		zap.Int("length", len([]rune(cleaned))))

	return result
}

type completion struct {
	text string
	err  error
}

// generate runs the generator under the refiner's deadline. The call runs in
// its own goroutine so a generator that ignores ctx cannot block Refine.
func (r *Refiner) generate(ctx context.Context, req Request) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	system, user := llm.BuildRefinementPrompt(llm.RefinementRequest{
		Prompt:          req.Prompt,
		Aspect:          req.Aspect,
		Category:        req.Category,
		Score:           req.Score,
		Recommendations: req.Recommendations,
	}, r.topK)

	done := make(chan completion, 1)
	go func() {
		out, genErr := r.generator.Complete(ctx, system, user)
		done <- completion{text: out, err: genErr}
	}()

	select {
	case c := <-done:
		text, err = c.text, c.err
	case <-ctx.Done():
		err = ctx.Err()
	}

	return text, err
}

func (r *Refiner) useFallback(req Request, reason string) (result Result) {
	text, clauses := r.fallback.Apply(req.Prompt, req.Aspect, req.Recommendations)
	result = Result{
		Text:     text,
		Strategy: StrategyFallback,
		Clauses:  clauses,
		Reason:   reason,
	}
	return result
}
