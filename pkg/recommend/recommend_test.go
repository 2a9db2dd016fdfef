package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/scorer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(opts ...Option) (generator *Generator) {
	generator = NewGenerator(scorer.NewEngine(rules.DefaultRegistry()), opts...)
	return generator
}

func TestGenerateOrdering(t *testing.T) {
	metrics := rules.Metrics{
		"partCount":              12,
		"fastenerType":           "mixed",
		"assemblyDirections":     1,
		"handlingDifficulty":     "difficile",
		"symmetry":               false,
		"standardComponentRatio": 0.9,
		"selfAligning":           true,
	}

	recs, err := newGenerator().Generate(metrics, rules.DFA, 0.5)
	require.NoError(t, err)

	got := make([]string, 0, len(recs))
	for _, r := range recs {
		got = append(got, string(r.Priority)+":"+r.MetricKey)
	}

	want := []string{
		"high:partCount",
		"high:handlingDifficulty",
		"medium:fastenerType",
		"low:symmetry",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("recommendation order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "consolidate-parts", recs[0].Cause)
	assert.Contains(t, recs[0].Suggestion, "12 parts")
	assert.InDelta(t, 0.1, recs[0].SubScore, 1e-9)
}

func TestGenerateEmptyWhenAllAboveThreshold(t *testing.T) {
	metrics := rules.Metrics{
		"partCount":              2,
		"fastenerType":           "standard",
		"assemblyDirections":     1,
		"handlingDifficulty":     "facile",
		"symmetry":               true,
		"standardComponentRatio": 1.0,
		"selfAligning":           true,
	}

	recs, err := newGenerator().Generate(metrics, rules.DFA, 0.97)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	// One rule just under the threshold is enough to produce a suggestion.
	metrics["standardComponentRatio"] = 0.59
	recs, err = newGenerator().Generate(metrics, rules.DFA, 0.9)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "standardComponentRatio", recs[0].MetricKey)
}

func TestGenerateEmptyMetricsDFM(t *testing.T) {
	recs, err := newGenerator().Generate(rules.Metrics{}, rules.DFM, 0)
	require.NoError(t, err)
	require.Len(t, recs, DefaultLimit)
	for _, r := range recs {
		assert.Equal(t, High, r.Priority)
		assert.Contains(t, r.Suggestion, "not reported")
	}

	recs, err = newGenerator(WithLimit(10)).Generate(rules.Metrics{}, rules.DFM, 0)
	require.NoError(t, err)

	set, err := rules.DefaultRegistry().RuleSet(rules.DFM)
	require.NoError(t, err)

	covered := make([]string, 0, len(recs))
	for _, r := range recs {
		covered = append(covered, r.MetricKey)
	}
	assert.ElementsMatch(t, set.Keys(), covered)
}

func TestGenerateCapAndUniqueness(t *testing.T) {
	registry := rules.DefaultRegistry()

	for _, aspect := range registry.Aspects() {
		recs, err := newGenerator().Generate(rules.Metrics{}, aspect, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(recs), DefaultLimit)

		seen := map[string]bool{}
		for _, r := range recs {
			assert.False(t, seen[r.MetricKey], "duplicate key %s", r.MetricKey)
			seen[r.MetricKey] = true
		}
	}
}

func TestGenerateCustomThreshold(t *testing.T) {
	metrics := rules.Metrics{"fastenerType": "standard"}

	recs, err := newGenerator(WithConcernThreshold(0.9), WithLimit(10)).Generate(metrics, rules.DFA, 0)
	require.NoError(t, err)

	keys := map[string]bool{}
	for _, r := range recs {
		keys[r.MetricKey] = true
	}
	assert.True(t, keys["fastenerType"], "0.8 is below a 0.9 threshold")
}

func TestGenerateUnknownAspect(t *testing.T) {
	_, err := newGenerator().Generate(rules.Metrics{}, "nope", 0)
	assert.True(t, errors.Is(err, rules.ErrUnknownAspect))
}

func TestPrioritize(t *testing.T) {
	mean := 0.2

	assert.Equal(t, High, prioritize(0.1, 0.3, mean))
	assert.Equal(t, High, prioritize(0.1, 0.2, mean))
	assert.Equal(t, Medium, prioritize(0.1, 0.1, mean))
	assert.Equal(t, High, prioritize(0.5, 0.3, mean))
	assert.Equal(t, Medium, prioritize(0.5, 0.2, mean))
	assert.Equal(t, Low, prioritize(0.5, 0.1, mean))
}

func TestSummary(t *testing.T) {
	assert.Contains(t, Summary(0.95, nil), "Exceptional")

	line := Summary(0.35, []Recommendation{
		{MetricKey: "partCount", DisplayName: "Part count", Priority: High},
		{MetricKey: "symmetry", DisplayName: "Part symmetry", Priority: Low},
	})
	assert.Contains(t, line, "Insufficient")
	assert.Contains(t, line, "2 improvement area(s), 1 high priority")
	assert.Contains(t, line, "part count")
}

func TestEstimateImprovement(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		recs       []Recommendation
		wantScore  float64
		wantPoints float64
		confidence Confidence
	}{
		{
			name:       "no recommendations",
			score:      0.5,
			wantScore:  0.5,
			wantPoints: 0,
			confidence: ConfidenceLow,
		},
		{
			name:       "two high and one low",
			score:      0.5,
			recs:       []Recommendation{{Priority: High}, {Priority: High}, {Priority: Low}},
			wantScore:  0.68,
			wantPoints: 18,
			confidence: ConfidenceHigh,
		},
		{
			name:       "capped by headroom",
			score:      0.9,
			recs:       []Recommendation{{Priority: High}, {Priority: High}, {Priority: High}},
			wantScore:  0.94,
			wantPoints: 4,
			confidence: ConfidenceHigh,
		},
		{
			name:       "single medium",
			score:      0.2,
			recs:       []Recommendation{{Priority: Medium}},
			wantScore:  0.25,
			wantPoints: 5,
			confidence: ConfidenceMedium,
		},
		{
			name:       "already above ceiling",
			score:      0.97,
			recs:       []Recommendation{{Priority: High}},
			wantScore:  0.97,
			wantPoints: 0,
			confidence: ConfidenceMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := EstimateImprovement(tt.score, tt.recs)
			assert.InDelta(t, tt.wantScore, imp.NewScoreEstimate, 1e-9)
			assert.InDelta(t, tt.wantPoints, imp.PercentagePoints, 1e-9)
			assert.Equal(t, tt.confidence, imp.Confidence)
			assert.Equal(t, len(tt.recs), imp.TotalCount)
		})
	}
}

func TestEstimateImprovementBounds(t *testing.T) {
	lists := [][]Recommendation{
		nil,
		{{Priority: Low}},
		{{Priority: High}, {Priority: High}, {Priority: High}, {Priority: High}, {Priority: High}},
		{{Priority: Medium}, {Priority: Low}, {Priority: High}},
	}

	for score := 0.0; score <= MaxPossibleScore; score += 0.05 {
		for _, recs := range lists {
			imp := EstimateImprovement(score, recs)
			assert.LessOrEqual(t, imp.NewScoreEstimate, MaxPossibleScore)
			assert.GreaterOrEqual(t, imp.NewScoreEstimate, score)
		}
	}
}
