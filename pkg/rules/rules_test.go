package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRuleSetsValidate(t *testing.T) {
	for _, set := range BuiltinRuleSets() {
		t.Run(string(set.Aspect), func(t *testing.T) {
			require.NoError(t, set.Validate())
			assert.InDelta(t, 1.0, set.TotalWeight(), 1e-9)

			optimal := set.Optimal()
			assert.Len(t, optimal, len(set.Rules), "every built-in rule documents an optimum")
			for _, rule := range set.Rules {
				score, outcome := rule.Score.Evaluate(optimal[rule.Key])
				assert.Equal(t, OutcomeOK, outcome, rule.Key)
				assert.InDelta(t, 1.0, score, 1e-9, rule.Key)
				assert.NotEmpty(t, rule.Remedy, rule.Key)
				assert.NotEmpty(t, rule.Advice, rule.Key)
			}
		})
	}
}

func TestBandsScoring(t *testing.T) {
	partCount := StepBands(0.1, 3, 1.0, 6, 0.7, 10, 0.4)

	tests := []struct {
		name    string
		value   interface{}
		score   float64
		outcome Outcome
	}{
		{name: "lowest band", value: 2, score: 1.0, outcome: OutcomeOK},
		{name: "band edge inclusive", value: 3, score: 1.0, outcome: OutcomeOK},
		{name: "second band", value: 5, score: 0.7, outcome: OutcomeOK},
		{name: "third band", value: 10.0, score: 0.4, outcome: OutcomeOK},
		{name: "worst case above last band", value: 250, score: 0.1, outcome: OutcomeOK},
		{name: "numeric string", value: " 4 ", score: 0.7, outcome: OutcomeOK},
		{name: "json number", value: json.Number("8"), score: 0.4, outcome: OutcomeOK},
		{name: "negative is clamped to floor", value: -4, score: 1.0, outcome: OutcomeClamped},
		{name: "wrong shape", value: "many", score: 0, outcome: OutcomeInvalid},
		{name: "bool is not a number", value: true, score: 0, outcome: OutcomeInvalid},
		{name: "nil is missing", value: nil, score: 0, outcome: OutcomeMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, outcome := partCount.Evaluate(tt.value)
			assert.InDelta(t, tt.score, score, 1e-9)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestLinearScoring(t *testing.T) {
	ratio := Ramp(0, 1, false)

	score, outcome := ratio.Evaluate(0.25)
	assert.InDelta(t, 0.25, score, 1e-9)
	assert.Equal(t, OutcomeOK, outcome)

	score, outcome = ratio.Evaluate(1.7)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, OutcomeClamped, outcome)

	inverted := Ramp(0, 10, true)
	score, _ = inverted.Evaluate(2)
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestBooleanScoring(t *testing.T) {
	fn := Flag(1.0, 0.4)

	for _, truthy := range []interface{}{true, "yes", "Oui", "1", 1} {
		score, outcome := fn.Evaluate(truthy)
		assert.InDelta(t, 1.0, score, 1e-9, "%v", truthy)
		assert.Equal(t, OutcomeOK, outcome)
	}

	for _, falsy := range []interface{}{false, "no", "non", 0.0} {
		score, _ := fn.Evaluate(falsy)
		assert.InDelta(t, 0.4, score, 1e-9, "%v", falsy)
	}

	score, outcome := fn.Evaluate("perhaps")
	assert.Zero(t, score)
	assert.Equal(t, OutcomeInvalid, outcome)
}

func TestCategoricalScoring(t *testing.T) {
	fn := Labels(map[string]float64{"easy": 1.0, "medium": 0.6, "hard": 0.2}, map[string]string{"facile": "easy", "difficile": "hard"})

	score, outcome := fn.Evaluate("FACILE")
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, OutcomeOK, outcome)

	score, _ = fn.Evaluate("medium")
	assert.InDelta(t, 0.6, score, 1e-9)

	// Unrecognised labels map to the worst valid outcome.
	score, outcome = fn.Evaluate("impossible")
	assert.InDelta(t, 0.2, score, 1e-9)
	assert.Equal(t, OutcomeClamped, outcome)

	score, outcome = fn.Evaluate(3)
	assert.Zero(t, score)
	assert.Equal(t, OutcomeInvalid, outcome)

	fallback := 0.5
	fn.Categorical.Fallback = &fallback
	score, _ = fn.Evaluate("unknown")
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestScoringFuncValidate(t *testing.T) {
	tests := []struct {
		name      string
		fn        ScoringFunc
		wantError bool
	}{
		{name: "bands", fn: StepBands(0.1, 1, 1.0, 2, 0.5)},
		{name: "none set", fn: ScoringFunc{}, wantError: true},
		{name: "two set", fn: ScoringFunc{Bands: StepBands(0, 1, 1).Bands, Boolean: &Boolean{WhenTrue: 1}}, wantError: true},
		{name: "bands not ascending", fn: StepBands(0.1, 5, 1.0, 2, 0.5), wantError: true},
		{name: "score above one", fn: StepBands(0.1, 1, 1.5), wantError: true},
		{name: "linear empty range", fn: Ramp(1, 1, false), wantError: true},
		{name: "empty categories", fn: Labels(map[string]float64{}, nil), wantError: true},
		{name: "dangling alias", fn: Labels(map[string]float64{"a": 1}, map[string]string{"b": "c"}), wantError: true},
		{name: "labels collide after normalizing", fn: Labels(map[string]float64{"very tight": 0.2, "very-tight": 0.4}, nil), wantError: true},
		{name: "alias shadows label", fn: Labels(map[string]float64{"easy": 1, "hard": 0}, map[string]string{"Easy": "hard"}), wantError: true},
		{name: "aliases collide", fn: Labels(map[string]float64{"easy": 1, "hard": 0}, map[string]string{"so_hard": "hard", "so hard": "easy"}), wantError: true},
		{name: "distinct aliases", fn: Labels(map[string]float64{"easy": 1, "hard": 0}, map[string]string{"facile": "easy", "difficile": "hard"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn.Validate()
			if tt.wantError {
				assert.True(t, errors.Is(err, ErrInvalidRule), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistry(t *testing.T) {
	registry := DefaultRegistry()

	assert.Equal(t, []Aspect{DFA, DFM, DFS, DFSust}, registry.Aspects())

	set, err := registry.RuleSet(DFM)
	require.NoError(t, err)
	assert.Equal(t, DFM, set.Aspect)
	assert.Contains(t, set.Keys(), "undercutCount")

	_, err = registry.RuleSet(Aspect("DFX"))
	assert.True(t, errors.Is(err, ErrUnknownAspect))

	aspect, err := registry.Resolve("dfsust")
	require.NoError(t, err)
	assert.Equal(t, DFSust, aspect)

	_, err = registry.Resolve("design")
	assert.True(t, errors.Is(err, ErrUnknownAspect))
}

func TestRegistryIsolation(t *testing.T) {
	registry := DefaultRegistry()

	set, err := registry.RuleSet(DFA)
	require.NoError(t, err)
	set.Rules[0].Weight = 99
	set.Rules[0].Score.Bands.Steps[0].Score = 0

	again, err := registry.RuleSet(DFA)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, again.Rules[0].Weight, 1e-9)

	score, outcome := again.Rules[0].Score.Evaluate(2)
	assert.Equal(t, OutcomeOK, outcome)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestRegistryIsolatedFromInput(t *testing.T) {
	easy := 0.2
	input := RuleSet{
		Aspect: "DFX",
		Rules: []Rule{
			{Key: "access", Weight: 1, Score: ScoringFunc{Categorical: &Categorical{
				Scores:   map[string]float64{"easy": 1, "hard": 0.1},
				Aliases:  map[string]string{"simple": "easy"},
				Fallback: &easy,
			}}},
		},
	}

	registry, err := NewRegistry(input)
	require.NoError(t, err)

	input.Rules[0].Score.Categorical.Scores["easy"] = 0
	input.Rules[0].Score.Categorical.Aliases["simple"] = "hard"
	easy = 0.9

	set, err := registry.RuleSet("DFX")
	require.NoError(t, err)

	score, _ := set.Rules[0].Score.Evaluate("simple")
	assert.InDelta(t, 1.0, score, 1e-9)

	score, _ = set.Rules[0].Score.Evaluate("unheard-of")
	assert.InDelta(t, 0.2, score, 1e-9)
}

func TestNewRegistryRejectsMalformed(t *testing.T) {
	_, err := NewRegistry(RuleSet{
		Aspect: "DFX",
		Rules: []Rule{
			{Key: "a", Weight: 1, Score: Flag(1, 0)},
			{Key: "a", Weight: 1, Score: Flag(1, 0)},
		},
	})
	assert.True(t, errors.Is(err, ErrInvalidRule))

	_, err = NewRegistry(RuleSet{Aspect: "DFX", Rules: []Rule{{Key: "a", Weight: 0, Score: Flag(1, 0)}}})
	assert.True(t, errors.Is(err, ErrInvalidRule))
}

const customRules = `
ruleSets:
  - aspect: DFX
    rules:
      - key: cableCount
        displayName: Cable count
        weight: 2
        remedy: reduce-cables
        advice: "Route fewer cables (currently %v)."
        optimum: 0
        score:
          bands:
            steps:
              - upTo: 0
                score: 1
              - upTo: 4
                score: 0.5
            otherwise: 0
      - key: finish
        weight: 1
        score:
          categorical:
            scores:
              raw: 1
              painted: 0.4
`

func TestLoadRegistryAddsAspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customRules), 0600))

	registry, err := LoadRegistry(path)
	require.NoError(t, err)

	assert.Len(t, registry.Aspects(), 5)

	set, err := registry.RuleSet("DFX")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, set.TotalWeight(), 1e-9)

	rule, ok := set.Get("cableCount")
	require.True(t, ok)
	score, _ := rule.Score.Evaluate(3)
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Equal(t, "Cable count", rule.Label())

	finish, ok := set.Get("finish")
	require.True(t, ok)
	assert.Equal(t, "finish", finish.Label())
}

func TestLoadRegistryEmptyPath(t *testing.T) {
	registry, err := LoadRegistry("")
	require.NoError(t, err)
	assert.Len(t, registry.Aspects(), 4)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("ruleSets: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("ruleSets:\n  - aspect: X\n    rules:\n      - key: a\n        weight: -1\n        score:\n          boolean: {whenTrue: 1, whenFalse: 0}\n"))
	assert.True(t, errors.Is(err, ErrInvalidRule))

	_, err = LoadFile("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func TestParseAspect(t *testing.T) {
	aspect, err := ParseAspect(" dfsust ")
	require.NoError(t, err)
	assert.Equal(t, DFSust, aspect)

	aspect, err = ParseAspect("Dfa")
	require.NoError(t, err)
	assert.Equal(t, DFA, aspect)

	_, err = ParseAspect("DFX")
	assert.True(t, errors.Is(err, ErrUnknownAspect))
}

func TestExportLoadsBack(t *testing.T) {
	data, err := Export(BuiltinRuleSets()...)
	require.NoError(t, err)

	sets, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, sets, 4)

	registry, err := NewRegistry(sets...)
	require.NoError(t, err)

	for _, set := range BuiltinRuleSets() {
		loaded, setErr := registry.RuleSet(set.Aspect)
		require.NoError(t, setErr)
		assert.Equal(t, set.Keys(), loaded.Keys())

		for _, rule := range set.Rules {
			got, _ := loaded.Get(rule.Key)
			assert.InDelta(t, rule.Weight, got.Weight, 1e-9)
			assert.Equal(t, rule.Score.Kind(), got.Score.Kind())
		}
	}
}
