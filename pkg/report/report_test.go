package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikogura/dfx-scorer/pkg/advisor"
	"github.com/nikogura/dfx-scorer/pkg/refine"
	"github.com/nikogura/dfx-scorer/pkg/rules"
)

func droneReport(t *testing.T) (r Report) {
	t.Helper()
	adv := advisor.New(nil, nil)
	eval, err := adv.Evaluate(rules.Metrics{
		"partCount":    14,
		"fastenerType": "special",
		"symmetry":     "sometimes",
	}, rules.DFA, "racing drones")
	require.NoError(t, err)

	r = New(eval)
	r.Design = "Drone V2"
	return r
}

func TestTitle(t *testing.T) {
	r := droneReport(t)
	assert.Equal(t, "Drone V2: Design for Assembly evaluation (Racing Drones)", r.Title())

	r.Design = ""
	r.Source = "drone.json"
	r.Evaluation.Category = ""
	assert.Equal(t, "drone.json: Design for Assembly evaluation", r.Title())

	assert.Equal(t, "DFX", AspectName(rules.Aspect("DFX")))
}

func TestMarkdown(t *testing.T) {
	r := droneReport(t)
	r.Project = "drone"
	r.Iteration = 2
	r.Unknown = []string{"colour"}
	r.Prompt = "A racing drone frame"
	r.Refined = &refine.Result{Text: "A racing drone frame, with minimal part count", Strategy: refine.StrategyFallback}

	md := r.Markdown()

	expected := []string{
		"# Drone V2: Design for Assembly evaluation (Racing Drones)",
		"**Score:** ",
		"Project **drone**, iteration 2.",
		"| Part count | 14 parts | 25% | 0.10 |",
		"not reported",
		"sometimes (invalid)",
		"## Recommendations",
		"1. **[HIGH]",
		"_Ignored metrics: colour._",
		"> A racing drone frame, with minimal part count",
		"_Strategy: fallback_",
	}
	for _, want := range expected {
		assert.Contains(t, md, want)
	}
}

func TestMarkdownWithoutRecommendations(t *testing.T) {
	adv := advisor.New(nil, nil)
	set, err := adv.Registry().RuleSet(rules.DFS)
	require.NoError(t, err)
	eval, err := adv.Evaluate(set.Optimal(), rules.DFS, "")
	require.NoError(t, err)

	md := New(eval).Markdown()

	assert.NotContains(t, md, "## Recommendations")
	assert.NotContains(t, md, "## Refined prompt")
	assert.Contains(t, md, "(Exceptional)")
}

func TestWrite(t *testing.T) {
	r := droneReport(t)
	dir := filepath.Join(t.TempDir(), "reports")

	jsonPath, mdPath, err := r.Write(dir, Slug(r.Design))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "drone-v2.json"), jsonPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Drone V2", decoded["design"])
	assert.Equal(t, Version, decoded["version"])

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Drone V2"))
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Drone V2":         "drone-v2",
		"  kettle / 2025 ": "kettle-2025",
		"***":              "design",
		"":                 "design",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, Slug(input), input)
	}
}
