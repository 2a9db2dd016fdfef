// Package report renders evaluations as JSON and Markdown documents.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nikogura/dfx-scorer/pkg/advisor"
	"github.com/nikogura/dfx-scorer/pkg/refine"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/scorer"
)

// Version is stamped into every report.
const Version = "1.0"

// Report is a persisted evaluation.
type Report struct {
	Design      string             `json:"design,omitempty"`
	Source      string             `json:"source,omitempty"`
	Project     string             `json:"project,omitempty"`
	Iteration   int                `json:"iteration,omitempty"`
	Evaluation  advisor.Evaluation `json:"evaluation"`
	Prompt      string             `json:"prompt,omitempty"`
	Refined     *refine.Result     `json:"refined,omitempty"`
	Unknown     []string           `json:"unknown_metrics,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Version     string             `json:"version"`
}

// New wraps an evaluation in a report stamped with the current time.
func New(eval advisor.Evaluation) (r Report) {
	r = Report{
		Evaluation:  eval,
		GeneratedAt: time.Now().UTC(),
		Version:     Version,
	}
	return r
}

// Title is the report heading.
func (r Report) Title() (title string) {
	name := r.Design
	if name == "" {
		name = r.Source
	}
	if name == "" {
		name = "Design"
	}

	title = fmt.Sprintf("%s: %s evaluation", name, AspectName(r.Evaluation.Aspect))
	if r.Evaluation.Category != "" {
		title += fmt.Sprintf(" (%s)", cases.Title(language.English).String(r.Evaluation.Category))
	}

	return title
}

// AspectName expands an aspect code.
func AspectName(aspect rules.Aspect) (name string) {
	switch aspect {
	case rules.DFA:
		name = "Design for Assembly"
	case rules.DFM:
		name = "Design for Manufacturing"
	case rules.DFS:
		name = "Design for Serviceability"
	case rules.DFSust:
		name = "Design for Sustainability"
	default:
		name = string(aspect)
	}
	return name
}

// JSON encodes the report.
func (r Report) JSON() (data []byte, err error) {
	data, err = json.MarshalIndent(r, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal report")
	}
	return data, err
}

// Markdown renders the report for people.
func (r Report) Markdown() (md string) {
	eval := r.Evaluation
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", r.Title())
	fmt.Fprintf(&sb, "**Score:** %.2f (%s)\n\n", eval.Score, eval.Qualifier)
	if eval.Summary != "" {
		fmt.Fprintf(&sb, "%s\n\n", eval.Summary)
	}
	if r.Project != "" {
		fmt.Fprintf(&sb, "Project **%s**, iteration %d.\n\n", r.Project, r.Iteration)
	}

	sb.WriteString("## Rule breakdown\n\n")
	sb.WriteString("| Rule | Value | Weight | Score |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, rs := range eval.Rules {
		fmt.Fprintf(&sb, "| %s | %s | %.0f%% | %.2f |\n", rs.DisplayName, cellValue(rs), rs.Share*100, rs.Score)
	}
	sb.WriteString("\n")

	if len(eval.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for i, rec := range eval.Recommendations {
			fmt.Fprintf(&sb, "%d. **[%s] %s**: %s\n", i+1, strings.ToUpper(string(rec.Priority)), rec.DisplayName, rec.Suggestion)
		}
		sb.WriteString("\n")

		imp := eval.Improvement
		fmt.Fprintf(&sb, "Applying these could add about %.1f points, to %.2f (%s confidence).\n\n",
			imp.PercentagePoints, imp.NewScoreEstimate, imp.Confidence)
	}

	if len(r.Unknown) > 0 {
		fmt.Fprintf(&sb, "_Ignored metrics: %s._\n\n", strings.Join(r.Unknown, ", "))
	}

	if r.Refined != nil {
		sb.WriteString("## Refined prompt\n\n")
		if r.Prompt != "" {
			fmt.Fprintf(&sb, "Original: %s\n\n", r.Prompt)
		}
		fmt.Fprintf(&sb, "> %s\n\n", r.Refined.Text)
		fmt.Fprintf(&sb, "_Strategy: %s_\n\n", r.Refined.Strategy)
	}

	fmt.Fprintf(&sb, "---\nGenerated %s\n", r.GeneratedAt.Format(time.RFC1123))

	md = sb.String()

	return md
}

func cellValue(rs scorer.RuleScore) (value string) {
	if !rs.Present {
		value = "not reported"
		return value
	}

	value = fmt.Sprintf("%v", rs.Value)
	if rs.Unit != "" && rs.Unit != "ratio" {
		value += " " + rs.Unit
	}
	if rs.Outcome == rules.OutcomeInvalid {
		value += " (invalid)"
	}

	return value
}

// Write stores the report as <base>.json and <base>.md under dir and returns both paths.
func (r Report) Write(dir, base string) (jsonPath, mdPath string, err error) {
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", dir)
		return jsonPath, mdPath, err
	}

	var data []byte
	data, err = r.JSON()
	if err != nil {
		return jsonPath, mdPath, err
	}

	jsonPath = filepath.Join(dir, base+".json")
	err = os.WriteFile(jsonPath, data, 0600)
	if err != nil {
		err = errors.Wrap(err, "failed to write report JSON")
		return jsonPath, mdPath, err
	}

	mdPath = filepath.Join(dir, base+".md")
	err = os.WriteFile(mdPath, []byte(r.Markdown()), 0600)
	if err != nil {
		err = errors.Wrap(err, "failed to write report markdown")
		return jsonPath, mdPath, err
	}

	return jsonPath, mdPath, err
}

// Slug turns a design name into a file-name-safe base.
func Slug(name string) (slug string) {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		case !lastDash:
			sb.WriteRune('-')
			lastDash = true
		}
	}
	slug = strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		slug = "design"
	}
	return slug
}
