package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"

	"github.com/nikogura/dfx-scorer/pkg/advisor"
	"github.com/nikogura/dfx-scorer/pkg/recommend"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/scorer"
	"github.com/nikogura/dfx-scorer/pkg/store"
)

// Palette colours terminal output. The zero value prints plain text.
type Palette struct {
	good, fair, poor func(...any) string
}

// NewPalette returns a coloured palette, or a plain one when useColors is false.
func NewPalette(useColors bool) (p Palette) {
	if !useColors {
		p = Palette{good: fmt.Sprint, fair: fmt.Sprint, poor: fmt.Sprint}
		return p
	}
	p = Palette{
		good: color.New(color.FgGreen, color.Bold).SprintFunc(),
		fair: color.New(color.FgYellow).SprintFunc(),
		poor: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
	return p
}

// Score colours a score by its qualifier band.
func (p Palette) Score(score float64) (s string) {
	text := fmt.Sprintf("%.2f", score)
	if p.good == nil {
		s = text
		return s
	}
	switch {
	case score >= scorer.GoodThreshold:
		s = p.good(text)
	case score >= scorer.WeakThreshold:
		s = p.fair(text)
	default:
		s = p.poor(text)
	}
	return s
}

// Priority colours a recommendation priority.
func (p Palette) Priority(priority recommend.Priority) (s string) {
	text := string(priority)
	if p.good == nil {
		s = text
		return s
	}
	switch priority {
	case recommend.High:
		s = p.poor(text)
	case recommend.Medium:
		s = p.fair(text)
	default:
		s = p.good(text)
	}
	return s
}

// WriteEvaluation prints a human-readable evaluation with a rule breakdown table.
func WriteEvaluation(w io.Writer, title string, eval advisor.Evaluation, p Palette) (err error) {
	_, err = fmt.Fprintf(w, "%s\n%s score: %s (%s)\n", title, eval.Aspect, p.Score(eval.Score), eval.Qualifier)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Rule", "Value", "Weight", "Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight}
	})

	var data [][]string
	for _, rs := range eval.Rules {
		data = append(data, []string{
			rs.DisplayName,
			cellValue(rs),
			fmt.Sprintf("%.0f%%", rs.Share*100),
			p.Score(rs.Score),
		})
	}

	err = table.Bulk(data)
	if err != nil {
		err = errors.Wrap(err, "failed to build breakdown table")
		return err
	}
	err = table.Render()
	if err != nil {
		err = errors.Wrap(err, "failed to render breakdown table")
		return err
	}

	for i, rec := range eval.Recommendations {
		_, err = fmt.Fprintf(w, "%d. [%s] %s: %s\n", i+1, p.Priority(rec.Priority), rec.DisplayName, rec.Suggestion)
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "%s\n", eval.Summary)

	return err
}

// WriteRules prints the rules of each set.
func WriteRules(w io.Writer, sets []rules.RuleSet) (err error) {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Aspect", "Key", "Name", "Weight", "Function", "Remedy"})

	var data [][]string
	for _, set := range sets {
		for _, rule := range set.Rules {
			data = append(data, []string{
				string(set.Aspect),
				rule.Key,
				rule.DisplayName,
				strconv.FormatFloat(rule.Weight, 'f', 2, 64),
				rule.Score.Kind(),
				rule.Remedy,
			})
		}
	}

	err = table.Bulk(data)
	if err != nil {
		err = errors.Wrap(err, "failed to build rules table")
		return err
	}
	err = table.Render()
	if err != nil {
		err = errors.Wrap(err, "failed to render rules table")
	}

	return err
}

// WriteHistory prints a project's iterations with the change from the previous one.
func WriteHistory(w io.Writer, iterations []store.Iteration, p Palette) (err error) {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"#", "Date", "Aspect", "Score", "Delta", "Qualifier"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, it := range iterations {
		delta := "-"
		if i > 0 {
			delta = fmt.Sprintf("%+.2f", store.Delta(iterations[i-1], it))
		}
		data = append(data, []string{
			strconv.Itoa(it.Number),
			it.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(it.Aspect),
			p.Score(it.Score),
			delta,
			it.Qualifier,
		})
	}

	err = table.Bulk(data)
	if err != nil {
		err = errors.Wrap(err, "failed to build history table")
		return err
	}
	err = table.Render()
	if err != nil {
		err = errors.Wrap(err, "failed to render history table")
	}

	return err
}
