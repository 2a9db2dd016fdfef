package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nikogura/dfx-scorer/pkg/advisor"
	"github.com/nikogura/dfx-scorer/pkg/config"
	"github.com/nikogura/dfx-scorer/pkg/metrics"
	"github.com/nikogura/dfx-scorer/pkg/report"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/store"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	refinePrompt   string
	refineAspect   string
	refineCategory string
	refineProject  string
	refineSave     bool
	refineOffline  bool
	refineFormat   string
)

//nolint:gochecknoglobals // Cobra boilerplate
var refineCmd = &cobra.Command{
	Use:   "refine <metrics-file-or-url>",
	Short: "Rewrite a design prompt to address weak DfX rules",
	Long: `Scores a metrics record, then rewrites the prompt that generated the design
so the next iteration addresses the highest-priority recommendations.

The rewrite uses the configured provider (Claude or Gemini). If no provider
is configured, --offline is given, or the provider fails or times out, a
deterministic rewrite appends design constraints for each weak rule.

Examples:
  # Refine the prompt stored in the metrics file
  dfx-scorer refine drone.json --aspect DFA

  # Refine an explicit prompt without calling a model
  dfx-scorer refine drone.json --prompt "A racing drone frame" --offline`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(refineCmd)
	refineCmd.Flags().StringVar(&refinePrompt, "prompt", "", "Prompt to refine (defaults to the prompt in the metrics file)")
	refineCmd.Flags().StringVarP(&refineAspect, "aspect", "a", string(rules.DFA), "DfX aspect")
	refineCmd.Flags().StringVar(&refineCategory, "category", "", "Product category (overrides the category in the metrics file)")
	refineCmd.Flags().StringVarP(&refineProject, "project", "p", "", "Project name for --save")
	refineCmd.Flags().BoolVar(&refineSave, "save", false, "Record the evaluation and refined prompt as a new project iteration")
	refineCmd.Flags().BoolVar(&refineOffline, "offline", false, "Do not call a language model")
	refineCmd.Flags().StringVarP(&refineFormat, "format", "f", formatText, "Output format: text, json or markdown")
}

func runRefine(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = checkFormat(refineFormat)
	if err != nil {
		return err
	}

	if refineSave && refineProject == "" {
		err = errors.New("--save requires --project")
		return err
	}

	var cfg config.Config
	var adv *advisor.Advisor
	cfg, adv, err = setup(ctx, refineOffline)
	if err != nil {
		return err
	}

	var aspect rules.Aspect
	aspect, err = adv.Registry().Resolve(refineAspect)
	if err != nil {
		return err
	}

	var record metrics.Record
	var cov metrics.Coverage
	record, cov, err = loadRecord(ctx, adv, args[0], aspect)
	if err != nil {
		return err
	}

	prompt := refinePrompt
	if prompt == "" {
		prompt = record.Prompt
	}
	if prompt == "" {
		err = errors.New("a prompt is required (--prompt, or \"prompt\" in the metrics file)")
		return err
	}

	category := refineCategory
	if category == "" {
		category = record.Category
	}

	var refinement advisor.Refinement
	refinement, err = adv.Refine(ctx, prompt, record.Metrics, aspect, category)
	if err != nil {
		return err
	}

	rep := report.New(refinement.Evaluation)
	rep.Design = designName(record)
	rep.Source = record.Source
	rep.Prompt = prompt
	rep.Refined = &refinement.Refined
	rep.Unknown = cov.Unknown

	if refineSave {
		var st *store.Store
		st, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		err = saveIteration(ctx, st, refineProject, &rep, record)
		if err != nil {
			return err
		}
	}

	err = printRefinement(rep, refinement)

	return err
}

func printRefinement(rep report.Report, refinement advisor.Refinement) (err error) {
	switch refineFormat {
	case formatJSON:
		var data []byte
		data, err = json.MarshalIndent(refinement, "", "  ")
		if err != nil {
			err = errors.Wrap(err, "failed to marshal refinement")
			return err
		}
		fmt.Println(string(data))

	case formatMarkdown:
		fmt.Println(rep.Markdown())

	default:
		err = report.WriteEvaluation(os.Stdout, rep.Title(), rep.Evaluation, report.NewPalette(!color.NoColor))
		if err != nil {
			return err
		}
		fmt.Printf("\nRefined prompt (%s):\n%s\n", refinement.Refined.Strategy, refinement.Refined.Text)
		if refinement.Refined.Reason != "" && getVerbose() {
			fmt.Fprintf(os.Stderr, "Fallback reason: %s\n", refinement.Refined.Reason)
		}
		if rep.Project != "" {
			fmt.Printf("Saved as %s iteration %d\n", rep.Project, rep.Iteration)
		}
	}

	return err
}
