package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nikogura/dfx-scorer/pkg/advisor"
	"github.com/nikogura/dfx-scorer/pkg/config"
	"github.com/nikogura/dfx-scorer/pkg/metrics"
	"github.com/nikogura/dfx-scorer/pkg/renderer"
	"github.com/nikogura/dfx-scorer/pkg/report"
	"github.com/nikogura/dfx-scorer/pkg/rules"
	"github.com/nikogura/dfx-scorer/pkg/store"
)

// maxConcurrentLoads bounds parallel metric fetches.
const maxConcurrentLoads = 4

//nolint:gochecknoglobals // Cobra boilerplate
var (
	evalAspect   string
	evalCategory string
	evalProject  string
	evalSave     bool
	evalFormat   string
	evalWrite    bool
	evalPDF      bool
)

//nolint:gochecknoglobals // Cobra boilerplate
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <metrics-file-or-url>...",
	Short: "Score analyzed designs against a DfX aspect",
	Long: `Scores one or more metrics records produced by the design analyzer against
the rules of one DfX aspect, explains weak rules and estimates the achievable
improvement.

Inputs are JSON or YAML files, or http(s) URLs, and are loaded concurrently.

Examples:
  # Score a design for assembly
  dfx-scorer evaluate drone.json --aspect DFA

  # Score several iterations for sustainability and record them in a project
  dfx-scorer evaluate v1.yaml v2.yaml --aspect DFSust --project kettle --save

  # Write JSON, Markdown and PDF reports to the output directory
  dfx-scorer evaluate drone.json --write --pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVarP(&evalAspect, "aspect", "a", string(rules.DFA), "DfX aspect (DFA, DFM, DFS, DFSust or a custom aspect from the rules file)")
	evaluateCmd.Flags().StringVar(&evalCategory, "category", "", "Product category (overrides the category in the metrics file)")
	evaluateCmd.Flags().StringVarP(&evalProject, "project", "p", "", "Project name for --save")
	evaluateCmd.Flags().BoolVar(&evalSave, "save", false, "Record the evaluation as a new project iteration")
	evaluateCmd.Flags().StringVarP(&evalFormat, "format", "f", formatText, "Output format: text, json or markdown")
	evaluateCmd.Flags().BoolVar(&evalWrite, "write", false, "Write JSON and Markdown reports to the output directory")
	evaluateCmd.Flags().BoolVar(&evalPDF, "pdf", false, "Also render a PDF report with pandoc (implies --write)")
}

func runEvaluate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = checkFormat(evalFormat)
	if err != nil {
		return err
	}

	if evalSave && evalProject == "" {
		err = errors.New("--save requires --project")
		return err
	}

	var cfg config.Config
	var adv *advisor.Advisor
	cfg, adv, err = setup(ctx, true)
	if err != nil {
		return err
	}

	var aspect rules.Aspect
	aspect, err = adv.Registry().Resolve(evalAspect)
	if err != nil {
		return err
	}

	var reports []report.Report
	var records []metrics.Record
	reports, records, err = evaluateAll(ctx, adv, args, aspect)
	if err != nil {
		return err
	}

	if evalSave {
		err = saveReports(ctx, cfg, reports, records)
		if err != nil {
			return err
		}
	}

	if evalWrite || evalPDF {
		err = writeReports(ctx, cfg, reports)
		if err != nil {
			return err
		}
	}

	err = printReports(reports, evalFormat)

	return err
}

func evaluateAll(ctx context.Context, adv *advisor.Advisor, inputs []string, aspect rules.Aspect) (reports []report.Report, records []metrics.Record, err error) {
	reports = make([]report.Report, len(inputs))
	records = make([]metrics.Record, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	for i, input := range inputs {
		g.Go(func() (loadErr error) {
			record, cov, loadErr := loadRecord(gctx, adv, input, aspect)
			if loadErr != nil {
				return loadErr
			}

			category := evalCategory
			if category == "" {
				category = record.Category
			}

			eval, loadErr := adv.Evaluate(record.Metrics, aspect, category)
			if loadErr != nil {
				loadErr = errors.Wrapf(loadErr, "failed to evaluate %s", input)
				return loadErr
			}

			rep := report.New(eval)
			rep.Design = designName(record)
			rep.Source = record.Source
			rep.Prompt = record.Prompt
			rep.Unknown = cov.Unknown

			reports[i] = rep
			records[i] = record
			return loadErr
		})
	}

	err = g.Wait()

	return reports, records, err
}

func saveReports(ctx context.Context, cfg config.Config, reports []report.Report, records []metrics.Record) (err error) {
	var st *store.Store
	st, err = openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	for i := range reports {
		err = saveIteration(ctx, st, evalProject, &reports[i], records[i])
		if err != nil {
			return err
		}
	}

	return err
}

func reportBase(rep report.Report) (base string) {
	base = report.Slug(rep.Design)
	if rep.Project != "" {
		base = fmt.Sprintf("%s-%s-%d", report.Slug(rep.Project), base, rep.Iteration)
	}
	base += "-" + string(rep.Evaluation.Aspect)
	return base
}

func writeReports(ctx context.Context, cfg config.Config, reports []report.Report) (err error) {
	pandoc := renderer.Pandoc{
		Binary:    cfg.Pandoc.Binary,
		Template:  cfg.Pandoc.Template,
		PDFEngine: cfg.Pandoc.PDFEngine,
	}

	for _, rep := range reports {
		base := reportBase(rep)

		var jsonPath, mdPath string
		jsonPath, mdPath, err = rep.Write(cfg.OutputDir, base)
		if err != nil {
			return err
		}
		getLogger().Info("wrote report", zap.String("json", jsonPath), zap.String("markdown", mdPath))

		if evalPDF {
			pdfPath := filepath.Join(cfg.OutputDir, base+".pdf")
			err = pandoc.RenderPDF(ctx, mdPath, pdfPath)
			if err != nil {
				err = errors.Wrapf(err, "failed to render %s", pdfPath)
				return err
			}
			fmt.Fprintf(os.Stderr, "PDF written to %s\n", pdfPath)
		}
	}

	return err
}

func printReports(reports []report.Report, format string) (err error) {
	switch format {
	case formatJSON:
		var data []byte
		if len(reports) == 1 {
			data, err = reports[0].JSON()
		} else {
			data, err = json.MarshalIndent(reports, "", "  ")
		}
		if err != nil {
			err = errors.Wrap(err, "failed to marshal reports")
			return err
		}
		fmt.Println(string(data))

	case formatMarkdown:
		for _, rep := range reports {
			fmt.Println(rep.Markdown())
		}

	default:
		palette := report.NewPalette(!color.NoColor)
		for i, rep := range reports {
			if i > 0 {
				fmt.Println()
			}
			err = report.WriteEvaluation(os.Stdout, rep.Title(), rep.Evaluation, palette)
			if err != nil {
				return err
			}
			if len(rep.Unknown) > 0 {
				fmt.Fprintf(os.Stderr, "Ignored metrics: %v\n", rep.Unknown)
			}
			if rep.Project != "" {
				fmt.Printf("Saved as %s iteration %d\n", rep.Project, rep.Iteration)
			}
		}
	}

	return err
}
