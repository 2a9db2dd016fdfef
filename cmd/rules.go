package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikogura/dfx-scorer/pkg/report"
	"github.com/nikogura/dfx-scorer/pkg/rules"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	rulesAspect string
	rulesExport bool
)

//nolint:gochecknoglobals // Cobra boilerplate
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules of each DfX aspect",
	Long: `Lists the rules used for scoring: built-in rule sets plus any loaded from the
configured rules file.

Use --export to print the rules as YAML, a starting point for a custom rules file.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVarP(&rulesAspect, "aspect", "a", "", "Only list this aspect")
	rulesCmd.Flags().BoolVar(&rulesExport, "export", false, "Print rules as YAML")
}

func runRules(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	_, adv, err := setup(ctx, true)
	if err != nil {
		return err
	}
	registry := adv.Registry()

	aspects := registry.Aspects()
	if rulesAspect != "" {
		var aspect rules.Aspect
		aspect, err = registry.Resolve(rulesAspect)
		if err != nil {
			return err
		}
		aspects = []rules.Aspect{aspect}
	}

	sets := make([]rules.RuleSet, 0, len(aspects))
	for _, aspect := range aspects {
		var set rules.RuleSet
		set, err = registry.RuleSet(aspect)
		if err != nil {
			return err
		}
		sets = append(sets, set)
	}

	if rulesExport {
		var data []byte
		data, err = rules.Export(sets...)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return err
	}

	err = report.WriteRules(os.Stdout, sets)

	return err
}
