package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nikogura/dfx-scorer/pkg/config"
	"github.com/nikogura/dfx-scorer/pkg/report"
	"github.com/nikogura/dfx-scorer/pkg/store"
)

//nolint:gochecknoglobals // Cobra boilerplate
var historyFormat string

//nolint:gochecknoglobals // Cobra boilerplate
var historyCmd = &cobra.Command{
	Use:   "history [project]",
	Short: "Show stored iterations of a project",
	Long: `Shows the saved iterations of a project with the score change between
consecutive iterations. Without a project, lists the known projects.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", formatText, "Output format: text or json")
}

func runHistory(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg config.Config
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return err
	}

	var st *store.Store
	st, err = openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		var projects []string
		projects, err = st.Projects(ctx)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet (use --save --project with evaluate or refine)")
			return err
		}
		for _, project := range projects {
			fmt.Println(project)
		}
		return err
	}

	var iterations []store.Iteration
	iterations, err = st.List(ctx, args[0])
	if err != nil {
		return err
	}
	if len(iterations) == 0 {
		err = errors.Wrapf(store.ErrNotFound, "project %s", args[0])
		return err
	}

	if historyFormat == formatJSON {
		var data []byte
		data, err = json.MarshalIndent(iterations, "", "  ")
		if err != nil {
			err = errors.Wrap(err, "failed to marshal iterations")
			return err
		}
		fmt.Println(string(data))
		return err
	}

	err = report.WriteHistory(os.Stdout, iterations, report.NewPalette(!color.NoColor))
	if err != nil {
		return err
	}

	latest := iterations[len(iterations)-1]
	if latest.RefinedPrompt != "" {
		fmt.Printf("\nNext prompt:\n%s\n", latest.RefinedPrompt)
	}

	return err
}
