package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikogura/dfx-scorer/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Writes a default configuration file to $HOME/.dfx-scorer/config.yaml
(or the path given with --config). Edit it to add your API key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = config.InitConfig(getConfigFile())
		if err != nil {
			return err
		}
		path := getConfigFile()
		if path == "" {
			path, _ = config.DefaultPath()
		}
		fmt.Printf("Config written to %s\n", path)
		return err
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(initCmd)
}
