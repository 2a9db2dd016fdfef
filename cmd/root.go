package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var logger = zap.NewNop()

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "dfx-scorer",
	Short: "Score product designs against Design for Excellence rules",
	Long: `dfx-scorer scores analyzed product designs against Design for Excellence
(DfX) rule sets: assembly (DFA), manufacturing (DFM), serviceability (DFS)
and sustainability (DFSust).

It explains weak scores with prioritized recommendations, estimates the
achievable improvement, and rewrites the design-generation prompt so the
next iteration addresses them. Prompt rewriting uses Claude or Gemini when
configured and falls back to a deterministic rewrite otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if getVerbose() {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var built *zap.Logger
		built, err = config.Build()
		if err != nil {
			err = errors.Wrap(err, "failed to initialize logger")
			return err
		}
		logger = built
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.dfx-scorer/config.yaml)")
}

// getVerbose returns the verbose flag value.
func getVerbose() (result bool) {
	result = verbose
	return result
}

// getConfigFile returns the config file path.
func getConfigFile() (result string) {
	result = configFile
	return result
}

// getLogger returns the command logger.
func getLogger() (result *zap.Logger) {
	result = logger
	return result
}
