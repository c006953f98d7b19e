package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/codefang/pkg/version"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	version.InitBinaryVersion()

	root := &cobra.Command{
		Use:           "omen",
		Short:         "Omen computes technical-debt and complexity signals over a source repository",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .omen.yaml in the working directory)")
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newMutateCmd())

	return root
}

// Execute runs the omen CLI, returning the first error any subcommand produces.
func Execute() error {
	return newRootCmd().Execute()
}

// initConfig loads .omen.yaml (or the file named by --config) through viper.
// A missing config file is not an error: every analyzer's DefaultConfig
// already covers the no-config case.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".omen")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("OMEN")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
