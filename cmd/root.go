package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ftasim/ftasim/sim"
)

// rootOptions holds the flags every subcommand inherits.
type rootOptions struct {
	logLevel   string // Log verbosity level
	seed       int64  // Overrides the section seed when set
	configPath string // Optional YAML experiment file
}

// rootCmd is the base command for the CLI
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "ftasim",
		Short:        "Fault model experiments and fault-tolerance simulators",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", opts.logLevel)
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	root.PersistentFlags().Int64Var(&opts.seed, "seed", sim.DefaultSeed, "Seed for every random stream (overrides the config file)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML experiment config")

	root.AddCommand(
		newFaultAnalysisCmd(opts),
		newFaultAnalysisLSTMCmd(opts),
		newFaultPredictionCmd(opts),
		newFaultPredictionAdvancedCmd(opts),
		newInjectCmd(opts),
		newECCCmd(opts),
		newTMRCmd(opts),
	)
	return root
}

// load returns the defaults overlaid with --config. The returned seed is
// the --seed value and ok reports whether it was given explicitly; callers
// must not overwrite a config-file seed otherwise.
func (o *rootOptions) load(cmd *cobra.Command) (cfg *sim.ExperimentConfig, seed int64, ok bool, err error) {
	cfg, err = sim.LoadExperimentConfig(o.configPath)
	if err != nil {
		return nil, 0, false, err
	}
	if o.configPath != "" {
		logrus.Infof("loaded experiment config from %s", o.configPath)
	}
	return cfg, o.seed, cmd.Flags().Changed("seed"), nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
