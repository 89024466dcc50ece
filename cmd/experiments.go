package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ftasim/ftasim/sim/experiment"
)

func newFaultAnalysisCmd(opts *rootOptions) *cobra.Command {
	var samples, epochs, batchSize int
	cmd := &cobra.Command{
		Use:   "fault-analysis",
		Short: "Train the feed-forward fault analysis classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.FaultAnalysis
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("samples") {
				cfg.Data.Samples = samples
			}
			if cmd.Flags().Changed("epochs") {
				cfg.Training.Epochs = epochs
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Training.BatchSize = batchSize
			}
			_, err = experiment.FaultAnalysis(cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 1000, "Number of synthetic samples")
	cmd.Flags().IntVar(&epochs, "epochs", 10, "Training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "Minibatch size")
	return cmd
}

func newFaultAnalysisLSTMCmd(opts *rootOptions) *cobra.Command {
	var samples, epochs, batchSize, timesteps int
	var plotPath string
	cmd := &cobra.Command{
		Use:   "fault-analysis-lstm",
		Short: "Train the LSTM fault analysis classifier and plot its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.FaultAnalysisLSTM
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("samples") {
				cfg.Data.Samples = samples
			}
			if cmd.Flags().Changed("epochs") {
				cfg.Training.Epochs = epochs
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Training.BatchSize = batchSize
			}
			if cmd.Flags().Changed("timesteps") {
				cfg.Timesteps = timesteps
			}
			if cmd.Flags().Changed("plot") {
				cfg.PlotPath = plotPath
			}
			_, err = experiment.FaultAnalysisLSTM(cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 1000, "Number of synthetic samples")
	cmd.Flags().IntVar(&epochs, "epochs", 10, "Training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "Minibatch size")
	cmd.Flags().IntVar(&timesteps, "timesteps", 1, "Timesteps each row is split into")
	cmd.Flags().StringVar(&plotPath, "plot", "fault_analysis_lstm_history.png", "PNG path for the training history (empty disables)")
	return cmd
}

func newFaultPredictionCmd(opts *rootOptions) *cobra.Command {
	var samples, estimators, workers int
	cmd := &cobra.Command{
		Use:   "fault-prediction",
		Short: "Fit a random forest fault predictor and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.FaultPrediction
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("samples") {
				cfg.Data.Samples = samples
			}
			if cmd.Flags().Changed("estimators") {
				cfg.Forest.Estimators = estimators
			}
			if cmd.Flags().Changed("workers") {
				cfg.Forest.Workers = workers
			}
			_, err = experiment.FaultPrediction(cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 1000, "Number of synthetic samples")
	cmd.Flags().IntVar(&estimators, "estimators", 100, "Trees in the forest")
	cmd.Flags().IntVar(&workers, "workers", 0, "Trees fitted concurrently (0 = GOMAXPROCS)")
	return cmd
}

func newFaultPredictionAdvancedCmd(opts *rootOptions) *cobra.Command {
	var samples, estimators, workers int
	var missingRate float64
	var strategy string
	cmd := &cobra.Command{
		Use:   "fault-prediction-advanced",
		Short: "Impute, standardize and fit a random forest fault predictor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.FaultPredictionAdvanced
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("samples") {
				cfg.Data.Samples = samples
			}
			if cmd.Flags().Changed("estimators") {
				cfg.Forest.Estimators = estimators
			}
			if cmd.Flags().Changed("workers") {
				cfg.Forest.Workers = workers
			}
			if cmd.Flags().Changed("missing-rate") {
				cfg.Data.MissingRate = missingRate
			}
			if cmd.Flags().Changed("impute") {
				cfg.ImputeStrategy = strategy
			}
			_, err = experiment.FaultPredictionAdvanced(cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 1000, "Number of synthetic samples")
	cmd.Flags().IntVar(&estimators, "estimators", 100, "Trees in the forest")
	cmd.Flags().IntVar(&workers, "workers", 0, "Trees fitted concurrently (0 = GOMAXPROCS)")
	cmd.Flags().Float64Var(&missingRate, "missing-rate", 0, "Fraction of feature entries replaced by missing values")
	cmd.Flags().StringVar(&strategy, "impute", "mean", "Imputation strategy (mean, median)")
	return cmd
}
