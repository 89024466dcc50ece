package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftasim/ftasim/sim/ecc"
	"github.com/ftasim/ftasim/sim/experiment"
	"github.com/ftasim/ftasim/sim/fault"
	"github.com/ftasim/ftasim/sim/tmr"
	"github.com/ftasim/ftasim/sim/trace"
)

func newInjectCmd(opts *rootOptions) *cobra.Command {
	var input, faultType string
	var probability float64
	var burstLength, period int
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Inject a fault into a binary word",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.Injection
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("input") {
				cfg.Input = input
			}
			if cmd.Flags().Changed("type") {
				cfg.Type = faultType
			}
			if cmd.Flags().Changed("probability") {
				cfg.Probability = probability
			}
			if cmd.Flags().Changed("burst-length") {
				cfg.BurstLength = burstLength
			}
			if cmd.Flags().Changed("period") {
				cfg.Period = period
			}
			_, err = experiment.Inject(cfg, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "1011001110001111", "Binary word")
	cmd.Flags().StringVar(&faultType, "type", string(fault.BitFlip), "Fault type ("+strings.Join(fault.ValidTypeNames(), ", ")+")")
	cmd.Flags().Float64Var(&probability, "probability", 0.1, "Fault probability")
	cmd.Flags().IntVar(&burstLength, "burst-length", 3, "Burst window length")
	cmd.Flags().IntVar(&period, "period", 5, "Intermittent fault period")
	return cmd
}

func newECCCmd(opts *rootOptions) *cobra.Command {
	var input, codec, traceLevel string
	var errorProbability float64
	var burstLength, trials, dataShards, parityShards int
	var disableSIMD bool
	cmd := &cobra.Command{
		Use:   "ecc",
		Short: "Encode a word, pass it through a burst-error channel and decode it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !trace.IsValidTraceLevel(traceLevel) {
				return fmt.Errorf("unknown trace level %q", traceLevel)
			}
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.ECC
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("input") {
				cfg.Input = input
			}
			if cmd.Flags().Changed("codec") {
				cfg.Codec = codec
			}
			if cmd.Flags().Changed("error-probability") {
				cfg.ErrorProbability = errorProbability
			}
			if cmd.Flags().Changed("burst-length") {
				cfg.BurstLength = burstLength
			}
			if cmd.Flags().Changed("trials") {
				cfg.Trials = trials
			}
			if cmd.Flags().Changed("data-shards") {
				cfg.DataShards = dataShards
			}
			if cmd.Flags().Changed("parity-shards") {
				cfg.ParityShards = parityShards
			}
			if cmd.Flags().Changed("disable-simd") {
				cfg.DisableSIMD = disableSIMD
			}
			_, _, err = experiment.ECC(cfg, trace.TraceLevel(traceLevel), cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "10110011", "Binary word")
	cmd.Flags().StringVar(&codec, "codec", ecc.NameHamming, "Codec ("+strings.Join(ecc.ValidCodecNames(), ", ")+")")
	cmd.Flags().Float64Var(&errorProbability, "error-probability", 0.1, "Chance a trial suffers a burst error")
	cmd.Flags().IntVar(&burstLength, "burst-length", 2, "Bits flipped per burst")
	cmd.Flags().IntVar(&trials, "trials", 1, "Number of trials")
	cmd.Flags().IntVar(&dataShards, "data-shards", 4, "Reed-Solomon data shards")
	cmd.Flags().IntVar(&parityShards, "parity-shards", 2, "Reed-Solomon parity shards")
	cmd.Flags().BoolVar(&disableSIMD, "disable-simd", false, "Use the pure Go Reed-Solomon encoder")
	cmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelTrials), "Trace verbosity (none, trials)")
	return cmd
}

func newTMRCmd(opts *rootOptions) *cobra.Command {
	var input, strategy, traceLevel string
	var reliabilities []float64
	var faultProbability float64
	var threshold, trials int
	cmd := &cobra.Command{
		Use:   "tmr",
		Short: "Vote over redundant faulty modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !trace.IsValidTraceLevel(traceLevel) {
				return fmt.Errorf("unknown trace level %q", traceLevel)
			}
			all, seed, seedSet, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg := all.TMR
			if seedSet {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("input") {
				cfg.Input = input
			}
			if cmd.Flags().Changed("strategy") {
				cfg.Strategy = strategy
			}
			if cmd.Flags().Changed("reliabilities") {
				cfg.Reliabilities = reliabilities
			}
			if cmd.Flags().Changed("fault-probability") {
				cfg.FaultProbability = faultProbability
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Threshold = threshold
			}
			if cmd.Flags().Changed("trials") {
				cfg.Trials = trials
			}
			_, err = experiment.TMR(cfg, trace.TraceLevel(traceLevel), cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "10110011", "Binary word")
	cmd.Flags().StringVar(&strategy, "strategy", tmr.StrategyMajority, "Voting strategy ("+strings.Join(tmr.ValidStrategyNames(), ", ")+")")
	cmd.Flags().Float64SliceVar(&reliabilities, "reliabilities", []float64{0.95, 0.9, 0.85}, "Comma-separated module reliabilities")
	cmd.Flags().Float64Var(&faultProbability, "fault-probability", 0.1, "Per-bit fault probability scale")
	cmd.Flags().IntVar(&threshold, "threshold", 2, "Votes needed for a one (threshold strategy)")
	cmd.Flags().IntVar(&trials, "trials", 1, "Number of trials")
	cmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelTrials), "Trace verbosity (none, trials)")
	return cmd
}
