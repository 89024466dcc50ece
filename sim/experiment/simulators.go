package experiment

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ftasim/ftasim/sim"
	"github.com/ftasim/ftasim/sim/ecc"
	"github.com/ftasim/ftasim/sim/fault"
	"github.com/ftasim/ftasim/sim/tmr"
	"github.com/ftasim/ftasim/sim/trace"
)

// InjectionResult is one injected word.
type InjectionResult struct {
	Original  sim.Word
	Faulty    sim.Word
	Positions []int
}

// Inject applies a single fault model to the configured word.
func Inject(cfg sim.InjectionConfig, w io.Writer) (*InjectionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	word, err := sim.ParseWord(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("inject: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	in, err := fault.NewInjector(fault.Type(cfg.Type), cfg.Probability, cfg.BurstLength, cfg.Period, rng.ForSubsystem(sim.SubsystemFault))
	if err != nil {
		return nil, fmt.Errorf("inject: %w", err)
	}
	faulty, positions := in.Inject(word)
	logrus.Infof("inject: %s fault with probability %.3f struck %d of %d bits", cfg.Type, cfg.Probability, len(positions), len(word))

	_, err = fmt.Fprintf(w, "Original: %s\nFaulty:   %s\nFault positions: %v\nBits changed: %d\n",
		word, faulty, positions, faulty.Distance(word))
	if err != nil {
		return nil, err
	}
	return &InjectionResult{Original: word, Faulty: faulty, Positions: positions}, nil
}

// ECC runs encode, channel and decode trials with the configured codec.
func ECC(cfg sim.ECCConfig, level trace.TraceLevel, w io.Writer) (*trace.TraceSummary, *trace.SimulationTrace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	word, err := sim.ParseWord(cfg.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("ecc: %w", err)
	}
	codec, err := ecc.New(cfg.Codec, ecc.Options{DataShards: cfg.DataShards, ParityShards: cfg.ParityShards, DisableSIMD: cfg.DisableSIMD})
	if err != nil {
		return nil, nil, fmt.Errorf("ecc: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	st := trace.NewSimulationTrace(level)
	ch := ecc.Channel{ErrorProbability: cfg.ErrorProbability, BurstLength: cfg.BurstLength}
	logrus.Infof("ecc: %s, %d trials, burst %d with probability %.3f", codec.Name(), cfg.Trials, cfg.BurstLength, cfg.ErrorProbability)
	if err := ecc.Simulate(codec, word, ch, cfg.Trials, rng.ForSubsystem(sim.SubsystemChannel), st); err != nil {
		return nil, nil, fmt.Errorf("ecc: %w", err)
	}

	for _, rec := range st.Trials {
		if err := writeTrial(w, rec); err != nil {
			return nil, nil, err
		}
	}
	summary := trace.Summarize(st)
	if err := writeSummary(w, codec.Name(), summary); err != nil {
		return nil, nil, err
	}
	return summary, st, nil
}

// TMRResult is a finished redundancy run.
type TMRResult struct {
	Summary       *trace.TraceSummary
	Trace         *trace.SimulationTrace
	Reliabilities []float64 // after the last trial
}

// TMR runs voting trials over redundant faulty modules.
func TMR(cfg sim.TMRConfig, level trace.TraceLevel, w io.Writer) (*TMRResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !tmr.IsValidStrategy(cfg.Strategy) {
		return nil, fmt.Errorf("tmr: unknown strategy %q; valid strategies: %v", cfg.Strategy, tmr.ValidStrategyNames())
	}
	word, err := sim.ParseWord(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("tmr: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	sys, err := tmr.NewSystem(cfg.Reliabilities, cfg.FaultProbability, tmr.NewVoter(cfg.Strategy, cfg.Threshold), rng.ForSubsystem(sim.SubsystemTMR))
	if err != nil {
		return nil, err
	}
	st := trace.NewSimulationTrace(level)
	logrus.Infof("tmr: %d modules, %s voting, %d trials", len(cfg.Reliabilities), cfg.Strategy, cfg.Trials)
	if err := sys.Run(word, cfg.Trials, st); err != nil {
		return nil, err
	}

	for _, rec := range st.Trials {
		if err := writeTrial(w, rec); err != nil {
			return nil, err
		}
	}
	summary := trace.Summarize(st)
	if err := writeSummary(w, "tmr/"+cfg.Strategy, summary); err != nil {
		return nil, err
	}
	rels := make([]string, len(sys.Reliabilities))
	for i, r := range sys.Reliabilities {
		rels[i] = fmt.Sprintf("%.2f", r)
	}
	if _, err := fmt.Fprintf(w, "Module reliabilities: %s\n", strings.Join(rels, " ")); err != nil {
		return nil, err
	}
	return &TMRResult{Summary: summary, Trace: st, Reliabilities: sys.Reliabilities}, nil
}

func writeTrial(w io.Writer, rec trace.TrialRecord) error {
	status := "ok"
	if !rec.Success {
		status = "FAIL"
	}
	line := fmt.Sprintf("trial %d: sent %s received %s output %s corrupted %d %s",
		rec.Trial, rec.Transmitted, rec.Received, rec.Output, rec.Corrupted, status)
	if rec.Reason != "" {
		line += " (" + rec.Reason + ")"
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func writeSummary(w io.Writer, name string, s *trace.TraceSummary) error {
	_, err := fmt.Fprintf(w, "=== %s ===\nTrials: %d\nSuccesses: %d\nSuccess rate: %.4f\nMean corrupted bits: %.2f\nMax corrupted bits: %d\n",
		name, s.TotalTrials, s.Successes, s.SuccessRate, s.MeanCorrupted, s.MaxCorrupted)
	return err
}
