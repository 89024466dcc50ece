package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTrials   int
	Successes     int
	Failures      int
	SuccessRate   float64 // in [0, 1]
	MeanCorrupted float64 // mean corrupted bits per trial
	MaxCorrupted  int
	// ModuleMatchRate maps module index to the fraction of its outputs that
	// matched the input. Empty unless module records were kept.
	ModuleMatchRate map[int]float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ModuleMatchRate: make(map[int]float64),
	}
	if st == nil {
		return summary
	}

	summary.TotalTrials = st.total
	summary.Successes = st.successes
	summary.Failures = st.total - st.successes
	summary.MaxCorrupted = st.maxCorrupt
	if st.total > 0 {
		summary.SuccessRate = float64(st.successes) / float64(st.total)
		summary.MeanCorrupted = float64(st.corrupted) / float64(st.total)
	}

	if len(st.Modules) > 0 {
		counts := make(map[int]int)
		for _, m := range st.Modules {
			counts[m.Module]++
			if m.Matched {
				summary.ModuleMatchRate[m.Module]++
			}
		}
		for id, n := range counts {
			summary.ModuleMatchRate[id] /= float64(n)
		}
	}

	return summary
}
