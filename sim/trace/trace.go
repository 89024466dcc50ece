package trace

// TraceLevel controls the verbosity of trial tracing.
type TraceLevel string

const (
	// TraceLevelNone keeps only the running counters used by Summarize.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTrials additionally keeps every trial and module record.
	TraceLevelTrials TraceLevel = "trials"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelTrials: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SimulationTrace collects trial outcomes for one simulator run.
type SimulationTrace struct {
	Level   TraceLevel
	Trials  []TrialRecord
	Modules []ModuleRecord

	total      int
	successes  int
	corrupted  int
	maxCorrupt int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(level TraceLevel) *SimulationTrace {
	return &SimulationTrace{
		Level:   level,
		Trials:  make([]TrialRecord, 0),
		Modules: make([]ModuleRecord, 0),
	}
}

// RecordTrial counts a trial and, at TraceLevelTrials, appends its record.
func (st *SimulationTrace) RecordTrial(record TrialRecord) {
	st.total++
	if record.Success {
		st.successes++
	}
	st.corrupted += record.Corrupted
	if record.Corrupted > st.maxCorrupt {
		st.maxCorrupt = record.Corrupted
	}
	if st.Level == TraceLevelTrials {
		st.Trials = append(st.Trials, record)
	}
}

// RecordModule appends a module record at TraceLevelTrials.
func (st *SimulationTrace) RecordModule(record ModuleRecord) {
	if st.Level == TraceLevelTrials {
		st.Modules = append(st.Modules, record)
	}
}
