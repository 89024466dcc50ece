package trace

import (
	"testing"
)

func TestSimulationTrace_RecordTrial_KeepsRecordAtTrialsLevel(t *testing.T) {
	// GIVEN a trace configured for trials
	st := NewSimulationTrace(TraceLevelTrials)

	// WHEN a trial is recorded
	st.RecordTrial(TrialRecord{
		Trial:       1,
		Input:       "1011",
		Transmitted: "0110011",
		Received:    "0110111",
		Output:      "1011",
		Corrupted:   1,
		Success:     true,
	})

	// THEN the trace contains one record with correct data
	if len(st.Trials) != 1 {
		t.Fatalf("expected 1 trial, got %d", len(st.Trials))
	}
	if st.Trials[0].Received != "0110111" {
		t.Errorf("expected received 0110111, got %s", st.Trials[0].Received)
	}
	if !st.Trials[0].Success {
		t.Error("expected success=true")
	}
}

func TestSimulationTrace_NoneLevel_CountsWithoutRecords(t *testing.T) {
	// GIVEN a trace at level none
	st := NewSimulationTrace(TraceLevelNone)

	// WHEN trials and modules are recorded
	st.RecordTrial(TrialRecord{Trial: 1, Success: true})
	st.RecordTrial(TrialRecord{Trial: 2, Corrupted: 2})
	st.RecordModule(ModuleRecord{Trial: 1, Module: 0, Matched: true})

	// THEN no records are kept but the summary still counts
	if len(st.Trials) != 0 || len(st.Modules) != 0 {
		t.Errorf("expected no records, got %d trials and %d modules", len(st.Trials), len(st.Modules))
	}
	if s := Summarize(st); s.TotalTrials != 2 || s.Successes != 1 {
		t.Errorf("expected 2 trials with 1 success, got %d/%d", s.TotalTrials, s.Successes)
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	st := NewSimulationTrace(TraceLevelTrials)
	for i := 1; i <= 3; i++ {
		st.RecordTrial(TrialRecord{Trial: i})
	}
	for i, r := range st.Trials {
		if r.Trial != i+1 {
			t.Errorf("record %d: expected trial %d, got %d", i, i+1, r.Trial)
		}
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"trials", true},
		{"", true},
		{"decisions", false},
	}
	for _, tc := range tests {
		if got := IsValidTraceLevel(tc.level); got != tc.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}
