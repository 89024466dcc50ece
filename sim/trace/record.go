// Package trace records per-trial outcomes of the fault-tolerance
// simulators. This package has no dependencies on sim/; it stores pure
// data types.
package trace

// TrialRecord captures one simulated transmission or vote.
type TrialRecord struct {
	Trial       int
	Input       string // word under test
	Transmitted string // encoded word or voted module outputs
	Received    string // transmitted word after faults
	Output      string // decoded or voted result
	Corrupted   int    // bits that differ between Transmitted and Received
	Success     bool   // Output equals Input
	Reason      string // decoder error or strategy note; empty when none
}

// ModuleRecord captures one redundant module's output within a TMR trial.
type ModuleRecord struct {
	Trial       int
	Module      int
	Output      string
	Matched     bool    // output equals the input word
	Reliability float64 // reliability after this trial's update
}
