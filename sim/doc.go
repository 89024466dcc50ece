// Package sim provides the shared types for the fault model experiments and
// the fault-tolerance simulators.
//
// # Reading Guide
//
// Start with these files:
//   - word.go: Word, the bit vector every simulator operates on
//   - rng.go: PartitionedRNG, one isolated random stream per subsystem
//   - config.go: ExperimentConfig, the YAML-backed parameters of every command
//
// # Architecture
//
// The sim package holds no behavior beyond those types; everything else
// lives in sub-packages:
//   - sim/dataset/: synthetic data, missing values, train/test splits
//   - sim/preprocess/: imputation and standardization
//   - sim/metrics/: accuracy, confusion matrix, classification report
//   - sim/forest/: decision trees and the random forest
//   - sim/nn/: dense and LSTM layers, Adam, binary cross-entropy, history plots
//   - sim/experiment/: the four experiments and the simulator runners
//   - sim/fault/: fault injection models
//   - sim/ecc/: Hamming, Reed-Solomon and convolutional codes
//   - sim/tmr/: redundant modules and voting strategies
//   - sim/trace/: per-trial records and summaries
//
// # Determinism
//
// Every experiment derives all randomness from a single seed through
// PartitionedRNG, so the same seed and configuration print the same output.
// The random forest fits trees concurrently but seeds each tree up front.
package sim
