// Package experiment runs the fault-model experiments end to end: generate
// seeded synthetic data, train a classifier and write its report.
//
// Each experiment is self-contained. They share helper packages but no
// state, and none calls another.
package experiment

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ftasim/ftasim/sim"
	"github.com/ftasim/ftasim/sim/dataset"
	"github.com/ftasim/ftasim/sim/forest"
	"github.com/ftasim/ftasim/sim/metrics"
	"github.com/ftasim/ftasim/sim/nn"
	"github.com/ftasim/ftasim/sim/preprocess"
)

// TrainedMessage is printed when FaultAnalysis finishes.
const TrainedMessage = "AI model for fault analysis has been trained."

// errNeedsImputation rejects missing values in experiments that train on raw
// features; only FaultPredictionAdvanced imputes them.
var errNeedsImputation = errors.New("missing values need imputation; use fault-prediction-advanced")

// FaultAnalysisResult is what FaultAnalysis trained.
type FaultAnalysisResult struct {
	Model   *nn.Sequential
	History *nn.History
}

// FaultAnalysis trains a feed-forward binary classifier on uniform random
// features with the tail of the data held out for validation.
func FaultAnalysis(cfg sim.FaultAnalysisConfig, w io.Writer) (*FaultAnalysisResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Data.MissingRate > 0 {
		return nil, fmt.Errorf("fault-analysis: %w", errNeedsImputation)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	ds, err := generate(rng, cfg.Data)
	if err != nil {
		return nil, err
	}
	train, val, err := dataset.HoldoutSplit(ds, cfg.ValidationSplit)
	if err != nil {
		return nil, fmt.Errorf("fault-analysis: %w", err)
	}
	if val == nil {
		return nil, fmt.Errorf("fault-analysis: validation_split %v holds out no rows of %d", cfg.ValidationSplit, ds.Len())
	}
	x, err := nn.FromRows(train.X)
	if err != nil {
		return nil, err
	}
	xVal, err := nn.FromRows(val.X)
	if err != nil {
		return nil, err
	}

	layers := make([]nn.Layer, 0, len(cfg.Hidden)+1)
	for _, units := range cfg.Hidden {
		layers = append(layers, nn.NewDense(units, nn.ActivationReLU))
	}
	layers = append(layers, nn.NewDense(1, nn.ActivationSigmoid))
	model := nn.NewSequential(layers...)
	if err := model.Build(cfg.Data.Features, rng.ForSubsystem(sim.SubsystemInit)); err != nil {
		return nil, err
	}
	model.Compile(nn.NewAdam(cfg.Training.LearningRate), nn.BinaryCrossentropy{})
	logrus.Infof("fault-analysis: %d params, %d samples, %d epochs", model.CountParams(), ds.Len(), cfg.Training.Epochs)

	hist, err := model.Fit(x, nn.Labels(train.Y), nn.FitConfig{
		Epochs:      cfg.Training.Epochs,
		BatchSize:   cfg.Training.BatchSize,
		ValidationX: xVal,
		ValidationY: nn.Labels(val.Y),
		Shuffle:     rng.ForSubsystem(sim.SubsystemShuffle),
		Progress:    w,
	})
	if err != nil {
		return nil, fmt.Errorf("fault-analysis: %w", err)
	}
	if _, err := fmt.Fprintln(w, TrainedMessage); err != nil {
		return nil, err
	}
	return &FaultAnalysisResult{Model: model, History: hist}, nil
}

// FaultAnalysisLSTMResult is what FaultAnalysisLSTM trained and measured.
type FaultAnalysisLSTMResult struct {
	Model        *nn.Sequential
	History      *nn.History
	TestLoss     float64
	TestAccuracy float64
	PlotPath     string // empty when no plot was written
}

// FaultAnalysisLSTM trains a stacked LSTM classifier on the head of the
// data, validates on the tail every epoch and reports tail accuracy.
func FaultAnalysisLSTM(cfg sim.FaultAnalysisLSTMConfig, w io.Writer) (*FaultAnalysisLSTMResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Data.MissingRate > 0 {
		return nil, fmt.Errorf("fault-analysis-lstm: %w", errNeedsImputation)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	ds, err := generate(rng, cfg.Data)
	if err != nil {
		return nil, err
	}
	train, test, err := dataset.SplitAt(ds, int(cfg.TrainFraction*float64(ds.Len())))
	if err != nil {
		return nil, fmt.Errorf("fault-analysis-lstm: %w", err)
	}
	xTrain, err := nn.NewSequence(train.X, cfg.Timesteps)
	if err != nil {
		return nil, err
	}
	xTest, err := nn.NewSequence(test.X, cfg.Timesteps)
	if err != nil {
		return nil, err
	}
	yTrain, yTest := nn.Labels(train.Y), nn.Labels(test.Y)

	var layers []nn.Layer
	for i, units := range cfg.LSTMUnits {
		layers = append(layers, nn.NewLSTM(units, i < len(cfg.LSTMUnits)-1))
	}
	for _, units := range cfg.DenseUnits {
		layers = append(layers, nn.NewDense(units, nn.ActivationReLU))
	}
	layers = append(layers, nn.NewDense(1, nn.ActivationSigmoid))
	model := nn.NewSequential(layers...)
	if err := model.Build(cfg.Data.Features/cfg.Timesteps, rng.ForSubsystem(sim.SubsystemInit)); err != nil {
		return nil, err
	}
	model.Compile(nn.NewAdam(cfg.Training.LearningRate), nn.BinaryCrossentropy{})
	logrus.Infof("fault-analysis-lstm: %d params, %d train / %d test samples, %d timesteps",
		model.CountParams(), train.Len(), test.Len(), cfg.Timesteps)

	hist, err := model.Fit(xTrain, yTrain, nn.FitConfig{
		Epochs:      cfg.Training.Epochs,
		BatchSize:   cfg.Training.BatchSize,
		ValidationX: xTest,
		ValidationY: yTest,
		Shuffle:     rng.ForSubsystem(sim.SubsystemShuffle),
		Progress:    w,
	})
	if err != nil {
		return nil, fmt.Errorf("fault-analysis-lstm: %w", err)
	}
	loss, acc, err := model.Evaluate(xTest, yTest)
	if err != nil {
		return nil, fmt.Errorf("fault-analysis-lstm: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Test accuracy: %.4f\n", acc); err != nil {
		return nil, err
	}

	res := &FaultAnalysisLSTMResult{Model: model, History: hist, TestLoss: loss, TestAccuracy: acc}
	if cfg.PlotPath != "" {
		if err := nn.PlotHistory(hist, cfg.PlotPath); err != nil {
			return nil, err
		}
		logrus.Infof("fault-analysis-lstm: training history written to %s", cfg.PlotPath)
		res.PlotPath = cfg.PlotPath
	}
	return res, nil
}

// FaultPredictionResult is what a random forest experiment measured.
type FaultPredictionResult struct {
	Forest   *forest.RandomForest
	Accuracy float64
	Report   *metrics.ClassificationReport
}

// FaultPrediction fits a random forest on a shuffled split of uniform
// random features.
func FaultPrediction(cfg sim.FaultPredictionConfig, w io.Writer) (*FaultPredictionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Data.MissingRate > 0 {
		return nil, fmt.Errorf("fault-prediction: %w", errNeedsImputation)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	ds, err := generate(rng, cfg.Data)
	if err != nil {
		return nil, err
	}
	return fitAndReport("fault-prediction", rng, ds, cfg.Forest, cfg.TestSize, w)
}

// FaultPredictionAdvanced imputes missing values and standardizes every
// feature before the same split, forest and report as FaultPrediction.
// Preprocessing is fitted on the full dataset ahead of the split.
func FaultPredictionAdvanced(cfg sim.FaultPredictionAdvancedConfig, w io.Writer) (*FaultPredictionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	ds, err := generate(rng, cfg.Data)
	if err != nil {
		return nil, err
	}
	imputer, err := preprocess.NewSimpleImputer(cfg.ImputeStrategy)
	if err != nil {
		return nil, err
	}
	X, err := preprocess.FitTransform(preprocess.Pipeline{imputer, preprocess.NewStandardScaler()}, ds.X)
	if err != nil {
		return nil, fmt.Errorf("fault-prediction-advanced: preprocessing: %w", err)
	}
	return fitAndReport("fault-prediction-advanced", rng, &dataset.Dataset{X: X, Y: ds.Y}, cfg.Forest, cfg.TestSize, w)
}

func fitAndReport(name string, rng *sim.PartitionedRNG, ds *dataset.Dataset, fc sim.ForestConfig, testSize float64, w io.Writer) (*FaultPredictionResult, error) {
	train, test, err := dataset.TrainTestSplit(rng.ForSubsystem(sim.SubsystemSplit), ds, testSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	rf := forest.NewRandomForest(
		forest.WithNEstimators(fc.Estimators),
		forest.WithForestMaxDepth(fc.MaxDepth),
		forest.WithForestMinSplit(fc.MinSamplesSplit),
		forest.WithForestMinLeaf(fc.MinSamplesLeaf),
		forest.WithForestMaxFeatures(fc.MaxFeatures),
		forest.WithForestCriterion(fc.Criterion),
		forest.WithBootstrap(fc.Bootstrap),
		forest.WithWorkers(fc.Workers),
		forest.WithForestSeed(rng.Seed(sim.SubsystemForest)),
	)
	logrus.Infof("%s: fitting %d trees on %d rows, testing on %d", name, fc.Estimators, train.Len(), test.Len())
	if err := rf.Fit(train.X, train.Y); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	pred, err := rf.Predict(test.X)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	report, err := metrics.NewClassificationReport(test.Y, pred)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	acc := metrics.Accuracy(test.Y, pred)
	if _, err := fmt.Fprintf(w, "Accuracy: %s\n\nClassification Report:\n%s\n", formatFloat(acc), report); err != nil {
		return nil, err
	}
	return &FaultPredictionResult{Forest: rf, Accuracy: acc, Report: report}, nil
}

// generate draws the uniform dataset and, when configured, knocks out
// entries as missing values.
func generate(rng *sim.PartitionedRNG, dc sim.DataConfig) (*dataset.Dataset, error) {
	ds, err := dataset.Uniform(rng.ForSubsystem(sim.SubsystemDataset), dc.Samples, dc.Features)
	if err != nil {
		return nil, err
	}
	if dc.MissingRate > 0 {
		n := dataset.InjectMissing(rng.ForSubsystem(sim.SubsystemMissing), ds, dc.MissingRate)
		logrus.Infof("dataset: %d of %d entries marked missing", n, dc.Samples*dc.Features)
	}
	return ds, nil
}

// formatFloat prints the shortest representation that round-trips, always
// with a decimal point.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
