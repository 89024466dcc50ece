package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSeed is the seed every experiment uses unless told otherwise.
const DefaultSeed = 42

// DataConfig describes a synthetic dataset.
type DataConfig struct {
	Samples     int     `yaml:"samples"`                // rows (must be > 0)
	Features    int     `yaml:"features"`               // columns (must be > 0)
	MissingRate float64 `yaml:"missing_rate,omitempty"` // fraction of entries replaced by NaN, [0,1)
}

// TrainingConfig groups minibatch training parameters.
type TrainingConfig struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
}

// ForestConfig groups random forest hyperparameters.
type ForestConfig struct {
	Estimators      int    `yaml:"estimators"`
	MaxDepth        int    `yaml:"max_depth"`    // 0 = unlimited
	MinSamplesSplit int    `yaml:"min_samples_split"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf"`
	MaxFeatures     int    `yaml:"max_features"` // 0 = sqrt(features)
	Criterion       string `yaml:"criterion"`    // "gini" or "entropy"
	Bootstrap       bool   `yaml:"bootstrap"`
	Workers         int    `yaml:"workers"` // 0 = GOMAXPROCS
}

// FaultAnalysisConfig configures the feed-forward fault analysis model.
type FaultAnalysisConfig struct {
	Seed            int64          `yaml:"seed"`
	Data            DataConfig     `yaml:"data"`
	Training        TrainingConfig `yaml:"training"`
	Hidden          []int          `yaml:"hidden"`
	ValidationSplit float64        `yaml:"validation_split"`
}

// FaultAnalysisLSTMConfig configures the LSTM fault analysis model.
type FaultAnalysisLSTMConfig struct {
	Seed          int64          `yaml:"seed"`
	Data          DataConfig     `yaml:"data"`
	Training      TrainingConfig `yaml:"training"`
	Timesteps     int            `yaml:"timesteps"` // features are split evenly across steps
	LSTMUnits     []int          `yaml:"lstm_units"`
	DenseUnits    []int          `yaml:"dense_units"`
	TrainFraction float64        `yaml:"train_fraction"`
	PlotPath      string         `yaml:"plot_path"` // empty = no plot
}

// FaultPredictionConfig configures the random forest fault predictor.
type FaultPredictionConfig struct {
	Seed     int64        `yaml:"seed"`
	Data     DataConfig   `yaml:"data"`
	Forest   ForestConfig `yaml:"forest"`
	TestSize float64      `yaml:"test_size"`
}

// FaultPredictionAdvancedConfig adds preprocessing to FaultPredictionConfig.
type FaultPredictionAdvancedConfig struct {
	Seed           int64        `yaml:"seed"`
	Data           DataConfig   `yaml:"data"`
	Forest         ForestConfig `yaml:"forest"`
	TestSize       float64      `yaml:"test_size"`
	ImputeStrategy string       `yaml:"impute_strategy"` // "mean" or "median"
}

// InjectionConfig configures a single fault injection.
type InjectionConfig struct {
	Seed        int64   `yaml:"seed"`
	Input       string  `yaml:"input"`
	Type        string  `yaml:"type"`
	Probability float64 `yaml:"probability"`
	BurstLength int     `yaml:"burst_length"`
	Period      int     `yaml:"period"`
}

// ECCConfig configures error-correcting code trials.
type ECCConfig struct {
	Seed             int64   `yaml:"seed"`
	Input            string  `yaml:"input"`
	Codec            string  `yaml:"codec"`
	ErrorProbability float64 `yaml:"error_probability"`
	BurstLength      int     `yaml:"burst_length"`
	Trials           int     `yaml:"trials"`
	DataShards       int     `yaml:"data_shards"`
	ParityShards     int     `yaml:"parity_shards"`
	DisableSIMD      bool    `yaml:"disable_simd"` // pure Go Reed-Solomon encoder
}

// TMRConfig configures triple modular redundancy trials.
type TMRConfig struct {
	Seed             int64     `yaml:"seed"`
	Input            string    `yaml:"input"`
	Strategy         string    `yaml:"strategy"`
	Reliabilities    []float64 `yaml:"reliabilities"`
	FaultProbability float64   `yaml:"fault_probability"`
	Threshold        int       `yaml:"threshold"`
	Trials           int       `yaml:"trials"`
}

// ExperimentConfig is the top-level YAML configuration.
// Every section is optional; missing fields keep their defaults.
type ExperimentConfig struct {
	FaultAnalysis           FaultAnalysisConfig           `yaml:"fault_analysis"`
	FaultAnalysisLSTM       FaultAnalysisLSTMConfig       `yaml:"fault_analysis_lstm"`
	FaultPrediction         FaultPredictionConfig         `yaml:"fault_prediction"`
	FaultPredictionAdvanced FaultPredictionAdvancedConfig `yaml:"fault_prediction_advanced"`
	Injection               InjectionConfig               `yaml:"injection"`
	ECC                     ECCConfig                     `yaml:"ecc"`
	TMR                     TMRConfig                     `yaml:"tmr"`
}

func defaultForest() ForestConfig {
	return ForestConfig{
		Estimators:      100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		Bootstrap:       true,
	}
}

// DefaultExperimentConfig returns the configuration every command runs with
// when no file or flags are given.
func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		FaultAnalysis: FaultAnalysisConfig{
			Seed:            DefaultSeed,
			Data:            DataConfig{Samples: 1000, Features: 10},
			Training:        TrainingConfig{Epochs: 10, BatchSize: 32, LearningRate: 0.001},
			Hidden:          []int{64, 32},
			ValidationSplit: 0.2,
		},
		FaultAnalysisLSTM: FaultAnalysisLSTMConfig{
			Seed:          DefaultSeed,
			Data:          DataConfig{Samples: 1000, Features: 10},
			Training:      TrainingConfig{Epochs: 10, BatchSize: 32, LearningRate: 0.001},
			Timesteps:     1,
			LSTMUnits:     []int{64, 32},
			DenseUnits:    []int{16},
			TrainFraction: 0.8,
			PlotPath:      "fault_analysis_lstm_history.png",
		},
		FaultPrediction: FaultPredictionConfig{
			Seed:     DefaultSeed,
			Data:     DataConfig{Samples: 1000, Features: 5},
			Forest:   defaultForest(),
			TestSize: 0.2,
		},
		FaultPredictionAdvanced: FaultPredictionAdvancedConfig{
			Seed:           DefaultSeed,
			Data:           DataConfig{Samples: 1000, Features: 10},
			Forest:         defaultForest(),
			TestSize:       0.2,
			ImputeStrategy: "mean",
		},
		Injection: InjectionConfig{
			Seed:        DefaultSeed,
			Input:       "1011001110001111",
			Type:        "bit-flip",
			Probability: 0.1,
			BurstLength: 3,
			Period:      5,
		},
		ECC: ECCConfig{
			Seed:             DefaultSeed,
			Input:            "10110011",
			Codec:            "hamming",
			ErrorProbability: 0.1,
			BurstLength:      2,
			Trials:           1,
			DataShards:       4,
			ParityShards:     2,
		},
		TMR: TMRConfig{
			Seed:             DefaultSeed,
			Input:            "10110011",
			Strategy:         "majority",
			Reliabilities:    []float64{0.95, 0.9, 0.85},
			FaultProbability: 0.1,
			Threshold:        2,
			Trials:           1,
		},
	}
}

// LoadExperimentConfig reads a YAML configuration on top of the defaults.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	cfg := DefaultExperimentConfig()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing experiment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *ExperimentConfig) Validate() error {
	checks := []func() error{
		c.FaultAnalysis.Validate,
		c.FaultAnalysisLSTM.Validate,
		c.FaultPrediction.Validate,
		c.FaultPredictionAdvanced.Validate,
		c.Injection.Validate,
		c.ECC.Validate,
		c.TMR.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the dataset shape.
func (d DataConfig) Validate(prefix string) error {
	if d.Samples <= 0 {
		return fmt.Errorf("%s.samples must be positive, got %d", prefix, d.Samples)
	}
	if d.Features <= 0 {
		return fmt.Errorf("%s.features must be positive, got %d", prefix, d.Features)
	}
	if math.IsNaN(d.MissingRate) || d.MissingRate < 0 || d.MissingRate >= 1 {
		return fmt.Errorf("%s.missing_rate must be in [0, 1), got %f", prefix, d.MissingRate)
	}
	return nil
}

// Validate checks minibatch parameters.
func (t TrainingConfig) Validate(prefix string) error {
	if t.Epochs <= 0 {
		return fmt.Errorf("%s.epochs must be positive, got %d", prefix, t.Epochs)
	}
	if t.BatchSize <= 0 {
		return fmt.Errorf("%s.batch_size must be positive, got %d", prefix, t.BatchSize)
	}
	return validateFinitePositive(prefix+".learning_rate", t.LearningRate)
}

var validCriteria = map[string]bool{"gini": true, "entropy": true}

// Validate checks forest hyperparameters.
func (f ForestConfig) Validate(prefix string) error {
	if f.Estimators <= 0 {
		return fmt.Errorf("%s.estimators must be positive, got %d", prefix, f.Estimators)
	}
	if f.MaxDepth < 0 || f.MaxFeatures < 0 || f.Workers < 0 {
		return fmt.Errorf("%s: max_depth, max_features and workers must be non-negative", prefix)
	}
	if f.MinSamplesSplit < 2 {
		return fmt.Errorf("%s.min_samples_split must be at least 2, got %d", prefix, f.MinSamplesSplit)
	}
	if f.MinSamplesLeaf < 1 {
		return fmt.Errorf("%s.min_samples_leaf must be at least 1, got %d", prefix, f.MinSamplesLeaf)
	}
	if !validCriteria[f.Criterion] {
		return fmt.Errorf("%s: unknown criterion %q; valid: gini, entropy", prefix, f.Criterion)
	}
	return nil
}

// Validate checks the feed-forward experiment.
func (c FaultAnalysisConfig) Validate() error {
	const prefix = "fault_analysis"
	if err := c.Data.Validate(prefix + ".data"); err != nil {
		return err
	}
	if err := c.Training.Validate(prefix + ".training"); err != nil {
		return err
	}
	if err := validateUnits(prefix+".hidden", c.Hidden); err != nil {
		return err
	}
	return validateOpenFraction(prefix+".validation_split", c.ValidationSplit)
}

// Validate checks the LSTM experiment.
func (c FaultAnalysisLSTMConfig) Validate() error {
	const prefix = "fault_analysis_lstm"
	if err := c.Data.Validate(prefix + ".data"); err != nil {
		return err
	}
	if err := c.Training.Validate(prefix + ".training"); err != nil {
		return err
	}
	if c.Timesteps <= 0 || c.Data.Features%c.Timesteps != 0 {
		return fmt.Errorf("%s.timesteps must be a positive divisor of data.features (%d), got %d", prefix, c.Data.Features, c.Timesteps)
	}
	if len(c.LSTMUnits) == 0 {
		return fmt.Errorf("%s.lstm_units must list at least one layer", prefix)
	}
	if err := validateUnits(prefix+".lstm_units", c.LSTMUnits); err != nil {
		return err
	}
	if err := validateUnits(prefix+".dense_units", c.DenseUnits); err != nil {
		return err
	}
	return validateOpenFraction(prefix+".train_fraction", c.TrainFraction)
}

// Validate checks the random forest experiment.
func (c FaultPredictionConfig) Validate() error {
	const prefix = "fault_prediction"
	if err := c.Data.Validate(prefix + ".data"); err != nil {
		return err
	}
	if err := c.Forest.Validate(prefix + ".forest"); err != nil {
		return err
	}
	return validateOpenFraction(prefix+".test_size", c.TestSize)
}

var validImputeStrategies = map[string]bool{"mean": true, "median": true}

// Validate checks the preprocessed random forest experiment.
func (c FaultPredictionAdvancedConfig) Validate() error {
	const prefix = "fault_prediction_advanced"
	if err := c.Data.Validate(prefix + ".data"); err != nil {
		return err
	}
	if err := c.Forest.Validate(prefix + ".forest"); err != nil {
		return err
	}
	if !validImputeStrategies[c.ImputeStrategy] {
		return fmt.Errorf("%s: unknown impute_strategy %q; valid: mean, median", prefix, c.ImputeStrategy)
	}
	return validateOpenFraction(prefix+".test_size", c.TestSize)
}

// Validate checks the injection parameters. Fault type names are checked by
// the fault package when the injector is built.
func (c InjectionConfig) Validate() error {
	const prefix = "injection"
	if err := validateProbability(prefix+".probability", c.Probability); err != nil {
		return err
	}
	if c.BurstLength <= 0 {
		return fmt.Errorf("%s.burst_length must be positive, got %d", prefix, c.BurstLength)
	}
	if c.Period <= 0 {
		return fmt.Errorf("%s.period must be positive, got %d", prefix, c.Period)
	}
	return nil
}

// Validate checks the ECC trial parameters.
func (c ECCConfig) Validate() error {
	const prefix = "ecc"
	if err := validateProbability(prefix+".error_probability", c.ErrorProbability); err != nil {
		return err
	}
	if c.BurstLength <= 0 {
		return fmt.Errorf("%s.burst_length must be positive, got %d", prefix, c.BurstLength)
	}
	if c.Trials <= 0 {
		return fmt.Errorf("%s.trials must be positive, got %d", prefix, c.Trials)
	}
	if c.DataShards <= 0 || c.ParityShards <= 0 {
		return fmt.Errorf("%s: data_shards and parity_shards must be positive", prefix)
	}
	if c.DataShards+c.ParityShards > 256 {
		return fmt.Errorf("%s: data_shards + parity_shards must not exceed 256", prefix)
	}
	return nil
}

// Validate checks the TMR trial parameters. The threshold only binds the
// threshold strategy; strategy names are checked by the tmr package.
func (c TMRConfig) Validate() error {
	const prefix = "tmr"
	if len(c.Reliabilities) == 0 {
		return fmt.Errorf("%s.reliabilities must list at least one module", prefix)
	}
	for i, r := range c.Reliabilities {
		if err := validateProbability(fmt.Sprintf("%s.reliabilities[%d]", prefix, i), r); err != nil {
			return err
		}
	}
	if err := validateProbability(prefix+".fault_probability", c.FaultProbability); err != nil {
		return err
	}
	if c.Strategy == "threshold" && (c.Threshold <= 0 || c.Threshold > len(c.Reliabilities)) {
		return fmt.Errorf("%s.threshold must be in [1, %d], got %d", prefix, len(c.Reliabilities), c.Threshold)
	}
	if c.Trials <= 0 {
		return fmt.Errorf("%s.trials must be positive, got %d", prefix, c.Trials)
	}
	return nil
}

func validateUnits(name string, units []int) error {
	for i, u := range units {
		if u <= 0 {
			return fmt.Errorf("%s[%d] must be positive, got %d", name, i, u)
		}
	}
	return nil
}

func validateOpenFraction(name string, val float64) error {
	if math.IsNaN(val) || val <= 0 || val >= 1 {
		return fmt.Errorf("%s must be in (0, 1), got %f", name, val)
	}
	return nil
}

func validateProbability(name string, val float64) error {
	if math.IsNaN(val) || val < 0 || val > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %f", name, val)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
