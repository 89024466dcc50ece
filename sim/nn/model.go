package nn

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Sequential is a linear stack of layers. Predictions and the loss use the
// last timestep of the final layer's output.
type Sequential struct {
	Layers []Layer

	inputDim  int
	outputDim int
	built     bool
	optimizer Optimizer
	loss      Loss

	outputSteps int // timesteps emitted by the last forward pass
}

// FitConfig controls Sequential.Fit.
type FitConfig struct {
	Epochs    int
	BatchSize int // 0 => 32

	// ValidationSplit holds out this fraction of the tail of the inputs,
	// before any shuffling. Ignored when ValidationX is set.
	ValidationSplit float64
	ValidationX     Sequence
	ValidationY     *mat.Dense

	// Shuffle reorders training samples each epoch; nil keeps input order.
	Shuffle *rand.Rand
	// Progress receives one line per epoch; nil disables it.
	Progress io.Writer
}

// History records per-epoch training metrics. Validation slices stay empty
// when no validation data was used.
type History struct {
	Epochs      []int
	Loss        []float64
	Accuracy    []float64
	ValLoss     []float64
	ValAccuracy []float64
}

// HasValidation reports whether validation metrics were recorded.
func (h *History) HasValidation() bool { return len(h.ValLoss) > 0 }

// NewSequential stacks the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers}
}

// Build initializes every layer for inputs with inputDim features, drawing
// initial weights from rng.
func (s *Sequential) Build(inputDim int, rng *rand.Rand) error {
	if len(s.Layers) == 0 {
		return errors.New("sequential: no layers")
	}
	dim := inputDim
	for i, layer := range s.Layers {
		out, err := layer.Build(dim, rng)
		if err != nil {
			return fmt.Errorf("sequential: layer %d: %w", i, err)
		}
		logrus.Debugf("sequential: layer %d %s: %d -> %d", i, layer.Name(), dim, out)
		dim = out
	}
	s.inputDim = inputDim
	s.outputDim = dim
	s.built = true
	return nil
}

// Compile sets the optimizer and loss used by Fit and Evaluate.
func (s *Sequential) Compile(optimizer Optimizer, loss Loss) {
	s.optimizer = optimizer
	s.loss = loss
}

// CountParams returns the number of trainable scalars.
func (s *Sequential) CountParams() int {
	n := 0
	for _, layer := range s.Layers {
		for _, p := range layer.Params() {
			r, c := p.Value.Dims()
			n += r * c
		}
	}
	return n
}

// Predict returns the (batch x outputDim) output for x.
func (s *Sequential) Predict(x Sequence) (*mat.Dense, error) {
	if err := s.checkInput(x); err != nil {
		return nil, err
	}
	return s.forward(x), nil
}

// Evaluate returns the loss and binary accuracy on (x, y).
func (s *Sequential) Evaluate(x Sequence, y *mat.Dense) (loss, accuracy float64, err error) {
	if s.loss == nil {
		return 0, 0, ErrNotCompiled
	}
	if err := s.checkPair(x, y); err != nil {
		return 0, 0, err
	}
	pred := s.forward(x)
	return s.loss.Loss(y, pred), BinaryAccuracy(y, pred), nil
}

// Fit trains for cfg.Epochs passes over (x, y) in mini-batches.
func (s *Sequential) Fit(x Sequence, y *mat.Dense, cfg FitConfig) (*History, error) {
	if s.optimizer == nil || s.loss == nil {
		return nil, ErrNotCompiled
	}
	if err := s.checkPair(x, y); err != nil {
		return nil, err
	}
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("sequential: epochs must be positive, got %d", cfg.Epochs)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	valX, valY := cfg.ValidationX, cfg.ValidationY
	if valX != nil {
		if err := s.checkPair(valX, valY); err != nil {
			return nil, fmt.Errorf("validation data: %w", err)
		}
	} else if cfg.ValidationSplit > 0 {
		if cfg.ValidationSplit >= 1 {
			return nil, fmt.Errorf("sequential: validation split must be in [0, 1), got %v", cfg.ValidationSplit)
		}
		n, _ := y.Dims()
		splitAt := int(float64(n) * (1 - cfg.ValidationSplit))
		if splitAt == 0 || splitAt == n {
			return nil, fmt.Errorf("sequential: validation split %v leaves an empty partition of %d samples", cfg.ValidationSplit, n)
		}
		valX, valY = x.Rows(splitAt, n), rowSlice(y, splitAt, n)
		x, y = x.Rows(0, splitAt), rowSlice(y, 0, splitAt)
	}

	n, _ := y.Dims()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	params := s.params()
	hist := &History{}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if cfg.Shuffle != nil {
			cfg.Shuffle.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var lossSum, accSum float64
		for lo := 0; lo < n; lo += batchSize {
			idx := order[lo:min(lo+batchSize, n)]
			bx, by := x.Gather(idx), gatherRows(y, idx)
			pred := s.forward(bx)
			w := float64(len(idx))
			lossSum += w * s.loss.Loss(by, pred)
			accSum += w * BinaryAccuracy(by, pred)
			s.backward(s.loss.Gradient(by, pred))
			s.optimizer.Step(params)
		}
		hist.Epochs = append(hist.Epochs, epoch)
		hist.Loss = append(hist.Loss, lossSum/float64(n))
		hist.Accuracy = append(hist.Accuracy, accSum/float64(n))

		line := fmt.Sprintf("Epoch %d/%d - loss: %.4f - accuracy: %.4f", epoch, cfg.Epochs,
			hist.Loss[epoch-1], hist.Accuracy[epoch-1])
		if valX != nil {
			vl, va, err := s.Evaluate(valX, valY)
			if err != nil {
				return nil, err
			}
			hist.ValLoss = append(hist.ValLoss, vl)
			hist.ValAccuracy = append(hist.ValAccuracy, va)
			line += fmt.Sprintf(" - val_loss: %.4f - val_accuracy: %.4f", vl, va)
		}
		logrus.Debugf("sequential: %s", line)
		if cfg.Progress != nil {
			if _, err := fmt.Fprintln(cfg.Progress, line); err != nil {
				return nil, err
			}
		}
	}
	return hist, nil
}

func (s *Sequential) params() []*Param {
	var out []*Param
	for _, layer := range s.Layers {
		out = append(out, layer.Params()...)
	}
	return out
}

func (s *Sequential) forward(x Sequence) *mat.Dense {
	out := x
	for _, layer := range s.Layers {
		out = layer.forward(out)
	}
	s.outputSteps = len(out)
	return out[len(out)-1]
}

// backward propagates d loss / d output. Only the last output step feeds
// the loss, so earlier steps receive zero gradient.
func (s *Sequential) backward(grad *mat.Dense) {
	r, c := grad.Dims()
	g := make(Sequence, s.outputSteps)
	for t := range g {
		g[t] = mat.NewDense(r, c, nil)
	}
	g[len(g)-1] = grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		g = s.Layers[i].backward(g)
	}
}

func (s *Sequential) checkInput(x Sequence) error {
	if !s.built {
		return ErrNotBuilt
	}
	if err := x.validate(); err != nil {
		return err
	}
	if _, _, f := x.Dims(); f != s.inputDim {
		return fmt.Errorf("%w: %d features, model expects %d", ErrShapeMismatch, f, s.inputDim)
	}
	return nil
}

func (s *Sequential) checkPair(x Sequence, y *mat.Dense) error {
	if err := s.checkInput(x); err != nil {
		return err
	}
	if y == nil {
		return fmt.Errorf("%w: missing targets", ErrShapeMismatch)
	}
	n, _, _ := x.Dims()
	r, c := y.Dims()
	if r != n || c != s.outputDim {
		return fmt.Errorf("%w: targets are %dx%d, want %dx%d", ErrShapeMismatch, r, c, n, s.outputDim)
	}
	return nil
}

func rowSlice(m *mat.Dense, lo, hi int) *mat.Dense {
	_, c := m.Dims()
	return m.Slice(lo, hi, 0, c).(*mat.Dense)
}
