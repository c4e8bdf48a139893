package models

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/metrics"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
	"github.com/YuminosukeSato/framefit/preprocessing"
)

// Parameter names read by NewNeuralFactory.
const (
	ParamEpochs       = "epochs"
	ParamLearningRate = "learning_rate"
	ParamL2           = "l2"
	ParamBatchSize    = "batch_size"
	ParamSeed         = "seed"
	ParamPatience     = "patience"
)

// NeuralModel is a single-layer network with one sigmoid output per label,
// trained by mini-batch gradient descent on standardized features.
// Fit reports the validation log-loss averaged over goals, or the training
// log-loss without validation rows.
type NeuralModel struct {
	model.StateManager

	Spec   *features.Spec
	Scaler *preprocessing.StandardScaler

	// Weights is features × labels, row-major.
	Weights []float64
	Bias    []float64

	Epochs       int
	LearningRate float64
	L2           float64
	BatchSize    int
	Seed         uint64
	// Patience stops training after that many epochs without a better
	// validation loss. 0 trains for all epochs.
	Patience int

	logger log.Logger
}

// NeuralOption configures a NeuralModel.
type NeuralOption func(*NeuralModel)

// WithEpochs sets the number of passes over the training rows.
func WithEpochs(n int) NeuralOption {
	return func(m *NeuralModel) { m.Epochs = n }
}

// WithLearningRate sets the gradient step size.
func WithLearningRate(lr float64) NeuralOption {
	return func(m *NeuralModel) { m.LearningRate = lr }
}

// WithL2 sets the L2 penalty on the weights.
func WithL2(l2 float64) NeuralOption {
	return func(m *NeuralModel) { m.L2 = l2 }
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) NeuralOption {
	return func(m *NeuralModel) { m.BatchSize = n }
}

// WithSeed sets the seed of weight initialization and batch shuffling.
func WithSeed(seed uint64) NeuralOption {
	return func(m *NeuralModel) { m.Seed = seed }
}

// WithPatience enables early stopping on the validation loss.
func WithPatience(epochs int) NeuralOption {
	return func(m *NeuralModel) { m.Patience = epochs }
}

// WithModelLogger sets the logger used for per-epoch diagnostics.
func WithModelLogger(logger log.Logger) NeuralOption {
	return func(m *NeuralModel) { m.logger = logger }
}

// NewNeuralModel creates an unfitted NeuralModel for spec.
func NewNeuralModel(spec *features.Spec, opts ...NeuralOption) *NeuralModel {
	m := &NeuralModel{
		Spec:         spec,
		Epochs:       50,
		LearningRate: 0.1,
		BatchSize:    32,
		Seed:         42,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewNeuralFactory returns a Factory reading epochs, learning_rate, l2,
// batch_size, seed and patience from params on top of base.
func NewNeuralFactory(base ...NeuralOption) Factory {
	return func(spec *features.Spec, params hyperopt.Params) (Model, error) {
		m := NewNeuralModel(spec, base...)
		m.Epochs = params.Int(ParamEpochs, m.Epochs)
		m.LearningRate = params.Float(ParamLearningRate, m.LearningRate)
		m.L2 = params.Float(ParamL2, m.L2)
		m.BatchSize = params.Int(ParamBatchSize, m.BatchSize)
		m.Seed = uint64(params.Int(ParamSeed, int(m.Seed)))
		m.Patience = params.Int(ParamPatience, m.Patience)
		if err := m.validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// NewNeuralProvider is NewNeuralFactory bound to spec.
func NewNeuralProvider(spec *features.Spec, base ...NeuralOption) Provider {
	return NewNeuralFactory(base...).Bind(spec)
}

func (m *NeuralModel) validate() error {
	switch {
	case m.Epochs < 1:
		return errors.NewValidationError(ParamEpochs, "must be positive", m.Epochs)
	case !(m.LearningRate > 0):
		return errors.NewValidationError(ParamLearningRate, "must be positive", m.LearningRate)
	case m.L2 < 0:
		return errors.NewValidationError(ParamL2, "must be non-negative", m.L2)
	case m.BatchSize < 1:
		return errors.NewValidationError(ParamBatchSize, "must be positive", m.BatchSize)
	case m.Patience < 0:
		return errors.NewValidationError(ParamPatience, "must be non-negative", m.Patience)
	}
	return nil
}

// FeaturesAndLabels implements Model.
func (m *NeuralModel) FeaturesAndLabels() *features.Spec { return m.Spec }

// Fit implements Model.
func (m *NeuralModel) Fit(xTrain, yTrain, xVal, yVal *mat.Dense, _, _ []time.Time) (model.Loss, error) {
	if err := m.validate(); err != nil {
		return model.NoLoss, err
	}
	if err := checkInput("NeuralModel.Fit", m.Spec, xTrain, yTrain); err != nil {
		return model.NoLoss, err
	}
	validate := hasRows(xVal) && yVal != nil
	if validate {
		if err := checkInput("NeuralModel.Fit", m.Spec, xVal, yVal); err != nil {
			return model.NoLoss, err
		}
	}
	logger := m.logger
	if logger == nil {
		logger = log.GetLoggerWithName("models")
	}

	m.Scaler = preprocessing.NewStandardScalerDefault()
	scaled, err := m.Scaler.FitTransform(xTrain)
	if err != nil {
		return model.NoLoss, err
	}
	x := mat.DenseCopyOf(scaled)
	var xv *mat.Dense
	if validate {
		sv, err := m.Scaler.Transform(xVal)
		if err != nil {
			return model.NoLoss, err
		}
		xv = mat.DenseCopyOf(sv)
	}

	n, nFeatures := x.Dims()
	_, nLabels := yTrain.Dims()
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed))
	m.Weights = make([]float64, nFeatures*nLabels)
	for i := range m.Weights {
		m.Weights[i] = rng.NormFloat64() * 0.01
	}
	m.Bias = make([]float64, nLabels)
	m.SetFitted(nFeatures, n)

	best := math.Inf(1)
	bestWeights, bestBias := m.snapshot()
	stale := 0
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for start := 0; start < n; start += m.BatchSize {
			end := start + m.BatchSize
			if end > n {
				end = n
			}
			m.step(x, yTrain, order[start:end])
		}

		if !validate || m.Patience == 0 {
			continue
		}
		loss, err := m.loss(xv, yVal)
		if err != nil {
			return model.NoLoss, err
		}
		logger.Debug("epoch done", log.EpochKey, epoch, log.LossKey, loss)
		if loss < best {
			best, stale = loss, 0
			bestWeights, bestBias = m.snapshot()
			continue
		}
		stale++
		if stale >= m.Patience {
			logger.Debug("early stopping", log.EpochKey, epoch, log.LossKey, best)
			break
		}
	}
	if validate && m.Patience > 0 {
		m.Weights, m.Bias = bestWeights, bestBias
	}

	evalX, evalY := x, yTrain
	if validate {
		evalX, evalY = xv, yVal
	}
	loss, err := m.loss(evalX, evalY)
	if err != nil {
		return model.NoLoss, err
	}
	return model.LossOf(loss), nil
}

// loss is the mean log-loss over goals for standardized rows.
func (m *NeuralModel) loss(x, y *mat.Dense) (float64, error) {
	l, err := goalLoss(m.Spec, y, m.predictions(m.forward(x)), metrics.LogLoss)
	if err != nil {
		return 0, err
	}
	return l.Value, nil
}

// step applies one gradient update on the given rows.
func (m *NeuralModel) step(x, y *mat.Dense, rows []int) {
	_, nFeatures := x.Dims()
	nLabels := len(m.Bias)
	gradW := make([]float64, len(m.Weights))
	gradB := make([]float64, nLabels)

	for _, i := range rows {
		xi := x.RawRowView(i)
		for k := 0; k < nLabels; k++ {
			z := m.Bias[k]
			for j := 0; j < nFeatures; j++ {
				z += xi[j] * m.Weights[j*nLabels+k]
			}
			residual := sigmoid(z) - y.At(i, k)
			gradB[k] += residual
			for j := 0; j < nFeatures; j++ {
				gradW[j*nLabels+k] += residual * xi[j]
			}
		}
	}

	scale := m.LearningRate / float64(len(rows))
	for i := range m.Weights {
		m.Weights[i] -= scale*gradW[i] + m.LearningRate*m.L2*m.Weights[i]
	}
	for k := range m.Bias {
		m.Bias[k] -= scale * gradB[k]
	}
}

// forward returns the sigmoid outputs for standardized rows.
func (m *NeuralModel) forward(x *mat.Dense) *mat.Dense {
	n, nFeatures := x.Dims()
	nLabels := len(m.Bias)
	w := mat.NewDense(nFeatures, nLabels, m.Weights)
	out := mat.NewDense(n, nLabels, nil)
	out.Mul(x, w)
	out.Apply(func(_, k int, v float64) float64 {
		return sigmoid(v + m.Bias[k])
	}, out)
	return out
}

func (m *NeuralModel) snapshot() ([]float64, []float64) {
	return append([]float64(nil), m.Weights...), append([]float64(nil), m.Bias...)
}

// Predict implements Model.
func (m *NeuralModel) Predict(x *mat.Dense) (Predictions, error) {
	if err := m.RequireFitted("NeuralModel", "Predict"); err != nil {
		return nil, err
	}
	if err := checkInput("NeuralModel.Predict", m.Spec, x, nil); err != nil {
		return nil, err
	}
	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	return m.predictions(m.forward(mat.DenseCopyOf(scaled))), nil
}

func (m *NeuralModel) predictions(out *mat.Dense) Predictions {
	preds := make(Predictions)
	for _, g := range m.Spec.Goals() {
		preds[g.Key()] = selectColumns(out, goalColumns(m.Spec, g))
	}
	return preds
}

// GetParams implements model.ParamsGetter.
func (m *NeuralModel) GetParams() map[string]interface{} {
	return map[string]interface{}{
		ParamEpochs:       m.Epochs,
		ParamLearningRate: m.LearningRate,
		ParamL2:           m.L2,
		ParamBatchSize:    m.BatchSize,
		ParamSeed:         m.Seed,
		ParamPatience:     m.Patience,
	}
}

func (m *NeuralModel) String() string {
	return fmt.Sprintf("NeuralModel(epochs=%d, learning_rate=%g, l2=%g, batch_size=%d)",
		m.Epochs, m.LearningRate, m.L2, m.BatchSize)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

var _ model.ParamsGetter = (*NeuralModel)(nil)
