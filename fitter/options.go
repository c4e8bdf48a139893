package fitter

import (
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/pkg/log"
	"github.com/YuminosukeSato/framefit/training"
)

// DefaultTestSize is the fraction of rows held out when no test size is given.
const DefaultTestSize = 0.4

// Options configures Fit.
type Options struct {
	TestSize     float64
	YoungestSize float64
	Seed         int64
	// YoungestSplit makes the split purely chronological.
	YoungestSplit bool

	CVEpochs int
	Folds    dataset.FoldGenerator

	// HyperParameterSpace enables a search when non-nil.
	HyperParameterSpace map[string]interface{}
	Optimizer           hyperopt.Optimizer
	MissingLoss         training.MissingLossPolicy

	Logger log.Logger
}

// Option is a functional option for Fit.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		TestSize: DefaultTestSize,
		Seed:     dataset.DefaultSeed,
	}
}

// WithTestSize sets the held-out fraction. <= 0 trains on every row.
func WithTestSize(size float64) Option {
	return func(o *Options) {
		o.TestSize = size
	}
}

// WithYoungestSize sets the fraction of the test set taken from the most recent rows.
func WithYoungestSize(size float64) Option {
	return func(o *Options) {
		o.YoungestSize = size
	}
}

// WithSeed sets the random split seed.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
		o.YoungestSplit = false
	}
}

// WithYoungestSplit holds out the most recent rows instead of a random sample.
func WithYoungestSplit() Option {
	return func(o *Options) {
		o.YoungestSplit = true
	}
}

// WithCrossValidation trains with epochs repetitions of the folds of folds.
func WithCrossValidation(epochs int, folds dataset.FoldGenerator) Option {
	return func(o *Options) {
		o.CVEpochs = epochs
		o.Folds = folds
	}
}

// WithHyperParameterSpace runs a hyperparameter search over space before the
// final training. See hyperopt.Partition for the accepted values.
func WithHyperParameterSpace(space map[string]interface{}) Option {
	return func(o *Options) {
		o.HyperParameterSpace = space
	}
}

// WithOptimizer overrides the optimizer selected by the space's __algo.
func WithOptimizer(optimizer hyperopt.Optimizer) Option {
	return func(o *Options) {
		o.Optimizer = optimizer
	}
}

// WithMissingLossPolicy sets what the search does with a trial without loss.
func WithMissingLossPolicy(policy training.MissingLossPolicy) Option {
	return func(o *Options) {
		o.MissingLoss = policy
	}
}

// WithLogger sets the logger passed to every stage.
func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func (o Options) splitOptions() []dataset.SplitOption {
	opts := []dataset.SplitOption{
		dataset.WithTestSize(o.TestSize),
		dataset.WithYoungestSize(o.YoungestSize),
		dataset.WithSeed(o.Seed),
		dataset.WithLogger(o.Logger),
	}
	if o.YoungestSplit {
		opts = append(opts, dataset.WithYoungestSeed())
	}
	return opts
}
