package config

import (
	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/linear"
	"github.com/YuminosukeSato/framefit/metrics"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

// Model kinds.
const (
	ModelNeural      = "neural"
	ModelMultiNeural = "multi_neural"
	ModelLogistic    = "logistic"
)

// Logistic regression params read from the search.
const (
	ParamC       = "c"
	ParamMaxIter = "max_iter"
)

func (m ModelConfig) neuralOptions(logger log.Logger) []models.NeuralOption {
	opts := []models.NeuralOption{models.WithModelLogger(logger)}
	if m.Epochs > 0 {
		opts = append(opts, models.WithEpochs(m.Epochs))
	}
	if m.LearningRate > 0 {
		opts = append(opts, models.WithLearningRate(m.LearningRate))
	}
	if m.L2 > 0 {
		opts = append(opts, models.WithL2(m.L2))
	}
	if m.BatchSize > 0 {
		opts = append(opts, models.WithBatchSize(m.BatchSize))
	}
	if m.Patience > 0 {
		opts = append(opts, models.WithPatience(m.Patience))
	}
	if m.Seed > 0 {
		opts = append(opts, models.WithSeed(m.Seed))
	}
	return opts
}

// Provider builds the model provider for spec. Search params override the
// configured values.
func (c *Config) Provider(spec *features.Spec, logger log.Logger) (models.Provider, error) {
	mc := c.Model
	switch mc.Kind {
	case ModelMultiNeural:
		return models.NewMultiFactory(models.NewNeuralFactory(mc.neuralOptions(logger)...)).Bind(spec), nil
	case ModelLogistic:
		loss := mc.Loss
		if loss == "" {
			loss = metrics.LossLog
		}
		factory := models.NewEstimatorFactory(func(params hyperopt.Params) model.Estimator {
			var opts []linear.LogisticOption
			if inv := params.Float(ParamC, mc.C); inv > 0 {
				opts = append(opts, linear.WithC(inv))
			}
			if n := params.Int(ParamMaxIter, mc.MaxIter); n > 0 {
				opts = append(opts, linear.WithMaxIter(n))
			}
			if mc.Seed > 0 {
				opts = append(opts, linear.WithRandomState(mc.Seed))
			}
			return linear.NewLogisticRegression(opts...)
		}, loss)
		return factory.Bind(spec), nil
	default:
		return models.NewNeuralProvider(spec, mc.neuralOptions(logger)...), nil
	}
}
