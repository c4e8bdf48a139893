// Package config loads a framefit run from YAML: the feature/label spec, the
// split, cross-validation, the hyperparameter search and the model.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/fitter"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/training"
)

// Config is a complete run configuration.
type Config struct {
	LogLevel            string                 `yaml:"log_level"`
	Features            FeaturesConfig         `yaml:"features"`
	Split               SplitConfig            `yaml:"split"`
	CrossValidation     *CrossValidationConfig `yaml:"cross_validation,omitempty"`
	HyperParameterSpace *SearchSpaceConfig     `yaml:"hyper_parameter_space,omitempty"`
	Model               ModelConfig            `yaml:"model"`
	// MissingLoss is "abort" or "skip".
	MissingLoss string `yaml:"missing_loss"`
}

// FeaturesConfig describes the feature/label spec.
type FeaturesConfig struct {
	Features          []string               `yaml:"features"`
	Labels            []string               `yaml:"labels"`
	Goals             []GoalConfig           `yaml:"goals,omitempty"`
	Lags              []int                  `yaml:"lags,omitempty"`
	Smoothing         map[int]SmootherConfig `yaml:"smoothing,omitempty"`
	ProbabilityCutoff *float64               `yaml:"probability_cutoff,omitempty"`
}

// GoalConfig is one goal. At most one of LossColumn and LossConstant is set.
type GoalConfig struct {
	Name         string   `yaml:"name,omitempty"`
	Target       string   `yaml:"target,omitempty"`
	LossColumn   string   `yaml:"loss_column,omitempty"`
	LossConstant *float64 `yaml:"loss_constant,omitempty"`
	Labels       []string `yaml:"labels,omitempty"`
}

// SmootherConfig selects a smoother for a lag.
type SmootherConfig struct {
	Kind   string  `yaml:"kind"`
	Window int     `yaml:"window,omitempty"`
	Alpha  float64 `yaml:"alpha,omitempty"`
	Name   string  `yaml:"name,omitempty"`
}

// SplitConfig describes the train/test split.
type SplitConfig struct {
	TestSize     float64 `yaml:"test_size"`
	YoungestSize float64 `yaml:"youngest_size,omitempty"`
	Seed         Seed    `yaml:"seed"`
}

// Seed is an integer split seed or the string "youngest" for a chronological split.
type Seed struct {
	Value    int64
	Youngest bool
}

// SeedYoungest is the YAML spelling of a chronological split.
const SeedYoungest = "youngest"

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Seed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.NewValidationError("split.seed", "must be an integer or \"youngest\"", node.Value)
	}
	if node.Value == SeedYoungest {
		*s = Seed{Youngest: true}
		return nil
	}
	v, err := strconv.ParseInt(node.Value, 10, 64)
	if err != nil {
		return errors.NewValidationError("split.seed", "must be an integer or \"youngest\"", node.Value)
	}
	*s = Seed{Value: v}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Seed) MarshalYAML() (interface{}, error) {
	if s.Youngest {
		return SeedYoungest, nil
	}
	return s.Value, nil
}

// CrossValidationConfig describes k-fold cross-validation.
type CrossValidationConfig struct {
	Epochs  int   `yaml:"epochs"`
	Folds   int   `yaml:"folds"`
	Shuffle bool  `yaml:"shuffle"`
	Seed    int64 `yaml:"seed"`
}

// ModelConfig selects and parameterizes the model.
type ModelConfig struct {
	// Kind is "neural", "multi_neural" or "logistic".
	Kind         string  `yaml:"kind"`
	Epochs       int     `yaml:"epochs,omitempty"`
	LearningRate float64 `yaml:"learning_rate,omitempty"`
	L2           float64 `yaml:"l2,omitempty"`
	BatchSize    int     `yaml:"batch_size,omitempty"`
	Patience     int     `yaml:"patience,omitempty"`
	Seed         uint64  `yaml:"seed,omitempty"`
	// C and MaxIter parameterize the logistic model.
	C       float64 `yaml:"c,omitempty"`
	MaxIter int     `yaml:"max_iter,omitempty"`
	// Loss names the validation loss of the logistic model: log_loss, mse or mae.
	Loss string `yaml:"loss,omitempty"`
}

// Default returns a configuration with the library defaults.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Split: SplitConfig{
			TestSize: fitter.DefaultTestSize,
			Seed:     Seed{Value: dataset.DefaultSeed},
		},
		Model:       ModelConfig{Kind: ModelNeural},
		MissingLoss: training.AbortOnMissingLoss.String(),
	}
}

// LoadConfig reads a configuration file. Unset values keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating the directory when needed.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks the values that are not validated by features.NewSpec.
func (c *Config) Validate() error {
	if _, err := c.MissingLossPolicy(); err != nil {
		return err
	}
	switch c.Model.Kind {
	case ModelNeural, ModelMultiNeural, ModelLogistic:
	default:
		return errors.NewValidationError("model.kind", "unknown model kind", c.Model.Kind)
	}
	if cv := c.CrossValidation; cv != nil && (cv.Epochs < 1 || cv.Folds < 2) {
		return errors.NewValidationError("cross_validation", "needs epochs >= 1 and folds >= 2",
			fmt.Sprintf("epochs=%d folds=%d", cv.Epochs, cv.Folds))
	}
	return nil
}

// MissingLossPolicy returns the configured policy.
func (c *Config) MissingLossPolicy() (training.MissingLossPolicy, error) {
	switch c.MissingLoss {
	case "", training.AbortOnMissingLoss.String():
		return training.AbortOnMissingLoss, nil
	case training.SkipMissingLoss.String():
		return training.SkipMissingLoss, nil
	default:
		return 0, errors.NewValidationError("missing_loss", "must be abort or skip", c.MissingLoss)
	}
}

// FeatureSpec builds the validated feature/label spec.
func (c *Config) FeatureSpec() (*features.Spec, error) {
	f := c.Features
	var opts []features.Option
	if len(f.Lags) > 0 {
		opts = append(opts, features.WithLags(f.Lags...))
	}
	for lag, sc := range f.Smoothing {
		opts = append(opts, features.WithSmoothing(lag, features.Smoother{
			Kind:   features.SmootherKind(sc.Kind),
			Window: sc.Window,
			Alpha:  sc.Alpha,
			Name:   sc.Name,
		}))
	}
	if f.ProbabilityCutoff != nil {
		opts = append(opts, features.WithProbabilityCutoff(*f.ProbabilityCutoff))
	}
	if len(f.Goals) > 0 {
		goals := make([]features.Goal, len(f.Goals))
		for i, g := range f.Goals {
			if g.LossColumn != "" && g.LossConstant != nil {
				return nil, errors.NewInvalidSpecError("goals",
					fmt.Sprintf("goal %d sets both loss_column and loss_constant", i))
			}
			goal := features.Goal{Name: g.Name, Target: g.Target, Labels: g.Labels}
			switch {
			case g.LossColumn != "":
				goal.Loss = features.LossColumn(g.LossColumn)
			case g.LossConstant != nil:
				goal.Loss = features.LossConstant(*g.LossConstant)
			}
			goals[i] = goal
		}
		opts = append(opts, features.WithGoals(goals...))
	}
	return features.NewSpec(f.Features, f.Labels, opts...)
}

// FitOptions returns the split, cross-validation, search and policy options of Fit.
func (c *Config) FitOptions() ([]fitter.Option, error) {
	opts := []fitter.Option{
		fitter.WithTestSize(c.Split.TestSize),
		fitter.WithYoungestSize(c.Split.YoungestSize),
	}
	if c.Split.Seed.Youngest {
		opts = append(opts, fitter.WithYoungestSplit())
	} else {
		opts = append(opts, fitter.WithSeed(c.Split.Seed.Value))
	}
	if cv := c.CrossValidation; cv != nil {
		opts = append(opts, fitter.WithCrossValidation(cv.Epochs, dataset.NewKFold(cv.Folds, cv.Shuffle, cv.Seed)))
	}
	if c.HyperParameterSpace != nil {
		space, err := c.HyperParameterSpace.Raw()
		if err != nil {
			return nil, err
		}
		opts = append(opts, fitter.WithHyperParameterSpace(space))
	}
	policy, err := c.MissingLossPolicy()
	if err != nil {
		return nil, err
	}
	return append(opts, fitter.WithMissingLossPolicy(policy)), nil
}
