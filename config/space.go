package config

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// DimensionConfig is one entry of the search space.
//
//	learning_rate: {kind: loguniform, low: 0.001, high: 0.5}
//	epochs:        {kind: quniform, low: 10, high: 200, q: 10}
//	activation:    {kind: choice, options: [relu, tanh]}
//	patience:      {kind: const, value: 5}
type DimensionConfig struct {
	Kind    string        `yaml:"kind"`
	Low     float64       `yaml:"low,omitempty"`
	High    float64       `yaml:"high,omitempty"`
	Q       float64       `yaml:"q,omitempty"`
	Options []interface{} `yaml:"options,omitempty"`
	Value   interface{}   `yaml:"value,omitempty"`
}

// Dimension kinds.
const (
	KindUniform    = "uniform"
	KindLogUniform = "loguniform"
	KindQUniform   = "quniform"
	KindRandInt    = "randint"
	KindChoice     = "choice"
	KindConst      = "const"
)

// value returns the search space value of the dimension as hyperopt.Partition expects it.
func (d DimensionConfig) value(name string) (interface{}, error) {
	switch d.Kind {
	case KindUniform:
		return hyperopt.Uniform(d.Low, d.High), nil
	case KindLogUniform:
		return hyperopt.LogUniform(d.Low, d.High), nil
	case KindQUniform:
		return hyperopt.QUniform(d.Low, d.High, d.Q), nil
	case KindRandInt:
		return hyperopt.RandInt(int(d.Low), int(d.High)), nil
	case KindChoice:
		return hyperopt.Choice(d.Options...), nil
	case KindConst:
		return d.Value, nil
	default:
		return nil, errors.NewValidationError("hyper_parameter_space."+name, "unknown dimension kind", d.Kind)
	}
}

// SearchSpaceConfig is the hyperparameter search space. Keys starting with
// "__" hold search control scalars (__max_evals, __algo, __seed); every other
// key is a DimensionConfig.
type SearchSpaceConfig struct {
	Control    map[string]interface{}
	Dimensions map[string]DimensionConfig
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *SearchSpaceConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.Control = make(map[string]interface{})
	s.Dimensions = make(map[string]DimensionConfig)
	for key, n := range raw {
		if strings.HasPrefix(key, hyperopt.ControlPrefix) {
			var v interface{}
			if err := n.Decode(&v); err != nil {
				return errors.Wrapf(err, "hyper_parameter_space.%s", key)
			}
			s.Control[key] = v
			continue
		}
		var d DimensionConfig
		if err := n.Decode(&d); err != nil {
			return errors.Wrapf(err, "hyper_parameter_space.%s", key)
		}
		s.Dimensions[key] = d
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s SearchSpaceConfig) MarshalYAML() (interface{}, error) {
	out := make(map[string]interface{}, len(s.Control)+len(s.Dimensions))
	for k, v := range s.Control {
		out[k] = v
	}
	for k, d := range s.Dimensions {
		out[k] = d
	}
	return out, nil
}

// Raw returns the space in the form accepted by hyperopt.Partition.
func (s *SearchSpaceConfig) Raw() (map[string]interface{}, error) {
	raw := make(map[string]interface{}, len(s.Control)+len(s.Dimensions))
	for k, v := range s.Control {
		raw[k] = v
	}
	names := make([]string, 0, len(s.Dimensions))
	for name := range s.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, err := s.Dimensions[name].value(name)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errors.NewValidationError("hyper_parameter_space."+name, "const needs a value", nil)
		}
		raw[name] = v
	}
	if _, err := hyperopt.Partition(raw); err != nil {
		return nil, errors.Wrapf(err, "hyper_parameter_space (%d dimensions)", len(names))
	}
	return raw, nil
}
