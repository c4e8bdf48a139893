package models

import (
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/linear"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// FormatVersion is written in front of every saved model.
const FormatVersion = 1

type envelope struct {
	Version int
	Model   Model
}

func init() {
	Register(&NeuralModel{})
	Register(&EstimatorModel{})
	Register(&MultiModel{})
	Register(&linear.LogisticRegression{})
	Register(&linear.LinearRegression{})
}

// Register makes a concrete Model or estimator type known to Save and Load.
// Custom models must be registered before they are saved or loaded.
func Register(value interface{}) {
	gob.Register(value)
}

// Save writes m to w. The spec, fitted parameters and hyperparameters are kept.
func Save(w io.Writer, m Model) error {
	if m == nil {
		return errors.NewValueError("Save", "model is nil")
	}
	return model.SaveModelToWriter(&envelope{Version: FormatVersion, Model: m}, w)
}

// Load reads a model written by Save.
func Load(r io.Reader) (Model, error) {
	var env envelope
	if err := model.LoadModelFromReader(&env, r); err != nil {
		return nil, err
	}
	if env.Version != FormatVersion {
		return nil, errors.NewValueError("Load", "unsupported model format version")
	}
	if env.Model == nil {
		return nil, errors.NewValueError("Load", "no model in stream")
	}
	return env.Model, nil
}

// SaveFile writes m to path.
func SaveFile(path string, m Model) error {
	if m == nil {
		return errors.NewValueError("SaveFile", "model is nil")
	}
	return model.SaveModel(&envelope{Version: FormatVersion, Model: m}, path)
}

// LoadFile reads a model written by SaveFile.
func LoadFile(path string) (Model, error) {
	var env envelope
	if err := model.LoadModel(&env, path); err != nil {
		return nil, err
	}
	if env.Version != FormatVersion || env.Model == nil {
		return nil, errors.NewValueError("LoadFile", "unsupported or empty model file")
	}
	return env.Model, nil
}
