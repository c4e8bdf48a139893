package model

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

func TestLoss(t *testing.T) {
	tests := []struct {
		name      string
		loss      Loss
		wantValid bool
		wantStr   string
	}{
		{"value", LossOf(0.25), true, "0.25"},
		{"zero is a valid loss", LossOf(0), true, "0"},
		{"NaN means no loss", LossOf(math.NaN()), false, "none"},
		{"no loss", NoLoss, false, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.loss.Get()
			assert.Equal(t, tt.wantValid, ok)
			assert.Equal(t, tt.wantStr, tt.loss.String())
		})
	}
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("NeuralModel", "Predict")
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))
	assert.Equal(t, "Predict", notFitted.Method)

	s.SetFitted(6, 100)
	assert.NoError(t, s.RequireFitted("NeuralModel", "Predict"))
	assert.NoError(t, s.RequireFeatures("Predict", 6))

	err = s.RequireFeatures("Predict", 5)
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 6, dimErr.Expected)

	s.Reset()
	assert.False(t, s.IsFitted())
	nf, ns := s.GetDimensions()
	assert.Zero(t, nf)
	assert.Zero(t, ns)
}

type persisted struct {
	State   StateManager
	Weights []float64
}

func TestPersistence_RoundTrip(t *testing.T) {
	in := persisted{Weights: []float64{0.5, -1.25}}
	in.State.SetFitted(2, 10)

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&in, &buf))

	var out persisted
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, in.Weights, out.Weights)
	assert.True(t, out.State.IsFitted())

	path := filepath.Join(t.TempDir(), "m.gob")
	require.NoError(t, SaveModel(&in, path))
	var fromFile persisted
	require.NoError(t, LoadModel(&fromFile, path))
	nf, _ := fromFile.State.GetDimensions()
	assert.Equal(t, 2, nf)

	assert.Error(t, LoadModel(&fromFile, filepath.Join(t.TempDir(), "missing.gob")))
}
