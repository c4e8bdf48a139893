package training

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/model"
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

var stubSpec = features.MustSpec([]string{"a"}, []string{"y"})

// stubModel returns scripted losses and records every fit.
type stubModel struct {
	params   hyperopt.Params
	losses   []model.Loss
	fits     int
	trainLen []int
	valLen   []int
	panicOn  int
}

func newStub(params hyperopt.Params, losses ...model.Loss) *stubModel {
	return &stubModel{params: params, losses: losses, panicOn: -1}
}

func (m *stubModel) FeaturesAndLabels() *features.Spec { return stubSpec }

func (m *stubModel) Fit(xTrain, yTrain, xVal, yVal *mat.Dense, idxTrain, idxVal []time.Time) (model.Loss, error) {
	if m.fits == m.panicOn {
		panic("boom")
	}
	r, _ := xTrain.Dims()
	m.trainLen = append(m.trainLen, r)
	if xVal == nil {
		m.valLen = append(m.valLen, 0)
	} else {
		vr, _ := xVal.Dims()
		m.valLen = append(m.valLen, vr)
	}
	loss := model.NoLoss
	if len(m.losses) > 0 {
		loss = m.losses[m.fits%len(m.losses)]
	}
	m.fits++
	return loss, nil
}

func (m *stubModel) Predict(x *mat.Dense) (models.Predictions, error) {
	r, _ := x.Dims()
	return models.Predictions{"target": mat.NewDense(r, 1, nil)}, nil
}

func (m *stubModel) GetParams() map[string]interface{} { return m.params }

func rows(n int) *dataset.Dataset {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	x := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		index[i] = start.Add(time.Duration(i) * time.Hour)
		x.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i%2))
	}
	return &dataset.Dataset{X: x, Y: y, Index: index, Features: []string{"a"}, Labels: []string{"y"}}
}

func splitOf(t *testing.T, n int, testSize float64) *dataset.SplitResult {
	t.Helper()
	split, err := dataset.Split(rows(n), dataset.WithTestSize(testSize), dataset.WithYoungestSeed(), dataset.WithLogger(log.Nop()))
	require.NoError(t, err)
	return split
}

func TestTrainWithoutCrossValidation(t *testing.T) {
	tests := []struct {
		name     string
		testSize float64
		loss     model.Loss
		wantVal  int
	}{
		{name: "with holdout", testSize: 0.3, loss: model.LossOf(0.25), wantVal: 3},
		{name: "without holdout", testSize: 0, loss: model.NoLoss, wantVal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newStub(nil, tt.loss)
			o := NewOrchestrator(WithLogger(log.Nop()))

			loss, err := o.Train(m, splitOf(t, 10, tt.testSize))
			require.NoError(t, err)

			assert.Equal(t, tt.loss, loss)
			assert.Equal(t, 1, m.fits)
			assert.Equal(t, []int{10 - tt.wantVal}, m.trainLen)
			assert.Equal(t, []int{tt.wantVal}, m.valLen)
		})
	}
}

func TestTrainCrossValidation(t *testing.T) {
	t.Run("one epoch two folds", func(t *testing.T) {
		m := newStub(nil, model.LossOf(0.2), model.LossOf(0.4))
		o := NewOrchestrator(WithLogger(log.Nop()), WithCrossValidation(1, dataset.NewKFold(2, false, 0)))

		loss, err := o.Train(m, splitOf(t, 10, 0))
		require.NoError(t, err)

		assert.Equal(t, 2, m.fits)
		v, ok := loss.Get()
		require.True(t, ok)
		assert.InDelta(t, 0.3, v, 1e-12)
		assert.Equal(t, []int{5, 5}, m.trainLen)
		assert.Equal(t, []int{5, 5}, m.valLen)
	})

	t.Run("folds use training rows only", func(t *testing.T) {
		m := newStub(nil, model.LossOf(1))
		o := NewOrchestrator(WithLogger(log.Nop()), WithCrossValidation(2, dataset.NewKFold(4, true, 7)))

		_, err := o.Train(m, splitOf(t, 10, 0.2))
		require.NoError(t, err)

		assert.Equal(t, 8, m.fits)
		for i := range m.trainLen {
			assert.Equal(t, 8, m.trainLen[i]+m.valLen[i])
		}
	})

	t.Run("no fold reports loss", func(t *testing.T) {
		m := newStub(nil, model.NoLoss)
		o := NewOrchestrator(WithLogger(log.Nop()), WithCrossValidation(1, dataset.NewKFold(2, false, 0)))

		loss, err := o.Train(m, splitOf(t, 10, 0))
		require.NoError(t, err)
		assert.False(t, loss.Valid)
		assert.Equal(t, 2, m.fits)
	})

	t.Run("some folds report no loss", func(t *testing.T) {
		m := newStub(hyperopt.Params{"lr": 0.1}, model.LossOf(0.5), model.NoLoss)
		o := NewOrchestrator(WithLogger(log.Nop()), WithCrossValidation(1, dataset.NewKFold(2, false, 0)))

		_, err := o.Train(m, splitOf(t, 10, 0))
		require.Error(t, err)

		var noLoss *errors.NoLossSignalError
		require.True(t, errors.As(err, &noLoss))
		assert.Equal(t, PhaseFold, noLoss.Phase)
		assert.Equal(t, 1, noLoss.Index)
		assert.Equal(t, 0.1, noLoss.Params["lr"])
	})

	t.Run("fold generator error", func(t *testing.T) {
		o := NewOrchestrator(WithLogger(log.Nop()), WithCrossValidation(1, dataset.NewKFold(20, false, 0)))
		_, err := o.Train(newStub(nil), splitOf(t, 10, 0))
		assert.Error(t, err)
	})
}

func TestTrainRecoversModelPanic(t *testing.T) {
	m := newStub(hyperopt.Params{"epochs": 3}, model.LossOf(1))
	m.panicOn = 1
	o := NewOrchestrator(WithLogger(log.Nop()), WithCrossValidation(1, dataset.NewKFold(2, false, 0)))

	_, err := o.Train(m, splitOf(t, 10, 0))
	require.Error(t, err)

	var stepErr *errors.FitStepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, PhaseFold, stepErr.Phase)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, 3, stepErr.Params["epochs"])

	var panicErr *errors.PanicError
	assert.True(t, errors.As(err, &panicErr))
}

func TestTrainInvalidInput(t *testing.T) {
	o := NewOrchestrator(WithLogger(log.Nop()))

	_, err := o.Train(nil, splitOf(t, 10, 0))
	assert.Error(t, err)

	_, err = o.Train(newStub(nil), nil)
	var insufficient *errors.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestWithCrossValidationDisabled(t *testing.T) {
	assert.Nil(t, NewOrchestrator(WithCrossValidation(0, dataset.NewKFold(2, false, 0))).CrossValidation())
	assert.Nil(t, NewOrchestrator(WithCrossValidation(2, nil)).CrossValidation())

	cv := NewOrchestrator(WithCrossValidation(2, dataset.NewKFold(3, false, 0))).CrossValidation()
	require.NotNil(t, cv)
	assert.Equal(t, 2, cv.Epochs)
}

func TestMissingLossPolicyString(t *testing.T) {
	assert.Equal(t, "abort", AbortOnMissingLoss.String())
	assert.Equal(t, "skip", SkipMissingLoss.String())
}
