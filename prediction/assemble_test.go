package prediction

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

func twoRows(t *testing.T) *frame.Frame {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	df := frame.MustNew([]time.Time{start, start.Add(24 * time.Hour)})
	require.NoError(t, df.AddColumn("a", []float64{0.1, 0.01}))
	require.NoError(t, df.AddBoolColumn("b", []bool{true, false}))
	return df
}

func TestAssembleSingleGoal(t *testing.T) {
	df := twoRows(t)
	spec := features.MustSpec([]string{"a"}, []string{"b"})
	preds := models.Predictions{"target": mat.NewDense(2, 1, []float64{0.8, 0.3})}

	lf, err := Assemble(df, spec.Goals(), preds)
	require.NoError(t, err)

	assert.Equal(t, []frame.ColumnKey{
		frame.Key("target", "target", "value"),
		frame.Key("target", "prediction", "value"),
		frame.Key("target", "label", "value"),
		frame.Key("target", "loss", "value"),
	}, lf.Keys())

	labels, ok := lf.Column(frame.Key("target", "label", "value"))
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0}, labels)

	target, _ := lf.Column(frame.Key("target", "target", "value"))
	assert.True(t, math.IsNaN(target[0]))
	assert.True(t, math.IsNaN(target[1]))

	pred, _ := lf.Column(frame.Key("target", "prediction", "value"))
	assert.Equal(t, []float64{0.8, 0.3}, pred)

	loss, _ := lf.Column(frame.Key("target", "loss", "value"))
	assert.Equal(t, []float64{-1, -1}, loss)
	assert.Equal(t, df.Index(), lf.Index())
}

func TestAssembleMultiGoal(t *testing.T) {
	df := twoRows(t)
	require.NoError(t, df.AddColumn("c", []float64{0, 1}))
	require.NoError(t, df.AddColumn("px", []float64{10, 11}))
	require.NoError(t, df.AddColumn("ret", []float64{0.5, -0.25}))

	spec := features.MustSpec([]string{"a"}, []string{"b", "c"}, features.WithGoals(
		features.Goal{Name: "cheap", Target: "px", Loss: features.LossConstant(2), Labels: []string{"b"}},
		features.Goal{Name: "dear", Target: "px", Loss: features.LossConstant(-5), Labels: []string{"b"}},
		features.Goal{Name: "both", Loss: features.LossColumn("ret")},
	))
	preds := models.Predictions{
		"cheap": mat.NewDense(2, 1, []float64{0.9, 0.1}),
		"dear":  mat.NewDense(2, 1, []float64{0.7, 0.2}),
		"both":  mat.NewDense(2, 2, []float64{0.6, 0.4, 0.3, 0.5}),
	}

	lf, err := Assemble(df, spec.Goals(), preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap", "dear", "both"}, lf.Tops())

	cheap, _ := lf.Column(frame.Key("cheap", frame.RoleLoss, frame.ValueSub))
	dear, _ := lf.Column(frame.Key("dear", frame.RoleLoss, frame.ValueSub))
	assert.Equal(t, []float64{-2, -2}, cheap)
	assert.Equal(t, []float64{-5, -5}, dear)

	target, _ := lf.Column(frame.Key("dear", frame.RoleTarget, frame.ValueSub))
	assert.Equal(t, []float64{10, 11}, target)

	assert.Equal(t, []frame.ColumnKey{
		frame.Key("both", "target", "value"),
		frame.Key("both", "prediction", "b"),
		frame.Key("both", "prediction", "c"),
		frame.Key("both", "label", "b"),
		frame.Key("both", "label", "c"),
		frame.Key("both", "loss", "value"),
	}, lf.Select("both", ""))

	predC, _ := lf.Column(frame.Key("both", frame.RolePrediction, "c"))
	assert.Equal(t, []float64{0.4, 0.5}, predC)
	loss, _ := lf.Column(frame.Key("both", frame.RoleLoss, frame.ValueSub))
	assert.Equal(t, []float64{0.5, -0.25}, loss)
}

func TestAssembleErrors(t *testing.T) {
	df := twoRows(t)
	spec := features.MustSpec([]string{"a"}, []string{"b"})

	tests := []struct {
		name  string
		goals []features.Goal
		preds models.Predictions
		shape bool
	}{
		{name: "too few rows", goals: spec.Goals(), preds: models.Predictions{"target": mat.NewDense(1, 1, nil)}, shape: true},
		{name: "too many columns", goals: spec.Goals(), preds: models.Predictions{"target": mat.NewDense(2, 2, nil)}, shape: true},
		{name: "missing goal", goals: spec.Goals(), preds: models.Predictions{"other": mat.NewDense(2, 1, nil)}, shape: true},
		{name: "no goals", goals: nil, preds: models.Predictions{}},
		{name: "missing loss column", goals: []features.Goal{{Labels: []string{"b"}, Loss: features.LossColumn("nope")}},
			preds: models.Predictions{"target": mat.NewDense(2, 1, nil)}},
		{name: "missing target column", goals: []features.Goal{{Target: "nope", Labels: []string{"b"}}},
			preds: models.Predictions{"nope": mat.NewDense(2, 1, nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(df, tt.goals, tt.preds)
			require.Error(t, err)
			var shape *errors.ShapeMismatchError
			assert.Equal(t, tt.shape, errors.As(err, &shape))
		})
	}
}

func TestAssembleTruth(t *testing.T) {
	df := twoRows(t)
	spec := features.MustSpec([]string{"a"}, []string{"b"})

	lf, err := AssembleTruth(df, spec.Goals())
	require.NoError(t, err)
	assert.Equal(t, []frame.ColumnKey{frame.Key("target", "label", "value")}, lf.Keys())

	col, _ := lf.Column(frame.Key("target", "label", "value"))
	assert.Equal(t, []float64{1, 0}, col)
}

func TestAssembleBacktest(t *testing.T) {
	df := twoRows(t)
	spec := features.MustSpec([]string{"a"}, []string{"b"})

	lf, err := AssembleBacktest(df, spec, models.Predictions{"target": mat.NewDense(2, 1, []float64{0.8, 0.3})})
	require.NoError(t, err)

	keys := lf.Keys()
	require.Len(t, keys, 5)
	assert.Equal(t, frame.Key("feature", "feature", "a"), keys[4])
	a, _ := lf.Column(keys[4])
	assert.Equal(t, []float64{0.1, 0.01}, a)
}

func TestAssembleForecast(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	df := frame.MustNew([]time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour)})
	require.NoError(t, df.AddColumn("a", []float64{1, 2, 3}))
	spec := features.MustSpec([]string{"a"}, []string{"b"})
	preds := models.Predictions{"target": mat.NewDense(3, 1, []float64{0.2, 0.6, 0.5})}

	t.Run("forecast", func(t *testing.T) {
		lf, err := AssembleForecast(df, spec, preds)
		require.NoError(t, err)
		assert.Equal(t, []frame.ColumnKey{
			frame.Key("feature", "feature", "a"),
			frame.Key("target", "target", "value"),
			frame.Key("target", "prediction", "value"),
		}, lf.Keys())
	})

	t.Run("classification", func(t *testing.T) {
		lf, err := AssembleClassification(df, spec, preds)
		require.NoError(t, err)

		proba, ok := lf.Column(frame.Key("target", frame.RolePrediction, frame.ProbaSub))
		require.True(t, ok)
		assert.Equal(t, []float64{0.2, 0.6, 0.5}, proba)

		class, ok := lf.Column(frame.Key("target", frame.RolePrediction, frame.ValueSub))
		require.True(t, ok)
		assert.Equal(t, []float64{0, 1, 0}, class)
	})

	t.Run("empty", func(t *testing.T) {
		empty := frame.MustNew(nil)
		require.NoError(t, empty.AddColumn("a", nil))
		lf, err := AssembleForecast(empty, spec, models.Predictions{})
		require.NoError(t, err)
		assert.Equal(t, 0, lf.Len())
		assert.Len(t, lf.Keys(), 3)
	})
}
