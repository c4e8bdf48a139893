package summary

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

func hours(n int) []time.Time {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// collectWarnings routes library warnings into the returned slice for the test.
func collectWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &warnings
}

func TestConfusion(t *testing.T) {
	index := hours(6)
	yTrue := []float64{1, 1, 0, 0, 1, 0}
	yPred := []float64{0.9, 0.5, 0.7, 0.1, 0.2, 0.5}

	p, err := Confusion(yTrue, yPred, index, 0.5)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{index[0]}, p.TP)
	assert.Equal(t, []time.Time{index[2]}, p.FP)
	assert.Equal(t, []time.Time{index[1], index[4]}, p.FN)
	assert.Equal(t, []time.Time{index[3], index[5]}, p.TN)
	assert.Equal(t, [2][2]int{{1, 1}, {2, 2}}, p.Count())
	assert.Equal(t, 6, p.Len())

	_, err = Confusion(yTrue, yPred[:5], index, 0.5)
	var shape *errors.ShapeMismatchError
	assert.True(t, errors.As(err, &shape))
}

func TestConfusionProperties(t *testing.T) {
	src := rand.NewPCG(3, 3)
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: src}
	bernoulli := distuv.Bernoulli{P: 0.4, Src: src}

	n := 200
	index := hours(n)
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		yTrue[i] = bernoulli.Rand()
		yPred[i] = uniform.Rand()
	}

	lastPositive := n + 1
	for _, cutoff := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		p, err := Confusion(yTrue, yPred, index, cutoff)
		require.NoError(t, err)

		assert.Equal(t, n, p.Len(), "cutoff %g", cutoff)
		seen := make(map[time.Time]bool, n)
		for _, set := range [][]time.Time{p.TP, p.FP, p.FN, p.TN} {
			for _, ts := range set {
				assert.False(t, seen[ts], "row %s in two sets", ts)
				seen[ts] = true
			}
		}

		positive := len(p.TP) + len(p.FP)
		assert.LessOrEqual(t, positive, lastPositive, "cutoff %g", cutoff)
		lastPositive = positive
	}
}

func TestClassificationSummary(t *testing.T) {
	warnings := collectWarnings(t)
	index := hours(4)
	yTrue := []float64{1, 0, 1, 0}
	yPred := []float64{0.8, 0.6, 0.3, 0.2}
	loss := []float64{2, -1, -3, 0.5}

	s, err := NewClassificationSummary(yTrue, yPred, index, loss, 0.5)
	require.NoError(t, err)
	assert.Empty(t, *warnings)

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, [2][2]int{{1, 1}, {1, 1}}, s.ConfusionCount())
	assert.Equal(t, [2][2]float64{{2, -1}, {-3, 0.5}}, s.ConfusionLoss())

	t.Run("with cutoff", func(t *testing.T) {
		lower, err := s.WithCutoff(0.25)
		require.NoError(t, err)
		assert.Equal(t, [2][2]int{{2, 1}, {0, 1}}, lower.ConfusionCount())
		assert.Equal(t, [2][2]float64{{-1, -1}, {0, 0.5}}, lower.ConfusionLoss())

		assert.Equal(t, 0.5, s.Cutoff())
		assert.Equal(t, [2][2]int{{1, 1}, {1, 1}}, s.ConfusionCount())
	})

	t.Run("degenerate", func(t *testing.T) {
		*warnings = nil
		high, err := s.WithCutoff(0.9)
		require.NoError(t, err)
		assert.Equal(t, 0, high.ConfusionCount()[0][0])

		require.Len(t, *warnings, 1)
		var degenerate *errors.DegenerateFitWarning
		require.True(t, errors.As((*warnings)[0], &degenerate))
		assert.Equal(t, 0.9, degenerate.Cutoff)
		assert.Equal(t, 4, degenerate.Rows)
	})

	t.Run("invalid cutoff", func(t *testing.T) {
		_, err := s.WithCutoff(1.5)
		assert.Error(t, err)
	})

	t.Run("string", func(t *testing.T) {
		out := s.String()
		assert.Contains(t, out, "cutoff: 0.5000")
		assert.Contains(t, out, "confusion count")
	})
}

func TestNewClassificationSummaryErrors(t *testing.T) {
	collectWarnings(t)
	index := hours(3)

	tests := []struct {
		name   string
		yTrue  []float64
		yPred  []float64
		loss   []float64
		cutoff float64
	}{
		{name: "short prediction", yTrue: []float64{1, 0, 1}, yPred: []float64{1, 0}, cutoff: 0.5},
		{name: "short loss", yTrue: []float64{1, 0, 1}, yPred: []float64{1, 0, 1}, loss: []float64{1}, cutoff: 0.5},
		{name: "negative cutoff", yTrue: []float64{1, 0, 1}, yPred: []float64{1, 0, 1}, cutoff: -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassificationSummary(tt.yTrue, tt.yPred, index, tt.loss, tt.cutoff)
			assert.Error(t, err)
		})
	}

	s, err := NewClassificationSummary([]float64{1, 0, 1}, []float64{0.9, 0.1, 0.9}, index, nil, 0.5)
	require.NoError(t, err)
	assert.Equal(t, [2][2]float64{{-2, 0}, {0, -1}}, s.ConfusionLoss())
}

func TestFromFrame(t *testing.T) {
	warnings := collectWarnings(t)
	index := hours(3)
	lf := frame.NewLabeled(index)
	require.NoError(t, lf.Add(frame.Key("up", frame.RolePrediction, frame.ValueSub), []float64{0.9, 0.2, 0.7}))
	require.NoError(t, lf.Add(frame.Key("up", frame.RoleLabel, frame.ValueSub), []float64{1, 0, 0}))
	require.NoError(t, lf.Add(frame.Key("up", frame.RoleLoss, frame.ValueSub), []float64{-2, -2, -2}))
	require.NoError(t, lf.Add(frame.Key("down", frame.RolePrediction, frame.ValueSub), []float64{0.1, 0.2, 0.3}))
	require.NoError(t, lf.Add(frame.Key("down", frame.RoleLabel, frame.ValueSub), []float64{1, 1, 0}))
	require.NoError(t, lf.Add(frame.Key("down", frame.RoleLoss, frame.ValueSub), []float64{-1, -1, -1}))

	goals := []features.Goal{
		{Name: "up", Labels: []string{"y"}},
		{Name: "down", Labels: []string{"y"}},
	}
	summaries, err := FromFrame(lf, goals, 0.5)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, [2][2]int{{1, 1}, {0, 1}}, summaries["up"].ConfusionCount())
	assert.Equal(t, [2][2]float64{{-2, -2}, {0, -2}}, summaries["up"].ConfusionLoss())
	assert.Equal(t, "up", summaries["up"].Goal())

	require.Len(t, *warnings, 1)
	var degenerate *errors.DegenerateFitWarning
	require.True(t, errors.As((*warnings)[0], &degenerate))
	assert.Equal(t, "down", degenerate.Goal)

	_, err = FromFrame(lf, []features.Goal{{Name: "missing", Labels: []string{"y"}}}, 0.5)
	assert.Error(t, err)
}
