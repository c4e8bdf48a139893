package fitter

import (
	"bytes"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

func init() {
	errors.SetWarningHandler(func(error) {})
}

// separableFrame has features a and b and the label y = a+b > 0.
func separableFrame(t *testing.T, n int) *frame.Frame {
	t.Helper()
	src := rand.NewPCG(5, 5)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	a := make([]float64, n)
	b := make([]float64, n)
	y := make([]bool, n)
	for i := 0; i < n; i++ {
		index[i] = start.Add(time.Duration(i) * time.Hour)
		a[i], b[i] = normal.Rand(), normal.Rand()
		y[i] = a[i]+b[i] > 0
	}
	df := frame.MustNew(index)
	require.NoError(t, df.AddColumn("a", a))
	require.NoError(t, df.AddColumn("b", b))
	require.NoError(t, df.AddBoolColumn("y", y))
	return df
}

func neuralProvider(opts ...features.Option) models.Provider {
	spec := features.MustSpec([]string{"a", "b"}, []string{"y"}, opts...)
	return models.NewNeuralProvider(spec, models.WithEpochs(20), models.WithModelLogger(log.Nop()))
}

func accuracy(count [2][2]int) float64 {
	total := count[0][0] + count[0][1] + count[1][0] + count[1][1]
	return float64(count[0][0]+count[1][1]) / float64(total)
}

func TestFit(t *testing.T) {
	df := separableFrame(t, 200)

	res, err := Fit(df, neuralProvider(), WithLogger(log.Nop()))
	require.NoError(t, err)

	require.NotNil(t, res.Test)
	assert.Equal(t, 120, res.Training.Len())
	assert.Equal(t, 80, res.Test.Len())
	assert.Nil(t, res.Trials)

	loss, ok := res.Loss.Get()
	require.True(t, ok)
	assert.Less(t, loss, 0.6)

	require.Contains(t, res.TestSummary, "target")
	assert.Greater(t, accuracy(res.TestSummary["target"].ConfusionCount()), 0.8)
	assert.Equal(t, 120, res.TrainingSummary["target"].Len())

	t.Run("set probability cutoff", func(t *testing.T) {
		require.NoError(t, res.SetProbabilityCutoff(1))
		count := res.TestSummary["target"].ConfusionCount()
		assert.Equal(t, 0, count[0][0]+count[0][1])
		assert.Equal(t, 1.0, res.TrainingSummary["target"].Cutoff())

		assert.Error(t, res.SetProbabilityCutoff(2))
	})
}

func TestFitWithoutTestSet(t *testing.T) {
	df := separableFrame(t, 60)

	res, err := Fit(df, neuralProvider(), WithTestSize(0), WithLogger(log.Nop()))
	require.NoError(t, err)

	assert.Nil(t, res.Test)
	assert.Nil(t, res.TestSummary)
	assert.Equal(t, 60, res.Training.Len())
}

func TestFitYoungestSplit(t *testing.T) {
	df := separableFrame(t, 100)

	res, err := Fit(df, neuralProvider(), WithTestSize(0.2), WithYoungestSplit(), WithLogger(log.Nop()))
	require.NoError(t, err)

	assert.Equal(t, df.Index()[80:], res.Test.Index())
}

func TestFitCrossValidationAndSearch(t *testing.T) {
	df := separableFrame(t, 120)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	space := map[string]interface{}{
		models.ParamLearningRate: hyperopt.LogUniform(0.01, 0.5),
		models.ParamEpochs:       5,
		"__max_evals":            3,
		"__algo":                 hyperopt.AlgoRandom,
	}
	res, err := Fit(df, neuralProvider(),
		WithTestSize(0.25),
		WithCrossValidation(1, dataset.NewKFold(3, true, 1)),
		WithHyperParameterSpace(space),
		WithLogger(logger),
	)
	require.NoError(t, err)

	require.NotNil(t, res.Trials)
	assert.Equal(t, 3, res.Trials.Len())
	assert.Len(t, logger.EntriesWithMessage("trial done"), 3)
	assert.Len(t, logger.EntriesWithMessage("fit fold"), 12)

	nm, ok := res.Model.(*models.NeuralModel)
	require.True(t, ok)
	assert.Equal(t, 20, nm.Epochs)
}

func TestFitErrors(t *testing.T) {
	df := separableFrame(t, 10)

	t.Run("nil provider", func(t *testing.T) {
		_, err := Fit(df, nil, WithLogger(log.Nop()))
		assert.Error(t, err)
	})

	t.Run("too few rows for lags", func(t *testing.T) {
		_, err := Fit(df, neuralProvider(features.WithLagRange(20)), WithLogger(log.Nop()))
		var insufficient *errors.InsufficientDataError
		assert.True(t, errors.As(err, &insufficient))
	})

	t.Run("missing column", func(t *testing.T) {
		spec := features.MustSpec([]string{"a", "zz"}, []string{"y"})
		_, err := Fit(df, models.NewNeuralProvider(spec), WithLogger(log.Nop()))
		var invalid *errors.InvalidSpecError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("invalid test size", func(t *testing.T) {
		_, err := Fit(df, neuralProvider(), WithTestSize(1.5), WithLogger(log.Nop()))
		assert.Error(t, err)
	})
}

func TestBacktestAndPredict(t *testing.T) {
	df := separableFrame(t, 150)
	res, err := Fit(df, neuralProvider(features.WithLags(0, 1)), WithLogger(log.Nop()))
	require.NoError(t, err)
	m := res.Model

	t.Run("backtest", func(t *testing.T) {
		lf, err := Backtest(df, m, WithLogger(log.Nop()))
		require.NoError(t, err)
		assert.Equal(t, 149, lf.Len())
		assert.Len(t, lf.Select(frame.RoleFeature, frame.RoleFeature), 2)

		summaries, err := BacktestSummary(df, m, WithLogger(log.Nop()))
		require.NoError(t, err)
		assert.Equal(t, 149, summaries["target"].Len())
	})

	t.Run("predict tail", func(t *testing.T) {
		lf, err := Predict(df, m, 5, WithLogger(log.Nop()))
		require.NoError(t, err)
		assert.Equal(t, df.Index()[145:], lf.Index())
		_, ok := lf.Column(frame.Key(frame.DefaultTop, frame.RolePrediction, frame.ValueSub))
		assert.True(t, ok)
	})

	t.Run("predict all", func(t *testing.T) {
		lf, err := Predict(df, m, 0, WithLogger(log.Nop()))
		require.NoError(t, err)
		assert.Equal(t, 149, lf.Len())
	})

	t.Run("negative tail", func(t *testing.T) {
		_, err := Predict(df, m, -1, WithLogger(log.Nop()))
		var validation *errors.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("classify", func(t *testing.T) {
		lf, err := Classify(df, m, 3, WithLogger(log.Nop()))
		require.NoError(t, err)
		proba, ok := lf.Column(frame.Key(frame.DefaultTop, frame.RolePrediction, frame.ProbaSub))
		require.True(t, ok)
		class, _ := lf.Column(frame.Key(frame.DefaultTop, frame.RolePrediction, frame.ValueSub))
		for i := range proba {
			assert.Equal(t, proba[i] > 0.5, class[i] == 1)
		}
	})

	t.Run("saved model predicts the same", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, models.Save(&buf, m))
		loaded, err := models.Load(&buf)
		require.NoError(t, err)

		want, err := Predict(df, m, 10, WithLogger(log.Nop()))
		require.NoError(t, err)
		got, err := Predict(df, loaded, 10, WithLogger(log.Nop()))
		require.NoError(t, err)

		key := frame.Key(frame.DefaultTop, frame.RolePrediction, frame.ValueSub)
		w, _ := want.Column(key)
		g, _ := got.Column(key)
		assert.Equal(t, w, g)
	})
}
