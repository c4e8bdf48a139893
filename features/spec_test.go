package features

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

func TestNewSpec_Shape(t *testing.T) {
	tests := []struct {
		name         string
		opts         []Option
		wantFeatures []int
		wantMin      int
		wantWidth    int
	}{
		{"no lags", nil, []int{3}, 1, 3},
		{"lag range", []Option{WithLagRange(4)}, []int{4, 3}, 4, 12},
		{"sparse lags", []Option{WithLags(0, 2, 5)}, []int{3, 3}, 6, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewSpec([]string{"a", "b", "c"}, []string{"d", "e"}, tt.opts...)
			require.NoError(t, err)

			fs, ls := spec.Shape()
			assert.Equal(t, tt.wantFeatures, fs)
			assert.Equal(t, []int{2}, ls)
			assert.Equal(t, tt.wantMin, spec.MinRequiredSamples())
			assert.Equal(t, tt.wantWidth, spec.ExpandedFeatureLength())
		})
	}
}

func TestNewSpec_Goals(t *testing.T) {
	t.Run("implicit goal covers all labels", func(t *testing.T) {
		spec := MustSpec([]string{"a"}, []string{"d", "e"})
		goals := spec.Goals()
		require.Len(t, goals, 1)
		assert.Equal(t, "target", goals[0].Key())
		assert.Equal(t, []string{"d", "e"}, goals[0].Labels)
		assert.Equal(t, LossNone, goals[0].Loss.Kind)
	})

	t.Run("targets with shared loss", func(t *testing.T) {
		spec := MustSpec([]string{"a", "b", "c"}, []string{"d", "e"}, WithTargets("a"), WithLoss(LossColumn("b")))
		goals := spec.Goals()
		require.Len(t, goals, 1)
		assert.Equal(t, "a", goals[0].Key())
		assert.Equal(t, LossColumn("b"), goals[0].Loss)
		assert.Equal(t, []string{"d", "e"}, goals[0].Labels)
	})

	t.Run("goal label subset keeps goal order", func(t *testing.T) {
		spec := MustSpec([]string{"a"}, []string{"c", "b"},
			WithGoals(Goal{Target: "b", Loss: LossConstant(-1), Labels: []string{"b", "c"}}))
		g, ok := spec.Goal("b")
		require.True(t, ok)
		assert.Equal(t, []string{"b", "c"}, g.Labels)
	})

	t.Run("two goals on one target", func(t *testing.T) {
		spec := MustSpec([]string{"a"}, []string{"b"},
			WithGoals(
				Goal{Name: "b_1", Target: "b", Loss: LossConstant(1)},
				Goal{Name: "b_2", Target: "b", Loss: LossConstant(2)},
			))
		assert.Len(t, spec.Goals(), 2)
	})
}

func TestNewSpec_Invalid(t *testing.T) {
	RegisterSmoother("spec-test-identity", func(s []float64) []float64 { return s })

	tests := []struct {
		name      string
		features  []string
		labels    []string
		opts      []Option
		wantField string
	}{
		{"no features", nil, []string{"d"}, nil, "features"},
		{"duplicate feature", []string{"a", "a"}, []string{"d"}, nil, "features"},
		{"no labels", []string{"a"}, nil, nil, "labels"},
		{"undeclared goal label", []string{"a"}, []string{"d"},
			[]Option{WithGoals(Goal{Target: "a", Labels: []string{"x"}})}, "goals"},
		{"duplicate goal key", []string{"a"}, []string{"d"},
			[]Option{WithGoals(Goal{Target: "a"}, Goal{Target: "a"})}, "goals"},
		{"negative lag", []string{"a"}, []string{"d"}, []Option{WithLags(-1, 0)}, "lags"},
		{"unordered lags", []string{"a"}, []string{"d"}, []Option{WithLags(2, 1)}, "lags"},
		{"smoothing without lags", []string{"a"}, []string{"d"}, []Option{WithSmoothing(0, SMA(2))}, "smoothing"},
		{"bad window", []string{"a"}, []string{"d"}, []Option{WithLagRange(2), WithSmoothing(1, SMA(0))}, "smoothing"},
		{"bad alpha", []string{"a"}, []string{"d"}, []Option{WithLagRange(2), WithSmoothing(1, EWM(1.5))}, "smoothing"},
		{"unregistered custom", []string{"a"}, []string{"d"}, []Option{WithLagRange(2), WithSmoothing(1, CustomSmoother("nope"))}, "smoothing"},
		{"cutoff above one", []string{"a"}, []string{"d"}, []Option{WithProbabilityCutoff(1.2)}, "probability_cutoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpec(tt.features, tt.labels, tt.opts...)
			var specErr *errors.InvalidSpecError
			require.True(t, errors.As(err, &specErr), "got %v", err)
			assert.Equal(t, tt.wantField, specErr.Field)
		})
	}

	_, err := NewSpec([]string{"a"}, []string{"d"}, WithLagRange(2), WithSmoothing(1, CustomSmoother("spec-test-identity")))
	assert.NoError(t, err)
}

func TestSpec_ID(t *testing.T) {
	s1 := MustSpec([]string{"a", "b", "c"}, []string{"d", "e"}, WithTargets("b"))
	s2 := MustSpec([]string{"a", "b", "c"}, []string{"d", "e"}, WithTargets("b"))
	s3 := MustSpec([]string{"a", "b", "d"}, []string{"d", "e"}, WithTargets("b"))

	assert.Equal(t, s1.ID(), s2.ID())
	assert.True(t, s1.Equal(s2))
	assert.NotEqual(t, s1.ID(), s3.ID())
	assert.False(t, s1.Equal(s3))

	lagged := MustSpec([]string{"a"}, []string{"d"}, WithLagRange(3))
	sma := MustSpec([]string{"a"}, []string{"d"}, WithLagRange(3), WithSmoothing(1, SMA(2)))
	ewm := MustSpec([]string{"a"}, []string{"d"}, WithLagRange(3), WithSmoothing(1, EWM(0.3)))
	assert.NotEqual(t, lagged.ID(), sma.ID())
	assert.NotEqual(t, sma.ID(), ewm.ID())

	recut, err := s1.WithCutoff(0.7)
	require.NoError(t, err)
	assert.Equal(t, s1.ID(), recut.ID(), "cutoff is not part of identity")
	assert.Equal(t, 0.7, recut.ProbabilityCutoff())
	assert.Equal(t, 0.5, s1.ProbabilityCutoff())
}

func TestSpec_GobRoundTrip(t *testing.T) {
	spec := MustSpec([]string{"a", "b"}, []string{"c", "d"},
		WithLagRange(3),
		WithSmoothing(2, EWM(0.5)),
		WithProbabilityCutoff(0.6),
		WithGoals(Goal{Name: "g", Target: "a", Loss: LossColumn("b"), Labels: []string{"d"}}),
	)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(spec))

	var decoded Spec
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.True(t, spec.Equal(&decoded))
	assert.Equal(t, spec.Goals(), decoded.Goals())
	assert.Equal(t, 0.6, decoded.ProbabilityCutoff())
}

func TestSpec_AccessorsReturnCopies(t *testing.T) {
	spec := MustSpec([]string{"a"}, []string{"d", "e"})

	f := spec.Features()
	f[0] = "zzz"
	goals := spec.Goals()
	goals[0].Labels[0] = "zzz"

	assert.Equal(t, []string{"a"}, spec.Features())
	assert.Equal(t, []string{"d", "e"}, spec.Goals()[0].Labels)
	assert.Equal(t, 1, spec.LabelIndex("e"))
	assert.Equal(t, -1, spec.LabelIndex("x"))
}

func TestSpec_OnlyGoal(t *testing.T) {
	spec := MustSpec([]string{"a"}, []string{"b", "c"},
		WithTargets("x", "y"))

	only, err := spec.OnlyGoal("y")
	require.NoError(t, err)
	require.Len(t, only.Goals(), 1)
	assert.Equal(t, "y", only.Goals()[0].Key())
	assert.True(t, spec.Equal(only))
	assert.Len(t, spec.Goals(), 2)

	_, err = spec.OnlyGoal("z")
	var specErr *errors.InvalidSpecError
	assert.True(t, errors.As(err, &specErr))
}
