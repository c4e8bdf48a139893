package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoother_Apply(t *testing.T) {
	series := []float64{2, 4, 6, 8}

	t.Run("moving average", func(t *testing.T) {
		out, err := SMA(2).Apply(series)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(out[0]))
		assert.Equal(t, []float64{3, 5, 7}, out[1:])
	})

	t.Run("window one is identity", func(t *testing.T) {
		out, err := SMA(1).Apply(series)
		require.NoError(t, err)
		assert.Equal(t, series, out)
	})

	t.Run("ewma", func(t *testing.T) {
		out, err := EWM(0.5).Apply([]float64{2, 4, math.NaN(), 8})
		require.NoError(t, err)
		assert.Equal(t, 2.0, out[0])
		assert.Equal(t, 3.0, out[1])
		assert.True(t, math.IsNaN(out[2]))
		assert.Equal(t, 5.5, out[3])
	})

	t.Run("custom does not mutate input", func(t *testing.T) {
		RegisterSmoother("smoothing-test-double", func(s []float64) []float64 {
			for i := range s {
				s[i] *= 2
			}
			return s
		})
		out, err := CustomSmoother("smoothing-test-double").Apply(series)
		require.NoError(t, err)
		assert.Equal(t, []float64{4, 8, 12, 16}, out)
		assert.Equal(t, []float64{2, 4, 6, 8}, series)
	})

	t.Run("identity strings", func(t *testing.T) {
		assert.Equal(t, "moving_average(3)", SMA(3).Identity())
		assert.Equal(t, "ewma(0.25)", EWM(0.25).Identity())
		assert.Equal(t, "custom(x)", CustomSmoother("x").Identity())
	})
}
