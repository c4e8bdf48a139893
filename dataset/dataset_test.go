package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// makeDataset builds n rows with one feature equal to the row number and a
// label alternating 0/1, indexed by consecutive days.
func makeDataset(n int) *Dataset {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		index[i] = base.AddDate(0, 0, i)
		x[i] = float64(i)
		y[i] = float64(i % 2)
	}
	return &Dataset{
		X:        NewDense(n, 1, x),
		Y:        NewDense(n, 1, y),
		Index:    index,
		Features: []string{"a"},
		Labels:   []string{"b"},
	}
}

func TestDataset_At3(t *testing.T) {
	// 2 rows, lags [0 1], features [a b]
	ds := &Dataset{
		X: mat.NewDense(2, 4, []float64{
			1, 10, 2, 20,
			3, 30, 4, 40,
		}),
		Index:    []time.Time{time.Unix(0, 0), time.Unix(1, 0)},
		Lags:     []int{0, 1},
		Features: []string{"a", "b"},
	}

	assert.Equal(t, 2, ds.NumLags())
	assert.Equal(t, 4, ds.Width())
	assert.Equal(t, 2.0, ds.At3(0, 1, 0))
	assert.Equal(t, 40.0, ds.At3(1, 1, 1))
	assert.NoError(t, ds.Validate())
}

func TestDataset_Subset(t *testing.T) {
	ds := makeDataset(5)

	sub, err := ds.Subset([]int{4, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, 4.0, sub.X.At(0, 0))
	assert.Equal(t, 1.0, sub.Y.At(1, 0))
	assert.Equal(t, ds.Index[4], sub.Index[0])

	empty, err := ds.Subset(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.X.IsEmpty())

	_, err = ds.Subset([]int{5})
	assert.Error(t, err)
}

func TestDataset_Validate(t *testing.T) {
	ds := makeDataset(3)
	ds.Index = ds.Index[:2]

	var shapeErr *errors.ShapeMismatchError
	assert.True(t, errors.As(ds.Validate(), &shapeErr))
}
