package dataset

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKFold_Split(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		splits  int
		shuffle bool
		sizes   []int
	}{
		{"even", 10, 2, false, []int{5, 5}},
		{"remainder", 11, 3, false, []int{4, 4, 3}},
		{"shuffled", 12, 4, true, []int{3, 3, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kf := NewKFold(tt.splits, tt.shuffle, 42)
			folds, err := kf.Split(tt.n, 0)
			require.NoError(t, err)
			require.Len(t, folds, tt.splits)

			var allValidation []int
			for i, f := range folds {
				assert.Len(t, f.Validation, tt.sizes[i])
				assert.Len(t, f.Train, tt.n-tt.sizes[i])

				seen := make(map[int]bool)
				for _, v := range f.Validation {
					seen[v] = true
				}
				for _, tr := range f.Train {
					assert.False(t, seen[tr], "row %d in both train and validation", tr)
				}
				allValidation = append(allValidation, f.Validation...)
			}

			sort.Ints(allValidation)
			assert.Equal(t, seq(0, tt.n), allValidation, "every row validated exactly once")
		})
	}
}

func TestKFold_EpochReshuffles(t *testing.T) {
	kf := NewKFold(3, true, 5)

	e0, err := kf.Split(30, 0)
	require.NoError(t, err)
	e0again, err := kf.Split(30, 0)
	require.NoError(t, err)
	e1, err := kf.Split(30, 1)
	require.NoError(t, err)

	assert.Equal(t, e0, e0again)
	assert.NotEqual(t, e0[0].Validation, e1[0].Validation)
}

func TestKFold_Errors(t *testing.T) {
	_, err := NewKFold(5, false, 0).Split(3, 0)
	assert.Error(t, err)

	_, err = (&KFold{NSplits: 1}).Split(10, 0)
	assert.Error(t, err)

	assert.Equal(t, 5, NewKFold(0, false, 0).NSplits)
}

func TestFoldFunc(t *testing.T) {
	var calls []int
	gen := FoldFunc(func(n, epoch int) ([]Fold, error) {
		calls = append(calls, epoch)
		return []Fold{{Train: seq(0, n-1), Validation: []int{n - 1}}}, nil
	})

	folds, err := gen.Split(4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, folds[0].Validation)
	assert.Equal(t, []int{2}, calls)
}
