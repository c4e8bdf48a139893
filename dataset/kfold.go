package dataset

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Fold is one cross-validation pair of row positions over the training portion.
type Fold struct {
	Train      []int
	Validation []int
}

// FoldGenerator yields the folds of one cross-validation epoch over n rows.
// It is invoked once per epoch so that shuffling can differ between epochs.
type FoldGenerator interface {
	Split(n, epoch int) ([]Fold, error)
}

// FoldFunc adapts a function to FoldGenerator.
type FoldFunc func(n, epoch int) ([]Fold, error)

// Split implements FoldGenerator.
func (f FoldFunc) Split(n, epoch int) ([]Fold, error) {
	return f(n, epoch)
}

// KFold implements k-fold cross-validation.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a new k-fold generator. nSplits below 2 defaults to 5.
func NewKFold(nSplits int, shuffle bool, seed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{
		NSplits: nSplits,
		Shuffle: shuffle,
		Seed:    seed,
	}
}

// Split implements FoldGenerator. With Shuffle the permutation is seeded by
// Seed+epoch so every epoch sees a fresh, reproducible assignment.
func (kf *KFold) Split(n, epoch int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if n < kf.NSplits {
		return nil, errors.NewInsufficientDataError("KFold.Split", kf.NSplits, n)
	}

	indices := seq(0, n)
	if kf.Shuffle {
		s := uint64(kf.Seed + int64(epoch))
		r := rand.New(rand.NewPCG(s, s))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		size := foldSize
		if i < remainder {
			size++
		}

		inFold := make([]bool, n)
		validation := make([]int, size)
		for j, idx := range indices[current : current+size] {
			validation[j] = idx
			inFold[idx] = true
		}

		train := make([]int, 0, n-size)
		for idx := 0; idx < n; idx++ {
			if !inFold[idx] {
				train = append(train, idx)
			}
		}

		folds[i] = Fold{Train: train, Validation: validation}
		current += size
	}
	return folds, nil
}
