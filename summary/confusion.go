// Package summary reports binary classification results as confusion index
// sets and the 2x2 count and loss matrices derived from them.
package summary

import (
	"time"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Partition holds the row keys of each confusion cell.
// Every row of the input is in exactly one set.
type Partition struct {
	TP []time.Time
	FP []time.Time
	FN []time.Time
	TN []time.Time
}

// Len returns the number of rows in the partition.
func (p Partition) Len() int {
	return len(p.TP) + len(p.FP) + len(p.FN) + len(p.TN)
}

// Count returns the set sizes as [[TP, FP], [FN, TN]].
func (p Partition) Count() [2][2]int {
	return [2][2]int{
		{len(p.TP), len(p.FP)},
		{len(p.FN), len(p.TN)},
	}
}

// Confusion partitions index by truth and by yPred > cutoff. A non-zero
// yTrue is a positive.
func Confusion(yTrue, yPred []float64, index []time.Time, cutoff float64) (Partition, error) {
	cells, err := classify(yTrue, yPred, index, cutoff)
	if err != nil {
		return Partition{}, err
	}
	var p Partition
	for i, c := range cells {
		switch c {
		case cellTP:
			p.TP = append(p.TP, index[i])
		case cellFP:
			p.FP = append(p.FP, index[i])
		case cellFN:
			p.FN = append(p.FN, index[i])
		default:
			p.TN = append(p.TN, index[i])
		}
	}
	return p, nil
}

type cell int

const (
	cellTP cell = iota
	cellFP
	cellFN
	cellTN
)

// classify returns the confusion cell of every row.
func classify(yTrue, yPred []float64, index []time.Time, cutoff float64) ([]cell, error) {
	if len(yTrue) != len(index) || len(yPred) != len(index) {
		return nil, errors.NewShapeMismatchError("summary.Confusion",
			map[string]int{"y_true": len(yTrue), "y_pred": len(yPred), "index": len(index)})
	}
	cells := make([]cell, len(index))
	for i := range index {
		positive := yTrue[i] != 0
		predicted := yPred[i] > cutoff
		switch {
		case positive && predicted:
			cells[i] = cellTP
		case !positive && predicted:
			cells[i] = cellFP
		case positive:
			cells[i] = cellFN
		default:
			cells[i] = cellTN
		}
	}
	return cells, nil
}
