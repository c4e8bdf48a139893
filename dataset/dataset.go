// Package dataset holds extracted feature/label matrices and splits them into
// training and test portions or cross-validation folds.
package dataset

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Dataset is the output of feature/label extraction.
//
// X is rows × (lags·features) in lag-major order: the value of feature f at lag
// position l of row r lives in column l*len(Features)+f. Without a lag axis X is
// rows × features. Y is rows × labels and is nil for forecast-only data.
type Dataset struct {
	X        *mat.Dense
	Y        *mat.Dense
	Index    []time.Time
	Lags     []int
	Features []string
	Labels   []string
}

// NewDense builds a matrix, returning an empty matrix for zero rows or columns.
func NewDense(rows, cols int, data []float64) *mat.Dense {
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(rows, cols, data)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Index)
}

// NumLags returns the size of the lag axis, 1 without lags.
func (d *Dataset) NumLags() int {
	if len(d.Lags) == 0 {
		return 1
	}
	return len(d.Lags)
}

// Width returns the number of X columns, lags times features.
func (d *Dataset) Width() int {
	return d.NumLags() * len(d.Features)
}

// At3 returns X at (row, lag position, feature).
func (d *Dataset) At3(row, lag, feature int) float64 {
	return d.X.At(row, lag*len(d.Features)+feature)
}

// Validate checks that X, Y and Index agree on the row count and X on the width.
func (d *Dataset) Validate() error {
	n := len(d.Index)
	if n == 0 {
		return nil
	}
	xr, xc := d.X.Dims()
	if xr != n {
		return errors.NewShapeMismatchError("Dataset", map[string]int{"index": n, "x_rows": xr})
	}
	if xc != d.Width() {
		return errors.NewDimensionError("Dataset", d.Width(), xc, 1)
	}
	if d.Y != nil {
		yr, yc := d.Y.Dims()
		if yr != n {
			return errors.NewShapeMismatchError("Dataset", map[string]int{"index": n, "y_rows": yr})
		}
		if yc != len(d.Labels) {
			return errors.NewDimensionError("Dataset", len(d.Labels), yc, 1)
		}
	}
	return nil
}

// Subset returns a new dataset holding the given rows in the given order.
func (d *Dataset) Subset(rows []int) (*Dataset, error) {
	n := d.Len()
	for _, r := range rows {
		if r < 0 || r >= n {
			return nil, errors.NewValueError("Dataset.Subset", fmt.Sprintf("row %d out of range [0, %d)", r, n))
		}
	}

	out := &Dataset{
		Index:    make([]time.Time, len(rows)),
		Lags:     d.Lags,
		Features: d.Features,
		Labels:   d.Labels,
	}
	for i, r := range rows {
		out.Index[i] = d.Index[r]
	}
	out.X = selectRows(d.X, rows, d.Width())
	if d.Y != nil {
		out.Y = selectRows(d.Y, rows, len(d.Labels))
	}
	return out, nil
}

func selectRows(m *mat.Dense, rows []int, cols int) *mat.Dense {
	if len(rows) == 0 || cols == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, m.RawRowView(r)...)
	}
	return mat.NewDense(len(rows), cols, data)
}
