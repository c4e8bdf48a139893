// Package frame provides the time-indexed tables that flow through framefit.
//
// A Frame is the raw input: a strictly increasing, unique time index and ordered
// named float64 columns (booleans are stored as 0/1, missing values as NaN).
// A LabeledFrame is the output side: the same kind of index with columns
// addressed by a three level ColumnKey.
package frame

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Frame is a time-indexed table of float64 columns.
type Frame struct {
	index   []time.Time
	names   []string
	columns map[string][]float64
}

// New creates an empty frame over index. The index must be strictly increasing.
func New(index []time.Time) (*Frame, error) {
	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return nil, errors.NewValueError("frame.New",
				fmt.Sprintf("index must be strictly increasing, row %d (%s) is not after row %d (%s)",
					i, index[i].Format(time.RFC3339), i-1, index[i-1].Format(time.RFC3339)))
		}
	}
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Frame{
		index:   idx,
		columns: make(map[string][]float64),
	}, nil
}

// MustNew is New that panics on an invalid index. Intended for tests and literals.
func MustNew(index []time.Time) *Frame {
	f, err := New(index)
	if err != nil {
		panic(err)
	}
	return f
}

// AddColumn appends or replaces a column. values must have one entry per row.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.index) {
		return errors.NewDimensionError("frame.AddColumn("+name+")", len(f.index), len(values), 0)
	}
	col := make([]float64, len(values))
	copy(col, values)
	if _, ok := f.columns[name]; !ok {
		f.names = append(f.names, name)
	}
	f.columns[name] = col
	return nil
}

// AddBoolColumn stores a boolean column as 0/1.
func (f *Frame) AddBoolColumn(name string, values []bool) error {
	col := make([]float64, len(values))
	for i, v := range values {
		if v {
			col[i] = 1
		}
	}
	return f.AddColumn(name, col)
}

// Column returns the values of a column. The slice is shared with the frame.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.columns[name]
	return col, ok
}

// HasColumn reports whether the frame has a column called name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.index)
}

// Index returns the row keys.
func (f *Frame) Index() []time.Time {
	return f.index
}

// Rows returns a new frame holding the given row positions in the given order.
// Positions must be increasing so the result keeps a valid index.
func (f *Frame) Rows(rows []int) (*Frame, error) {
	idx := make([]time.Time, len(rows))
	for i, r := range rows {
		if r < 0 || r >= len(f.index) {
			return nil, errors.NewValueError("frame.Rows", fmt.Sprintf("row %d out of range [0, %d)", r, len(f.index)))
		}
		idx[i] = f.index[r]
	}
	out, err := New(idx)
	if err != nil {
		return nil, err
	}
	for _, name := range f.names {
		src := f.columns[name]
		col := make([]float64, len(rows))
		for i, r := range rows {
			col[i] = src[r]
		}
		out.names = append(out.names, name)
		out.columns[name] = col
	}
	return out, nil
}

// Tail returns the last n rows. n >= Len() returns a copy of the whole frame.
func (f *Frame) Tail(n int) *Frame {
	if n > len(f.index) {
		n = len(f.index)
	}
	if n < 0 {
		n = 0
	}
	rows := make([]int, n)
	start := len(f.index) - n
	for i := range rows {
		rows[i] = start + i
	}
	out, _ := f.Rows(rows)
	return out
}

// Loc returns the rows whose keys are in times, in index order.
// A key not present in the frame is an error.
func (f *Frame) Loc(times []time.Time) (*Frame, error) {
	rows := make([]int, 0, len(times))
	for _, ts := range times {
		r := f.position(ts)
		if r < 0 {
			return nil, errors.NewValueError("frame.Loc", fmt.Sprintf("key %s not in index", ts.Format(time.RFC3339Nano)))
		}
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return f.Rows(rows)
}

func (f *Frame) position(ts time.Time) int {
	i := sort.Search(len(f.index), func(i int) bool { return !f.index[i].Before(ts) })
	if i < len(f.index) && f.index[i].Equal(ts) {
		return i
	}
	return -1
}

// NaNRows reports, for each row, whether any of the named columns is NaN.
func (f *Frame) NaNRows(names []string) []bool {
	out := make([]bool, len(f.index))
	for _, name := range names {
		col := f.columns[name]
		for i, v := range col {
			if math.IsNaN(v) {
				out[i] = true
			}
		}
	}
	return out
}
