package frame

import (
	"fmt"
	"time"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Column roles used as the middle level of a ColumnKey.
const (
	RoleTarget     = "target"
	RolePrediction = "prediction"
	RoleLabel      = "label"
	RoleLoss       = "loss"
	RoleFeature    = "feature"
)

// Default top and sub level names.
const (
	DefaultTop = "target"
	ValueSub   = "value"
	ProbaSub   = "value_proba"
)

// ColumnKey addresses a LabeledFrame column as (goal or group, role, label or name).
type ColumnKey struct {
	Top  string
	Role string
	Sub  string
}

// Key is shorthand for ColumnKey{top, role, sub}.
func Key(top, role, sub string) ColumnKey {
	return ColumnKey{Top: top, Role: role, Sub: sub}
}

func (k ColumnKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Top, k.Role, k.Sub)
}

// LabeledFrame is a time-indexed table with hierarchical column keys.
type LabeledFrame struct {
	index   []time.Time
	keys    []ColumnKey
	columns map[ColumnKey][]float64
}

// NewLabeled creates an empty labeled frame over index.
func NewLabeled(index []time.Time) *LabeledFrame {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &LabeledFrame{
		index:   idx,
		columns: make(map[ColumnKey][]float64),
	}
}

// Add appends a column. Duplicate keys and length mismatches are errors.
func (lf *LabeledFrame) Add(key ColumnKey, values []float64) error {
	if len(values) != len(lf.index) {
		return errors.NewShapeMismatchError("LabeledFrame.Add("+key.String()+")",
			map[string]int{"rows": len(lf.index), "values": len(values)})
	}
	if _, ok := lf.columns[key]; ok {
		return errors.NewValueError("LabeledFrame.Add", "duplicate column "+key.String())
	}
	col := make([]float64, len(values))
	copy(col, values)
	lf.keys = append(lf.keys, key)
	lf.columns[key] = col
	return nil
}

// Column returns the values under key.
func (lf *LabeledFrame) Column(key ColumnKey) ([]float64, bool) {
	col, ok := lf.columns[key]
	return col, ok
}

// Keys returns all column keys in insertion order.
func (lf *LabeledFrame) Keys() []ColumnKey {
	out := make([]ColumnKey, len(lf.keys))
	copy(out, lf.keys)
	return out
}

// Select returns the keys under top with the given role, in insertion order.
// An empty role matches every role.
func (lf *LabeledFrame) Select(top, role string) []ColumnKey {
	var out []ColumnKey
	for _, k := range lf.keys {
		if k.Top == top && (role == "" || k.Role == role) {
			out = append(out, k)
		}
	}
	return out
}

// Tops returns the distinct top-level names in first-seen order.
func (lf *LabeledFrame) Tops() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range lf.keys {
		if !seen[k.Top] {
			seen[k.Top] = true
			out = append(out, k.Top)
		}
	}
	return out
}

// Len returns the number of rows.
func (lf *LabeledFrame) Len() int {
	return len(lf.index)
}

// Index returns the row keys.
func (lf *LabeledFrame) Index() []time.Time {
	return lf.index
}
