package features

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// LossKind tells where the per-row loss of a goal comes from.
type LossKind int

const (
	// LossNone broadcasts -1 for every row.
	LossNone LossKind = iota
	// LossFromColumn copies a column of the input table.
	LossFromColumn
	// LossFromConstant broadcasts -|Constant|.
	LossFromConstant
)

// LossSpec is the loss source of a goal. The zero value is LossNone.
type LossSpec struct {
	Kind     LossKind
	Column   string
	Constant float64
}

// LossColumn reads the loss from the named table column.
func LossColumn(name string) LossSpec {
	return LossSpec{Kind: LossFromColumn, Column: name}
}

// LossConstant broadcasts -|c| as the loss of every row.
func LossConstant(c float64) LossSpec {
	return LossSpec{Kind: LossFromConstant, Constant: c}
}

// Series returns the loss of every row of df.
func (l LossSpec) Series(df *frame.Frame) ([]float64, error) {
	out := make([]float64, df.Len())
	switch l.Kind {
	case LossFromColumn:
		col, ok := df.Column(l.Column)
		if !ok {
			return nil, errors.NewInvalidSpecError("loss", fmt.Sprintf("loss column %q not in table", l.Column))
		}
		copy(out, col)
	case LossFromConstant:
		v := -math.Abs(l.Constant)
		for i := range out {
			out[i] = v
		}
	default:
		for i := range out {
			out[i] = -1.0
		}
	}
	return out, nil
}

func (l LossSpec) String() string {
	switch l.Kind {
	case LossFromColumn:
		return "column(" + l.Column + ")"
	case LossFromConstant:
		return fmt.Sprintf("constant(%g)", l.Constant)
	default:
		return "none"
	}
}

// Goal pairs a prediction target with its loss source and the labels it predicts.
// Name distinguishes goals that share a Target; an empty Labels covers every label.
type Goal struct {
	Name   string
	Target string
	Loss   LossSpec
	Labels []string
}

// Key is the top-level column name of the goal: Name, else Target, else "target".
func (g Goal) Key() string {
	if g.Name != "" {
		return g.Name
	}
	if g.Target != "" {
		return g.Target
	}
	return frame.DefaultTop
}

// TargetSeries echoes the target column of df, or NaN when the goal has no target.
func (g Goal) TargetSeries(df *frame.Frame) ([]float64, error) {
	out := make([]float64, df.Len())
	if g.Target == "" {
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}
	col, ok := df.Column(g.Target)
	if !ok {
		return nil, errors.NewInvalidSpecError("goals", fmt.Sprintf("target column %q of goal %q not in table", g.Target, g.Key()))
	}
	copy(out, col)
	return out, nil
}

// SubLabels returns the sub-level column names for the goal's labels:
// the label names, or "value" when the goal has exactly one label.
func (g Goal) SubLabels() []string {
	if len(g.Labels) == 1 {
		return []string{frame.ValueSub}
	}
	out := make([]string, len(g.Labels))
	copy(out, g.Labels)
	return out
}
