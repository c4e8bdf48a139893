package summary

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// ClassificationSummary holds the truth, the predicted probabilities, the row
// keys and the per-row loss of one goal. The partition is recomputed from
// these inputs for the current cutoff on every call.
type ClassificationSummary struct {
	goal   string
	yTrue  []float64
	yPred  []float64
	index  []time.Time
	loss   []float64
	cutoff float64
}

// NewClassificationSummary creates a summary. A nil loss is -1 for every row.
// A DegenerateFitWarning is raised when no row is a true positive.
func NewClassificationSummary(yTrue, yPred []float64, index []time.Time, loss []float64, cutoff float64) (*ClassificationSummary, error) {
	return newSummary("", yTrue, yPred, index, loss, cutoff)
}

func newSummary(goal string, yTrue, yPred []float64, index []time.Time, loss []float64, cutoff float64) (*ClassificationSummary, error) {
	n := len(index)
	if loss == nil {
		loss = make([]float64, n)
		for i := range loss {
			loss[i] = -1
		}
	}
	if len(yTrue) != n || len(yPred) != n || len(loss) != n {
		return nil, errors.NewShapeMismatchError("summary.NewClassificationSummary",
			map[string]int{"y_true": len(yTrue), "y_pred": len(yPred), "index": n, "loss": len(loss)})
	}
	if err := checkCutoff(cutoff); err != nil {
		return nil, err
	}

	s := &ClassificationSummary{
		goal:   goal,
		yTrue:  append([]float64(nil), yTrue...),
		yPred:  append([]float64(nil), yPred...),
		index:  append([]time.Time(nil), index...),
		loss:   append([]float64(nil), loss...),
		cutoff: cutoff,
	}
	s.warnDegenerate()
	return s, nil
}

func checkCutoff(cutoff float64) error {
	if math.IsNaN(cutoff) || cutoff < 0 || cutoff > 1 {
		return errors.NewValidationError("cutoff", "must be in [0, 1]", cutoff)
	}
	return nil
}

func (s *ClassificationSummary) warnDegenerate() {
	if s.ConfusionCount()[0][0] == 0 {
		errors.Warn(errors.NewDegenerateFitWarning(s.goal, s.cutoff, s.Len()))
	}
}

// WithCutoff returns a summary of the same rows at another cutoff.
func (s *ClassificationSummary) WithCutoff(cutoff float64) (*ClassificationSummary, error) {
	if err := checkCutoff(cutoff); err != nil {
		return nil, err
	}
	c := *s
	c.cutoff = cutoff
	c.warnDegenerate()
	return &c, nil
}

// Goal returns the goal key the summary was built for, empty when unnamed.
func (s *ClassificationSummary) Goal() string { return s.goal }

// Cutoff returns the probability cutoff in use.
func (s *ClassificationSummary) Cutoff() float64 { return s.cutoff }

// Len returns the number of rows.
func (s *ClassificationSummary) Len() int { return len(s.index) }

// Index returns the row keys.
func (s *ClassificationSummary) Index() []time.Time {
	return append([]time.Time(nil), s.index...)
}

// Confusion returns the partition at the current cutoff.
func (s *ClassificationSummary) Confusion() Partition {
	p, _ := Confusion(s.yTrue, s.yPred, s.index, s.cutoff)
	return p
}

// ConfusionCount returns [[TP, FP], [FN, TN]].
func (s *ClassificationSummary) ConfusionCount() [2][2]int {
	return s.Confusion().Count()
}

// ConfusionLoss returns the loss summed over each confusion cell, laid out as
// ConfusionCount.
func (s *ClassificationSummary) ConfusionLoss() [2][2]float64 {
	cells, _ := classify(s.yTrue, s.yPred, s.index, s.cutoff)
	var grouped [4][]float64
	for i, c := range cells {
		grouped[c] = append(grouped[c], s.loss[i])
	}
	return [2][2]float64{
		{floats.Sum(grouped[cellTP]), floats.Sum(grouped[cellFP])},
		{floats.Sum(grouped[cellFN]), floats.Sum(grouped[cellTN])},
	}
}

func (s *ClassificationSummary) String() string {
	count := s.ConfusionCount()
	loss := s.ConfusionLoss()
	cm := mat.NewDense(2, 2, []float64{
		float64(count[0][0]), float64(count[0][1]),
		float64(count[1][0]), float64(count[1][1]),
	})
	lm := mat.NewDense(2, 2, []float64{loss[0][0], loss[0][1], loss[1][0], loss[1][1]})

	var b strings.Builder
	if s.goal != "" {
		fmt.Fprintf(&b, "goal: %s\n", s.goal)
	}
	fmt.Fprintf(&b, "cutoff: %.4f, rows: %d\n", s.cutoff, s.Len())
	fmt.Fprintf(&b, "confusion count [[TP FP] [FN TN]]:\n%v\n", mat.Formatted(cm, mat.Prefix(""), mat.Squeeze()))
	fmt.Fprintf(&b, "confusion loss:\n%.4f", mat.Formatted(lm, mat.Prefix(""), mat.Squeeze()))
	return b.String()
}

// FromFrame builds one summary per goal from an assembled prediction frame,
// using the first label of the goal and its loss column.
func FromFrame(lf *frame.LabeledFrame, goals []features.Goal, cutoff float64) (map[string]*ClassificationSummary, error) {
	out := make(map[string]*ClassificationSummary, len(goals))
	for _, g := range goals {
		if len(g.Labels) == 0 {
			return nil, errors.NewInvalidSpecError("goals", fmt.Sprintf("goal %q has no labels", g.Key()))
		}
		sub := g.SubLabels()[0]
		yTrue, err := column(lf, frame.Key(g.Key(), frame.RoleLabel, sub))
		if err != nil {
			return nil, err
		}
		yPred, err := column(lf, frame.Key(g.Key(), frame.RolePrediction, sub))
		if err != nil {
			return nil, err
		}
		loss, err := column(lf, frame.Key(g.Key(), frame.RoleLoss, frame.ValueSub))
		if err != nil {
			return nil, err
		}
		s, err := newSummary(g.Key(), yTrue, yPred, lf.Index(), loss, cutoff)
		if err != nil {
			return nil, err
		}
		out[g.Key()] = s
	}
	return out, nil
}

func column(lf *frame.LabeledFrame, key frame.ColumnKey) ([]float64, error) {
	col, ok := lf.Column(key)
	if !ok {
		return nil, errors.NewValueError("summary.FromFrame", "missing column "+key.String())
	}
	return col, nil
}
