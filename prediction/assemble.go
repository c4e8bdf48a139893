// Package prediction assembles model output and ground truth into labeled
// frames with (goal, role, label) column keys.
//
// For every goal, in declaration order, Assemble emits
//
//	(key, target, value)
//	(key, prediction, label|value)...
//	(key, label, label|value)...
//	(key, loss, value)
//
// where the sub level is "value" when the goal has exactly one label and the
// label name otherwise.
package prediction

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/features"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Assemble builds the prediction frame of df. predictions maps each goal key
// to a rows × len(goal.Labels) matrix aligned with df.
func Assemble(df *frame.Frame, goals []features.Goal, predictions models.Predictions) (*frame.LabeledFrame, error) {
	if err := checkGoals(goals); err != nil {
		return nil, err
	}
	lf := frame.NewLabeled(df.Index())
	for _, g := range goals {
		if err := addTarget(lf, df, g); err != nil {
			return nil, err
		}
		if err := addPredictions(lf, df, g, predictions); err != nil {
			return nil, err
		}
		if err := addLabels(lf, df, g); err != nil {
			return nil, err
		}
		if err := addLoss(lf, df, g); err != nil {
			return nil, err
		}
	}
	return lf, nil
}

// AssembleTruth builds the ground-truth frame: the label columns of every goal
// under the same naming as Assemble.
func AssembleTruth(df *frame.Frame, goals []features.Goal) (*frame.LabeledFrame, error) {
	if err := checkGoals(goals); err != nil {
		return nil, err
	}
	lf := frame.NewLabeled(df.Index())
	for _, g := range goals {
		if err := addLabels(lf, df, g); err != nil {
			return nil, err
		}
	}
	return lf, nil
}

// AssembleBacktest is Assemble followed by one (feature, feature, name) column
// per feature of spec.
func AssembleBacktest(df *frame.Frame, spec *features.Spec, predictions models.Predictions) (*frame.LabeledFrame, error) {
	lf, err := Assemble(df, spec.Goals(), predictions)
	if err != nil {
		return nil, err
	}
	if err := addFeatures(lf, df, spec); err != nil {
		return nil, err
	}
	return lf, nil
}

// AssembleForecast builds a frame for rows without ground truth: the feature
// columns followed by the target and prediction columns of every goal.
func AssembleForecast(df *frame.Frame, spec *features.Spec, predictions models.Predictions) (*frame.LabeledFrame, error) {
	goals := spec.Goals()
	if err := checkGoals(goals); err != nil {
		return nil, err
	}
	lf := frame.NewLabeled(df.Index())
	if err := addFeatures(lf, df, spec); err != nil {
		return nil, err
	}
	for _, g := range goals {
		if err := addTarget(lf, df, g); err != nil {
			return nil, err
		}
		if err := addPredictions(lf, df, g, predictions); err != nil {
			return nil, err
		}
	}
	return lf, nil
}

// AssembleClassification is AssembleForecast with every prediction column split
// into the probability, under a "_proba" suffixed sub level ("value_proba" for
// single-label goals), and the class decided at the cutoff of spec.
func AssembleClassification(df *frame.Frame, spec *features.Spec, predictions models.Predictions) (*frame.LabeledFrame, error) {
	goals := spec.Goals()
	if err := checkGoals(goals); err != nil {
		return nil, err
	}
	cutoff := spec.ProbabilityCutoff()
	lf := frame.NewLabeled(df.Index())
	if err := addFeatures(lf, df, spec); err != nil {
		return nil, err
	}
	for _, g := range goals {
		if err := addTarget(lf, df, g); err != nil {
			return nil, err
		}
		cols, err := goalPredictions(df, g, predictions)
		if err != nil {
			return nil, err
		}
		for j, sub := range g.SubLabels() {
			proba := cols[j]
			class := make([]float64, len(proba))
			for i, p := range proba {
				if p > cutoff {
					class[i] = 1
				}
			}
			if err := lf.Add(frame.Key(g.Key(), frame.RolePrediction, probaSub(sub)), proba); err != nil {
				return nil, err
			}
			if err := lf.Add(frame.Key(g.Key(), frame.RolePrediction, sub), class); err != nil {
				return nil, err
			}
		}
	}
	return lf, nil
}

func probaSub(sub string) string {
	if sub == frame.ValueSub {
		return frame.ProbaSub
	}
	return sub + "_proba"
}

func checkGoals(goals []features.Goal) error {
	if len(goals) == 0 {
		return errors.NewInvalidSpecError("goals", "no goals to assemble")
	}
	seen := make(map[string]bool, len(goals))
	for _, g := range goals {
		if len(g.Labels) == 0 {
			return errors.NewInvalidSpecError("goals", fmt.Sprintf("goal %q has no labels", g.Key()))
		}
		if seen[g.Key()] {
			return errors.NewInvalidSpecError("goals", fmt.Sprintf("duplicate goal %q", g.Key()))
		}
		seen[g.Key()] = true
	}
	return nil
}

func addTarget(lf *frame.LabeledFrame, df *frame.Frame, g features.Goal) error {
	target, err := g.TargetSeries(df)
	if err != nil {
		return err
	}
	return lf.Add(frame.Key(g.Key(), frame.RoleTarget, frame.ValueSub), target)
}

// goalPredictions returns the prediction columns of g, one per label, after
// checking the matrix against the rows of df.
func goalPredictions(df *frame.Frame, g features.Goal, predictions models.Predictions) ([][]float64, error) {
	op := "prediction.Assemble(" + g.Key() + ")"
	pred, ok := predictions[g.Key()]
	if !ok || pred == nil || pred.IsEmpty() {
		if df.Len() == 0 {
			return make([][]float64, len(g.Labels)), nil
		}
		return nil, errors.NewShapeMismatchError(op, map[string]int{"rows": df.Len(), "predictions": 0})
	}
	r, c := pred.Dims()
	if r != df.Len() || c != len(g.Labels) {
		return nil, errors.NewShapeMismatchError(op,
			map[string]int{"rows": df.Len(), "labels": len(g.Labels), "predictions.rows": r, "predictions.cols": c})
	}
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, pred)
	}
	return cols, nil
}

func addPredictions(lf *frame.LabeledFrame, df *frame.Frame, g features.Goal, predictions models.Predictions) error {
	cols, err := goalPredictions(df, g, predictions)
	if err != nil {
		return err
	}
	for j, sub := range g.SubLabels() {
		if err := lf.Add(frame.Key(g.Key(), frame.RolePrediction, sub), cols[j]); err != nil {
			return err
		}
	}
	return nil
}

func addLabels(lf *frame.LabeledFrame, df *frame.Frame, g features.Goal) error {
	for j, sub := range g.SubLabels() {
		col, ok := df.Column(g.Labels[j])
		if !ok {
			return errors.NewInvalidSpecError("labels", fmt.Sprintf("label column %q of goal %q not in table", g.Labels[j], g.Key()))
		}
		if err := lf.Add(frame.Key(g.Key(), frame.RoleLabel, sub), col); err != nil {
			return err
		}
	}
	return nil
}

func addLoss(lf *frame.LabeledFrame, df *frame.Frame, g features.Goal) error {
	loss, err := g.Loss.Series(df)
	if err != nil {
		return err
	}
	return lf.Add(frame.Key(g.Key(), frame.RoleLoss, frame.ValueSub), loss)
}

func addFeatures(lf *frame.LabeledFrame, df *frame.Frame, spec *features.Spec) error {
	for _, name := range spec.Features() {
		col, ok := df.Column(name)
		if !ok {
			return errors.NewInvalidSpecError("features", fmt.Sprintf("feature column %q not in table", name))
		}
		if err := lf.Add(frame.Key(frame.RoleFeature, frame.RoleFeature, name), col); err != nil {
			return err
		}
	}
	return nil
}
