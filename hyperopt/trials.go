package hyperopt

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Status of an evaluated trial.
type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
)

// Result is what an objective reports for one set of params.
type Result struct {
	Status Status
	Loss   float64
}

// Trial is one evaluation of the objective.
type Trial struct {
	ID       int
	Params   Params
	Loss     float64
	Status   Status
	Duration time.Duration

	// x holds the internal coordinates of Params, ordered as Space.Names.
	x []float64
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (t Trial) MarshalZerologObject(e *zerolog.Event) {
	e.Int("id", t.ID).
		Str("status", string(t.Status)).
		Float64("loss", t.Loss).
		Str("params", t.Params.Format()).
		Dur("duration", t.Duration)
}

func (t Trial) String() string {
	return fmt.Sprintf("trial %d: %s loss=%g params=%s", t.ID, t.Status, t.Loss, t.Params.Format())
}

// Trials is the history of a search, in evaluation order.
type Trials struct {
	trials []Trial
}

// NewTrials returns an empty history.
func NewTrials() *Trials {
	return &Trials{}
}

func (t *Trials) add(trial Trial) {
	trial.ID = len(t.trials)
	t.trials = append(t.trials, trial)
}

// Len returns the number of evaluated trials.
func (t *Trials) Len() int {
	if t == nil {
		return 0
	}
	return len(t.trials)
}

// All returns a copy of the trials in evaluation order.
func (t *Trials) All() []Trial {
	if t == nil {
		return nil
	}
	return append([]Trial(nil), t.trials...)
}

// Losses returns the loss of every trial, NaN for failed ones.
func (t *Trials) Losses() []float64 {
	out := make([]float64, 0, t.Len())
	for _, tr := range t.All() {
		if tr.Status == StatusOK {
			out = append(out, tr.Loss)
		} else {
			out = append(out, math.NaN())
		}
	}
	return out
}

// Best returns the successful trial with the lowest loss. Ties go to the
// earlier trial.
func (t *Trials) Best() (Trial, error) {
	best := -1
	for i, tr := range t.All() {
		if tr.Status != StatusOK {
			continue
		}
		if best < 0 || tr.Loss < t.trials[best].Loss {
			best = i
		}
	}
	if best < 0 {
		return Trial{}, errors.NewValueError("Trials.Best", "no successful trial")
	}
	tr := t.trials[best]
	tr.Params = tr.Params.Clone()
	return tr, nil
}

// ok returns the successful trials.
func (t *Trials) ok() []Trial {
	var out []Trial
	for _, tr := range t.trials {
		if tr.Status == StatusOK {
			out = append(out, tr)
		}
	}
	return out
}
