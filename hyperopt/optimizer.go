// Package hyperopt provides search spaces and sequential optimizers used for
// hyperparameter search.
//
// A raw search space is a map of parameter names to distributions, constants or
// "__" control options:
//
//	space := map[string]interface{}{
//	    "learning_rate": hyperopt.LogUniform(1e-3, 1),
//	    "epochs":        hyperopt.QUniform(10, 200, 10),
//	    "patience":      5,  // constant, not replayed
//	    "__max_evals":   50,
//	}
//
// Partition splits it; an Optimizer minimizes an Objective over the sampled
// dimensions and records every evaluation in Trials.
package hyperopt

import (
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// Algorithm names accepted by __algo.
const (
	AlgoTPE    = "tpe"
	AlgoRandom = "random"
)

// Objective evaluates one set of sampled params. A returned error aborts the search.
type Objective func(params Params) (Result, error)

// Optimizer minimizes an objective over a search space.
type Optimizer interface {
	// Minimize evaluates objective Control.MaxEvals times and returns the history.
	// The history evaluated so far is returned together with any error.
	Minimize(space Space, objective Objective) (*Trials, error)
}

// Suggester proposes the next point in internal coordinates given the history.
type Suggester interface {
	Suggest(space Space, history []Trial, src rand.Source) []float64
}

// SequentialOptimizer runs a Suggester one trial at a time.
type SequentialOptimizer struct {
	Suggester Suggester
}

// NewOptimizer returns the optimizer named by algo.
func NewOptimizer(algo string) (Optimizer, error) {
	switch algo {
	case "", AlgoTPE:
		return &SequentialOptimizer{Suggester: NewTPE()}, nil
	case AlgoRandom:
		return &SequentialOptimizer{Suggester: RandomSearch{}}, nil
	default:
		return nil, errors.NewValidationError(ControlPrefix+ControlAlgo, "unknown search algorithm", algo)
	}
}

// Minimize implements Optimizer.
func (o *SequentialOptimizer) Minimize(space Space, objective Objective) (*Trials, error) {
	trials := NewTrials()
	maxEvals := space.Control.MaxEvals
	if maxEvals < 1 {
		maxEvals = DefaultMaxEvals
	}
	src := rand.NewPCG(space.Control.Seed, space.Control.Seed)

	for i := 0; i < maxEvals; i++ {
		x := o.Suggester.Suggest(space, trials.ok(), src)
		params := space.Decode(x)

		start := time.Now()
		res, err := objective(params.Clone())
		if err != nil {
			return trials, err
		}
		if res.Status == "" {
			res.Status = StatusOK
		}
		trials.add(Trial{
			Params:   params,
			Loss:     res.Loss,
			Status:   res.Status,
			Duration: time.Since(start),
			x:        x,
		})
	}
	return trials, nil
}

// RandomSearch samples every dimension from its prior.
type RandomSearch struct{}

// Suggest implements Suggester.
func (RandomSearch) Suggest(space Space, _ []Trial, src rand.Source) []float64 {
	names := space.Names()
	x := make([]float64, len(names))
	for i, name := range names {
		x[i] = space.Dimensions[name].Sample(src)
	}
	return x
}
