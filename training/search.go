package training

import (
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/hyperopt"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

// Search runs a hyperparameter search and returns a fresh, unfitted model built
// from the best sampled params, together with the trial history.
//
// rawSpace is partitioned by hyperopt.Partition. Every trial builds
// provider(sampled ∪ constants) and trains it exactly as Train does. The best
// params are replayed without the constants, which only shape the search
// (early stopping and the like). When optimizer is nil the space's __algo
// selects one.
//
// A trial without loss aborts the search with a NoLossSignalError, or is
// recorded as failed under SkipMissingLoss. Any other error aborts the search
// and carries the trial index and params.
func (o *Orchestrator) Search(provider models.Provider, rawSpace map[string]interface{}, split *dataset.SplitResult, optimizer hyperopt.Optimizer) (models.Model, *hyperopt.Trials, error) {
	if provider == nil {
		return nil, nil, errors.NewValueError("Search", "provider is nil")
	}
	space, err := hyperopt.Partition(rawSpace)
	if err != nil {
		return nil, nil, err
	}
	if optimizer == nil {
		if optimizer, err = hyperopt.NewOptimizer(space.Control.Algo); err != nil {
			return nil, nil, err
		}
	}

	o.logger.Info("hyperparameter search started",
		log.OperationKey, log.OperationSearch,
		"search.dimensions", len(space.Dimensions),
		"search.max_evals", space.Control.MaxEvals,
		"search.algo", space.Control.Algo,
		log.RandomSeedKey, space.Control.Seed,
	)

	trial := 0
	objective := func(sampled hyperopt.Params) (hyperopt.Result, error) {
		index := trial
		trial++

		var res hyperopt.Result
		err := errors.SafeStep(PhaseTrial, index, sampled, func() error {
			m, err := provider(sampled.Merge(space.Constants))
			if err != nil {
				return err
			}
			loss, err := o.Train(m, split)
			if err != nil {
				return err
			}

			v, ok := loss.Get()
			if !ok {
				if o.policy == AbortOnMissingLoss {
					return errors.NewNoLossSignalError(PhaseTrial, index, sampled)
				}
				o.logger.Warn("trial produced no loss, skipping",
					log.TrialKey, index,
					log.HyperParamsKey, sampled.Format(),
				)
				res = hyperopt.Result{Status: hyperopt.StatusFail}
				return nil
			}

			o.logger.Info("trial done",
				log.OperationKey, log.OperationSearch,
				log.TrialKey, index,
				log.LossKey, v,
				log.HyperParamsKey, sampled.Format(),
			)
			res = hyperopt.Result{Status: hyperopt.StatusOK, Loss: v}
			return nil
		})
		return res, err
	}

	trials, err := optimizer.Minimize(space, objective)
	if err != nil {
		return nil, trials, err
	}

	best, err := trials.Best()
	if err != nil {
		return nil, trials, errors.NewNoLossSignalError(PhaseSearch, trials.Len(), nil)
	}
	final, err := provider(best.Params)
	if err != nil {
		return nil, trials, errors.Wrapf(err, "build model from best params %s", best.Params.Format())
	}

	o.logger.Info("hyperparameter search done",
		log.OperationKey, log.OperationSearch,
		log.TrialKey, best.ID,
		log.LossKey, best.Loss,
		log.HyperParamsKey, best.Params.Format(),
	)
	return final, trials, nil
}
