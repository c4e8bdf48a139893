// Package framefit binds time-indexed tables to classifier training,
// evaluation and prediction.
//
// A run starts from a core/frame.Frame and a model provider. The feature/label
// spec of the model decides which columns become features (optionally lagged
// and smoothed) and which become labels. The rows are split into training and
// test portions, the most recent rows optionally reserved for testing. Training
// may cross-validate over the training rows and search hyperparameters first.
// The result carries per-goal prediction frames and confusion summaries.
//
// # Quick Start
//
//	spec := features.MustSpec([]string{"ret"}, []string{"up"},
//	    features.WithLagRange(4),
//	    features.WithGoals(features.Goal{Target: "close", Loss: features.LossColumn("ret")}),
//	)
//
//	res, err := fitter.Fit(df, models.NewNeuralProvider(spec),
//	    fitter.WithTestSize(0.3),
//	    fitter.WithYoungestSize(0.5),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.TestSummary["close"].ConfusionCount())
//
// # Packages
//
//   - core/frame: time-indexed tables, labeled prediction frames, CSV
//   - features: feature/label spec, goals, smoothing, extraction
//   - dataset: extracted matrices, train/test split, k-fold generator
//   - hyperopt: search spaces, TPE and random search, trial history
//   - training: cross-validated training and hyperparameter search
//   - models: model interface, neural, estimator and per-goal models, persistence
//   - prediction: prediction, truth, backtest and forecast frames
//   - summary: confusion index sets, count and loss matrices
//   - fitter: the Fit / Backtest / Predict workflow
//   - config: YAML run configuration
//   - metrics, preprocessing, linear: losses, scaling and classical estimators
//   - pkg/errors, pkg/log: typed errors and warnings, structured logging
//
// The framefit command in cmd/framefit runs the same workflow from a YAML
// configuration and a CSV file.
package framefit
