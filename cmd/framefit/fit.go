package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/framefit/config"
	"github.com/YuminosukeSato/framefit/fitter"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

func newFitCmd(flags *dataFlags) *cobra.Command {
	var (
		configPath string
		outPath    string
		cutoff     float64
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a model described by a YAML config",
		Long: `Fit extracts features and labels as configured, splits the rows, trains the
model (with cross-validation and hyperparameter search when configured) and
prints the confusion count and loss matrices of the training and test rows.

Example usage:
  framefit fit --config run.yaml --data prices.csv --out model.gob
  framefit fit --config run.yaml --data prices.csv --cutoff 0.7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := flags.setupLogger(cfg.LogLevel); err != nil {
				return err
			}
			df, err := flags.load()
			if err != nil {
				return err
			}

			spec, err := cfg.FeatureSpec()
			if err != nil {
				return err
			}
			logger := log.GetLoggerWithName("cli")
			provider, err := cfg.Provider(spec, logger)
			if err != nil {
				return err
			}
			opts, err := cfg.FitOptions()
			if err != nil {
				return err
			}

			res, err := fitter.Fit(df, provider, append(opts, fitter.WithLogger(logger))...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cutoff") {
				if err := res.SetProbabilityCutoff(cutoff); err != nil {
					return err
				}
			}

			p := newPrinter(cmd.OutOrStdout())
			p.loss(res.Loss)
			if res.Trials != nil {
				p.trials(res.Trials)
			}
			p.summaries("training", spec.Goals(), res.TrainingSummary)
			if res.TestSummary != nil {
				p.summaries("test", spec.Goals(), res.TestSummary)
			}

			if outPath != "" {
				if err := models.SaveFile(outPath, res.Model); err != nil {
					return err
				}
				p.saved(outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "framefit.yaml", "path to the run configuration")
	cmd.Flags().StringVar(&outPath, "out", "", "write the fitted model to this file")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0.5, "report the summaries at this probability cutoff")
	return cmd
}
