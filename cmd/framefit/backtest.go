package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/framefit/fitter"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
	"github.com/YuminosukeSato/framefit/summary"
)

func newBacktestCmd(flags *dataFlags) *cobra.Command {
	var (
		modelPath string
		csvPath   string
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Predict every labeled row with a saved model and summarize",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.setupLogger(""); err != nil {
				return err
			}
			m, err := models.LoadFile(modelPath)
			if err != nil {
				return err
			}
			df, err := flags.load()
			if err != nil {
				return err
			}
			logger := log.GetLoggerWithName("cli")

			lf, err := fitter.Backtest(df, m, fitter.WithLogger(logger))
			if err != nil {
				return err
			}
			spec := m.FeaturesAndLabels()
			summaries, err := summary.FromFrame(lf, spec.Goals(), spec.ProbabilityCutoff())
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).summaries("backtest", spec.Goals(), summaries)

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return errors.Wrap(err, "failed to create backtest file")
				}
				defer f.Close()
				return lf.WriteCSV(f, "", 6)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "model.gob", "saved model")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the backtest frame to this CSV file")
	return cmd
}
