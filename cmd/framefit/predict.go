package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/fitter"
	"github.com/YuminosukeSato/framefit/models"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

func newPredictCmd(flags *dataFlags) *cobra.Command {
	var (
		modelPath string
		tail      int
		classify  bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast rows with a saved model and print the frame as CSV",
		Long: `Predict extracts features only, so rows without labels are predicted too.
With --tail N only the last N rows are predicted. With --classify every
prediction is printed as its probability and the class at the model cutoff.`,
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

			var lf *frame.LabeledFrame
			if classify {
				lf, err = fitter.Classify(df, m, tail, fitter.WithLogger(logger))
			} else {
				lf, err = fitter.Predict(df, m, tail, fitter.WithLogger(logger))
			}
			if err != nil {
				return err
			}
			return lf.WriteCSV(cmd.OutOrStdout(), "", 6)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "model.gob", "saved model")
	cmd.Flags().IntVar(&tail, "tail", 0, "predict only the last N rows (0 predicts all)")
	cmd.Flags().BoolVar(&classify, "classify", false, "print probabilities and classes")
	return cmd
}
