// Command framefit fits, backtests and applies models on time-indexed CSV data.
//
//	framefit fit --config run.yaml --data prices.csv --index Date --out model.gob
//	framefit backtest --model model.gob --data prices.csv --index Date
//	framefit predict --model model.gob --data prices.csv --index Date --tail 5
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

// dataFlags are shared by every command reading a table.
type dataFlags struct {
	path     string
	index    string
	layout   string
	logLevel string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.path, "data", "", "CSV file with a header row")
	cmd.PersistentFlags().StringVar(&f.index, "index", "Date", "name of the time index column")
	cmd.PersistentFlags().StringVar(&f.layout, "layout", "", "time layout of the index column (default: RFC3339, then date-time, then date)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides the config file)")
}

func (f *dataFlags) load() (*frame.Frame, error) {
	if f.path == "" {
		return nil, errors.NewValidationError("data", "a CSV file is required", f.path)
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open data file")
	}
	defer file.Close()
	return frame.ReadCSV(file, f.index, f.layout)
}

func (f *dataFlags) setupLogger(fallback string) error {
	level := f.logLevel
	if level == "" {
		level = fallback
	}
	if level == "" {
		level = "warn"
	}
	return log.SetupLogger(level)
}

func newRootCmd() *cobra.Command {
	flags := &dataFlags{}
	root := &cobra.Command{
		Use:   "framefit",
		Short: "Fit and apply classifiers on time-indexed tables",
		Long: `framefit extracts lagged features and labels from a CSV table, splits it into
training and test rows, optionally cross-validates and searches hyperparameters,
and reports per-goal confusion matrices.`,
		SilenceUsage: true,
	}
	flags.register(root)
	root.AddCommand(newFitCmd(flags), newBacktestCmd(flags), newPredictCmd(flags))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
