package features

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/framefit/core/frame"
	"github.com/YuminosukeSato/framefit/core/parallel"
	"github.com/YuminosukeSato/framefit/dataset"
	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

// ExtractOption configures Extract and ExtractFeatures.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	logger    log.Logger
	threshold int
}

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(logger log.Logger) ExtractOption {
	return func(c *extractConfig) {
		c.logger = logger
	}
}

// WithParallelThreshold sets the row count above which lag expansion runs in parallel.
func WithParallelThreshold(rows int) ExtractOption {
	return func(c *extractConfig) {
		c.threshold = rows
	}
}

// Extract builds the feature and label matrices of df.
//
// Each feature is smoothed (when a smoother applies to a lag) and shifted by
// every lag. Rows without a complete lag window, and rows with a missing feature
// or label value, are dropped from X, Y and the index together.
func Extract(df *frame.Frame, spec *Spec, opts ...ExtractOption) (*dataset.Dataset, error) {
	return extract(df, spec, true, opts)
}

// ExtractFeatures is Extract without labels, for rows whose outcome is unknown.
func ExtractFeatures(df *frame.Frame, spec *Spec, opts ...ExtractOption) (*dataset.Dataset, error) {
	return extract(df, spec, false, opts)
}

func extract(df *frame.Frame, spec *Spec, withLabels bool, opts []ExtractOption) (*dataset.Dataset, error) {
	cfg := extractConfig{threshold: parallel.DefaultThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLoggerWithName("features")
	}

	if err := requireColumns(df, "features", spec.features); err != nil {
		return nil, err
	}
	if withLabels {
		if err := requireColumns(df, "labels", spec.labels); err != nil {
			return nil, err
		}
	}

	n := df.Len()
	minRows := spec.MinRequiredSamples()
	if n < minRows {
		return nil, errors.NewInsufficientDataError("Extract", minRows, n)
	}

	lags := spec.lags
	if len(lags) == 0 {
		lags = []int{0}
	}
	series, err := lagSeries(df, spec, lags, cfg.threshold)
	if err != nil {
		return nil, err
	}

	nFeatures := len(spec.features)
	width := len(lags) * nFeatures
	x := make([]float64, n*width)
	parallel.ParallelizeWithThreshold(n, cfg.threshold, func(start, end int) {
		for r := start; r < end; r++ {
			row := x[r*width : (r+1)*width]
			for li, lag := range lags {
				src := r - lag
				for f := 0; f < nFeatures; f++ {
					v := math.NaN()
					if src >= 0 {
						v = series[li][f][src]
					}
					row[li*nFeatures+f] = v
				}
			}
		}
	})

	var labelCols [][]float64
	if withLabels {
		for _, l := range spec.labels {
			col, _ := df.Column(l)
			labelCols = append(labelCols, col)
		}
	}

	keep := make([]int, 0, n)
	for r := minRows - 1; r < n; r++ {
		if !hasNaN(x[r*width:(r+1)*width]) && !labelsNaN(labelCols, r) {
			keep = append(keep, r)
		}
	}

	index := make([]time.Time, len(keep))
	xKept := make([]float64, 0, len(keep)*width)
	var yKept []float64
	for i, r := range keep {
		index[i] = df.Index()[r]
		xKept = append(xKept, x[r*width:(r+1)*width]...)
		for _, col := range labelCols {
			yKept = append(yKept, col[r])
		}
	}

	ds := &dataset.Dataset{
		X:        dataset.NewDense(len(keep), width, xKept),
		Index:    index,
		Lags:     spec.Lags(),
		Features: spec.Features(),
	}
	if withLabels {
		ds.Y = dataset.NewDense(len(keep), len(spec.labels), yKept)
		ds.Labels = spec.Labels()
	}

	cfg.logger.Debug("features extracted",
		log.OperationKey, log.OperationExtract,
		log.SamplesKey, len(keep),
		log.DroppedKey, n-len(keep),
		log.FeaturesKey, nFeatures,
		log.LagsKey, len(lags),
	)
	if len(keep) == 0 {
		return nil, errors.NewInsufficientDataError("Extract", minRows, 0)
	}
	return ds, nil
}

// lagSeries returns, per lag position and feature, the (possibly smoothed)
// series that the lag shifts. Smoothers are applied once per feature.
func lagSeries(df *frame.Frame, spec *Spec, lags []int, threshold int) ([][][]float64, error) {
	nFeatures := len(spec.features)
	smoothers := spec.smoothedLags()

	out := make([][][]float64, len(lags))
	for li := range out {
		out[li] = make([][]float64, nFeatures)
	}

	err := parallel.ParallelizeErr(nFeatures, threshold, func(start, end int) error {
		for f := start; f < end; f++ {
			raw, _ := df.Column(spec.features[f])
			cache := make(map[string][]float64)
			for li := range lags {
				if li >= len(smoothers) || smoothers[li] == nil {
					out[li][f] = raw
					continue
				}
				sm := smoothers[li]
				if cached, ok := cache[sm.Identity()]; ok {
					out[li][f] = cached
					continue
				}
				smoothed, err := sm.Apply(raw)
				if err != nil {
					return errors.Wrapf(err, "feature %q", spec.features[f])
				}
				cache[sm.Identity()] = smoothed
				out[li][f] = smoothed
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func requireColumns(df *frame.Frame, field string, names []string) error {
	for _, name := range names {
		if !df.HasColumn(name) {
			return errors.NewInvalidSpecError(field, fmt.Sprintf("column %q not in table", name))
		}
	}
	return nil
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func labelsNaN(cols [][]float64, row int) bool {
	for _, col := range cols {
		if math.IsNaN(col[row]) {
			return true
		}
	}
	return false
}
