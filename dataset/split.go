package dataset

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/framefit/pkg/errors"
	"github.com/YuminosukeSato/framefit/pkg/log"
)

// Split modes reported in logs.
const (
	ModeNone     = "none"
	ModeYoungest = "youngest"
	ModeRandom   = "random"
	ModeHybrid   = "hybrid"
)

// DefaultSeed is the random split seed used when none is configured.
const DefaultSeed int64 = 42

// SplitOptions configures Split.
type SplitOptions struct {
	TestSize     float64
	YoungestSize float64
	Seed         int64
	// YoungestSeed selects a purely chronological split.
	YoungestSeed bool
	Logger       log.Logger
}

// SplitOption is a functional option for Split.
type SplitOption func(*SplitOptions)

// WithTestSize sets the fraction of rows held out for testing. <= 0 disables the split.
func WithTestSize(size float64) SplitOption {
	return func(o *SplitOptions) {
		o.TestSize = size
	}
}

// WithYoungestSize sets the fraction of the test set taken from the most recent rows.
func WithYoungestSize(size float64) SplitOption {
	return func(o *SplitOptions) {
		o.YoungestSize = size
	}
}

// WithSeed sets the seed of the random split.
func WithSeed(seed int64) SplitOption {
	return func(o *SplitOptions) {
		o.Seed = seed
		o.YoungestSeed = false
	}
}

// WithYoungestSeed makes the split purely chronological: the last rows become the test set.
func WithYoungestSeed() SplitOption {
	return func(o *SplitOptions) {
		o.YoungestSeed = true
	}
}

// WithLogger sets the logger used for split diagnostics.
func WithLogger(logger log.Logger) SplitOption {
	return func(o *SplitOptions) {
		o.Logger = logger
	}
}

// Apply merges opts into o.
func (o SplitOptions) Apply(opts ...SplitOption) SplitOptions {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SplitResult holds the two portions and the source row positions of each.
// Test is nil when no split was requested.
type SplitResult struct {
	Train     *Dataset
	Test      *Dataset
	TrainRows []int
	TestRows  []int
	Mode      string
}

// HasTest reports whether a non-empty test portion exists.
func (s *SplitResult) HasTest() bool {
	return s.Test != nil && s.Test.Len() > 0
}

// Split divides ds into training and test rows.
//
// With the youngest seed the first int(n - n*testSize) rows train and the rest
// form the test set. Otherwise the youngest round(n*testSize*youngestSize) rows always go to test
// and the older rows are shuffled with the seed, ceil(m*testSize*(1-youngestSize))
// of them joining the test set. At least one training row is kept.
func Split(ds *Dataset, opts ...SplitOption) (*SplitResult, error) {
	o := SplitOptions{Seed: DefaultSeed}.Apply(opts...)
	logger := o.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("dataset")
	}

	if o.TestSize >= 1 || math.IsNaN(o.TestSize) {
		return nil, errors.NewValidationError("test_size", "must be below 1", o.TestSize)
	}
	if o.YoungestSize < 0 || o.YoungestSize > 1 || math.IsNaN(o.YoungestSize) {
		return nil, errors.NewValidationError("youngest_size", "must be in [0, 1]", o.YoungestSize)
	}

	n := ds.Len()
	if o.TestSize <= 0 {
		rows := seq(0, n)
		logger.Debug("no test split requested", log.OperationKey, log.OperationSplit, log.SamplesKey, n)
		return &SplitResult{Train: ds, TrainRows: rows, Mode: ModeNone}, nil
	}

	var trainRows, testRows []int
	var mode string
	if o.YoungestSeed {
		mode = ModeYoungest
		trainLen := int(float64(n) - float64(n)*o.TestSize + 1e-9)
		if trainLen < 1 {
			return nil, errors.NewInsufficientDataError("Split", 2, n)
		}
		trainRows, testRows = seq(0, trainLen), seq(trainLen, n)
	} else {
		var err error
		trainRows, testRows, mode, err = hybridSplit(n, o, logger)
		if err != nil {
			return nil, err
		}
	}

	train, err := ds.Subset(trainRows)
	if err != nil {
		return nil, err
	}
	test, err := ds.Subset(testRows)
	if err != nil {
		return nil, err
	}

	logger.Info("dataset split",
		log.OperationKey, log.OperationSplit,
		log.SplitModeKey, mode,
		log.SamplesKey, n,
		log.SplitTrainKey, len(trainRows),
		log.SplitTestKey, len(testRows),
	)
	return &SplitResult{Train: train, Test: test, TrainRows: trainRows, TestRows: testRows, Mode: mode}, nil
}

func hybridSplit(n int, o SplitOptions, logger log.Logger) (train, test []int, mode string, err error) {
	youngest := int(math.Round(float64(n) * o.TestSize * o.YoungestSize))
	boundary := n - youngest
	if boundary < 1 {
		return nil, nil, "", errors.NewInsufficientDataError("Split", youngest+1, n)
	}

	randomTest := o.TestSize * (1 - o.YoungestSize)
	testCount := int(math.Ceil(float64(boundary)*randomTest - 1e-9))
	if testCount >= boundary {
		testCount = boundary - 1
	}
	if testCount < 0 {
		testCount = 0
	}

	perm := seq(0, boundary)
	r := rand.New(rand.NewPCG(uint64(o.Seed), uint64(o.Seed)))
	r.Shuffle(len(perm), func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})

	test = append([]int(nil), perm[:testCount]...)
	train = append([]int(nil), perm[testCount:]...)
	sort.Ints(test)
	sort.Ints(train)

	mode = ModeRandom
	if youngest > 0 {
		mode = ModeHybrid
		test = append(test, seq(boundary, n)...)

		w := errors.NewSplitBoundaryWarning(randomTest, youngest, n)
		logger.Warn(w.Error(),
			log.OperationKey, log.OperationSplit,
			log.SplitYoungestKey, youngest,
			log.SamplesKey, n,
		)
		errors.Warn(w)
	}
	return train, test, mode, nil
}

func seq(from, to int) []int {
	if to <= from {
		return []int{}
	}
	out := make([]int, to-from)
	for i := range out {
		out[i] = from + i
	}
	return out
}
