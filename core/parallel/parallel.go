// Package parallel runs chunked loops across CPU cores.
//
// Callers hand over disjoint [start, end) ranges; fn must only write to the
// parts of shared output that belong to its range.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// DefaultThreshold is the item count below which loops stay sequential.
const DefaultThreshold = 512

// chunks splits items into at most runtime.NumCPU() contiguous ranges.
func chunks(items int) [][2]int {
	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	out := make([][2]int, 0, numWorkers)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// Parallelize divides items according to the number of CPU cores and runs fn
// on each range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	var wg sync.WaitGroup
	for _, c := range chunks(items) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(c[0], c[1])
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when items
// does not exceed threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ParallelizeErr is ParallelizeWithThreshold for fallible work. A panic in fn is
// recovered into a PanicError. The error of the lowest failing range is returned.
func ParallelizeErr(items int, threshold int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}
	if items <= threshold {
		return errors.SafeExecute("parallel range [0, "+fmt.Sprint(items)+")", func() error {
			return fn(0, items)
		})
	}

	ranges := chunks(items)
	errs := make([]error, len(ranges))
	var wg sync.WaitGroup
	for i, c := range ranges {
		wg.Add(1)
		go func(i, s, e int) {
			defer wg.Done()
			errs[i] = errors.SafeExecute(fmt.Sprintf("parallel range [%d, %d)", s, e), func() error {
				return fn(s, e)
			})
		}(i, c[0], c[1])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
