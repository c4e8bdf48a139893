package features

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// SmootherKind selects a smoothing transform.
type SmootherKind string

const (
	MovingAverage SmootherKind = "moving_average"
	EWMA          SmootherKind = "ewma"
	Custom        SmootherKind = "custom"
)

// SmoothFunc transforms a series into a series of equal length.
type SmoothFunc func(series []float64) []float64

var (
	registryMu sync.RWMutex
	registry   = make(map[string]SmoothFunc)
)

// RegisterSmoother makes fn available as a Custom smoother under name.
// Specs reference custom smoothers by name, so a process loading a saved model
// must register the same names before decoding it.
func RegisterSmoother(name string, fn SmoothFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

func lookupSmoother(name string) (SmoothFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Smoother describes a smoothing transform applied to a raw feature series
// before it is shifted.
type Smoother struct {
	Kind   SmootherKind
	Window int
	Alpha  float64
	Name   string
}

// SMA is a trailing simple moving average over window rows.
func SMA(window int) Smoother {
	return Smoother{Kind: MovingAverage, Window: window}
}

// EWM is an exponentially weighted moving average with smoothing factor alpha.
func EWM(alpha float64) Smoother {
	return Smoother{Kind: EWMA, Alpha: alpha}
}

// CustomSmoother references a function registered with RegisterSmoother.
func CustomSmoother(name string) Smoother {
	return Smoother{Kind: Custom, Name: name}
}

// Validate checks the smoother parameters.
func (s Smoother) Validate() error {
	switch s.Kind {
	case MovingAverage:
		if s.Window < 1 {
			return errors.NewInvalidSpecError("smoothing", fmt.Sprintf("moving average window must be >= 1, got %d", s.Window))
		}
	case EWMA:
		if !(s.Alpha > 0 && s.Alpha <= 1) {
			return errors.NewInvalidSpecError("smoothing", fmt.Sprintf("ewma alpha must be in (0, 1], got %g", s.Alpha))
		}
	case Custom:
		if _, ok := lookupSmoother(s.Name); !ok {
			return errors.NewInvalidSpecError("smoothing", fmt.Sprintf("custom smoother %q is not registered", s.Name))
		}
	default:
		return errors.NewInvalidSpecError("smoothing", fmt.Sprintf("unknown smoother kind %q", s.Kind))
	}
	return nil
}

// Identity is the structural identity of the smoother used by Spec.ID.
func (s Smoother) Identity() string {
	switch s.Kind {
	case MovingAverage:
		return fmt.Sprintf("moving_average(%d)", s.Window)
	case EWMA:
		return fmt.Sprintf("ewma(%g)", s.Alpha)
	default:
		return "custom(" + s.Name + ")"
	}
}

func (s Smoother) String() string {
	return s.Identity()
}

// Apply smooths series. Leading rows without a full moving-average window are NaN.
func (s Smoother) Apply(series []float64) ([]float64, error) {
	switch s.Kind {
	case MovingAverage:
		return movingAverage(series, s.Window), nil
	case EWMA:
		return ewma(series, s.Alpha), nil
	case Custom:
		fn, ok := lookupSmoother(s.Name)
		if !ok {
			return nil, errors.NewInvalidSpecError("smoothing", fmt.Sprintf("custom smoother %q is not registered", s.Name))
		}
		in := make([]float64, len(series))
		copy(in, series)
		out := fn(in)
		if len(out) != len(series) {
			return nil, errors.NewInvalidSpecError("smoothing",
				fmt.Sprintf("custom smoother %q returned %d values for %d rows", s.Name, len(out), len(series)))
		}
		return out, nil
	default:
		return nil, s.Validate()
	}
}

func movingAverage(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(series[i+1-window:i+1], nil)
	}
	return out
}

func ewma(series []float64, alpha float64) []float64 {
	out := make([]float64, len(series))
	prev := math.NaN()
	for i, v := range series {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
			continue
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}
