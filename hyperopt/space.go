package hyperopt

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// ControlPrefix marks search-space keys that configure the search itself.
const ControlPrefix = "__"

// Control keys, without the prefix.
const (
	ControlMaxEvals = "max_evals"
	ControlAlgo     = "algo"
	ControlSeed     = "seed"
)

// DefaultMaxEvals is the evaluation budget when __max_evals is not given.
const DefaultMaxEvals = 10

// Distribution is one dimension of a search space.
//
// Optimizers work in an internal coordinate: the value itself for uniform
// dimensions, its logarithm for log-uniform ones and the option position for
// categorical ones. Value maps an internal coordinate back to a parameter value.
type Distribution interface {
	// Kind names the distribution (uniform, loguniform, quniform, randint, choice).
	Kind() string
	// Bounds returns the internal coordinate range.
	Bounds() (low, high float64)
	// Categories is the number of discrete options, 0 for continuous dimensions.
	Categories() int
	// Sample draws an internal coordinate from the prior.
	Sample(src rand.Source) float64
	// Value converts an internal coordinate to the parameter value.
	Value(x float64) interface{}
	Validate() error
	String() string
}

// UniformDist samples uniformly from [Low, High].
type UniformDist struct {
	Low, High float64
}

// Uniform returns a uniform dimension over [low, high].
func Uniform(low, high float64) UniformDist { return UniformDist{Low: low, High: high} }

func (d UniformDist) Kind() string                   { return "uniform" }
func (d UniformDist) Bounds() (float64, float64)     { return d.Low, d.High }
func (d UniformDist) Categories() int                { return 0 }
func (d UniformDist) Value(x float64) interface{}    { return clamp(x, d.Low, d.High) }
func (d UniformDist) String() string                 { return fmt.Sprintf("uniform(%g, %g)", d.Low, d.High) }
func (d UniformDist) Sample(src rand.Source) float64 { return sampleUniform(d.Low, d.High, src) }

func (d UniformDist) Validate() error { return validateRange("uniform", d.Low, d.High) }

// LogUniformDist samples a value whose logarithm is uniform on [log(Low), log(High)].
type LogUniformDist struct {
	Low, High float64
}

// LogUniform returns a log-uniform dimension over [low, high], both positive.
func LogUniform(low, high float64) LogUniformDist { return LogUniformDist{Low: low, High: high} }

func (d LogUniformDist) Kind() string { return "loguniform" }
func (d LogUniformDist) Bounds() (float64, float64) {
	return math.Log(d.Low), math.Log(d.High)
}
func (d LogUniformDist) Categories() int { return 0 }
func (d LogUniformDist) Value(x float64) interface{} {
	lo, hi := d.Bounds()
	return math.Exp(clamp(x, lo, hi))
}
func (d LogUniformDist) String() string { return fmt.Sprintf("loguniform(%g, %g)", d.Low, d.High) }
func (d LogUniformDist) Sample(src rand.Source) float64 {
	lo, hi := d.Bounds()
	return sampleUniform(lo, hi, src)
}

func (d LogUniformDist) Validate() error {
	if !(d.Low > 0) {
		return errors.NewValidationError("loguniform", "low must be positive", d.Low)
	}
	return validateRange("loguniform", d.Low, d.High)
}

// QUniformDist is a uniform dimension rounded to multiples of Q.
type QUniformDist struct {
	Low, High, Q float64
}

// QUniform returns round(uniform(low, high) / q) * q.
func QUniform(low, high, q float64) QUniformDist { return QUniformDist{Low: low, High: high, Q: q} }

func (d QUniformDist) Kind() string                   { return "quniform" }
func (d QUniformDist) Bounds() (float64, float64)     { return d.Low, d.High }
func (d QUniformDist) Categories() int                { return 0 }
func (d QUniformDist) String() string                 { return fmt.Sprintf("quniform(%g, %g, %g)", d.Low, d.High, d.Q) }
func (d QUniformDist) Sample(src rand.Source) float64 { return sampleUniform(d.Low, d.High, src) }
func (d QUniformDist) Value(x float64) interface{} {
	return math.Round(clamp(x, d.Low, d.High)/d.Q) * d.Q
}

func (d QUniformDist) Validate() error {
	if !(d.Q > 0) {
		return errors.NewValidationError("quniform", "q must be positive", d.Q)
	}
	return validateRange("quniform", d.Low, d.High)
}

// RandIntDist draws an integer from [Low, High).
type RandIntDist struct {
	Low, High int
}

// RandInt returns an integer dimension over [low, high).
func RandInt(low, high int) RandIntDist { return RandIntDist{Low: low, High: high} }

func (d RandIntDist) Kind() string                   { return "randint" }
func (d RandIntDist) Bounds() (float64, float64)     { return 0, float64(d.High - d.Low - 1) }
func (d RandIntDist) Categories() int                { return d.High - d.Low }
func (d RandIntDist) String() string                 { return fmt.Sprintf("randint(%d, %d)", d.Low, d.High) }
func (d RandIntDist) Sample(src rand.Source) float64 { return sampleCategory(d.Categories(), src) }
func (d RandIntDist) Value(x float64) interface{} {
	return d.Low + int(clamp(math.Round(x), 0, float64(d.High-d.Low-1)))
}

func (d RandIntDist) Validate() error {
	if d.High <= d.Low {
		return errors.NewValidationError("randint", fmt.Sprintf("high (%d) must be greater than low (%d)", d.High, d.Low), d.High)
	}
	return nil
}

// ChoiceDist picks one of Options.
type ChoiceDist struct {
	Options []interface{}
}

// Choice returns a categorical dimension over options.
func Choice(options ...interface{}) ChoiceDist { return ChoiceDist{Options: options} }

func (d ChoiceDist) Kind() string                   { return "choice" }
func (d ChoiceDist) Bounds() (float64, float64)     { return 0, float64(len(d.Options) - 1) }
func (d ChoiceDist) Categories() int                { return len(d.Options) }
func (d ChoiceDist) Sample(src rand.Source) float64 { return sampleCategory(len(d.Options), src) }
func (d ChoiceDist) Value(x float64) interface{} {
	return d.Options[int(clamp(math.Round(x), 0, float64(len(d.Options)-1)))]
}

func (d ChoiceDist) String() string {
	parts := make([]string, len(d.Options))
	for i, o := range d.Options {
		parts[i] = fmt.Sprint(o)
	}
	return "choice(" + strings.Join(parts, ", ") + ")"
}

func (d ChoiceDist) Validate() error {
	if len(d.Options) == 0 {
		return errors.NewValidationError("choice", "at least one option is required", 0)
	}
	return nil
}

func validateRange(kind string, low, high float64) error {
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return errors.NewValidationError(kind, "bounds must be finite", [2]float64{low, high})
	}
	if high <= low {
		return errors.NewValidationError(kind, fmt.Sprintf("high (%g) must be greater than low (%g)", high, low), high)
	}
	return nil
}

func sampleUniform(low, high float64, src rand.Source) float64 {
	return distuv.Uniform{Min: low, Max: high, Src: src}.Rand()
}

func sampleCategory(n int, src rand.Source) float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	return distuv.NewCategorical(weights, src).Rand()
}

func clamp(x, low, high float64) float64 {
	return math.Max(low, math.Min(high, x))
}

// Control holds the search options given by "__" keys.
type Control struct {
	MaxEvals int
	Algo     string
	Seed     uint64
}

// Space is a partitioned search space.
type Space struct {
	// Dimensions are sampled by the optimizer. Names are kept in sorted order.
	Dimensions map[string]Distribution
	// Constants are passed to every trial but not replayed with the best params.
	Constants Params
	Control   Control
}

// Names returns the dimension names in sorted order.
func (s Space) Names() []string {
	names := make([]string, 0, len(s.Dimensions))
	for k := range s.Dimensions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Decode maps internal coordinates, ordered as Names, to parameter values.
func (s Space) Decode(x []float64) Params {
	p := make(Params, len(x))
	for i, name := range s.Names() {
		p[name] = s.Dimensions[name].Value(x[i])
	}
	return p
}

// Partition splits a raw search space into control options, constants and
// sampled dimensions:
//   - keys prefixed with "__" configure the search (__max_evals, __algo, __seed);
//   - int, float and bool values are constants passed to every trial;
//   - Distribution values are sampled; a string is a single-option choice.
func Partition(raw map[string]interface{}) (Space, error) {
	space := Space{
		Dimensions: make(map[string]Distribution),
		Constants:  make(Params),
		Control:    Control{MaxEvals: DefaultMaxEvals, Algo: AlgoTPE},
	}

	for key, v := range raw {
		if strings.HasPrefix(key, ControlPrefix) {
			if err := space.Control.set(strings.TrimPrefix(key, ControlPrefix), v); err != nil {
				return Space{}, err
			}
			continue
		}

		switch val := v.(type) {
		case int, int64, int32, float64, float32, bool:
			space.Constants[key] = val
		case string:
			space.Dimensions[key] = Choice(val)
		case Distribution:
			if err := val.Validate(); err != nil {
				return Space{}, errors.Wrapf(err, "dimension %q", key)
			}
			space.Dimensions[key] = val
		default:
			return Space{}, errors.NewValidationError(key, fmt.Sprintf("unsupported search space value of type %T", v), v)
		}
	}
	return space, nil
}

func (c *Control) set(key string, v interface{}) error {
	p := Params{key: v}
	switch key {
	case ControlMaxEvals:
		n := p.Int(key, -1)
		if n < 1 {
			return errors.NewValidationError(ControlPrefix+key, "must be a positive integer", v)
		}
		c.MaxEvals = n
	case ControlAlgo:
		c.Algo = p.String(key, AlgoTPE)
	case ControlSeed:
		n := p.Int(key, -1)
		if n < 0 {
			return errors.NewValidationError(ControlPrefix+key, "must be a non-negative integer", v)
		}
		c.Seed = uint64(n)
	default:
		return errors.NewValidationError(ControlPrefix+key, "unknown search control option", v)
	}
	return nil
}
