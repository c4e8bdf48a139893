package hyperopt

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TPE is a Tree-structured Parzen Estimator suggester.
//
// After Startup random trials the history is split at the Gamma quantile of
// the loss into good and bad trials. Each dimension gets a Parzen estimator
// l(x) over the good trials and g(x) over the bad ones; Candidates points are
// drawn from l and the one maximizing l(x)/g(x) is suggested.
// Dimensions are modelled independently.
type TPE struct {
	Startup    int
	Gamma      float64
	Candidates int
}

// NewTPE returns a TPE with the usual defaults.
func NewTPE() *TPE {
	return &TPE{Startup: 10, Gamma: 0.25, Candidates: 24}
}

// Suggest implements Suggester.
func (t *TPE) Suggest(space Space, history []Trial, src rand.Source) []float64 {
	if len(history) < t.Startup || len(history) < 2 {
		return RandomSearch{}.Suggest(space, history, src)
	}

	sorted := append([]Trial(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Loss < sorted[j].Loss })

	nGood := int(math.Ceil(t.Gamma * math.Sqrt(float64(len(sorted)))))
	if nGood < 1 {
		nGood = 1
	}
	if nGood > len(sorted)-1 {
		nGood = len(sorted) - 1
	}
	good, bad := sorted[:nGood], sorted[nGood:]

	names := space.Names()
	x := make([]float64, len(names))
	for i, name := range names {
		d := space.Dimensions[name]
		goodObs := coordinates(good, i)
		badObs := coordinates(bad, i)
		if d.Categories() > 0 {
			x[i] = t.suggestCategory(d.Categories(), goodObs, badObs, src)
		} else {
			low, high := d.Bounds()
			x[i] = t.suggestContinuous(low, high, goodObs, badObs, src)
		}
	}
	return x
}

func coordinates(trials []Trial, dim int) []float64 {
	out := make([]float64, 0, len(trials))
	for _, tr := range trials {
		if dim < len(tr.x) {
			out = append(out, tr.x[dim])
		}
	}
	return out
}

func (t *TPE) suggestContinuous(low, high float64, goodObs, badObs []float64, src rand.Source) float64 {
	l := newParzen(goodObs, low, high)
	g := newParzen(badObs, low, high)

	best, bestScore := math.NaN(), math.Inf(-1)
	for c := 0; c < t.Candidates; c++ {
		v := l.sample(src)
		if score := l.logPDF(v) - g.logPDF(v); score > bestScore {
			best, bestScore = v, score
		}
	}
	if math.IsNaN(best) {
		return l.sample(src)
	}
	return best
}

func (t *TPE) suggestCategory(n int, goodObs, badObs []float64, src rand.Source) float64 {
	wl := categoryWeights(n, goodObs)
	wg := categoryWeights(n, badObs)
	sl, sg := floats.Sum(wl), floats.Sum(wg)

	pick := distuv.NewCategorical(wl, src)
	best, bestScore := 0.0, math.Inf(-1)
	for c := 0; c < t.Candidates; c++ {
		k := pick.Rand()
		i := int(k)
		if score := math.Log(wl[i]/sl) - math.Log(wg[i]/sg); score > bestScore {
			best, bestScore = k, score
		}
	}
	return best
}

// categoryWeights counts observations per category on top of a uniform prior of one.
func categoryWeights(n int, obs []float64) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	for _, o := range obs {
		k := int(clamp(math.Round(o), 0, float64(n-1)))
		w[k]++
	}
	return w
}

// parzen is a truncated Gaussian mixture over [low, high] with one component
// per observation plus a wide prior component at the midpoint.
type parzen struct {
	mus, sigmas, weights []float64
	low, high            float64
}

func newParzen(obs []float64, low, high float64) parzen {
	width := high - low
	p := parzen{
		mus:    []float64{(low + high) / 2},
		sigmas: []float64{width},
		low:    low,
		high:   high,
	}

	n := float64(len(obs))
	bw := width
	if len(obs) > 1 {
		// Scott's rule
		bw = 1.06 * stat.StdDev(obs, nil) * math.Pow(n, -0.2)
	}
	bw = clamp(bw, width/math.Min(100, 1+n), width)

	for _, o := range obs {
		p.mus = append(p.mus, o)
		p.sigmas = append(p.sigmas, bw)
	}
	p.weights = make([]float64, len(p.mus))
	for i := range p.weights {
		p.weights[i] = 1 / float64(len(p.mus))
	}
	return p
}

func (p parzen) sample(src rand.Source) float64 {
	k := int(distuv.NewCategorical(p.weights, src).Rand())
	normal := distuv.Normal{Mu: p.mus[k], Sigma: p.sigmas[k], Src: src}
	for try := 0; try < 100; try++ {
		if v := normal.Rand(); v >= p.low && v <= p.high {
			return v
		}
	}
	return clamp(normal.Rand(), p.low, p.high)
}

func (p parzen) logPDF(x float64) float64 {
	terms := make([]float64, len(p.mus))
	for k := range p.mus {
		normal := distuv.Normal{Mu: p.mus[k], Sigma: p.sigmas[k]}
		mass := normal.CDF(p.high) - normal.CDF(p.low)
		terms[k] = math.Log(p.weights[k]) + normal.LogProb(x) - math.Log(mass)
	}
	return floats.LogSumExp(terms)
}
