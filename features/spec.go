// Package features declares which table columns are features and labels, how
// features are expanded over lags and smoothed, and which goals are predicted.
// Extract turns a frame plus a Spec into aligned feature and label matrices.
package features

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/YuminosukeSato/framefit/pkg/errors"
)

// DefaultProbabilityCutoff separates predicted positives from negatives.
const DefaultProbabilityCutoff = 0.5

// Spec is an immutable feature/label specification. Build it with NewSpec.
type Spec struct {
	features  []string
	labels    []string
	goals     []Goal
	lags      []int
	smoothers map[int]Smoother
	cutoff    float64

	targets     []string
	defaultLoss LossSpec
}

// Option configures a Spec under construction.
type Option func(*Spec)

// WithGoals declares the goals in order. Goals without labels cover every label.
func WithGoals(goals ...Goal) Option {
	return func(s *Spec) {
		s.goals = append(s.goals, goals...)
	}
}

// WithTargets declares one goal per target column, each covering every label.
func WithTargets(targets ...string) Option {
	return func(s *Spec) {
		s.targets = append(s.targets, targets...)
	}
}

// WithLoss sets the loss of the goals created by WithTargets and of the implicit goal.
func WithLoss(loss LossSpec) Option {
	return func(s *Spec) {
		s.defaultLoss = loss
	}
}

// WithLags sets the lag offsets, strictly increasing and non-negative.
func WithLags(lags ...int) Option {
	return func(s *Spec) {
		s.lags = append([]int(nil), lags...)
	}
}

// WithLagRange sets the lags 0..n-1.
func WithLagRange(n int) Option {
	return func(s *Spec) {
		s.lags = make([]int, 0, n)
		for i := 0; i < n; i++ {
			s.lags = append(s.lags, i)
		}
	}
}

// WithSmoothing registers a smoother at lag. It is used for that lag and every
// larger lag up to the next registered smoother.
func WithSmoothing(lag int, smoother Smoother) Option {
	return func(s *Spec) {
		if s.smoothers == nil {
			s.smoothers = make(map[int]Smoother)
		}
		s.smoothers[lag] = smoother
	}
}

// WithProbabilityCutoff sets the classification cutoff, in [0, 1].
func WithProbabilityCutoff(cutoff float64) Option {
	return func(s *Spec) {
		s.cutoff = cutoff
	}
}

// NewSpec builds and validates a Spec.
//
// Example:
//
//	spec, err := features.NewSpec(
//	    []string{"rsi", "volume"}, []string{"up"},
//	    features.WithLagRange(5),
//	    features.WithSmoothing(2, features.SMA(3)),
//	    features.WithGoals(features.Goal{Target: "close", Loss: features.LossColumn("ret")}),
//	)
func NewSpec(features, labels []string, opts ...Option) (*Spec, error) {
	s := &Spec{
		features: append([]string(nil), features...),
		labels:   append([]string(nil), labels...),
		cutoff:   DefaultProbabilityCutoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, t := range s.targets {
		s.goals = append(s.goals, Goal{Target: t, Loss: s.defaultLoss})
	}
	s.targets = nil
	if len(s.goals) == 0 {
		s.goals = []Goal{{Loss: s.defaultLoss}}
	}

	if err := s.normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSpec is NewSpec that panics on error.
func MustSpec(features, labels []string, opts ...Option) *Spec {
	s, err := NewSpec(features, labels, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Spec) normalize() error {
	if len(s.features) == 0 {
		return errors.NewInvalidSpecError("features", "at least one feature is required")
	}
	if err := checkUnique("features", s.features); err != nil {
		return err
	}
	if len(s.labels) == 0 {
		return errors.NewInvalidSpecError("labels", "at least one label is required")
	}
	if err := checkUnique("labels", s.labels); err != nil {
		return err
	}

	for i, lag := range s.lags {
		if lag < 0 {
			return errors.NewInvalidSpecError("lags", fmt.Sprintf("lag %d is negative", lag))
		}
		if i > 0 && lag <= s.lags[i-1] {
			return errors.NewInvalidSpecError("lags", fmt.Sprintf("lags must be strictly increasing, got %v", s.lags))
		}
	}
	if len(s.smoothers) > 0 && len(s.lags) == 0 {
		return errors.NewInvalidSpecError("smoothing", "smoothing requires lags")
	}
	for lag, sm := range s.smoothers {
		if lag < 0 {
			return errors.NewInvalidSpecError("smoothing", fmt.Sprintf("smoothing lag %d is negative", lag))
		}
		if err := sm.Validate(); err != nil {
			return err
		}
	}

	if math.IsNaN(s.cutoff) || s.cutoff < 0 || s.cutoff > 1 {
		return errors.NewInvalidSpecError("probability_cutoff", fmt.Sprintf("must be in [0, 1], got %g", s.cutoff))
	}

	declared := make(map[string]bool, len(s.labels))
	for _, l := range s.labels {
		declared[l] = true
	}
	keys := make(map[string]bool, len(s.goals))
	goals := make([]Goal, len(s.goals))
	for i, g := range s.goals {
		if keys[g.Key()] {
			return errors.NewInvalidSpecError("goals", fmt.Sprintf("duplicate goal key %q", g.Key()))
		}
		keys[g.Key()] = true

		if len(g.Labels) == 0 {
			g.Labels = append([]string(nil), s.labels...)
		} else {
			g.Labels = append([]string(nil), g.Labels...)
		}
		for _, l := range g.Labels {
			if !declared[l] {
				return errors.NewInvalidSpecError("goals", fmt.Sprintf("goal %q references undeclared label %q", g.Key(), l))
			}
		}
		if err := checkUnique("goals."+g.Key()+".labels", g.Labels); err != nil {
			return err
		}
		if g.Loss.Kind == LossFromColumn && g.Loss.Column == "" {
			return errors.NewInvalidSpecError("goals", fmt.Sprintf("goal %q has an empty loss column", g.Key()))
		}
		goals[i] = g
	}
	s.goals = goals
	return nil
}

func checkUnique(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return errors.NewInvalidSpecError(field, "empty column name")
		}
		if seen[n] {
			return errors.NewInvalidSpecError(field, fmt.Sprintf("duplicate name %q", n))
		}
		seen[n] = true
	}
	return nil
}

// Features returns the feature column names.
func (s *Spec) Features() []string { return append([]string(nil), s.features...) }

// Labels returns the label column names.
func (s *Spec) Labels() []string { return append([]string(nil), s.labels...) }

// Lags returns the lag offsets, nil without a lag axis.
func (s *Spec) Lags() []int {
	if len(s.lags) == 0 {
		return nil
	}
	return append([]int(nil), s.lags...)
}

// HasLags reports whether features are expanded over a lag axis.
func (s *Spec) HasLags() bool { return len(s.lags) > 0 }

// ProbabilityCutoff returns the classification cutoff.
func (s *Spec) ProbabilityCutoff() float64 { return s.cutoff }

// Goals returns the goals in declaration order with labels filled in.
func (s *Spec) Goals() []Goal {
	out := make([]Goal, len(s.goals))
	for i, g := range s.goals {
		g.Labels = append([]string(nil), g.Labels...)
		out[i] = g
	}
	return out
}

// Goal returns the goal with the given key.
func (s *Spec) Goal(key string) (Goal, bool) {
	for _, g := range s.Goals() {
		if g.Key() == key {
			return g, true
		}
	}
	return Goal{}, false
}

// Smoothers returns a copy of the lag to smoother map.
func (s *Spec) Smoothers() map[int]Smoother {
	out := make(map[int]Smoother, len(s.smoothers))
	for k, v := range s.smoothers {
		out[k] = v
	}
	return out
}

// LabelIndex returns the position of label in Labels(), or -1.
func (s *Spec) LabelIndex(label string) int {
	for i, l := range s.labels {
		if l == label {
			return i
		}
	}
	return -1
}

// WithCutoff returns a copy of the spec using another probability cutoff.
func (s *Spec) WithCutoff(cutoff float64) (*Spec, error) {
	c := *s
	c.goals = s.Goals()
	c.cutoff = cutoff
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// OnlyGoal returns a copy of the spec predicting only the goal with the given key.
func (s *Spec) OnlyGoal(key string) (*Spec, error) {
	g, ok := s.Goal(key)
	if !ok {
		return nil, errors.NewInvalidSpecError("goals", fmt.Sprintf("unknown goal %q", key))
	}
	c := *s
	c.goals = []Goal{g}
	return &c, nil
}

// Shape returns the feature shape ([features] or [lags, features]) and the label shape.
func (s *Spec) Shape() (featureShape []int, labelShape []int) {
	if s.HasLags() {
		featureShape = []int{len(s.lags), len(s.features)}
	} else {
		featureShape = []int{len(s.features)}
	}
	return featureShape, []int{len(s.labels)}
}

// ExpandedFeatureLength is the number of X columns after lag expansion.
func (s *Spec) ExpandedFeatureLength() int {
	if s.HasLags() {
		return len(s.lags) * len(s.features)
	}
	return len(s.features)
}

// MinRequiredSamples is max(lags)+1, or 1 without lags.
func (s *Spec) MinRequiredSamples() int {
	if !s.HasLags() {
		return 1
	}
	return s.lags[len(s.lags)-1] + 1
}

// ID is the structural identity of the spec: features, labels, lags and smoother
// identities. Goals and the cutoff do not take part.
func (s *Spec) ID() string {
	h := xxhash.New()
	_, _ = h.WriteString("features:" + strings.Join(s.features, "\x00") + "\x01")
	_, _ = h.WriteString("labels:" + strings.Join(s.labels, "\x00") + "\x01")
	_, _ = h.WriteString(fmt.Sprintf("lags:%v\x01", s.lags))

	lags := make([]int, 0, len(s.smoothers))
	for lag := range s.smoothers {
		lags = append(lags, lag)
	}
	sort.Ints(lags)
	for _, lag := range lags {
		_, _ = h.WriteString(fmt.Sprintf("smooth:%d=%s\x01", lag, s.smoothers[lag].Identity()))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Equal reports structural equality as defined by ID.
func (s *Spec) Equal(other *Spec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID() == other.ID()
}

func (s *Spec) String() string {
	return fmt.Sprintf("Spec(features=%v, labels=%v, goals=%d, lags=%v, smoothing=%v, cutoff=%g) #%d features expand to %d",
		s.features, s.labels, len(s.goals), s.lags, s.smoothers, s.cutoff, len(s.features), s.ExpandedFeatureLength())
}

// smoothedLags returns, for each lag position, the smoother in effect there:
// the one registered at the largest key not above the lag.
func (s *Spec) smoothedLags() []*Smoother {
	out := make([]*Smoother, len(s.lags))
	if len(s.smoothers) == 0 {
		return out
	}
	keys := make([]int, 0, len(s.smoothers))
	for k := range s.smoothers {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for i, lag := range s.lags {
		for _, k := range keys {
			if k > lag {
				break
			}
			sm := s.smoothers[k]
			out[i] = &sm
		}
	}
	return out
}

type specWire struct {
	Features  []string
	Labels    []string
	Goals     []Goal
	Lags      []int
	Smoothers map[int]Smoother
	Cutoff    float64
}

// GobEncode implements gob.GobEncoder.
func (s *Spec) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := specWire{
		Features:  s.features,
		Labels:    s.labels,
		Goals:     s.goals,
		Lags:      s.lags,
		Smoothers: s.smoothers,
		Cutoff:    s.cutoff,
	}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, errors.Wrap(err, "encode spec")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. The decoded spec is validated again.
func (s *Spec) GobDecode(data []byte) error {
	var w specWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return errors.Wrap(err, "decode spec")
	}
	*s = Spec{
		features:  w.Features,
		labels:    w.Labels,
		goals:     w.Goals,
		lags:      w.Lags,
		smoothers: w.Smoothers,
		cutoff:    w.Cutoff,
	}
	return s.normalize()
}
