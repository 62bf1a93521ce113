package changepoint

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// CostModel scores how well one regime explains a contiguous stretch of a
// signal. Fit binds the model to a signal; the returned SegmentCost answers
// queries for half-open segments [start, end) of that signal.
type CostModel interface {
	// Name identifies the model in reports.
	Name() string
	// MinSize is the shortest segment the model can score.
	MinSize() int
	// Fit precomputes whatever the model needs for signal.
	Fit(signal []float64) (SegmentCost, error)
}

// SegmentCost is a cost model fitted to one signal. Cost must be a
// deterministic, non-negative function of the segment. Implementations may
// cache between calls and are not safe for concurrent use.
type SegmentCost interface {
	Cost(start, end int) float64
}

// Releaser is implemented by fitted costs that cache per-start state.
// The segmenter calls Release once a start index can no longer be used.
type Releaser interface {
	Release(start int)
}

// CostModelKind names a built-in cost family.
type CostModelKind string

const (
	KernelRBF     CostModelKind = "kernel_rbf"     // distribution changes, via an RBF kernel
	MeanShift     CostModelKind = "mean_shift"     // changes in mean (squared error)
	VarianceShift CostModelKind = "variance_shift" // changes in mean and variance (Gaussian)
)

var costModelAliases = map[string]CostModelKind{
	"kernel_rbf":     KernelRBF,
	"rbf":            KernelRBF,
	"kernel":         KernelRBF,
	"mean_shift":     MeanShift,
	"l2":             MeanShift,
	"variance_shift": VarianceShift,
	"normal":         VarianceShift,
}

// CostModelKinds lists the built-in cost families.
func CostModelKinds() []CostModelKind {
	return []CostModelKind{KernelRBF, MeanShift, VarianceShift}
}

// ParseCostModel resolves a cost model name. Matching is case-insensitive
// and accepts the short names rbf, l2 and normal.
func ParseCostModel(name string) (CostModelKind, error) {
	kind, ok := costModelAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCostModel, name)
	}
	return kind, nil
}

// CostOption configures a cost model built by NewCostModel.
type CostOption func(*costConfig)

type costConfig struct {
	gamma float64
}

// WithGamma fixes the RBF bandwidth instead of estimating it from the data.
// Non-positive values keep the median heuristic.
func WithGamma(gamma float64) CostOption {
	return func(c *costConfig) {
		c.gamma = gamma
	}
}

// NewCostModel returns the cost model for kind.
func NewCostModel(kind CostModelKind, opts ...CostOption) (CostModel, error) {
	var cfg costConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	switch kind {
	case KernelRBF:
		return &RBFCost{Gamma: cfg.gamma}, nil
	case MeanShift:
		return L2Cost{}, nil
	case VarianceShift:
		return NormalCost{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCostModel, kind)
	}
}

// L2Cost is the squared deviation of a segment from its mean, detecting
// shifts in the mean.
type L2Cost struct{}

func (L2Cost) Name() string { return string(MeanShift) }
func (L2Cost) MinSize() int { return 1 }

// Fit builds prefix sums of x and x².
func (L2Cost) Fit(signal []float64) (SegmentCost, error) {
	return l2Fitted{newMoments(signal)}, nil
}

type l2Fitted struct{ *moments }

func (c l2Fitted) Cost(start, end int) float64 {
	l := float64(end - start)
	if l <= 0 {
		return 0
	}
	sum, sumSq := c.sums(start, end)
	return math.Max(sumSq-sum*sum/l, 0)
}

// NormalCost is the Gaussian cost L·ln(1 + σ²/ε), detecting shifts in mean
// and variance. σ² is the maximum-likelihood variance of the segment.
type NormalCost struct{}

// normalEpsilon regularises the variance of flat segments.
const normalEpsilon = 1e-8

func (NormalCost) Name() string { return string(VarianceShift) }
func (NormalCost) MinSize() int { return 2 }

func (NormalCost) Fit(signal []float64) (SegmentCost, error) {
	return normalFitted{newMoments(signal)}, nil
}

type normalFitted struct{ *moments }

func (c normalFitted) Cost(start, end int) float64 {
	l := float64(end - start)
	if l <= 0 {
		return 0
	}
	sum, sumSq := c.sums(start, end)
	mean := sum / l
	variance := math.Max(sumSq/l-mean*mean, 0)
	return l * math.Log1p(variance/normalEpsilon)
}

// moments holds prefix sums of the centred signal so segment sums are O(1).
// Centring keeps x² small relative to the within-segment variance.
type moments struct {
	sum   []float64
	sumSq []float64
}

func newMoments(signal []float64) *moments {
	m := &moments{
		sum:   make([]float64, len(signal)+1),
		sumSq: make([]float64, len(signal)+1),
	}
	offset := 0.0
	if len(signal) > 0 {
		offset = stat.Mean(signal, nil)
	}
	for i, x := range signal {
		x -= offset
		m.sum[i+1] = m.sum[i] + x
		m.sumSq[i+1] = m.sumSq[i] + x*x
	}
	return m
}

func (m *moments) sums(start, end int) (float64, float64) {
	return m.sum[end] - m.sum[start], m.sumSq[end] - m.sumSq[start]
}
