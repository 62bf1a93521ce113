package changepoint

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// maxGammaSample caps the points used to estimate the RBF bandwidth, keeping
// the pairwise-distance median quadratic in a constant.
const maxGammaSample = 2000

// RBFCost is the kernel cost with k(x, y) = exp(-γ(x-y)²). The cost of a
// segment of length L is
//
//	L - (1/L) Σ_i Σ_j k(x_i, x_j)
//
// the within-segment scatter in the kernel's feature space, so it reacts to
// any change in distribution rather than only the mean.
type RBFCost struct {
	// Gamma is the kernel bandwidth. Zero estimates it as the inverse median
	// of the pairwise squared distances.
	Gamma float64
}

func (*RBFCost) Name() string { return string(KernelRBF) }
func (*RBFCost) MinSize() int { return 1 }

// Fit estimates the bandwidth when needed and returns a cost that memoises
// the kernel sum of each start index.
func (c *RBFCost) Fit(signal []float64) (SegmentCost, error) {
	gamma := c.Gamma
	if gamma <= 0 || math.IsNaN(gamma) || math.IsInf(gamma, 0) {
		var err error
		gamma, err = medianGamma(signal)
		if err != nil {
			return nil, err
		}
	}
	return &rbfFitted{
		signal: signal,
		gamma:  gamma,
		gram:   make(map[int]*gramSum),
	}, nil
}

// medianGamma returns 1/median of the pairwise squared distances over an
// evenly strided sample, or 1 when that median is zero.
func medianGamma(signal []float64) (float64, error) {
	stride := 1
	if len(signal) > maxGammaSample {
		stride = (len(signal) + maxGammaSample - 1) / maxGammaSample
	}
	sample := make([]float64, 0, maxGammaSample)
	for i := 0; i < len(signal); i += stride {
		sample = append(sample, signal[i])
	}
	if len(sample) < 2 {
		return 1, nil
	}

	dists := make([]float64, 0, len(sample)*(len(sample)-1)/2)
	for i := range sample {
		for j := i + 1; j < len(sample); j++ {
			d := sample[i] - sample[j]
			dists = append(dists, d*d)
		}
	}
	median, err := stats.Median(dists)
	if err != nil {
		return 0, fmt.Errorf("changepoint: estimate kernel bandwidth: %w", err)
	}
	if median <= 0 {
		return 1, nil
	}
	return 1 / median, nil
}

// gramSum is Σ_i Σ_j k(x_i, x_j) over [start, end).
type gramSum struct {
	end int
	sum float64
}

// rbfFitted answers Cost(s, t) in O(t - end) by extending the stored kernel
// sum of s one column at a time. The column sums of the most recent column
// are shared across start indices, so one segmenter step costs a single
// kernel evaluation per point of its longest candidate segment.
type rbfFitted struct {
	signal []float64
	gamma  float64
	gram   map[int]*gramSum

	// suffix[i-from] = Σ_{j=i}^{col-1} k(x_j, x_col)
	col    int
	from   int
	suffix []float64
}

func (f *rbfFitted) kernel(i, j int) float64 {
	d := f.signal[i] - f.signal[j]
	return math.Exp(-f.gamma * d * d)
}

func (f *rbfFitted) Cost(start, end int) float64 {
	l := end - start
	if l <= 0 {
		return 0
	}

	g, ok := f.gram[start]
	if !ok || g.end > end {
		g = &gramSum{end: start}
		f.gram[start] = g
	}
	for c := g.end; c < end; c++ {
		// Adding column c contributes the diagonal 1 and twice the cross terms.
		g.sum += 1 + 2*f.columnSum(start, c)
	}
	g.end = end

	return math.Max(float64(l)-g.sum/float64(l), 0)
}

// columnSum returns Σ_{i=start}^{c-1} k(x_i, x_c), summed from c-1 down so
// cached and direct evaluations agree bit for bit.
func (f *rbfFitted) columnSum(start, c int) float64 {
	if c != f.col || f.suffix == nil || start < f.from {
		f.col, f.from = c, start
		f.suffix = append(f.suffix[:0], make([]float64, c-start+1)...)
		acc := 0.0
		for i := c - 1; i >= start; i-- {
			acc += f.kernel(i, c)
			f.suffix[i-start] = acc
		}
	}
	return f.suffix[start-f.from]
}

// Release drops the memoised kernel sum of start.
func (f *rbfFitted) Release(start int) {
	delete(f.gram, start)
}
