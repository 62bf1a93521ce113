package changepoint

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sartorproj/goregime/timeseries"
)

// pruneTolerance keeps rounding noise from pruning a candidate that is tied
// with the current optimum.
const pruneTolerance = 1e-9

// Options configures a segmentation run.
type Options struct {
	// Penalty is added once per segment. It must be positive.
	Penalty float64
	// MinSegmentLength is the shortest admissible segment. The cost model's
	// MinSize raises it when larger.
	MinSegmentLength int
	// Exhaustive disables pruning and evaluates every admissible predecessor.
	Exhaustive bool
	// Logger receives a debug record per run. Default: slog.Default().
	Logger *slog.Logger
}

// Regime describes one segment of an optimal segmentation.
type Regime struct {
	Start     int       `json:"start"`
	End       int       `json:"end"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Mean      float64   `json:"mean"`
	Std       float64   `json:"std"`
	Cost      float64   `json:"cost"`
}

// Len returns the number of observations in the regime.
func (r Regime) Len() int { return r.End - r.Start }

// Segmentation is the optimal partition of a series.
type Segmentation struct {
	// Breakpoints are the first indices of each segment after the first,
	// followed by the series length.
	Breakpoints []int `json:"breakpoints"`
	// Dates are the timestamps at which each new segment begins.
	Dates   []time.Time `json:"change_dates"`
	Regimes []Regime    `json:"segments"`
	// Cost is the summed segment cost plus Penalty per change point.
	Cost             float64     `json:"cost"`
	Penalty          float64     `json:"penalty"`
	CostModel        string      `json:"cost_model"`
	MinSegmentLength int         `json:"min_segment_length"`
	Exhaustive       bool        `json:"exhaustive"`
	Evaluations      int         `json:"cost_evaluations"`
	MaxCandidates    int         `json:"max_candidates"`
}

// ChangePoints returns the breakpoints without the final series length.
func (s *Segmentation) ChangePoints() []int {
	if len(s.Breakpoints) == 0 {
		return nil
	}
	out := make([]int, len(s.Breakpoints)-1)
	copy(out, s.Breakpoints)
	return out
}

// NumChangePoints returns the number of regime changes found.
func (s *Segmentation) NumChangePoints() int {
	return max(len(s.Breakpoints)-1, 0)
}

// candidate is a possible start of the last segment.
type candidate struct {
	start int
	// prunedAt is the step at which start was shown to be beaten, or -1.
	prunedAt int
}

// Segment finds the breakpoints minimising the sum of segment costs plus
// Penalty per segment, exactly, using optimal partitioning with PELT pruning.
//
// F(t) is the optimal penalised cost of the prefix [0, t):
//
//	F(0) = -λ
//	F(t) = min over s of F(s) + C(s, t) + λ,  t - s ≥ m, F(s) finite
//
// A candidate s with F(s) + C(s, t) > F(t) can never beat t as the start of a
// segment ending at t' ≥ t + m, so it is dropped once t is itself admissible
// for t'. Delaying the drop keeps the search exact under a minimum length.
// The context is checked once per step.
func Segment(ctx context.Context, series *timeseries.Series, model CostModel, opts Options) (*Segmentation, error) {
	n := 0
	if series != nil {
		n = series.Len()
	}
	if n == 0 {
		return nil, ErrEmptySeries
	}
	if opts.Penalty <= 0 || math.IsNaN(opts.Penalty) || math.IsInf(opts.Penalty, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidPenalty, opts.Penalty)
	}
	if opts.MinSegmentLength < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMinSegmentLength, opts.MinSegmentLength)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: nil cost model", ErrUnknownCostModel)
	}
	minLen := max(opts.MinSegmentLength, model.MinSize())
	if n < minLen {
		return nil, fmt.Errorf("%w: %d observations, minimum segment length %d", ErrInfeasibleSegmentation, n, minLen)
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cost, err := model.Fit(series.Values)
	if err != nil {
		return nil, fmt.Errorf("changepoint: fit %s cost: %w", model.Name(), err)
	}
	release := func(int) {}
	if r, ok := cost.(Releaser); ok {
		release = r.Release
	}

	penalty := opts.Penalty
	f := make([]float64, n+1)
	prev := make([]int, n+1)
	for t := range f {
		f[t] = math.Inf(1)
		prev[t] = -1
	}
	f[0] = -penalty

	seg := &Segmentation{
		Penalty:          penalty,
		CostModel:        model.Name(),
		MinSegmentLength: minLen,
		Exhaustive:       opts.Exhaustive,
	}

	var (
		active []candidate
		costs  []float64
	)
	for t := minLen; t <= n; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("changepoint: segmentation cancelled at step %d of %d: %w", t, n, err)
		}

		if s := t - minLen; !math.IsInf(f[s], 1) {
			active = append(active, candidate{start: s, prunedAt: -1})
		}
		seg.MaxCandidates = max(seg.MaxCandidates, len(active))

		// Candidates are kept in increasing start order, so strict
		// improvement leaves ties with the smallest start.
		costs = costs[:0]
		best, bestStart := math.Inf(1), -1
		for _, c := range active {
			v := f[c.start] + cost.Cost(c.start, t)
			seg.Evaluations++
			costs = append(costs, v)
			if v+penalty < best {
				best, bestStart = v+penalty, c.start
			}
		}
		if bestStart < 0 {
			continue
		}
		f[t], prev[t] = best, bestStart

		if opts.Exhaustive {
			continue
		}

		threshold := best + pruneTolerance*(1+math.Abs(best))
		kept := active[:0]
		for i, c := range active {
			if c.prunedAt < 0 && costs[i] > threshold {
				c.prunedAt = t
			}
			// t is admissible for every t' ≥ t + minLen, which is the
			// next step's new candidate when prunedAt + minLen ≤ t + 1.
			if c.prunedAt >= 0 && c.prunedAt+minLen <= t+1 {
				release(c.start)
				continue
			}
			kept = append(kept, c)
		}
		active = kept
	}

	if math.IsInf(f[n], 1) {
		return nil, fmt.Errorf("%w: %d observations, minimum segment length %d", ErrInfeasibleSegmentation, n, minLen)
	}

	var bkps []int
	for t := n; t > 0; t = prev[t] {
		bkps = append(bkps, t)
	}
	for i, j := 0, len(bkps)-1; i < j; i, j = i+1, j-1 {
		bkps[i], bkps[j] = bkps[j], bkps[i]
	}

	seg.Breakpoints = bkps
	seg.Cost = f[n]
	seg.Dates = make([]time.Time, 0, len(bkps)-1)
	for _, b := range bkps[:len(bkps)-1] {
		seg.Dates = append(seg.Dates, series.TimeAt(b))
	}
	seg.Regimes = regimes(series, cost, bkps)

	logger.Debug("segmentation complete",
		"cost_model", seg.CostModel,
		"observations", n,
		"change_points", seg.NumChangePoints(),
		"penalty", penalty,
		"min_segment_length", minLen,
		"evaluations", seg.Evaluations,
		"max_candidates", seg.MaxCandidates,
		"exhaustive", opts.Exhaustive,
	)

	return seg, nil
}

func regimes(series *timeseries.Series, cost SegmentCost, bkps []int) []Regime {
	out := make([]Regime, 0, len(bkps))
	start := 0
	for _, end := range bkps {
		segment := series.Slice(start, end)
		out = append(out, Regime{
			Start:     start,
			End:       end,
			StartDate: series.TimeAt(start),
			EndDate:   series.TimeAt(end - 1),
			Mean:      segment.Mean(),
			Std:       segment.Std(),
			Cost:      cost.Cost(start, end),
		})
		start = end
	}
	return out
}
