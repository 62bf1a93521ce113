package changepoint

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/goregime/timeseries"
)

func stepSeries() *timeseries.Series {
	values := make([]float64, 200)
	for i := range values {
		level := 10.0
		if i >= 100 {
			level = 20
		}
		values[i] = level + 1e-3*math.Sin(float64(i))
	}
	return timeseries.New(values)
}

// regimeSeries returns noisy piecewise-constant data with shifts in mean and
// spread at 60, 130 and 210.
func regimeSeries(n int, seed uint64) *timeseries.Series {
	rng := rand.New(rand.NewPCG(seed, 3))
	values := make([]float64, n)
	for i := range values {
		mean, sd := 0.0, 1.0
		switch {
		case i >= 210:
			mean, sd = 2, 0.5
		case i >= 130:
			mean, sd = -3, 2
		case i >= 60:
			mean, sd = 4, 1
		}
		values[i] = mean + sd*rng.NormFloat64()
	}
	return timeseries.New(values)
}

func mustModel(t *testing.T, kind CostModelKind, opts ...CostOption) CostModel {
	t.Helper()
	model, err := NewCostModel(kind, opts...)
	require.NoError(t, err)
	return model
}

func TestSegmentStepSeries(t *testing.T) {
	series := stepSeries()

	seg, err := Segment(context.Background(), series, mustModel(t, KernelRBF), Options{Penalty: 5, MinSegmentLength: 5})
	require.NoError(t, err)

	cps := seg.ChangePoints()
	require.Len(t, cps, 1)
	assert.InDelta(t, 100, cps[0], 1)
	assert.Equal(t, 200, seg.Breakpoints[len(seg.Breakpoints)-1])
	assert.Equal(t, []int{cps[0], 200}, seg.Breakpoints)

	require.Len(t, seg.Dates, 1)
	assert.Equal(t, series.TimeAt(cps[0]), seg.Dates[0])

	require.Len(t, seg.Regimes, 2)
	assert.InDelta(t, 10, seg.Regimes[0].Mean, 0.01)
	assert.InDelta(t, 20, seg.Regimes[1].Mean, 0.01)
	assert.Equal(t, 0, seg.Regimes[0].Start)
	assert.Equal(t, 200, seg.Regimes[1].End)
	assert.Equal(t, series.TimeAt(199), seg.Regimes[1].EndDate)
}

func TestSegmentRegimeStatistics(t *testing.T) {
	series := timeseries.New([]float64{1, 2, 3, 4, 20, 22, 24, 26})

	seg, err := Segment(context.Background(), series, mustModel(t, MeanShift), Options{Penalty: 30, MinSegmentLength: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 8}, seg.Breakpoints)
	require.Len(t, seg.Regimes, 2)
	assert.InDelta(t, 2.5, seg.Regimes[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3), seg.Regimes[0].Std, 1e-12)
	assert.InDelta(t, 5, seg.Regimes[0].Cost, 1e-9)
	assert.InDelta(t, 23, seg.Regimes[1].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(20.0/3), seg.Regimes[1].Std, 1e-12)
	assert.Equal(t, series.TimeAt(4), seg.Regimes[1].StartDate)
}

func TestSegmentStepSeriesAllModels(t *testing.T) {
	for _, kind := range CostModelKinds() {
		t.Run(string(kind), func(t *testing.T) {
			seg, err := Segment(context.Background(), stepSeries(), mustModel(t, kind), Options{Penalty: 5, MinSegmentLength: 5})
			require.NoError(t, err)

			assert.Contains(t, seg.ChangePoints(), 100)
			assert.Equal(t, string(kind), seg.CostModel)
		})
	}
}

func TestSegmentConstantSeries(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 42
	}
	series := timeseries.New(values)

	for _, kind := range CostModelKinds() {
		for _, penalty := range []float64{1e-6, 1, 100} {
			seg, err := Segment(context.Background(), series, mustModel(t, kind), Options{Penalty: penalty, MinSegmentLength: 2})
			require.NoError(t, err)

			assert.Equal(t, []int{50}, seg.Breakpoints, "%s penalty %g", kind, penalty)
			assert.Empty(t, seg.ChangePoints())
			assert.Empty(t, seg.Dates)
		}
	}
}

func TestSegmentPrunedMatchesExhaustive(t *testing.T) {
	series := regimeSeries(280, 11)
	for _, kind := range CostModelKinds() {
		for _, penalty := range []float64{2, 10, 40} {
			for _, minLen := range []int{1, 5, 20} {
				opts := Options{Penalty: penalty, MinSegmentLength: minLen}
				pruned, err := Segment(context.Background(), series, mustModel(t, kind), opts)
				require.NoError(t, err)

				opts.Exhaustive = true
				full, err := Segment(context.Background(), series, mustModel(t, kind), opts)
				require.NoError(t, err)

				assert.Equal(t, full.Breakpoints, pruned.Breakpoints, "%s penalty %g min %d", kind, penalty, minLen)
				assert.InDelta(t, full.Cost, pruned.Cost, 1e-6*(1+math.Abs(full.Cost)))
				assert.LessOrEqual(t, pruned.Evaluations, full.Evaluations)
			}
		}
	}
}

func TestSegmentMatchesBruteForce(t *testing.T) {
	series := regimeSeries(13, 5)
	n := series.Len()

	for _, model := range []CostModel{L2Cost{}, NormalCost{}, &RBFCost{Gamma: 0.3}} {
		for _, minLen := range []int{1, 2, 3} {
			opts := Options{Penalty: 1.5, MinSegmentLength: minLen}
			seg, err := Segment(context.Background(), series, model, opts)
			require.NoError(t, err)

			cost, err := model.Fit(series.Values)
			require.NoError(t, err)
			m := max(minLen, model.MinSize())

			best := math.Inf(1)
			for mask := 0; mask < 1<<(n-1); mask++ {
				total, start, ok := 0.0, 0, true
				for i := 1; i <= n; i++ {
					if i < n && mask&(1<<(i-1)) == 0 {
						continue
					}
					if i-start < m {
						ok = false
						break
					}
					total += cost.Cost(start, i) + opts.Penalty
					start = i
				}
				if ok {
					best = math.Min(best, total-opts.Penalty)
				}
			}
			assert.InDelta(t, best, seg.Cost, 1e-9, "%s min %d", model.Name(), minLen)
		}
	}
}

func TestSegmentIdempotent(t *testing.T) {
	series := regimeSeries(280, 21)
	opts := Options{Penalty: 8, MinSegmentLength: 3}

	first, err := Segment(context.Background(), series, mustModel(t, KernelRBF), opts)
	require.NoError(t, err)
	second, err := Segment(context.Background(), series, mustModel(t, KernelRBF), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Breakpoints, second.Breakpoints)
	assert.Equal(t, first.Cost, second.Cost)
}

func TestSegmentMonotoneInPenalty(t *testing.T) {
	series := regimeSeries(280, 8)
	for _, kind := range CostModelKinds() {
		prev := math.MaxInt
		for _, penalty := range []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 1000} {
			seg, err := Segment(context.Background(), series, mustModel(t, kind), Options{Penalty: penalty, MinSegmentLength: 2})
			require.NoError(t, err)

			assert.LessOrEqual(t, seg.NumChangePoints(), prev, "%s penalty %g", kind, penalty)
			prev = seg.NumChangePoints()
		}
	}
}

func TestSegmentMinimumLength(t *testing.T) {
	series := regimeSeries(280, 2)
	for _, minLen := range []int{1, 7, 30} {
		seg, err := Segment(context.Background(), series, mustModel(t, MeanShift), Options{Penalty: 0.1, MinSegmentLength: minLen})
		require.NoError(t, err)

		for _, r := range seg.Regimes {
			assert.GreaterOrEqual(t, r.Len(), minLen)
		}
	}
}

func TestSegmentBoundaries(t *testing.T) {
	series := timeseries.New([]float64{1, 5, 2, 8, 3})

	seg, err := Segment(context.Background(), series, mustModel(t, MeanShift), Options{Penalty: 1, MinSegmentLength: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, seg.Breakpoints)
	assert.Empty(t, seg.ChangePoints())

	_, err = Segment(context.Background(), series, mustModel(t, MeanShift), Options{Penalty: 1, MinSegmentLength: 6})
	assert.ErrorIs(t, err, ErrInfeasibleSegmentation)

	single := timeseries.New([]float64{3})
	_, err = Segment(context.Background(), single, mustModel(t, VarianceShift), Options{Penalty: 1, MinSegmentLength: 1})
	assert.ErrorIs(t, err, ErrInfeasibleSegmentation)

	seg, err = Segment(context.Background(), single, mustModel(t, KernelRBF), Options{Penalty: 1, MinSegmentLength: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, seg.Breakpoints)
}

func TestSegmentValidation(t *testing.T) {
	series := timeseries.New([]float64{1, 2, 3, 4})
	model := mustModel(t, MeanShift)

	tests := []struct {
		name   string
		series *timeseries.Series
		model  CostModel
		opts   Options
		want   error
	}{
		{"nil series", nil, model, Options{Penalty: 1, MinSegmentLength: 1}, ErrEmptySeries},
		{"empty series before penalty", timeseries.New(nil), model, Options{}, ErrEmptySeries},
		{"zero penalty", series, model, Options{Penalty: 0, MinSegmentLength: 1}, ErrInvalidPenalty},
		{"negative penalty", series, model, Options{Penalty: -3, MinSegmentLength: 1}, ErrInvalidPenalty},
		{"NaN penalty", series, model, Options{Penalty: math.NaN(), MinSegmentLength: 1}, ErrInvalidPenalty},
		{"infinite penalty", series, model, Options{Penalty: math.Inf(1), MinSegmentLength: 1}, ErrInvalidPenalty},
		{"zero min length", series, model, Options{Penalty: 1}, ErrInvalidMinSegmentLength},
		{"nil model", series, nil, Options{Penalty: 1, MinSegmentLength: 1}, ErrUnknownCostModel},
		{"bad values", timeseries.New([]float64{1, math.NaN()}), model, Options{Penalty: 1, MinSegmentLength: 1}, timeseries.ErrInvalidSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Segment(context.Background(), tt.series, tt.model, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSegmentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Segment(ctx, regimeSeries(100, 1), mustModel(t, KernelRBF), Options{Penalty: 5, MinSegmentLength: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChangePointsEmpty(t *testing.T) {
	var seg Segmentation
	assert.Nil(t, seg.ChangePoints())
	assert.Zero(t, seg.NumChangePoints())
}
