package changepoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCostModel(t *testing.T) {
	tests := []struct {
		in   string
		want CostModelKind
	}{
		{"kernel_rbf", KernelRBF},
		{"RBF", KernelRBF},
		{" mean_shift ", MeanShift},
		{"l2", MeanShift},
		{"variance_shift", VarianceShift},
		{"Normal", VarianceShift},
	}
	for _, tt := range tests {
		got, err := ParseCostModel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseCostModel("ar")
	assert.ErrorIs(t, err, ErrUnknownCostModel)

	_, err = NewCostModel("ar")
	assert.ErrorIs(t, err, ErrUnknownCostModel)
}

func TestNewCostModel(t *testing.T) {
	for _, kind := range CostModelKinds() {
		model, err := NewCostModel(kind)
		require.NoError(t, err)
		assert.Equal(t, string(kind), model.Name())
	}

	model, err := NewCostModel(KernelRBF, WithGamma(0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.5, model.(*RBFCost).Gamma)

	assert.Equal(t, 2, NormalCost{}.MinSize())
	assert.Equal(t, 1, L2Cost{}.MinSize())
}

func TestL2Cost(t *testing.T) {
	cost, err := L2Cost{}.Fit([]float64{1, 2, 3, 10, 10})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, cost.Cost(0, 3), 1e-12)
	assert.InDelta(t, 0.0, cost.Cost(3, 5), 1e-12)
	assert.InDelta(t, 0.0, cost.Cost(2, 3), 1e-12)
	assert.Zero(t, cost.Cost(2, 2))
}

func TestNormalCost(t *testing.T) {
	signal := []float64{1, 3, 1, 3, 5, 5}
	cost, err := NormalCost{}.Fit(signal)
	require.NoError(t, err)

	assert.InDelta(t, 4*math.Log1p(1/normalEpsilon), cost.Cost(0, 4), 1e-9)
	assert.InDelta(t, 0.0, cost.Cost(4, 6), 1e-6)
	assert.GreaterOrEqual(t, cost.Cost(0, 6), cost.Cost(0, 4)+cost.Cost(4, 6))
}

func bruteRBF(signal []float64, gamma float64, start, end int) float64 {
	sum := 0.0
	for i := start; i < end; i++ {
		for j := start; j < end; j++ {
			d := signal[i] - signal[j]
			sum += math.Exp(-gamma * d * d)
		}
	}
	l := float64(end - start)
	return l - sum/l
}

func TestRBFCostMatchesDirectSum(t *testing.T) {
	signal := regimeSeries(80, 4).Values
	cost, err := (&RBFCost{Gamma: 0.2}).Fit(signal)
	require.NoError(t, err)

	// Growing, shrinking and interleaved queries must all agree with the
	// quadratic formula.
	queries := [][2]int{{0, 10}, {0, 40}, {5, 40}, {0, 20}, {30, 80}, {5, 41}, {0, 80}, {79, 80}}
	for _, q := range queries {
		assert.InDelta(t, bruteRBF(signal, 0.2, q[0], q[1]), cost.Cost(q[0], q[1]), 1e-9, "segment %v", q)
	}

	cost.(Releaser).Release(0)
	assert.InDelta(t, bruteRBF(signal, 0.2, 0, 50), cost.Cost(0, 50), 1e-9)
}

func TestRBFCostSubadditive(t *testing.T) {
	signal := regimeSeries(120, 9).Values
	cost, err := (&RBFCost{}).Fit(signal)
	require.NoError(t, err)

	for _, mid := range []int{10, 60, 100} {
		assert.GreaterOrEqual(t, cost.Cost(0, 120)+1e-9, cost.Cost(0, mid)+cost.Cost(mid, 120))
	}
}

func TestMedianGamma(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
		want   float64
	}{
		{"empty", nil, 1},
		{"single", []float64{4}, 1},
		{"constant", []float64{3, 3, 3, 3}, 1},
		{"pair", []float64{0, 2}, 0.25},
		{"three", []float64{0, 1, 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := medianGamma(tt.signal)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	long := make([]float64, 5000)
	for i := range long {
		long[i] = float64(i % 2)
	}
	got, err := medianGamma(long)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(got))
	assert.Greater(t, got, 0.0)
}
