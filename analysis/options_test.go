package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sartorproj/goregime/changepoint"
	"github.com/sartorproj/goregime/stats"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.Validate())
	assert.Equal(t, 365, opts.Window)
	assert.Equal(t, 365, opts.Period)
	assert.Equal(t, 15.0, opts.Penalty)
	assert.Equal(t, changepoint.KernelRBF, opts.CostModel)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   error
	}{
		{"window", func(o *Options) { o.Window = 0 }, stats.ErrInvalidWindow},
		{"period", func(o *Options) { o.Period = 1 }, stats.ErrInvalidPeriod},
		{"penalty", func(o *Options) { o.Penalty = 0 }, changepoint.ErrInvalidPenalty},
		{"nan penalty", func(o *Options) { o.Penalty = math.NaN() }, changepoint.ErrInvalidPenalty},
		{"min length", func(o *Options) { o.MinSegmentLength = 0 }, changepoint.ErrInvalidMinSegmentLength},
		{"cost model", func(o *Options) { o.CostModel = "gaussian_process" }, changepoint.ErrUnknownCostModel},
		{"decompose model", func(o *Options) { o.DecomposeModel = "stl" }, stats.ErrInvalidModel},
		{"adf regression", func(o *Options) { o.ADF.Regression = "ctt" }, stats.ErrInvalidModel},
		{"gamma", func(o *Options) { o.KernelGamma = -1 }, stats.ErrInvalidModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			assert.ErrorIs(t, opts.Validate(), tt.want)
		})
	}
}

func TestOptionsValidateCollectsAll(t *testing.T) {
	opts := Options{CostModel: changepoint.MeanShift}
	err := opts.Validate()
	assert.ErrorIs(t, err, stats.ErrInvalidWindow)
	assert.ErrorIs(t, err, stats.ErrInvalidPeriod)
	assert.ErrorIs(t, err, changepoint.ErrInvalidPenalty)
	assert.ErrorIs(t, err, changepoint.ErrInvalidMinSegmentLength)
}
