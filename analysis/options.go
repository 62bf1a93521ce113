package analysis

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/sartorproj/goregime/changepoint"
	"github.com/sartorproj/goregime/stats"
)

// Options bundles the parameters of the three analyses.
type Options struct {
	// Window is the rolling-statistics window in observations.
	Window int `mapstructure:"window" yaml:"window" json:"window" validate:"gt=0"`
	// Period is the seasonal period of the decomposition.
	Period int `mapstructure:"period" yaml:"period" json:"period" validate:"gte=2"`
	// Penalty is the per-segment penalty of the change-point search.
	Penalty float64 `mapstructure:"penalty" yaml:"penalty" json:"penalty" validate:"gt=0"`
	// MinSegmentLength is the shortest admissible regime.
	MinSegmentLength int `mapstructure:"min_segment_length" yaml:"min_segment_length" json:"min_segment_length" validate:"gte=1"`
	// CostModel selects the segment cost. Short names such as rbf are accepted.
	CostModel changepoint.CostModelKind `mapstructure:"cost_model" yaml:"cost_model" json:"cost_model" validate:"required,costmodel"`
	// DecomposeModel selects additive or multiplicative decomposition.
	DecomposeModel stats.DecompositionModel `mapstructure:"decompose_model" yaml:"decompose_model" json:"decompose_model" validate:"omitempty,oneof=additive multiplicative"`
	// ADF configures the unit-root test.
	ADF stats.ADFOptions `mapstructure:"adf" yaml:"adf" json:"adf"`
	// KernelGamma fixes the RBF bandwidth; zero estimates it from the data.
	KernelGamma float64 `mapstructure:"kernel_gamma" yaml:"kernel_gamma" json:"kernel_gamma,omitempty" validate:"gte=0"`
	// Exhaustive disables PELT pruning.
	Exhaustive bool `mapstructure:"exhaustive" yaml:"exhaustive" json:"exhaustive,omitempty"`
}

// DefaultOptions returns the settings used for daily Brent prices: a one-year
// window and period, penalty 15, kernel cost.
func DefaultOptions() Options {
	return Options{
		Window:           365,
		Period:           365,
		Penalty:          15,
		MinSegmentLength: 2,
		CostModel:        changepoint.KernelRBF,
		DecomposeModel:   stats.Additive,
		ADF:              stats.DefaultADFOptions(),
	}
}

// Validate reports every invalid field. The analyses validate their own
// inputs as well, so Run does not require a prior call.
func (o Options) Validate() error {
	var result *multierror.Error
	if o.Window <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: window %d", stats.ErrInvalidWindow, o.Window))
	}
	if o.Period < 2 {
		result = multierror.Append(result, fmt.Errorf("%w: period %d", stats.ErrInvalidPeriod, o.Period))
	}
	if o.Penalty <= 0 || math.IsNaN(o.Penalty) || math.IsInf(o.Penalty, 0) {
		result = multierror.Append(result, fmt.Errorf("%w: got %g", changepoint.ErrInvalidPenalty, o.Penalty))
	}
	if o.MinSegmentLength < 1 {
		result = multierror.Append(result, fmt.Errorf("%w: got %d", changepoint.ErrInvalidMinSegmentLength, o.MinSegmentLength))
	}
	if _, err := changepoint.ParseCostModel(string(o.CostModel)); err != nil {
		result = multierror.Append(result, err)
	}
	switch o.DecomposeModel {
	case "", stats.Additive, stats.Multiplicative:
	default:
		result = multierror.Append(result, fmt.Errorf("%w: decomposition model %q", stats.ErrInvalidModel, o.DecomposeModel))
	}
	switch o.ADF.Regression {
	case "", stats.RegressionNone, stats.RegressionConstant, stats.RegressionConstantTrend:
	default:
		result = multierror.Append(result, fmt.Errorf("%w: ADF regression %q", stats.ErrInvalidModel, o.ADF.Regression))
	}
	if o.ADF.MaxLag < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: negative ADF max lag %d", stats.ErrInvalidModel, o.ADF.MaxLag))
	}
	if o.KernelGamma < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: negative kernel gamma %g", stats.ErrInvalidModel, o.KernelGamma))
	}
	return result.ErrorOrNil()
}
