package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/goregime/timeseries"
)

// Autolag selects how the ADF lag order is chosen.
type Autolag string

const (
	AutolagAIC  Autolag = "aic"  // minimise Akaike's criterion
	AutolagBIC  Autolag = "bic"  // minimise the Bayesian criterion
	AutolagNone Autolag = "none" // use the maximum lag as given
)

// ADFOptions configures the Augmented Dickey-Fuller test.
type ADFOptions struct {
	// Regression selects the deterministic terms. Default: constant only.
	Regression Regression `mapstructure:"regression" yaml:"regression" json:"regression" validate:"omitempty,oneof=n c ct"`
	// MaxLag overrides floor(12*(n/100)^0.25) when positive.
	MaxLag int `mapstructure:"max_lag" yaml:"max_lag" json:"max_lag" validate:"gte=0"`
	// Autolag selects the lag-order criterion. Default: AIC.
	Autolag Autolag `mapstructure:"autolag" yaml:"autolag" json:"autolag" validate:"omitempty,oneof=aic bic none"`
}

// DefaultADFOptions returns the conventional configuration: constant term,
// AIC lag selection, Schwert's maximum lag.
func DefaultADFOptions() ADFOptions {
	return ADFOptions{Regression: RegressionConstant, Autolag: AutolagAIC}
}

func (o ADFOptions) withDefaults() (ADFOptions, error) {
	if o.Regression == "" {
		o.Regression = RegressionConstant
	}
	if o.Autolag == "" {
		o.Autolag = AutolagAIC
	}
	o.Autolag = Autolag(strings.ToLower(string(o.Autolag)))
	if !o.Regression.valid() {
		return o, fmt.Errorf("%w: ADF regression %q", ErrInvalidModel, o.Regression)
	}
	switch o.Autolag {
	case AutolagAIC, AutolagBIC, AutolagNone:
	default:
		return o, fmt.Errorf("%w: ADF autolag %q", ErrInvalidModel, o.Autolag)
	}
	if o.MaxLag < 0 {
		return o, fmt.Errorf("%w: negative ADF max lag %d", ErrInvalidModel, o.MaxLag)
	}
	return o, nil
}

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic      float64            `json:"test_statistic"`
	PValue         float64            `json:"p_value"`
	UsedLag        int                `json:"lags_used"`
	NObs           int                `json:"observations_used"`
	CriticalValues map[string]float64 `json:"critical_values"` // keyed "1%", "5%", "10%"
	IsStationary   bool               `json:"is_stationary"`
	Regression     Regression         `json:"regression"`
	Autolag        Autolag            `json:"autolag"`
	MaxLag         int                `json:"max_lag"`
	ICBest         float64            `json:"ic_best,omitempty"`
}

// SchwertMaxLag returns floor(12*(n/100)^0.25), the conventional upper bound
// on the ADF lag order.
func SchwertMaxLag(n int) int {
	return int(math.Floor(12 * math.Pow(float64(n)/100, 0.25)))
}

// ADF performs the Augmented Dickey-Fuller test for a unit root.
// The null hypothesis is that the series has a unit root (is non-stationary).
// If p-value < 0.05, we reject the null and conclude the series is stationary.
//
// The regression is
//
//	Δy_t = [α + βt] + γ·y_{t-1} + Σ δ_i·Δy_{t-i} + ε_t
//
// and the statistic is the t-value of γ. With AIC or BIC lag selection every
// lag order 0..maxLag is fitted on the same sample, then the chosen order is
// re-estimated on all available observations.
func ADF(series *timeseries.Series, opts ADFOptions) (*ADFResult, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	n := series.Len()
	maxLag := opts.MaxLag
	if maxLag <= 0 {
		maxLag = SchwertMaxLag(n)
	}
	if n <= maxLag+2 {
		return nil, fmt.Errorf("%w: ADF needs more than %d observations, got %d", ErrInsufficientData, maxLag+2, n)
	}
	if limit := n/2 - opts.Regression.trendTerms() - 1; maxLag > limit {
		if limit < 0 {
			return nil, fmt.Errorf("%w: %d observations cannot support any lag", ErrInsufficientData, n)
		}
		maxLag = limit
	}

	x := series.Values
	diff := series.Diff().Values

	usedLag := maxLag
	icBest := 0.0
	if opts.Autolag != AutolagNone {
		usedLag, icBest, err = selectLag(x, diff, maxLag, opts)
		if err != nil {
			return nil, err
		}
	}

	design, y := adfDesign(x, diff, usedLag, usedLag, opts.Regression)
	fit, err := olsRegression(design, y)
	if err != nil {
		return nil, fmt.Errorf("ADF regression with %d lags: %w", usedLag, err)
	}

	levelCol := opts.Regression.trendTerms()
	tStat := fit.TValue(levelCol)
	if math.IsNaN(tStat) || math.IsInf(tStat, 0) {
		return nil, fmt.Errorf("%w: ADF statistic is %g", ErrNumericalInstability, tStat)
	}

	pValue := mackinnonPValue(tStat, opts.Regression)

	return &ADFResult{
		Statistic:      tStat,
		PValue:         pValue,
		UsedLag:        usedLag,
		NObs:           fit.NObs,
		CriticalValues: mackinnonCritical(fit.NObs, opts.Regression),
		IsStationary:   pValue < 0.05,
		Regression:     opts.Regression,
		Autolag:        opts.Autolag,
		MaxLag:         maxLag,
		ICBest:         icBest,
	}, nil
}

// selectLag fits every lag order on the common sample and returns the one
// minimising the configured criterion; ties keep the smaller order.
func selectLag(x, diff []float64, maxLag int, opts ADFOptions) (int, float64, error) {
	best, bestIC := -1, math.Inf(1)
	var lastErr error
	for lag := 0; lag <= maxLag; lag++ {
		design, y := adfDesign(x, diff, lag, maxLag, opts.Regression)
		fit, err := olsRegression(design, y)
		if err != nil {
			lastErr = err
			continue
		}
		ic := fit.IC()
		value := ic.AIC
		if opts.Autolag == AutolagBIC {
			value = ic.BIC
		}
		if value < bestIC {
			best, bestIC = lag, value
		}
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("ADF lag selection: no lag order could be estimated: %w", lastErr)
	}
	return best, bestIC, nil
}

// adfDesign builds the regression for lag order k using the rows available
// when the sample is trimmed for trimLag lags. Columns are the deterministic
// terms, the lagged level, then Δy_{t-1}..Δy_{t-k}. With a constant the
// lagged level is centred on its sample mean, which leaves γ and its standard
// error unchanged and keeps the design well conditioned at any price level.
func adfDesign(x, diff []float64, k, trimLag int, regression Regression) (*mat.Dense, []float64) {
	nobs := len(diff) - trimLag
	trend := regression.trendTerms()
	cols := trend + 1 + k

	level := 0.0
	if trend >= 1 {
		level = stat.Mean(x[trimLag:trimLag+nobs], nil)
	}

	design := mat.NewDense(nobs, cols, nil)
	y := make([]float64, nobs)
	for r := 0; r < nobs; r++ {
		i := trimLag + r
		y[r] = diff[i]

		c := 0
		if trend >= 1 {
			design.Set(r, c, 1)
			c++
		}
		if trend == 2 {
			design.Set(r, c, float64(r+1))
			c++
		}
		design.Set(r, c, x[i]-level)
		c++
		for j := 1; j <= k; j++ {
			design.Set(r, c, diff[i-j])
			c++
		}
	}
	return design, y
}

// RollingStats holds rolling mean and standard deviation aligned with a series.
type RollingStats struct {
	Window int                      `json:"window"`
	Mean   []timeseries.NullFloat64 `json:"rolling_mean"`
	Std    []timeseries.NullFloat64 `json:"rolling_std"`
}

// Rolling computes the mean and sample standard deviation of each trailing
// window of window points. The first window-1 positions are absent, and so is
// every std when window is 1.
func Rolling(series *timeseries.Series, window int) (*RollingStats, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidWindow, window)
	}

	n := series.Len()
	out := &RollingStats{
		Window: window,
		Mean:   make([]timeseries.NullFloat64, n),
		Std:    make([]timeseries.NullFloat64, n),
	}
	for i := window - 1; i < n; i++ {
		w := series.Values[i-window+1 : i+1]
		if window == 1 {
			out.Mean[i] = timeseries.Valid(w[0])
			continue
		}
		mean, std := stat.MeanStdDev(w, nil)
		out.Mean[i] = timeseries.Valid(mean)
		out.Std[i] = timeseries.Valid(std)
	}
	return out, nil
}

// StationarityReport bundles the rolling diagnostics with the ADF test.
type StationarityReport struct {
	Rolling *RollingStats `json:"rolling"`
	ADF     *ADFResult    `json:"adf"`
}

// Stationarity computes rolling statistics over window points and runs the
// ADF test. Rolling statistics are returned even when the test fails.
func Stationarity(series *timeseries.Series, window int, opts ADFOptions) (*StationarityReport, error) {
	rolling, err := Rolling(series, window)
	if err != nil {
		return nil, err
	}
	adf, err := ADF(series, opts)
	if err != nil {
		return &StationarityReport{Rolling: rolling}, err
	}
	return &StationarityReport{Rolling: rolling, ADF: adf}, nil
}
