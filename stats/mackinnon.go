package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Regression selects the deterministic terms of the ADF regression.
type Regression string

const (
	RegressionNone          Regression = "n"  // no deterministic terms
	RegressionConstant      Regression = "c"  // constant only
	RegressionConstantTrend Regression = "ct" // constant and linear trend
)

// trendTerms returns the number of deterministic regressors.
func (r Regression) trendTerms() int {
	switch r {
	case RegressionNone:
		return 0
	case RegressionConstantTrend:
		return 2
	default:
		return 1
	}
}

func (r Regression) valid() bool {
	_, ok := tauMax[r]
	return ok
}

// MacKinnon (1994) response surface for the single-series (N=1) unit-root
// statistic: p = Φ(Σ c_i τ^i), with separate polynomials below and above τ*.
var (
	tauMax  = map[Regression]float64{RegressionNone: 1.51, RegressionConstant: 2.74, RegressionConstantTrend: 0.7}
	tauMin  = map[Regression]float64{RegressionNone: -19.04, RegressionConstant: -18.83, RegressionConstantTrend: -16.18}
	tauStar = map[Regression]float64{RegressionNone: -1.04, RegressionConstant: -1.61, RegressionConstantTrend: -2.89}

	tauSmallP = map[Regression][]float64{
		RegressionNone:          {0.6344, 1.2378, 0.032496},
		RegressionConstant:      {2.1659, 1.4412, 0.038269},
		RegressionConstantTrend: {3.2512, 1.6047, 0.049588},
	}
	tauLargeP = map[Regression][]float64{
		RegressionNone:          {0.4797, 0.93557, -0.06999, 0.033066},
		RegressionConstant:      {1.7339, 0.93202, -0.12745, -0.010368},
		RegressionConstantTrend: {2.5261, 0.61654, -0.37956, -0.060285},
	}
)

// MacKinnon (2010) finite-sample critical values: b0 + b1/T + b2/T² + b3/T³.
var tau2010 = map[Regression]map[string][4]float64{
	RegressionNone: {
		"1%":  {-2.56574, -2.2358, -3.627, 0},
		"5%":  {-1.94100, -0.2686, -3.365, 31.223},
		"10%": {-1.61682, 0.2656, -2.714, 25.364},
	},
	RegressionConstant: {
		"1%":  {-3.43035, -6.5393, -16.786, -79.433},
		"5%":  {-2.86154, -2.8903, -4.234, -40.040},
		"10%": {-2.56677, -1.5384, -2.809, 0},
	},
	RegressionConstantTrend: {
		"1%":  {-3.95877, -9.0531, -28.428, -134.155},
		"5%":  {-3.41049, -4.3904, -9.036, -45.374},
		"10%": {-3.12705, -2.5856, -3.925, -22.380},
	},
}

// mackinnonPValue approximates the p-value of a unit-root statistic using
// MacKinnon's response surface.
func mackinnonPValue(stat float64, regression Regression) float64 {
	switch {
	case stat > tauMax[regression]:
		return 1
	case stat < tauMin[regression]:
		return 0
	}

	coeffs := tauLargeP[regression]
	if stat <= tauStar[regression] {
		coeffs = tauSmallP[regression]
	}
	return distuv.UnitNormal.CDF(polyval(coeffs, stat))
}

// mackinnonCritical returns the 1%, 5% and 10% critical values for nobs
// observations.
func mackinnonCritical(nobs int, regression Regression) map[string]float64 {
	inv := 1 / float64(nobs)
	out := make(map[string]float64, 3)
	for level, b := range tau2010[regression] {
		out[level] = polyval(b[:], inv)
	}
	return out
}

// polyval evaluates c[0] + c[1]x + c[2]x² + ... by Horner's rule.
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
