// Package stats provides the statistical building blocks of a regime
// analysis: the Augmented Dickey-Fuller unit-root test, rolling
// statistics and classical seasonal decomposition.
//
// # Stationarity
//
// ADF regresses Δy on the lagged level, lagged differences and optional
// deterministic terms, choosing the lag order by AIC or BIC:
//
//	result, err := stats.ADF(series, stats.DefaultADFOptions())
//	fmt.Printf("ADF: stat=%.4f, p=%.4f, 5%%=%.4f\n",
//	    result.Statistic, result.PValue, result.CriticalValues["5%"])
//
// P-values follow MacKinnon (1994) and critical values MacKinnon (2010).
// A constant or perfectly collinear series returns ErrNumericalInstability
// rather than a meaningless statistic.
//
// Rolling and Stationarity add the rolling mean and standard deviation
// used to eyeball mean reversion:
//
//	report, err := stats.Stationarity(series, 365, stats.DefaultADFOptions())
//
// # Decomposition
//
// Decompose splits a series into trend, seasonal and residual parts:
//
//	dec, err := stats.Decompose(series, 365, stats.Additive)
//
// Positions the centred moving average cannot reach are absent rather
// than NaN, see timeseries.NullFloat64.
package stats
