// Package goregime analyses the regimes of a daily commodity price series.
//
// It was written for Brent crude prices but works on any clean, daily
// time-indexed series. A run answers three questions:
//
//   - Is the series stationary? (Augmented Dickey-Fuller, package stats)
//   - What are its trend and seasonal pattern? (classical decomposition, package stats)
//   - Where does its behaviour change? (exact penalised segmentation, package changepoint)
//
// # Quick Start
//
// Prepare a raw export and run every analysis:
//
//	series, _, err := timeseries.Prepare(file, nil)
//	engine := analysis.New(analysis.WithSinks(report.NewDirSink("reports")))
//	rep, err := engine.Run(ctx, series, analysis.DefaultOptions())
//	for _, d := range rep.Segmentation.Dates {
//	    fmt.Println(d.Format("2006-01-02"))
//	}
//
// Or from the command line:
//
//	goregime prepare -i data/raw/BrentOilPrices.csv -o data/processed/brent_clean.csv
//	goregime analyze -i data/processed/brent_clean.csv -o reports --penalty 15
//
// # Packages
//
//   - timeseries: Series type, CSV preparation, returns and volatility
//   - stats: ADF test, rolling statistics, seasonal decomposition
//   - changepoint: PELT segmentation with kernel, mean-shift and variance-shift costs
//   - analysis: concurrent engine producing a Report with partial-result semantics
//   - report: CSV, JSON, PNG and console sinks
//   - config: YAML, environment and flag configuration
//
// # References
//
//   - MacKinnon, J.G. (1994, 2010). Approximate asymptotic distribution functions
//     and critical values for unit-root tests.
//   - Killick, R., Fearnhead, P. and Eckley, I.A. (2012). Optimal detection of
//     changepoints with a linear computational cost.
package goregime
