// Package report implements the sinks that turn an analysis.Report into
// files and console output.
//
// DirSink writes one directory per run:
//
//	stationarity_test_results.csv
//	rolling_stats.csv
//	decomposition.csv
//	change_points.csv
//	segments.csv
//	report.json
//	figures/rolling_stats.png
//	figures/decomposition.png
//	figures/price_with_change_points.png
//
// TableSink prints the summary, the Dickey-Fuller results and the detected
// regimes as tables. MultiSink fans a report out to several sinks.
package report
