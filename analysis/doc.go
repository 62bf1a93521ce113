// Package analysis runs the regime analysis of a price series.
//
// An Engine executes the stationarity test, the seasonal decomposition and
// the change-point segmentation concurrently over one read-only series and
// collects their outputs in a Report:
//
//	engine := analysis.New(
//	    analysis.WithLogger(logger),
//	    analysis.WithSinks(report.NewDirSink("reports")),
//	)
//	rep, err := engine.Run(ctx, series, analysis.DefaultOptions())
//
// Analyses fail independently. When the unit-root test cannot be estimated,
// the decomposition and segmentation are still reported, the failure is
// listed in Report.Failures, and Run returns an error naming it.
//
// Runs are traced and measured through the global OpenTelemetry providers,
// which are no-ops until the program installs real ones.
package analysis
