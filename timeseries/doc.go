// Package timeseries provides time series data structures and utilities.
//
// This package includes the Series type consumed by every analysis, the
// NullFloat64 value used for positions a computation leaves undefined, and
// the CSV preparer that turns a raw price export into a clean daily series.
//
// # Creating a Series
//
// Create a daily time series from a slice:
//
//	values := []float64{100, 102, 105, 103, 108, 110}
//	series := timeseries.New(values)
//
// Analyses expect strictly increasing timestamps and finite values:
//
//	if err := series.Validate(); err != nil {
//	    return err
//	}
//
// # Preparing raw data
//
// Prepare finds the Date and Price columns case-insensitively, parses
// dd-Mon-yy and ISO dates, sorts, drops duplicate dates and interpolates
// missing prices in time:
//
//	series, stats, err := timeseries.Prepare(file, nil)
//	fmt.Printf("%d rows, %d interpolated\n", stats.Rows, stats.Interpolated)
//
// # Returns and volatility
//
//	returns := series.PctChange()               // daily returns in percent
//	volatility := timeseries.RollingStd(returns, 30)
package timeseries
