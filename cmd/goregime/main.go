// Command goregime prepares Brent oil price data and runs the regime
// analysis: stationarity test, seasonal decomposition and change points.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
