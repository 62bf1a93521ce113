package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"

	"github.com/sartorproj/goregime/analysis"
)

// TableSink prints a report as console tables.
type TableSink struct {
	w io.Writer
}

// NewTableSink returns a sink printing to w, or to standard output when w
// is nil.
func NewTableSink(w io.Writer) *TableSink {
	if w == nil {
		w = os.Stdout
	}
	return &TableSink{w: w}
}

// Write implements analysis.Sink.
func (s *TableSink) Write(_ context.Context, r *analysis.Report) error {
	if r.Summary != nil {
		fmt.Fprintf(s.w, "\nSeries: %d observations, %s to %s\n",
			r.Summary.Count, r.Summary.Start, r.Summary.End)
		table := newTable(s.w, "Mean", "Std", "Min", "25%", "50%", "75%", "Max")
		table.Append([]string{
			fmtFloat(r.Summary.Mean), fmtFloat(r.Summary.Std), fmtFloat(r.Summary.Min),
			fmtFloat(r.Summary.Q25), fmtFloat(r.Summary.Q50), fmtFloat(r.Summary.Q75), fmtFloat(r.Summary.Max),
		})
		table.Render()
	}

	if adf := r.Stationarity; adf != nil {
		fmt.Fprintln(s.w, "\nResults of Dickey-Fuller Test:")
		table := newTable(s.w, "Metric", "Value")
		table.AppendBulk([][]string{
			{"Test Statistic", fmtFloat(adf.Statistic)},
			{"p-value", fmtFloat(adf.PValue)},
			{"#Lags Used", strconv.Itoa(adf.UsedLag)},
			{"Number of Observations Used", strconv.Itoa(adf.NObs)},
			{"Critical Value (1%)", fmtFloat(adf.CriticalValues["1%"])},
			{"Critical Value (5%)", fmtFloat(adf.CriticalValues["5%"])},
			{"Critical Value (10%)", fmtFloat(adf.CriticalValues["10%"])},
			{"Stationary", strconv.FormatBool(adf.IsStationary)},
		})
		table.Render()
	}

	if seg := r.Segmentation; seg != nil {
		fmt.Fprintf(s.w, "\nDetected %d change points (%s, penalty %g):\n",
			seg.NumChangePoints(), seg.CostModel, seg.Penalty)
		table := newTable(s.w, "#", "Start", "End", "Days", "Mean", "Std")
		for i, reg := range seg.Regimes {
			table.Append([]string{
				strconv.Itoa(i + 1),
				formatDate(reg.StartDate),
				formatDate(reg.EndDate),
				strconv.Itoa(reg.Len()),
				fmtFloat(reg.Mean),
				fmtFloat(reg.Std),
			})
		}
		table.Render()
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(s.w, "\nFailed analyses:")
		table := newTable(s.w, "Analysis", "Error")
		for _, f := range r.Failures {
			table.Append([]string{string(f.Analysis), f.Err.Error()})
		}
		table.Render()
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// MultiSink writes to every sink in order and aggregates their errors.
type MultiSink []analysis.Sink

// Write implements analysis.Sink.
func (m MultiSink) Write(ctx context.Context, r *analysis.Report) error {
	var result *multierror.Error
	for _, sink := range m {
		if err := sink.Write(ctx, r); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
