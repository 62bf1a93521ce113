package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/sartorproj/goregime/analysis"
	"github.com/sartorproj/goregime/timeseries"
)

// Output file names written by DirSink.
const (
	StationarityFile  = "stationarity_test_results.csv"
	RollingFile       = "rolling_stats.csv"
	DecompositionFile = "decomposition.csv"
	ChangePointsFile  = "change_points.csv"
	SegmentsFile      = "segments.csv"
	ReportFile        = "report.json"
	FiguresDir        = "figures"
)

const dateLayout = "2006-01-02"

// DirSink writes a report as CSV tables, a JSON document and PNG figures
// under one directory, creating it when missing. Outputs of failed analyses
// are skipped.
type DirSink struct {
	dir     string
	figures bool
	logger  *slog.Logger
}

// DirOption configures a DirSink.
type DirOption func(*DirSink)

// WithFigures enables or disables the PNG figures. Default: enabled.
func WithFigures(enabled bool) DirOption {
	return func(s *DirSink) {
		s.figures = enabled
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) DirOption {
	return func(s *DirSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDirSink returns a sink writing under dir.
func NewDirSink(dir string, opts ...DirOption) *DirSink {
	s := &DirSink{dir: dir, figures: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the output directory.
func (s *DirSink) Dir() string { return s.dir }

// Write implements analysis.Sink. Every output is attempted; the returned
// error aggregates the ones that failed.
func (s *DirSink) Write(ctx context.Context, r *analysis.Report) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("report: create output directory: %w", err)
	}

	type output struct {
		name  string
		skip  bool
		write func(io.Writer) error
	}
	outputs := []output{
		{StationarityFile, r.Stationarity == nil, func(w io.Writer) error { return writeStationarity(w, r) }},
		{RollingFile, r.Rolling == nil || r.Series == nil, func(w io.Writer) error { return writeRolling(w, r) }},
		{DecompositionFile, r.Decomposition == nil, func(w io.Writer) error { return writeDecomposition(w, r) }},
		{ChangePointsFile, r.Segmentation == nil, func(w io.Writer) error { return writeChangePoints(w, r) }},
		{SegmentsFile, r.Segmentation == nil, func(w io.Writer) error { return writeSegments(w, r) }},
		{ReportFile, false, func(w io.Writer) error { return writeJSON(w, r) }},
	}

	var result *multierror.Error
	for _, out := range outputs {
		if out.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err)
		}
		path := filepath.Join(s.dir, out.name)
		if err := writeFile(path, out.write); err != nil {
			result = multierror.Append(result, fmt.Errorf("report: write %s: %w", out.name, err))
			continue
		}
		s.logger.Debug("report file written", "path", path)
	}

	if s.figures {
		if err := s.writeFigures(ctx, r); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	s.logger.Info("report written", "dir", s.dir, "run_id", r.RunID)
	return nil
}

func (s *DirSink) writeFigures(ctx context.Context, r *analysis.Report) error {
	dir := filepath.Join(s.dir, FiguresDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create figures directory: %w", err)
	}

	figures := []struct {
		name string
		skip bool
		save func(string) error
	}{
		{"rolling_stats.png", r.Rolling == nil, func(p string) error { return PlotRollingStats(p, r.Series, r.Rolling) }},
		{"decomposition.png", r.Decomposition == nil, func(p string) error { return PlotDecomposition(p, r.Decomposition) }},
		{"price_with_change_points.png", r.Segmentation == nil, func(p string) error { return PlotChangePoints(p, r.Series, r.Segmentation) }},
	}

	var result *multierror.Error
	for _, fig := range figures {
		if fig.skip || r.Series == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err)
		}
		path := filepath.Join(dir, fig.name)
		if err := fig.save(path); err != nil {
			result = multierror.Append(result, fmt.Errorf("report: plot %s: %w", fig.name, err))
			continue
		}
		s.logger.Debug("figure written", "path", path)
	}
	return result.ErrorOrNil()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNull(v timeseries.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Float64)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// writeStationarity writes the ADF result as metric,value rows.
func writeStationarity(w io.Writer, r *analysis.Report) error {
	adf := r.Stationarity
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Metric", "Value"},
		{"Test Statistic", formatFloat(adf.Statistic)},
		{"p-value", formatFloat(adf.PValue)},
		{"#Lags Used", strconv.Itoa(adf.UsedLag)},
		{"Number of Observations Used", strconv.Itoa(adf.NObs)},
	}
	for _, level := range []string{"1%", "5%", "10%"} {
		rows = append(rows, []string{"Critical Value (" + level + ")", formatFloat(adf.CriticalValues[level])})
	}
	rows = append(rows,
		[]string{"Regression", string(adf.Regression)},
		[]string{"Autolag", string(adf.Autolag)},
		[]string{"Stationary", strconv.FormatBool(adf.IsStationary)},
	)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeRolling(w io.Writer, r *analysis.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Price", "RollingMean", "RollingStd"}); err != nil {
		return err
	}
	for i, v := range r.Series.Values {
		if err := cw.Write([]string{
			formatDate(r.Series.TimeAt(i)),
			formatFloat(v),
			formatNull(r.Rolling.Mean[i]),
			formatNull(r.Rolling.Std[i]),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDecomposition(w io.Writer, r *analysis.Report) error {
	dec := r.Decomposition
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Observed", "Trend", "Seasonal", "Residual"}); err != nil {
		return err
	}
	for i, v := range dec.Observed {
		if err := cw.Write([]string{
			formatDate(dec.Timestamps[i]),
			formatFloat(v),
			formatNull(dec.Trend[i]),
			formatNull(dec.Seasonal[i]),
			formatNull(dec.Residual[i]),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeChangePoints(w io.Writer, r *analysis.Report) error {
	seg := r.Segmentation
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"change_date", "index"}); err != nil {
		return err
	}
	for i, idx := range seg.ChangePoints() {
		if err := cw.Write([]string{formatDate(seg.Dates[i]), strconv.Itoa(idx)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeSegments(w io.Writer, r *analysis.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start_date", "end_date", "start", "end", "length", "mean", "std", "cost"}); err != nil {
		return err
	}
	for _, reg := range r.Segmentation.Regimes {
		if err := cw.Write([]string{
			formatDate(reg.StartDate),
			formatDate(reg.EndDate),
			strconv.Itoa(reg.Start),
			strconv.Itoa(reg.End),
			strconv.Itoa(reg.Len()),
			formatFloat(reg.Mean),
			formatFloat(reg.Std),
			formatFloat(reg.Cost),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, r *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
