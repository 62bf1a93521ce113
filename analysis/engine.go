package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/goregime/changepoint"
	"github.com/sartorproj/goregime/stats"
	"github.com/sartorproj/goregime/timeseries"
)

// Analysis names one of the independent analyses of a run.
type Analysis string

const (
	AnalysisStationarity  Analysis = "stationarity"
	AnalysisDecomposition Analysis = "decomposition"
	AnalysisSegmentation  Analysis = "segmentation"
)

// Analyses lists the analyses in report order.
func Analyses() []Analysis {
	return []Analysis{AnalysisStationarity, AnalysisDecomposition, AnalysisSegmentation}
}

// AnalysisError identifies the analysis that produced Err.
type AnalysisError struct {
	Analysis Analysis
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis: %v", e.Analysis, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the failure as {"analysis": ..., "error": ...}.
func (e *AnalysisError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Analysis Analysis `json:"analysis"`
		Error    string   `json:"error"`
	}{e.Analysis, e.Err.Error()})
}

// Report aggregates the outputs of one run. Outputs of failed analyses are
// nil, except Rolling, which survives a failed unit-root test.
type Report struct {
	RunID         string                    `json:"run_id"`
	GeneratedAt   time.Time                 `json:"generated_at"`
	Series        *timeseries.Series        `json:"-"`
	Summary       *timeseries.Summary       `json:"summary,omitempty"`
	Options       Options                   `json:"options"`
	Rolling       *stats.RollingStats       `json:"rolling,omitempty"`
	Stationarity  *stats.ADFResult          `json:"stationarity,omitempty"`
	Decomposition *stats.Decomposition      `json:"decomposition,omitempty"`
	Segmentation  *changepoint.Segmentation `json:"segmentation,omitempty"`
	Failures      []*AnalysisError          `json:"failures,omitempty"`
}

// Failure returns the failure of the named analysis, or nil if it succeeded.
func (r *Report) Failure(name Analysis) *AnalysisError {
	for _, f := range r.Failures {
		if f.Analysis == name {
			return f
		}
	}
	return nil
}

// Sink consumes finished reports.
type Sink interface {
	Write(ctx context.Context, report *Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, report *Report) error

func (f SinkFunc) Write(ctx context.Context, report *Report) error {
	return f(ctx, report)
}

// Engine runs the stationarity, decomposition and segmentation analyses
// over one series and forwards the report to its sinks.
type Engine struct {
	logger      *slog.Logger
	sinks       []Sink
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSinks appends report sinks.
func WithSinks(sinks ...Sink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithParallelism limits how many analyses run at once. Values below one
// run them all concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the three analyses concurrently over series. A failing
// analysis does not stop the others: its error is recorded in the report
// under its name and the remaining outputs are kept. The report is then
// written to every sink unless ctx is done.
//
// The returned report is non-nil unless series breaks the input contract.
// The error aggregates analysis and sink failures.
func (e *Engine) Run(ctx context.Context, series *timeseries.Series, opts Options) (*Report, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Series:      series,
		Options:     opts,
	}
	if summary, err := series.Describe(); err == nil {
		report.Summary = &summary
	}

	ctx, span := startRunSpan(ctx, report.RunID, series.Len(), opts)
	defer span.End()

	logger := e.logger.With("run_id", report.RunID)
	logger.Info("analysis run started",
		"observations", series.Len(),
		"window", opts.Window,
		"period", opts.Period,
		"penalty", opts.Penalty,
		"cost_model", opts.CostModel,
	)

	tasks := []struct {
		name Analysis
		run  func(ctx context.Context) error
	}{
		{AnalysisStationarity, func(context.Context) error {
			res, err := stats.Stationarity(series, opts.Window, opts.ADF)
			if res != nil {
				report.Rolling, report.Stationarity = res.Rolling, res.ADF
			}
			return err
		}},
		{AnalysisDecomposition, func(context.Context) error {
			dec, err := stats.Decompose(series, opts.Period, opts.DecomposeModel)
			report.Decomposition = dec
			return err
		}},
		{AnalysisSegmentation, func(ctx context.Context) error {
			seg, err := e.segment(ctx, series, opts, logger)
			report.Segmentation = seg
			return err
		}},
	}

	// Each task writes only its own report fields and failure slot.
	failures := make([]*AnalysisError, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}
	for i, task := range tasks {
		g.Go(func() error {
			actx, aspan := startAnalysisSpan(gctx, task.name)
			start := time.Now()
			err := task.run(actx)
			elapsed := time.Since(start)

			endAnalysisSpan(aspan, err)
			recordAnalysisMetrics(actx, task.name, elapsed, err)
			if err != nil {
				failures[i] = &AnalysisError{Analysis: task.name, Err: err}
				logger.Warn("analysis failed", "analysis", task.name, "duration", elapsed, "error", err)
				return nil
			}
			logger.Debug("analysis complete", "analysis", task.name, "duration", elapsed)
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, f := range failures {
		if f != nil {
			report.Failures = append(report.Failures, f)
			result = multierror.Append(result, f)
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("analysis run cancelled before reporting", "error", err)
		return report, multierror.Append(result, err).ErrorOrNil()
	}

	for _, sink := range e.sinks {
		if err := sink.Write(ctx, report); err != nil {
			logger.Error("report sink failed", "sink", fmt.Sprintf("%T", sink), "error", err)
			result = multierror.Append(result, fmt.Errorf("report sink %T: %w", sink, err))
		}
	}

	logger.Info("analysis run finished",
		"failures", len(report.Failures),
		"change_points", changePointCount(report.Segmentation),
	)
	return report, result.ErrorOrNil()
}

func (e *Engine) segment(ctx context.Context, series *timeseries.Series, opts Options, logger *slog.Logger) (*changepoint.Segmentation, error) {
	kind, err := changepoint.ParseCostModel(string(opts.CostModel))
	if err != nil {
		return nil, err
	}
	model, err := changepoint.NewCostModel(kind, changepoint.WithGamma(opts.KernelGamma))
	if err != nil {
		return nil, err
	}
	seg, err := changepoint.Segment(ctx, series, model, changepoint.Options{
		Penalty:          opts.Penalty,
		MinSegmentLength: opts.MinSegmentLength,
		Exhaustive:       opts.Exhaustive,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	recordChangePoints(ctx, seg.CostModel, seg.NumChangePoints())
	return seg, nil
}

func changePointCount(seg *changepoint.Segmentation) int {
	if seg == nil {
		return 0
	}
	return seg.NumChangePoints()
}

// IsAnalysisError reports whether err carries a failure of the named analysis.
func IsAnalysisError(err error, name Analysis) bool {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			if IsAnalysisError(e, name) {
				return true
			}
		}
		return false
	}
	var aerr *AnalysisError
	return errors.As(err, &aerr) && aerr.Analysis == name
}
