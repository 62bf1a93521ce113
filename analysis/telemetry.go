package analysis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for analysis runs.
var (
	tracer = otel.Tracer("goregime.analysis")
	meter  = otel.Meter("goregime.analysis")
)

// Metrics for analysis runs.
var (
	analysisLatency  metric.Float64Histogram
	analysisFailures metric.Int64Counter
	changePoints     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisLatency, err = meter.Float64Histogram(
			"goregime_analysis_duration_seconds",
			metric.WithDescription("Duration of each analysis in a run"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisFailures, err = meter.Int64Counter(
			"goregime_analysis_failures_total",
			metric.WithDescription("Total number of failed analyses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		changePoints, err = meter.Int64Histogram(
			"goregime_change_points",
			metric.WithDescription("Number of change points found per segmentation"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates the parent span of an engine run.
func startRunSpan(ctx context.Context, runID string, observations int, opts Options) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Run",
		trace.WithAttributes(
			attribute.String("analysis.run_id", runID),
			attribute.Int("analysis.observations", observations),
			attribute.String("analysis.cost_model", string(opts.CostModel)),
			attribute.Float64("analysis.penalty", opts.Penalty),
		),
	)
}

// startAnalysisSpan creates a span for one analysis of a run.
func startAnalysisSpan(ctx context.Context, name Analysis) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine."+string(name),
		trace.WithAttributes(
			attribute.String("analysis.name", string(name)),
		),
	)
}

// endAnalysisSpan records the outcome on span and ends it.
func endAnalysisSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool("analysis.success", err == nil))
	span.End()
}

// recordAnalysisMetrics records the duration and outcome of one analysis.
func recordAnalysisMetrics(ctx context.Context, name Analysis, duration time.Duration, err error) {
	if initErr := initMetrics(); initErr != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("analysis", string(name)),
		attribute.Bool("success", err == nil),
	)
	analysisLatency.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		analysisFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("analysis", string(name))))
	}
}

// recordChangePoints records the size of a segmentation.
func recordChangePoints(ctx context.Context, costModel string, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	changePoints.Record(ctx, int64(n), metric.WithAttributes(attribute.String("cost_model", costModel)))
}
