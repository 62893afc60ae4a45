package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"atscore/internal/ai"
	"atscore/internal/ats"
	"atscore/internal/pipeline"
	"atscore/internal/types"
)

// Metrics holds the service instruments. A zero Metrics records nothing.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Pipeline metrics
	ResumesProcessed metric.Int64Counter
	StageDuration    metric.Float64Histogram
	ATSScore         metric.Float64Histogram
	ScreeningFiles   metric.Int64Counter
	ScreeningMatches metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits   metric.Int64Counter
	TablesReloads   metric.Int64Counter
	APIKeyRotations metric.Int64Counter
}

var (
	_ pipeline.Recorder = (*Metrics)(nil)
	_ ai.UsageRecorder  = (*Metrics)(nil)
)

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram("atscore_ai_processing_duration_seconds",
		metric.WithDescription("Time spent in structured extraction calls"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter("atscore_ai_requests_total",
		metric.WithDescription("Total number of structured extraction calls")); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter("atscore_ai_errors_total",
		metric.WithDescription("Total number of failed structured extraction calls")); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("atscore_ai_token_usage",
		metric.WithDescription("Token usage per AI call by token type"),
		metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.ResumesProcessed, err = meter.Int64Counter("atscore_resumes_processed_total",
		metric.WithDescription("Total number of resumes run through the pipeline")); err != nil {
		return nil, fmt.Errorf("failed to create resumes processed metric: %w", err)
	}
	if m.StageDuration, err = meter.Float64Histogram("atscore_pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of each pipeline stage"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create stage duration metric: %w", err)
	}
	if m.ATSScore, err = meter.Float64Histogram("atscore_ats_score",
		metric.WithDescription("Distribution of ATS scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)); err != nil {
		return nil, fmt.Errorf("failed to create ATS score metric: %w", err)
	}
	if m.ScreeningFiles, err = meter.Int64Counter("atscore_screening_files_total",
		metric.WithDescription("Total number of files submitted for screening")); err != nil {
		return nil, fmt.Errorf("failed to create screening files metric: %w", err)
	}
	if m.ScreeningMatches, err = meter.Int64Counter("atscore_screening_matches_total",
		metric.WithDescription("Total number of resumes matching screening criteria")); err != nil {
		return nil, fmt.Errorf("failed to create screening matches metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter("atscore_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}
	if m.TablesReloads, err = meter.Int64Counter("atscore_scoring_tables_reloads_total",
		metric.WithDescription("Total number of scoring table reloads")); err != nil {
		return nil, fmt.Errorf("failed to create tables reload metric: %w", err)
	}
	if m.APIKeyRotations, err = meter.Int64Counter("atscore_api_key_rotations_total",
		metric.WithDescription("Total number of API key set rotations")); err != nil {
		return nil, fmt.Errorf("failed to create API key rotation metric: %w", err)
	}

	return m, nil
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if m == nil || m.StageDuration == nil {
		return
	}
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("success", err == nil),
	))
}

// RecordProcessed counts a finished upload and records its score.
func (m *Metrics) RecordProcessed(ctx context.Context, report *ats.Report, err error) {
	if m == nil || m.ResumesProcessed == nil {
		return
	}
	m.ResumesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
	if report != nil && m.ATSScore != nil {
		m.ATSScore.Record(ctx, report.Score)
	}
}

// RecordScreening counts screened files and matches.
func (m *Metrics) RecordScreening(ctx context.Context, files, matches int) {
	if m == nil || m.ScreeningFiles == nil {
		return
	}
	m.ScreeningFiles.Add(ctx, int64(files))
	m.ScreeningMatches.Add(ctx, int64(matches))
}

// RecordTokenUsage records input, output and total tokens of one AI call.
func (m *Metrics) RecordTokenUsage(ctx context.Context, operation, model string, usage *ai.TokenUsage) {
	if m == nil || m.AITokenUsage == nil || usage == nil {
		return
	}
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("model", model),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordRateLimitHit counts a rejected request.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limitType string) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limit_type", limitType)))
}

// RecordTablesReload counts a scoring table reload attempt.
func (m *Metrics) RecordTablesReload(ctx context.Context, err error) {
	if m == nil || m.TablesReloads == nil {
		return
	}
	m.TablesReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// RecordAPIKeyRotation counts an API key set change.
func (m *Metrics) RecordAPIKeyRotation(ctx context.Context) {
	if m == nil || m.APIKeyRotations == nil {
		return
	}
	m.APIKeyRotations.Add(ctx, 1)
}

// instrumentedExtractor traces and times every extraction call.
type instrumentedExtractor struct {
	next    ai.StructuredExtractor
	metrics *Metrics
	tracer  oteltrace.Tracer
}

// InstrumentExtractor wraps an extractor with a span and AI request metrics.
func (om *ObservabilityManager) InstrumentExtractor(next ai.StructuredExtractor) ai.StructuredExtractor {
	if next == nil {
		return nil
	}
	return &instrumentedExtractor{
		next:    next,
		metrics: om.GetMetrics(),
		tracer:  om.Tracer("atscore.ai"),
	}
}

func (e *instrumentedExtractor) ExtractFields(ctx context.Context, text string) (*types.StructuredFields, error) {
	ctx, span := e.tracer.Start(ctx, "ai.extract_fields")
	defer span.End()

	start := time.Now()
	fields, err := e.next.ExtractFields(ctx, text)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", "extract_fields"),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if e.metrics.AIRequestCount != nil {
		e.metrics.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		e.metrics.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			e.metrics.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	}
	return fields, err
}
