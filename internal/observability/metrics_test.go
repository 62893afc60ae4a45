package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"atscore/internal/ai"
	"atscore/internal/ats"
	"atscore/internal/config"
	"atscore/internal/types"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := newMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumValue(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecordPipeline(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	report := ats.Assemble(ats.Breakdown{}, 10, nil)
	m.RecordProcessed(ctx, &report, nil)
	m.RecordProcessed(ctx, nil, stderrors.New("boom"))
	m.RecordStage(ctx, "score", 5*time.Millisecond, nil)
	m.RecordScreening(ctx, 5, 2)
	m.RecordTokenUsage(ctx, "extract_fields", "gemini-2.0-flash", &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	m.RecordRateLimitHit(ctx, "ip")
	m.RecordTablesReload(ctx, nil)
	m.RecordAPIKeyRotation(ctx)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, data["atscore_resumes_processed_total"]))
	assert.Equal(t, int64(5), sumValue(t, data["atscore_screening_files_total"]))
	assert.Equal(t, int64(2), sumValue(t, data["atscore_screening_matches_total"]))
	assert.Equal(t, int64(1), sumValue(t, data["atscore_rate_limit_hits_total"]))
	assert.Equal(t, int64(1), sumValue(t, data["atscore_scoring_tables_reloads_total"]))
	assert.Equal(t, int64(1), sumValue(t, data["atscore_api_key_rotations_total"]))

	tokens, ok := data["atscore_ai_token_usage"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, tokens.DataPoints, 3)

	scores, ok := data["atscore_ats_score"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, scores.DataPoints, 1)
	assert.Equal(t, uint64(1), scores.DataPoints[0].Count)
}

func TestZeroMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStage(ctx, "score", time.Second, nil)
		m.RecordProcessed(ctx, nil, nil)
		m.RecordScreening(ctx, 1, 1)
		m.RecordTokenUsage(ctx, "op", "model", &ai.TokenUsage{})
		(&Metrics{}).RecordRateLimitHit(ctx, "ip")
	})
}

type stubExtractor struct{ err error }

func (s stubExtractor) ExtractFields(context.Context, string) (*types.StructuredFields, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.StructuredFields{Name: "A"}, nil
}

func TestInstrumentExtractor(t *testing.T) {
	m, reader := newTestMetrics(t)
	om := &ObservabilityManager{config: ObservabilityConfig{Enabled: true}, metrics: m}

	ok := om.InstrumentExtractor(stubExtractor{})
	fields, err := ok.ExtractFields(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "A", fields.Name.String())

	failing := om.InstrumentExtractor(stubExtractor{err: stderrors.New("down")})
	_, err = failing.ExtractFields(context.Background(), "text")
	assert.Error(t, err)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, data["atscore_ai_requests_total"]))
	assert.Equal(t, int64(1), sumValue(t, data["atscore_ai_errors_total"]))

	assert.Nil(t, om.InstrumentExtractor(nil))
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, om.Enabled())
	assert.NotNil(t, om.GetMetrics())
	assert.NotNil(t, om.Tracer("x"))
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestEnabledManagerWithoutExporters(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.Prometheus.Enabled = false
	obs := GetObservabilityConfig(cfg, "test")
	obs.ConsoleOutput = false

	om, err := NewObservabilityManager(obs, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	assert.True(t, om.Enabled())
	assert.NotNil(t, om.GetMetrics().ResumesProcessed)
	assert.Equal(t, "atscore", obs.ServiceName)
	assert.Equal(t, "test", obs.ServiceVersion)
}
