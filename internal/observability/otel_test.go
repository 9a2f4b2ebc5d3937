package observability

import (
	"context"
	"errors"
	"testing"

	"cvforge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestManager(t *testing.T) *ObservabilityManager {
	t.Helper()
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "cvforge-test",
		ServiceVersion: "test",
		Enabled:        true,
		SampleRate:     1.0,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, om.manualReader)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om
}

func collect(t *testing.T, om *ObservabilityManager) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, om.manualReader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	if data == nil {
		return 0
	}
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDisabledManagerIsInert(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	calls := 0
	err = om.TrackAI(context.Background(), "parse", func(context.Context) (*TokenUsage, error) {
		calls++
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)

	om.Record(context.Background(), MetricPDFRendered, true)
	om.RecordSize(context.Background(), "pdf", 10)
	assert.NoError(t, om.ObserveSessions(func() int { return 3 }))
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestNilManagerIsInert(t *testing.T) {
	var om *ObservabilityManager
	err := om.TrackAI(context.Background(), "skills", func(context.Context) (*TokenUsage, error) {
		return nil, nil
	})
	assert.NoError(t, err)
	om.Record(context.Background(), MetricCoverLetter, false)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestTrackAIRecordsRequestsAndTokens(t *testing.T) {
	om := newTestManager(t)
	ctx := context.Background()

	err := om.TrackAI(ctx, "parse", func(context.Context) (*TokenUsage, error) {
		return &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
	})
	require.NoError(t, err)

	err = om.TrackAI(ctx, "refine", func(context.Context) (*TokenUsage, error) {
		return nil, errors.New("upstream down")
	})
	require.EqualError(t, err, "upstream down")

	data := collect(t, om)
	assert.Equal(t, int64(2), sumOf(t, data["cvforge_ai_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["cvforge_ai_errors_total"]))

	tokens, ok := data["cvforge_ai_token_usage_total"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, tokens.DataPoints, 3, "one point per token type")
	var total int64
	for _, dp := range tokens.DataPoints {
		total += dp.Sum
	}
	assert.Equal(t, int64(30), total)
}

func TestRecord(t *testing.T) {
	om := newTestManager(t)
	ctx := context.Background()

	om.Record(ctx, MetricDocumentExtracted, true)
	om.Record(ctx, MetricPDFRendered, true)
	om.Record(ctx, MetricPDFRendered, false)
	om.Record(ctx, MetricRateLimitHit, true)
	om.Record(ctx, "unknown", true)
	om.RecordSize(ctx, "upload", 2048)

	data := collect(t, om)
	assert.Equal(t, int64(1), sumOf(t, data["cvforge_documents_extracted_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["cvforge_pdfs_rendered_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["cvforge_rate_limit_hits_total"]))

	sizes, ok := data["cvforge_content_size_bytes"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, sizes.DataPoints, 1)
	assert.Equal(t, int64(2048), sizes.DataPoints[0].Sum)
}

func TestSwitchesDisableBusinessMetrics(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.CustomMetrics.AIOperations.Enabled = true
	cfg.Observability.CustomMetrics.Infrastructure.Enabled = true
	cfg.Observability.CustomMetrics.Infrastructure.TrackRateLimits = true

	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "cvforge-test", Enabled: true, SampleRate: 1}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	ctx := context.Background()
	om.Record(ctx, MetricPDFRendered, true)
	om.Record(ctx, MetricRateLimitHit, true)
	om.RecordSize(ctx, "pdf", 100)

	data := collect(t, om)
	assert.Equal(t, int64(0), sumOf(t, data["cvforge_pdfs_rendered_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["cvforge_rate_limit_hits_total"]))
}

func TestObserveSessions(t *testing.T) {
	om := newTestManager(t)
	live := 4
	require.NoError(t, om.ObserveSessions(func() int { return live }))

	data := collect(t, om)
	gauge, ok := data["cvforge_active_sessions"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)
}

func TestGetObservabilityConfigFallsBackToAppVersion(t *testing.T) {
	cfg := GetObservabilityConfig(nil, "1.2.3")
	assert.Equal(t, "cvforge", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, "/metrics", cfg.Prometheus.Endpoint)
}
