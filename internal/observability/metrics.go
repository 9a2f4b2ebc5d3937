package observability

import (
	"context"
	"fmt"
	"time"

	"cvforge/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Business metric types accepted by Record.
const (
	MetricDocumentExtracted = "document_extracted"
	MetricRecordParsed      = "record_parsed"
	MetricFieldRefined      = "field_refined"
	MetricSkillsSuggested   = "skills_suggested"
	MetricPDFRendered       = "pdf_rendered"
	MetricCoverLetter       = "cover_letter"
	MetricRateLimitHit      = "rate_limit_hit"
)

// businessCounters maps each business metric type to its counter name.
var businessCounters = map[string]struct{ name, description string }{
	MetricDocumentExtracted: {"cvforge_documents_extracted_total", "Total number of uploaded documents extracted"},
	MetricRecordParsed:      {"cvforge_records_parsed_total", "Total number of resume records parsed"},
	MetricFieldRefined:      {"cvforge_fields_refined_total", "Total number of fields refined"},
	MetricSkillsSuggested:   {"cvforge_skills_suggested_total", "Total number of skill suggestion requests"},
	MetricPDFRendered:       {"cvforge_pdfs_rendered_total", "Total number of PDFs rendered"},
	MetricCoverLetter:       {"cvforge_cover_letters_total", "Total number of cover letters generated"},
	MetricRateLimitHit:      {"cvforge_rate_limit_hits_total", "Total number of rate limit hits"},
}

// TokenUsage is the token count of one AI call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

type instruments struct {
	aiDuration metric.Float64Histogram
	aiRequests metric.Int64Counter
	aiErrors   metric.Int64Counter
	aiTokens   metric.Int64Histogram

	counters     map[string]metric.Int64Counter
	contentSize  metric.Int64Histogram
	liveSessions metric.Int64ObservableGauge
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	in := &instruments{counters: make(map[string]metric.Int64Counter, len(businessCounters))}
	var err error

	if in.aiDuration, err = meter.Float64Histogram("cvforge_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI duration metric: %w", err)
	}
	if in.aiRequests, err = meter.Int64Counter("cvforge_ai_requests_total",
		metric.WithDescription("Total number of AI requests")); err != nil {
		return nil, fmt.Errorf("failed to create AI request metric: %w", err)
	}
	if in.aiErrors, err = meter.Int64Counter("cvforge_ai_errors_total",
		metric.WithDescription("Total number of AI request errors")); err != nil {
		return nil, fmt.Errorf("failed to create AI error metric: %w", err)
	}
	if in.aiTokens, err = meter.Int64Histogram("cvforge_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"), metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create AI token metric: %w", err)
	}

	for metricType, c := range businessCounters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
		in.counters[metricType] = counter
	}

	if in.contentSize, err = meter.Int64Histogram("cvforge_content_size_bytes",
		metric.WithDescription("Size of uploaded documents and generated files"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("failed to create content size metric: %w", err)
	}
	if in.liveSessions, err = meter.Int64ObservableGauge("cvforge_active_sessions",
		metric.WithDescription("Number of live editing sessions")); err != nil {
		return nil, fmt.Errorf("failed to create active sessions metric: %w", err)
	}
	return in, nil
}

// switches are the observability.customMetrics toggles. Without a config
// everything is recorded.
type switches struct {
	aiOperations, aiDuration, aiTokens bool
	business, successRates, sizes      bool
	rateLimits, sessions               bool
}

func switchesFrom(cfg *config.Config) switches {
	if cfg == nil {
		return switches{true, true, true, true, true, true, true, true}
	}
	m := cfg.Observability.CustomMetrics
	infra := m.Infrastructure.Enabled
	return switches{
		aiOperations: m.AIOperations.Enabled,
		aiDuration:   m.AIOperations.TrackDuration,
		aiTokens:     m.AIOperations.TrackTokenUsage,
		business:     m.BusinessMetrics.Enabled,
		successRates: m.BusinessMetrics.TrackSuccessRates,
		sizes:        m.BusinessMetrics.TrackContentSizes,
		rateLimits:   infra && m.Infrastructure.TrackRateLimits,
		sessions:     infra && m.Infrastructure.TrackSessions,
	}
}

func (om *ObservabilityManager) recording() bool {
	return om.enabled() && om.metrics != nil
}

// TrackAI runs call in an "ai.<operation>" span and records its duration,
// outcome and token usage. It returns call's error.
func (om *ObservabilityManager) TrackAI(ctx context.Context, operation string, call func(context.Context) (*TokenUsage, error)) error {
	if !om.recording() {
		_, err := call(ctx)
		return err
	}

	ctx, span := om.Tracer("cvforge.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	usage, err := call(ctx)
	elapsed := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if !om.switches.aiOperations {
		return err
	}
	set := metric.WithAttributes(attrs...)
	om.metrics.aiRequests.Add(ctx, 1, set)
	if err != nil {
		om.metrics.aiErrors.Add(ctx, 1, set)
	}
	if om.switches.aiDuration {
		om.metrics.aiDuration.Record(ctx, elapsed, set)
	}
	if om.switches.aiTokens && usage != nil {
		for tokenType, n := range map[string]int64{
			"input":  usage.InputTokens,
			"output": usage.OutputTokens,
			"total":  usage.TotalTokens,
		} {
			om.metrics.aiTokens.Record(ctx, n, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.Bool("success", err == nil),
				attribute.String("token_type", tokenType)))
		}
	}
	return err
}

// Record counts one business event. Unknown metric types are ignored.
func (om *ObservabilityManager) Record(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue) {
	if !om.recording() {
		return
	}
	counter, ok := om.metrics.counters[metricType]
	if !ok {
		return
	}
	if metricType == MetricRateLimitHit {
		if !om.switches.rateLimits {
			return
		}
	} else if !om.switches.business {
		return
	}

	if om.switches.successRates {
		attrs = append(attrs, attribute.Bool("success", success))
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSize records the size of an uploaded or generated file of kind.
func (om *ObservabilityManager) RecordSize(ctx context.Context, kind string, size int) {
	if !om.recording() || !om.switches.business || !om.switches.sizes {
		return
	}
	om.metrics.contentSize.Record(ctx, int64(size), metric.WithAttributes(attribute.String("kind", kind)))
}

// ObserveSessions reports the active session count from count on every
// collection. It is a no-op when metrics are disabled.
func (om *ObservabilityManager) ObserveSessions(count func() int) error {
	if !om.recording() || !om.switches.sessions {
		return nil
	}
	gauge := om.metrics.liveSessions
	_, err := om.meterProvider.Meter(om.config.ServiceName).RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(gauge, int64(count()))
			return nil
		}, gauge)
	return err
}
