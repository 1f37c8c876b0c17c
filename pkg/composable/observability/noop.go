package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordNotify(_ context.Context)                              {}
func (NoopMetrics) RecordDelivery(_ context.Context, _ string, _ time.Duration) {}
func (NoopMetrics) RecordCancel(_ context.Context)                              {}
func (NoopMetrics) RecordPanic(_ context.Context, _ string)                     {}
func (NoopMetrics) RecordActionFailure(_ context.Context, _ string)             {}
func (NoopMetrics) RecordDropped(_ context.Context)                             {}
func (NoopMetrics) RecordTimeoutFlush(_ context.Context)                        {}
func (NoopMetrics) RecordUnmatched(_ context.Context)                           {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartDeliverySpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDeliverySpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartFlushSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartFlushSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
