package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDeliverySpan starts a span for one handler invocation.
	StartDeliverySpan(ctx context.Context, handler, channel string) (context.Context, trace.Span)

	// StartFlushSpan starts a span for a flush requested on a root node.
	StartFlushSpan(ctx context.Context, channel string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer("composable")}
}

// NewSpanManagerFromTracer returns a SpanManager on an explicit tracer.
func NewSpanManagerFromTracer(tracer trace.Tracer) SpanManager {
	return &otelSpanManager{tracer: tracer}
}

func (m *otelSpanManager) StartDeliverySpan(ctx context.Context, handler, channel string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "composable.deliver",
		trace.WithAttributes(
			attribute.String("handler", handler),
			attribute.String("channel", channel),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

func (m *otelSpanManager) StartFlushSpan(ctx context.Context, channel string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "composable.flush",
		trace.WithAttributes(
			attribute.String("channel", channel),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
