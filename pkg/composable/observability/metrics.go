package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records bus and action metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNotify records a notification accepted by a bus.
	RecordNotify(ctx context.Context)

	// RecordDelivery records one handler invocation and its duration.
	RecordDelivery(ctx context.Context, handler string, duration time.Duration)

	// RecordCancel records the removal of a one-shot registration.
	RecordCancel(ctx context.Context)

	// RecordPanic records a recovered handler panic.
	RecordPanic(ctx context.Context, handler string)

	// RecordActionFailure records a computation failure routed to an error channel.
	RecordActionFailure(ctx context.Context, action string)

	// RecordDropped records a dispatch rejected by a closed dispatcher.
	RecordDropped(ctx context.Context)

	// RecordTimeoutFlush records a flush triggered by inactivity.
	RecordTimeoutFlush(ctx context.Context)

	// RecordUnmatched records a notification no registration matched.
	RecordUnmatched(ctx context.Context)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	notifications   metric.Int64Counter
	deliveries      metric.Int64Counter
	deliveryLatency metric.Float64Histogram
	cancellations   metric.Int64Counter
	panics          metric.Int64Counter
	failures        metric.Int64Counter
	dropped         metric.Int64Counter
	timeoutFlushes  metric.Int64Counter
	unmatched       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.GetMeterProvider().Meter("composable"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	if m.notifications, err = meter.Int64Counter("composable.bus.notifications",
		metric.WithDescription("Number of notifications published on a bus"),
	); err != nil {
		return nil, err
	}

	if m.deliveries, err = meter.Int64Counter("composable.bus.deliveries",
		metric.WithDescription("Number of handler invocations"),
	); err != nil {
		return nil, err
	}

	if m.deliveryLatency, err = meter.Float64Histogram("composable.bus.delivery.latency_ms",
		metric.WithDescription("Handler invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.cancellations, err = meter.Int64Counter("composable.bus.cancellations",
		metric.WithDescription("Number of one-shot registrations removed after use"),
	); err != nil {
		return nil, err
	}

	if m.panics, err = meter.Int64Counter("composable.bus.panics",
		metric.WithDescription("Number of recovered handler panics"),
	); err != nil {
		return nil, err
	}

	if m.failures, err = meter.Int64Counter("composable.action.failures",
		metric.WithDescription("Number of computation failures routed to error channels"),
	); err != nil {
		return nil, err
	}

	if m.dropped, err = meter.Int64Counter("composable.bus.dropped",
		metric.WithDescription("Number of dispatches rejected after close"),
	); err != nil {
		return nil, err
	}

	if m.timeoutFlushes, err = meter.Int64Counter("composable.timeout.flushes",
		metric.WithDescription("Number of flushes triggered by inactivity"),
	); err != nil {
		return nil, err
	}

	if m.unmatched, err = meter.Int64Counter("composable.bus.unmatched",
		metric.WithDescription("Number of notifications that reached no handler"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFromMeter builds a recorder on an explicit meter.
func NewMetricsRecorderFromMeter(meter metric.Meter) (MetricsRecorder, error) {
	m, err := newOtelMetrics(meter)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *otelMetrics) RecordNotify(ctx context.Context) {
	m.notifications.Add(ctx, 1)
}

func (m *otelMetrics) RecordDelivery(ctx context.Context, handler string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("handler", handler))
	m.deliveries.Add(ctx, 1, attrs)
	m.deliveryLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordCancel(ctx context.Context) {
	m.cancellations.Add(ctx, 1)
}

func (m *otelMetrics) RecordPanic(ctx context.Context, handler string) {
	m.panics.Add(ctx, 1, metric.WithAttributes(attribute.String("handler", handler)))
}

func (m *otelMetrics) RecordActionFailure(ctx context.Context, action string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

func (m *otelMetrics) RecordDropped(ctx context.Context) {
	m.dropped.Add(ctx, 1)
}

func (m *otelMetrics) RecordTimeoutFlush(ctx context.Context) {
	m.timeoutFlushes.Add(ctx, 1)
}

func (m *otelMetrics) RecordUnmatched(ctx context.Context) {
	m.unmatched.Add(ctx, 1)
}
