// Package observability provides structured logging, metrics, and tracing
// for composable graphs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"fmt"
	"log/slog"
	"time"
)

// EnrichLogger adds graph context to a logger.
// Returns a new logger with the node and channel fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "orders", "accept")
//	enriched.Debug("value published") // includes node, channel
func EnrichLogger(logger *slog.Logger, node, channel string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("node", node),
		slog.String("channel", channel),
	)
}

// LogDispatchPanic logs a handler panic that the bus recovered.
func LogDispatchPanic(logger *slog.Logger, handler string, recovered any) {
	if logger == nil {
		return
	}
	logger.Error("handler panicked",
		slog.String("handler", handler),
		slog.String("panic", fmt.Sprint(recovered)),
	)
}

// LogDroppedFailure logs a computation failure that had no failure channel
// to be published on.
func LogDroppedFailure(logger *slog.Logger, action string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("action failure dropped",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}

// LogDispatchAfterClose logs a delivery rejected by a closed dispatcher.
func LogDispatchAfterClose(logger *slog.Logger, key any) {
	if logger == nil {
		return
	}
	logger.Warn("dispatch after close",
		slog.String("key", fmt.Sprint(key)),
	)
}

// LogUnmatched logs a notification that reached no handler, such as an
// error on a channel nobody handles.
func LogUnmatched(logger *slog.Logger, key any) {
	if logger == nil {
		return
	}
	logger.Debug("unmatched notification",
		slog.String("key", fmt.Sprint(key)),
	)
}

// LogTimeoutFlush logs an inactivity flush.
func LogTimeoutFlush(logger *slog.Logger, timeout time.Duration, idle time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("timeout flush",
		slog.Duration("timeout", timeout),
		slog.Duration("idle", idle),
	)
}

// LogCancel logs the removal of a one-shot registration.
func LogCancel(logger *slog.Logger, handler string) {
	if logger == nil {
		return
	}
	logger.Debug("registration cancelled",
		slog.String("handler", handler),
	)
}

// HandlerName returns a stable label for a handler value.
func HandlerName(h any) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", h)
}
