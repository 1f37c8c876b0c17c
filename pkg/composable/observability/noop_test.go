package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordNotify(ctx)
		m.RecordDelivery(ctx, "h", time.Millisecond)
		m.RecordCancel(ctx)
		m.RecordPanic(ctx, "h")
		m.RecordActionFailure(ctx, "a")
		m.RecordDropped(ctx)
		m.RecordTimeoutFlush(ctx)
		m.RecordUnmatched(ctx)
	})
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartDeliverySpan(ctx, "h", "c")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = sm.StartFlushSpan(ctx, "c")
	assert.Equal(t, ctx, got)

	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, nil)
		sm.AddSpanEvent(ctx, "e")
	})
}
