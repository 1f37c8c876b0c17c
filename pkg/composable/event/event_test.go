package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/composable/pkg/composable/event"
)

func TestNew(t *testing.T) {
	evt := event.New(42)

	assert.Equal(t, 42, evt.Data())
	assert.NotEmpty(t, evt.ID())
	assert.Equal(t, evt.ID(), evt.CorrelationID(), "correlation defaults to own ID")
	assert.False(t, evt.Timestamp().IsZero())
	assert.False(t, evt.IsEmpty())
	assert.Nil(t, evt.ReplyTo())
}

func TestNewWithOptions(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	evt := event.New("hello",
		event.WithID("evt-1"),
		event.WithCorrelationID("corr-1"),
		event.WithReplyTo("reply.key"),
		event.WithHeader("tenant", "acme"),
		event.WithTimestamp(ts),
	)

	assert.Equal(t, "evt-1", evt.ID())
	assert.Equal(t, "corr-1", evt.CorrelationID())
	assert.Equal(t, "reply.key", evt.ReplyTo())
	assert.Equal(t, ts, evt.Timestamp())

	v, ok := evt.Header("tenant")
	assert.True(t, ok)
	assert.Equal(t, "acme", v)

	_, ok = evt.Header("missing")
	assert.False(t, ok)
}

func TestHeadersReturnsCopy(t *testing.T) {
	evt := event.New(1, event.WithHeader("a", "1"))

	h := evt.Headers()
	h["a"] = "changed"

	v, _ := evt.Header("a")
	assert.Equal(t, "1", v)
}

func TestEmpty(t *testing.T) {
	assert.True(t, event.Empty.IsEmpty())
	assert.Nil(t, event.Empty.Data())
	assert.Equal(t, "Event[empty]", event.Empty.String())

	copied := event.Empty
	assert.True(t, copied.IsEmpty())

	// A nil payload is not the flush event.
	assert.False(t, event.New[any](nil).IsEmpty())
}

func TestDerive(t *testing.T) {
	src := event.Erase(event.New(2,
		event.WithCorrelationID("corr"),
		event.WithReplyTo("back"),
		event.WithHeader("k", "v"),
	))

	derived := event.Derive(src, "two")

	assert.Equal(t, "two", derived.Data())
	assert.NotEqual(t, src.ID(), derived.ID())
	assert.Equal(t, "corr", derived.CorrelationID())
	assert.Equal(t, "back", derived.ReplyTo())
	v, ok := derived.Header("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestEraseAssert(t *testing.T) {
	typed := event.New(7, event.WithID("x"))
	erased := event.Erase(typed)

	assert.Equal(t, any(7), erased.Data())
	assert.Equal(t, "x", erased.ID())

	back, err := event.Assert[int](erased)
	require.NoError(t, err)
	assert.Equal(t, 7, back.Data())
	assert.Equal(t, "x", back.ID())
}

func TestAssertNilPayload(t *testing.T) {
	back, err := event.Assert[error](event.New[any](nil))
	require.NoError(t, err)
	assert.Nil(t, back.Data())

	n, err := event.Assert[int](event.Empty)
	require.NoError(t, err)
	assert.Equal(t, 0, n.Data())
	assert.True(t, n.IsEmpty())
}

func TestAssertMismatch(t *testing.T) {
	_, err := event.Assert[int](event.New[any]("nope"))
	require.Error(t, err)

	var mismatch *event.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "int", mismatch.Want)
	assert.Equal(t, "string", mismatch.Got)
	assert.Contains(t, err.Error(), "want int, got string")
}

func TestAssertInterface(t *testing.T) {
	src := event.New[any](errors.New("boom"))

	back, err := event.Assert[error](src)
	require.NoError(t, err)
	assert.EqualError(t, back.Data(), "boom")

	_, err = event.Assert[error](event.New[any](3))
	var mismatch *event.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "error", mismatch.Want)
}
