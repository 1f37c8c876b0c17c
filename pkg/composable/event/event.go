// Package event provides the envelope that carries every notification through
// a composable graph: values, errors, and flush signals.
//
// An Event is immutable once created. Typed nodes work with Event[T]; the bus
// itself only sees Event[any], and Erase/Assert convert between the two.
package event

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Metadata contains the routing and correlation fields of an event.
type Metadata struct {
	EventID       string            `json:"id"`
	CorrelationID string            `json:"correlation_id"`
	Timestamp     time.Time         `json:"timestamp"`
	ReplyTo       any               `json:"-"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// Event wraps a payload of type T plus metadata.
type Event[T any] struct {
	meta  Metadata
	data  T
	empty bool
}

// Empty is the distinguished no-payload event used for flush signals.
var Empty = Event[any]{empty: true}

// Option configures event creation.
type Option func(*Metadata)

// WithID sets a specific event ID.
func WithID(id string) Option {
	return func(m *Metadata) {
		m.EventID = id
	}
}

// WithCorrelationID sets the correlation ID shared by related events.
func WithCorrelationID(id string) Option {
	return func(m *Metadata) {
		m.CorrelationID = id
	}
}

// WithReplyTo sets the key a consumer should reply on.
func WithReplyTo(key any) Option {
	return func(m *Metadata) {
		m.ReplyTo = key
	}
}

// WithHeader adds a header to the event.
func WithHeader(key, value string) Option {
	return func(m *Metadata) {
		if m.Headers == nil {
			m.Headers = make(map[string]string)
		}
		m.Headers[key] = value
	}
}

// WithTimestamp overrides the creation time.
func WithTimestamp(ts time.Time) Option {
	return func(m *Metadata) {
		m.Timestamp = ts
	}
}

// New creates an event carrying data.
// The correlation ID defaults to the event ID.
func New[T any](data T, opts ...Option) Event[T] {
	meta := Metadata{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&meta)
	}
	if meta.CorrelationID == "" {
		meta.CorrelationID = meta.EventID
	}
	return Event[T]{meta: meta, data: data}
}

// Derive creates an event for a value computed from src.
// The correlation ID, reply-to key and headers of src are kept.
func Derive[T any](src Event[any], data T) Event[T] {
	meta := Metadata{
		EventID:       uuid.New().String(),
		CorrelationID: src.meta.CorrelationID,
		Timestamp:     time.Now(),
		ReplyTo:       src.meta.ReplyTo,
		Headers:       src.meta.Headers,
	}
	if meta.CorrelationID == "" {
		meta.CorrelationID = meta.EventID
	}
	return Event[T]{meta: meta, data: data}
}

// Data returns the payload.
func (e Event[T]) Data() T {
	return e.data
}

// ID returns the unique event identifier.
func (e Event[T]) ID() string {
	return e.meta.EventID
}

// CorrelationID groups events derived from the same origin.
func (e Event[T]) CorrelationID() string {
	return e.meta.CorrelationID
}

// ReplyTo returns the reply routing key, or nil.
func (e Event[T]) ReplyTo() any {
	return e.meta.ReplyTo
}

// Timestamp returns when the event was created.
func (e Event[T]) Timestamp() time.Time {
	return e.meta.Timestamp
}

// Header returns a single header value.
func (e Event[T]) Header(key string) (string, bool) {
	v, ok := e.meta.Headers[key]
	return v, ok
}

// Headers returns a copy of all headers.
func (e Event[T]) Headers() map[string]string {
	if e.meta.Headers == nil {
		return nil
	}
	return maps.Clone(e.meta.Headers)
}

// Metadata returns a copy of the event metadata.
func (e Event[T]) Metadata() Metadata {
	meta := e.meta
	meta.Headers = e.Headers()
	return meta
}

// IsEmpty reports whether this is the no-payload flush event.
func (e Event[T]) IsEmpty() bool {
	return e.empty
}

// String implements fmt.Stringer.
func (e Event[T]) String() string {
	if e.empty {
		return "Event[empty]"
	}
	return fmt.Sprintf("Event[%s]{%v}", e.meta.EventID, e.data)
}

// Erase converts a typed event to the form the bus carries.
func Erase[T any](e Event[T]) Event[any] {
	return Event[any]{meta: e.meta, data: e.data, empty: e.empty}
}

// Assert converts a bus event back to a typed event.
// A nil payload becomes the zero value of T. Any other payload that is not a
// T yields a *TypeMismatchError.
func Assert[T any](e Event[any]) (Event[T], error) {
	out := Event[T]{meta: e.meta, empty: e.empty}
	if e.data == nil {
		return out, nil
	}
	v, ok := e.data.(T)
	if !ok {
		return out, &TypeMismatchError{
			Want: reflect.TypeFor[T]().String(),
			Got:  fmt.Sprintf("%T", e.data),
		}
	}
	out.data = v
	return out, nil
}
