package composable

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/randalmurphal/composable/pkg/composable/bus"
)

// Sentinel errors for graph construction.
var (
	// ErrSelfConnect indicates a node was asked to forward values to itself.
	ErrSelfConnect = errors.New("cannot connect a node to itself")

	// ErrNilNode indicates a connect or merge target was nil.
	ErrNilNode = errors.New("nil node")

	// ErrNoTimer indicates Timeout was called without a timer option on a
	// node whose environment has no timer.
	ErrNoTimer = errors.New("no timer available")

	// ErrInvalidDuration indicates a non-positive timeout.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrNilFunction indicates an operator was given a nil function.
	ErrNilFunction = errors.New("nil function")

	// ErrBusClosed is the error a closed bus or dispatcher reports.
	ErrBusClosed = bus.ErrClosed

	// ErrUnknownDispatcher indicates a configuration named a dispatcher
	// kind other than "sync" or "worker".
	ErrUnknownDispatcher = errors.New("unknown dispatcher")
)

// requireFunc panics with an error wrapping ErrNilFunction when fn is nil.
func requireFunc(op string, fn any) {
	if fn == nil {
		panic(fmt.Errorf("%s: %w", op, ErrNilFunction))
	}
	if v := reflect.ValueOf(fn); v.Kind() == reflect.Func && v.IsNil() {
		panic(fmt.Errorf("%s: %w", op, ErrNilFunction))
	}
}
