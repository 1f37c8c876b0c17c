package event

import "fmt"

// TypeMismatchError reports a payload that does not have the type a typed
// consumer expects.
type TypeMismatchError struct {
	Want string
	Got  string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("payload type mismatch: want %s, got %s", e.Want, e.Got)
}
