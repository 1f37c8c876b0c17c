// Package selector provides the routing predicates that match notification
// keys to registered handlers.
package selector

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// Selector matches notification keys.
type Selector interface {
	// Matches reports whether a notification on key should reach handlers
	// registered with this selector.
	Matches(key any) bool

	// String describes the selector for diagnostics.
	String() string
}

// Keyed is implemented by selectors that match exactly one key.
// Registries use it to index registrations instead of scanning them.
type Keyed interface {
	Selector
	Key() any
}

// AnonymousKey is the opaque identity behind an anonymous selector.
// Values are never reused.
type AnonymousKey struct {
	id uuid.UUID
}

// String implements fmt.Stringer.
func (k AnonymousKey) String() string {
	return "anon:" + k.id.String()[:8]
}

type anonymous struct {
	key AnonymousKey
}

// Anonymous returns a selector bound to a freshly allocated identity that
// no other selector will ever match.
func Anonymous() Keyed {
	return anonymous{key: AnonymousKey{id: uuid.New()}}
}

func (s anonymous) Matches(key any) bool {
	k, ok := key.(AnonymousKey)
	return ok && k == s.key
}

func (s anonymous) Key() any {
	return s.key
}

func (s anonymous) String() string {
	return s.key.String()
}

type object struct {
	key any
}

// Object returns a selector matching keys equal to key.
// key must be comparable.
func Object(key any) Keyed {
	return object{key: key}
}

func (s object) Matches(key any) bool {
	return key == s.key
}

func (s object) Key() any {
	return s.key
}

func (s object) String() string {
	return fmt.Sprintf("object:%v", s.key)
}

type typeSelector[E error] struct{}

// Type returns a selector matching errors whose chain contains an E.
// With an interface E, any error implementing it matches.
func Type[E error]() Selector {
	return typeSelector[E]{}
}

func (typeSelector[E]) Matches(key any) bool {
	err, ok := key.(error)
	if !ok || err == nil {
		return false
	}
	var target E
	return errors.As(err, &target)
}

func (typeSelector[E]) String() string {
	return "type:" + reflect.TypeFor[E]().String()
}

// Func adapts a predicate into a selector.
func Func(name string, match func(key any) bool) Selector {
	return predicate{name: name, match: match}
}

type predicate struct {
	name  string
	match func(key any) bool
}

func (p predicate) Matches(key any) bool {
	return p.match(key)
}

func (p predicate) String() string {
	return p.name
}
