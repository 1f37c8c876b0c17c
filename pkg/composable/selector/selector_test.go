package selector_test

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/composable/pkg/composable/selector"
)

type codeError struct {
	code int
}

func (e *codeError) Error() string { return fmt.Sprintf("code %d", e.code) }

func TestAnonymous(t *testing.T) {
	a := selector.Anonymous()
	b := selector.Anonymous()

	assert.True(t, a.Matches(a.Key()))
	assert.False(t, a.Matches(b.Key()), "anonymous identities never collide")
	assert.False(t, b.Matches(a.Key()))
	assert.NotEqual(t, a.Key(), b.Key())

	// A lookalike value of another type does not match.
	assert.False(t, a.Matches(a.String()))
	assert.False(t, a.Matches(nil))
}

func TestAnonymousUnique(t *testing.T) {
	seen := make(map[any]bool)
	for i := 0; i < 1000; i++ {
		k := selector.Anonymous().Key()
		assert.False(t, seen[k], "duplicate anonymous key")
		seen[k] = true
	}
}

func TestObject(t *testing.T) {
	s := selector.Object("orders")

	assert.True(t, s.Matches("orders"))
	assert.False(t, s.Matches("order"))
	assert.False(t, s.Matches(1))
	assert.Equal(t, "orders", s.Key())
	assert.Equal(t, "object:orders", s.String())
}

func TestType(t *testing.T) {
	tests := []struct {
		name string
		sel  selector.Selector
		key  any
		want bool
	}{
		{"same concrete type", selector.Type[*codeError](), &codeError{1}, true},
		{"wrapped concrete type", selector.Type[*codeError](), fmt.Errorf("ctx: %w", &codeError{2}), true},
		{"other concrete type", selector.Type[*codeError](), errors.New("plain"), false},
		{"interface implemented", selector.Type[net.Error](), &net.DNSError{Err: "x"}, true},
		{"interface not implemented", selector.Type[net.Error](), &codeError{3}, false},
		{"error interface matches all errors", selector.Type[error](), &fs.PathError{Op: "open"}, true},
		{"non-error key", selector.Type[error](), "string", false},
		{"nil key", selector.Type[error](), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.Matches(tt.key))
		})
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "type:*selector_test.codeError", selector.Type[*codeError]().String())
}

func TestFunc(t *testing.T) {
	even := selector.Func("even", func(key any) bool {
		n, ok := key.(int)
		return ok && n%2 == 0
	})

	assert.True(t, even.Matches(4))
	assert.False(t, even.Matches(3))
	assert.Equal(t, "even", even.String())
}
