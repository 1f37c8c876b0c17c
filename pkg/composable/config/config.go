package config

import (
	"log/slog"
	"maps"
	"strings"
	"time"
)

// Config wraps a map[string]any for typed value extraction.
type Config struct {
	data map[string]any
}

// New creates a Config from data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// lookup resolves key literally, then as a dotted path through nested maps.
func (c Config) lookup(key string) (any, bool) {
	if v, ok := c.data[key]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	nested, ok := asMap(c.data[head])
	if !ok {
		return nil, false
	}
	return Config{data: nested}.lookup(rest)
}

// asMap accepts both map shapes decoders produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	}
	return nil, false
}

// String returns the string at key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration at key, or defaultVal.
//
// Accepts:
//   - string: parsed with time.ParseDuration
//   - int, int64, float64: interpreted as seconds
//   - time.Duration: used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

// Bool returns the boolean at key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer at key, or defaultVal. A float64 converts only
// when it has no fractional part.
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.lookup(key)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Level returns the slog level named at key ("debug", "info", "warn",
// "error", optionally with an offset such as "info+2"), or defaultVal.
func (c Config) Level(key string, defaultVal slog.Level) slog.Level {
	s := c.String(key, "")
	if s == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return defaultVal
	}
	return lvl
}

// Sub returns the nested section at key. A missing or non-map value yields
// an empty Config.
func (c Config) Sub(key string) Config {
	v, ok := c.lookup(key)
	if !ok {
		return New(nil)
	}
	m, ok := asMap(v)
	if !ok {
		return New(nil)
	}
	return New(m)
}

// Merge returns a Config holding c's values overlaid with other's. Nested
// sections present in both are merged recursively.
func (c Config) Merge(other Config) Config {
	return Config{data: mergeMaps(c.data, other.data)}
}

func mergeMaps(base, over map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]any, len(over))
	}
	for k, v := range over {
		if bm, ok := asMap(out[k]); ok {
			if om, ok := asMap(v); ok {
				out[k] = mergeMaps(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Has reports whether key resolves to a value.
func (c Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Raw returns the underlying map. It must not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}
