package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Decode copies the configuration into out, a pointer to a struct whose
// fields carry `mapstructure` tags. Nested sections decode into nested
// structs. time.Duration fields accept the same forms as Duration.
func (c Config) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(durationHook()),
		Result:     out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(c.data); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook converts strings and second counts into time.Duration.
func durationHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		}
		return data, nil
	}
}
