/*
Package config provides typed, default-returning access to loosely typed
configuration such as decoded YAML or JSON.

# Overview

A Config wraps a map[string]any. Every accessor takes a default that is
returned when the key is missing or its value cannot be converted, so
callers never type-assert or nil-check:

	cfg, err := config.FromFile("composable.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	workers := cfg.Int("workers", 4)
	resolution := cfg.Duration("timer.resolution", 50*time.Millisecond)

# Keys

Keys are dotted paths. "timer.resolution" first matches a literal top-level
key of that name and otherwise walks nested maps:

	timer:
	  resolution: 10ms

Sub returns the nested section at a key as its own Config.

# File Loading

FromFile picks the decoder by extension (.yaml, .yml, .json). FromYAML and
FromJSON decode bytes directly. Merge overlays one Config on another, which
is how defaults and a loaded file are combined.

# Decoding

Decode fills a struct with `mapstructure` tags from the whole Config.
Unlike the accessors it reports malformed values as errors:

	var s struct {
	    Workers int           `mapstructure:"workers"`
	    Wait    time.Duration `mapstructure:"wait"`
	}
	if err := cfg.Decode(&s); err != nil {
	    return err
	}

# Thread Safety

A Config is never modified after creation and is safe for concurrent reads.
*/
package config
