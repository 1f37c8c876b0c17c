package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for a file whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// decoders maps lower-cased file extensions to their parsers.
var decoders = map[string]func([]byte) (Config, error){
	".yaml": FromYAML,
	".yml":  FromYAML,
	".json": FromJSON,
}

// FromFile loads one configuration file. The format follows the extension,
// compared case-insensitively: .yaml, .yml or .json.
func FromFile(path string) (Config, error) {
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Config{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FromFiles loads each path and overlays them in order, so later files
// override earlier ones. Missing files are skipped, which lets a deployment
// override file be optional. At least one file must exist.
func FromFiles(paths ...string) (Config, error) {
	var (
		out   Config
		found bool
	)
	for _, path := range paths {
		cfg, err := FromFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, err
		}
		out = out.Merge(cfg)
		found = true
	}
	if !found {
		return Config{}, fmt.Errorf("no config file found in %v: %w", paths, fs.ErrNotExist)
	}
	return out, nil
}

// FromYAML decodes a YAML mapping. An empty document yields an empty Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON decodes a JSON object. Numbers arrive as float64; the Int and
// Duration accessors and Decode accept them.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}
