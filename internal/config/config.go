// Package config handles sourcemelt's YAML bundle configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sourcemelt/sourcemelt/pkg/types"
)

// BundleConfig holds every recognized bundler option (see the Configuration
// section of the external interface: src, known_first_party,
// known_third_party, preserve_comments, preserve_type_hints,
// target_version).
type BundleConfig struct {
	Src               []string `yaml:"src"`
	KnownFirstParty   []string `yaml:"known_first_party"`
	KnownThirdParty   []string `yaml:"known_third_party"`
	PreserveComments  bool     `yaml:"preserve_comments"`
	PreserveTypeHints bool     `yaml:"preserve_type_hints"`
	TargetVersionRaw  string   `yaml:"target_version"`

	// TargetVersion is the validated form of TargetVersionRaw, populated by
	// Validate. Core code should only ever read this field.
	TargetVersion types.TargetVersion `yaml:"-"`
}

// Default returns the configuration used when no config file or CLI
// override is present: src = [src, .], preserve flags on,
// target_version = py310.
func Default() *BundleConfig {
	return &BundleConfig{
		Src:               []string{"src", "."},
		PreserveComments:  true,
		PreserveTypeHints: true,
		TargetVersionRaw:  string(types.DefaultTargetVersion),
		TargetVersion:     types.DefaultTargetVersion,
	}
}

// Load reads and strictly decodes a YAML config file at path, then validates
// it and merges it onto a Default() configuration (fields present in the
// file override the default; absent fields keep their default).
func Load(path string) (*BundleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration's invariants and resolves
// TargetVersionRaw into TargetVersion. It must be called after any direct
// field mutation (e.g. a CLI --target-version override) before the config is
// handed to the resolver or bundler.
func (c *BundleConfig) Validate() error {
	if len(c.Src) == 0 {
		return fmt.Errorf("src must contain at least one root")
	}

	raw := c.TargetVersionRaw
	if raw == "" {
		raw = string(types.DefaultTargetVersion)
	}
	v, err := types.ParseTargetVersion(raw)
	if err != nil {
		return err
	}
	c.TargetVersionRaw = raw
	c.TargetVersion = v

	return nil
}

// ApplyTargetVersionOverride sets the target version from a CLI flag,
// overriding whatever the config file specified. Callers must call Validate
// afterward.
func (c *BundleConfig) ApplyTargetVersionOverride(raw string) {
	if raw != "" {
		c.TargetVersionRaw = raw
	}
}
