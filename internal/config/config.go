package config

import (
	"bytes"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/trainpipe/internal/canon"
)

// Config is a resolved configuration for one run.
//
// A Config is immutable: every accessor returns a copy, so stages can read
// it freely without being able to change what later stages see.
type Config struct {
	profile     string
	files       []string
	tree        map[string]any
	settings    Settings
	fingerprint string
}

// Profile returns the profile name the configuration was resolved from.
func (c *Config) Profile() string {
	return c.profile
}

// Files returns the profile files that contributed, in load order.
func (c *Config) Files() []string {
	return slices.Clone(c.files)
}

// Settings returns the typed configuration.
func (c *Config) Settings() Settings {
	return c.settings.clone()
}

// Fingerprint returns the content address of the resolved tree.
func (c *Config) Fingerprint() string {
	return c.fingerprint
}

// Tree returns the resolved configuration as nested maps.
func (c *Config) Tree() map[string]any {
	return cloneMap(c.tree)
}

// Lookup returns the value at a dotted path such as "data.test_size" or
// "stages.train.command.0". Maps and lists are returned as copies.
func (c *Config) Lookup(path string) (any, error) {
	v, ok := lookup(c.tree, path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrKeyNotFound)
	}
	return cloneValue(v), nil
}

// String returns the string at a dotted path.
func (c *Config) String(path string) (string, error) {
	v, err := c.Lookup(path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", path, v)
	}
	return s, nil
}

// Canonical returns the canonical JSON form of the resolved tree.
func (c *Config) Canonical() ([]byte, error) {
	return canon.Marshal(c.tree)
}

// YAML renders the resolved tree with two-space indentation and sorted keys.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.tree); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}
