// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Package config loads eventstore.Config from layered sources: built-in
// defaults, an optional YAML file, then environment variables, using the
// same defaults-then-file-then-env koanf precedence as the rest of this
// codebase's configuration loading.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/eventstore/internal/eventstore"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"eventstore.yaml",
	"eventstore.yml",
	"/etc/eventstore/eventstore.yaml",
}

// ConfigPathEnvVar overrides the search paths with a single explicit file.
const ConfigPathEnvVar = "EVENTSTORE_CONFIG_PATH"

// envPrefix namespaces every recognized environment variable, e.g.
// EVENTSTORE_BACKEND, EVENTSTORE_DSN, EVENTSTORE_BUFFER_MAX_ENTRIES.
const envPrefix = "EVENTSTORE_"

// Load resolves an eventstore.Config using three-layer precedence:
// defaults < file < environment. The returned config has already been
// validated via Config.Validate.
func Load() (eventstore.Config, error) {
	k := koanf.New(".")

	defaults := eventstore.DefaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return eventstore.Config{}, fmt.Errorf("eventstore: config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return eventstore.Config{}, fmt.Errorf("eventstore: config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return eventstore.Config{}, fmt.Errorf("eventstore: config: load environment: %w", err)
	}

	var cfg eventstore.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return eventstore.Config{}, fmt.Errorf("eventstore: config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return eventstore.Config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps EVENTSTORE_BUFFER_MAX_ENTRIES -> buffer_max_entries
// via a prefix-strip-and-lowercase rule rather than a hand-written
// mapping table, since this Config has no nested sections to
// disambiguate.
func envTransform(s string) string {
	return toLowerSnake(stripPrefix(s, envPrefix))
}

func stripPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func toLowerSnake(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		b[i] = c
	}
	return string(b)
}
