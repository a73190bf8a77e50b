// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"fmt"
	"time"
)

// BackendKind is the enum-valued config the factory resolves a Store from.
type BackendKind string

const (
	BackendMemory BackendKind = "memory"
	BackendSQL    BackendKind = "sql"
)

// Config carries the recognized backend/pool/buffer options plus the
// ambient logging knobs. koanf tags let internal/config's layered loader
// (defaults -> file -> env) unmarshal directly into this type.
type Config struct {
	Backend BackendKind `koanf:"backend"`
	DSN     string      `koanf:"dsn"`

	PoolMin int `koanf:"pool_min"`
	PoolMax int `koanf:"pool_max"`

	BufferMaxEntries int           `koanf:"buffer_max_entries"`
	BufferMaxBytes   int64         `koanf:"buffer_max_bytes"`
	FlushInterval    time.Duration `koanf:"flush_interval"`

	QueryTimeout     time.Duration `koanf:"query_timeout"`
	ShutdownDeadline time.Duration `koanf:"shutdown_deadline"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// DefaultConfig returns sensible zero-config defaults layered underneath
// any file/env overrides.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendMemory,
		PoolMin:          2,
		PoolMax:          10,
		BufferMaxEntries: 1000,
		BufferMaxBytes:   4 << 20,
		FlushInterval:    time.Second,
		QueryTimeout:     5 * time.Second,
		ShutdownDeadline: 10 * time.Second,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Validate checks the options that matter for backend selection and
// resource bounds by hand rather than via struct tags (DESIGN.md records
// why validator/v10 is not wired here: the cross-field rules below don't
// fit a tag-based validator well).
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQL:
	default:
		return fmt.Errorf("eventstore: config: unknown backend %q", c.Backend)
	}
	if c.Backend == BackendSQL && c.DSN == "" {
		return fmt.Errorf("eventstore: config: dsn is required when backend=sql")
	}
	if c.PoolMin < 0 || c.PoolMax < c.PoolMin {
		return fmt.Errorf("eventstore: config: pool_min/pool_max invalid (%d/%d)", c.PoolMin, c.PoolMax)
	}
	if c.BufferMaxEntries <= 0 {
		return fmt.Errorf("eventstore: config: buffer_max_entries must be positive")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("eventstore: config: flush_interval must be positive")
	}
	return nil
}

// NewStore resolves the backend from a single config value and returns
// the capability surface common to both the in-memory and SQL variants,
// so callers depend on Store rather than a concrete backend type.
func NewStore(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(cfg), nil
	case BackendSQL:
		return NewSQLStore(cfg)
	default:
		return nil, fmt.Errorf("eventstore: unknown backend %q", cfg.Backend)
	}
}
