// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"errors"
	"fmt"
)

// Error kinds surfaced across the store's public operations. Each is a
// distinct sentinel so callers can errors.Is/errors.As against it; most
// are also constructed with contextual detail via the wrapped-error
// constructors below.
var (
	// ErrConcurrencyConflict: version did not match last+1. The caller's
	// responsibility is to reload the stream and retry with the new version.
	ErrConcurrencyConflict = errors.New("eventstore: concurrency conflict")

	// ErrBufferFull: backpressure signal from the write buffer. Caller may
	// wait and retry.
	ErrBufferFull = errors.New("eventstore: buffer full")

	// ErrBackendNotReady: operation attempted outside the Ready lifecycle state.
	ErrBackendNotReady = errors.New("eventstore: backend not ready")

	// ErrImmutableEvent: attempted mutation of an event after construction.
	ErrImmutableEvent = errors.New("eventstore: event is immutable")

	// ErrShutdown: operation cancelled by Close.
	ErrShutdown = errors.New("eventstore: shutdown in progress")

	// ErrMigrationConsistency: source/destination prefixes diverge for a stream.
	ErrMigrationConsistency = errors.New("eventstore: migration consistency violation")
)

// ConcurrencyConflictError carries the stream and versions involved in a
// rejected append, for callers that want to log or reload precisely.
type ConcurrencyConflictError struct {
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("eventstore: stream %q expected version %d, got %d", e.StreamID, e.ExpectedVersion, e.ActualVersion)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }

// MigrationConsistencyError reports that the source and destination
// backends disagree on the prefix of a stream already present at the
// destination.
type MigrationConsistencyError struct {
	StreamID     string
	LastDestVer  int64
	MismatchedAt int64
}

func (e *MigrationConsistencyError) Error() string {
	return fmt.Sprintf("eventstore: stream %q diverges from destination at version %d (destination has through %d)", e.StreamID, e.MismatchedAt, e.LastDestVer)
}

func (e *MigrationConsistencyError) Unwrap() error { return ErrMigrationConsistency }

// BackendErrorCategory classifies a raw backend failure as retriable or
// permanent, dispatching on pgx/pgconn error codes and context errors
// rather than free-text log messages.
type BackendErrorCategory int

const (
	CategoryUnknown BackendErrorCategory = iota
	CategoryConnection
	CategoryTimeout
	CategoryDeadlock
	CategoryConstraint
	CategoryCapacity
)

func (c BackendErrorCategory) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryTimeout:
		return "timeout"
	case CategoryDeadlock:
		return "deadlock"
	case CategoryConstraint:
		return "constraint"
	case CategoryCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// TransientBackendError wraps a backend failure that the flush pipeline
// should auto-retry via reinsertion: connection loss, deadlock victim,
// advisory-lock contention timeout, or a canceled/deadline-exceeded
// context. Advisory-lock contention is classified transient rather than
// permanent since the lock is expected to free up on its own.
type TransientBackendError struct {
	Category BackendErrorCategory
	Cause    error
}

func NewTransientBackendError(category BackendErrorCategory, cause error) *TransientBackendError {
	return &TransientBackendError{Category: category, Cause: cause}
}

func (e *TransientBackendError) Error() string {
	return fmt.Sprintf("eventstore: transient backend error (%s): %v", e.Category, e.Cause)
}

func (e *TransientBackendError) Unwrap() error { return e.Cause }

// PermanentBackendError wraps a backend failure that the flush pipeline
// must not retry: a constraint violation other than the version-unique
// backstop, a schema mismatch, or an authentication failure. Events
// attached to a permanent error are dropped from the buffer and surfaced
// to their append caller.
type PermanentBackendError struct {
	Category BackendErrorCategory
	Cause    error
}

func NewPermanentBackendError(category BackendErrorCategory, cause error) *PermanentBackendError {
	return &PermanentBackendError{Category: category, Cause: cause}
}

func (e *PermanentBackendError) Error() string {
	return fmt.Sprintf("eventstore: permanent backend error (%s): %v", e.Category, e.Cause)
}

func (e *PermanentBackendError) Unwrap() error { return e.Cause }

// IsRetriable reports whether err should cause the flush pipeline to
// reinsert its partition at the head of the buffer rather than drop it.
func IsRetriable(err error) bool {
	var transient *TransientBackendError
	return errors.As(err, &transient)
}
