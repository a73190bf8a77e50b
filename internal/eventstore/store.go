// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store is the backend adapter contract. Both the in-memory
// and the durable SQL implementation satisfy it; callers hold a Store,
// never a concrete type, so the {memory, sql} variants are a single
// capability surface implemented twice rather than a type hierarchy.
type Store interface {
	// AppendEvent is the logical append entry point used by producers; it
	// enqueues into the write buffer rather than writing synchronously.
	AppendEvent(ctx context.Context, event *Event) error

	// GetStream returns events of streamID with version in
	// [fromVersion, toVersion] inclusive. toVersion == nil means unbounded.
	// Unknown streams return an empty, non-nil slice.
	GetStream(ctx context.Context, streamID string, fromVersion int64, toVersion *int64) ([]*Event, error)

	// GetEventsByType returns events of eventType, optionally filtered to
	// those with Timestamp >= since, ordered by timestamp.
	GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]*Event, error)

	// WriteStreamEvents commits events as a single atomic batch for one
	// stream. Used directly by the flush pipeline and the migrator; it is
	// the only path that actually reaches durable storage synchronously.
	WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error

	// LastCommittedVersion satisfies VersionSource.
	LastCommittedVersion(streamID string) (int64, error)

	// ListStreamIDs returns every distinct stream_id known to the backend,
	// in no particular order. Used by the migrator to enumerate what
	// needs copying; not part of the external API surface.
	ListStreamIDs(ctx context.Context) ([]string, error)

	Initialize(ctx context.Context) error
	Close(ctx context.Context) error

	GetMetrics() map[string]any
}

// LifecycleState is the backend's state machine:
// Uninitialized -> Initializing -> Ready -> Closing -> Closed.
type LifecycleState int

const (
	StateUninitialized LifecycleState = iota
	StateInitializing
	StateReady
	StateClosing
	StateClosed
)

func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// lifecycle is embedded by both backend implementations to share the
// state-machine enforcement: operations outside Ready fail with
// ErrBackendNotReady.
type lifecycle struct {
	mu    sync.RWMutex
	state LifecycleState
}

func (l *lifecycle) get() LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *lifecycle) set(s LifecycleState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// requireReady returns ErrBackendNotReady unless the lifecycle is
// currently Ready.
func (l *lifecycle) requireReady() error {
	if l.get() != StateReady {
		return fmt.Errorf("%w: state is %s", ErrBackendNotReady, l.get())
	}
	return nil
}
