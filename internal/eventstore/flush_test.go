// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal Store double that lets flush tests control
// WriteStreamEvents' outcome per call without spinning up a real backend.
type fakeStore struct {
	mu       sync.Mutex
	writes   [][]*Event
	nextErrs []error // consumed one per WriteStreamEvents call, then nil forever
}

func (f *fakeStore) AppendEvent(ctx context.Context, event *Event) error { return nil }

func (f *fakeStore) GetStream(ctx context.Context, streamID string, fromVersion int64, toVersion *int64) ([]*Event, error) {
	return nil, nil
}

func (f *fakeStore) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]*Event, error) {
	return nil, nil
}

func (f *fakeStore) WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, events)
	if len(f.nextErrs) == 0 {
		return nil
	}
	err := f.nextErrs[0]
	f.nextErrs = f.nextErrs[1:]
	return err
}

func (f *fakeStore) LastCommittedVersion(streamID string) (int64, error) { return -1, nil }

func (f *fakeStore) ListStreamIDs(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) Initialize(ctx context.Context) error { return nil }

func (f *fakeStore) Close(ctx context.Context) error { return nil }

func (f *fakeStore) GetMetrics() map[string]any { return nil }

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func TestFlushOnceCommitsAndAcks(t *testing.T) {
	buf := NewBuffer(bufferConfig{MaxEntries: 10, FlushInterval: time.Hour})
	store := &fakeStore{}
	w := NewFlushWorker(buf, store, time.Hour)

	e := newTestEvent(t, "stream-1", 0)
	ack, err := buf.Append(e)
	require.NoError(t, err)

	w.Flush(context.Background())

	select {
	case ackErr := <-ack:
		assert.NoError(t, ackErr)
	default:
		t.Fatal("expected an ack after a successful flush")
	}
	assert.Equal(t, 1, store.writeCount())
	assert.Equal(t, 0, buf.Len())
}

func TestFlushOnceEmptyBufferIsNoop(t *testing.T) {
	buf := NewBuffer(bufferConfig{MaxEntries: 10, FlushInterval: time.Hour})
	store := &fakeStore{}
	w := NewFlushWorker(buf, store, time.Hour)

	w.Flush(context.Background())
	assert.Equal(t, 0, store.writeCount())
}

func TestFlushOnceConcurrencyConflictDropsAndSurfacesImmediately(t *testing.T) {
	buf := NewBuffer(bufferConfig{MaxEntries: 10, FlushInterval: time.Hour})
	conflictErr := &ConcurrencyConflictError{StreamID: "stream-1", ExpectedVersion: 0, ActualVersion: 1}
	store := &fakeStore{nextErrs: []error{conflictErr}}
	w := NewFlushWorker(buf, store, time.Hour)

	e := newTestEvent(t, "stream-1", 0)
	ack, err := buf.Append(e)
	require.NoError(t, err)

	w.Flush(context.Background())

	select {
	case ackErr := <-ack:
		require.Error(t, ackErr)
		assert.ErrorIs(t, ackErr, conflictErr)
	default:
		t.Fatal("expected the conflict to be surfaced to the append caller immediately")
	}
	assert.Equal(t, 0, buf.Len(), "a non-retriable failure must not be reinserted")
}

func TestFlushOnceRetriableErrorReinsertsForRetry(t *testing.T) {
	buf := NewBuffer(bufferConfig{MaxEntries: 10, FlushInterval: time.Hour})
	store := &fakeStore{nextErrs: []error{
		&TransientBackendError{Category: CategoryConnection, Cause: assertErr{}},
	}}
	w := NewFlushWorker(buf, store, time.Hour)
	w.retryBase = time.Millisecond
	w.retryCap = 5 * time.Millisecond

	e := newTestEvent(t, "stream-1", 0)
	ack, err := buf.Append(e)
	require.NoError(t, err)

	w.Flush(context.Background())

	select {
	case <-ack:
		t.Fatal("a retriable failure must not ack the caller yet")
	default:
	}

	require.Eventually(t, func() bool { return buf.Len() == 1 }, 200*time.Millisecond, 5*time.Millisecond,
		"entry should be reinserted into the buffer for a later retry")
}

func TestFlushOnceExhaustedRetryBudgetDropsPermanently(t *testing.T) {
	buf := NewBuffer(bufferConfig{MaxEntries: 10, FlushInterval: time.Hour})
	store := &fakeStore{}
	w := NewFlushWorker(buf, store, time.Hour)
	w.maxRetryAttempts = 0

	e := newTestEvent(t, "stream-1", 0)
	ack, err := buf.Append(e)
	require.NoError(t, err)

	partition := buf.Snapshot()
	partition[0].attempts = 0
	store.nextErrs = []error{&TransientBackendError{Category: CategoryConnection, Cause: assertErr{}}}
	w.commitPartition(context.Background(), "stream-1", partition)

	select {
	case ackErr := <-ack:
		require.Error(t, ackErr)
	default:
		t.Fatal("expected the exhausted partition to be acked with a permanent error")
	}
	assert.Equal(t, 0, buf.Len())
}

// assertErr is a trivial error used to build classification-test fixtures
// that do not need to satisfy anything beyond the error interface.
type assertErr struct{}

func (assertErr) Error() string { return "backend unavailable" }
