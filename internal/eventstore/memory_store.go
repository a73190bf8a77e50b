// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/eventstore/internal/logging"
)

// MemoryStore is the in-memory backend: a mapping from stream_id to an
// ordered, in-memory event list, guarded by a single
// exclusive mutex. It holds its own Buffer and FlushWorker so it can be
// used standalone in tests and single-process deployments without a
// supervisor tree.
type MemoryStore struct {
	lifecycle

	mu      sync.Mutex
	streams map[string][]*Event

	buffer *Buffer
	worker *FlushWorker

	metricsMu sync.Mutex
	metrics   storeMetrics
}

// NewMemoryStore constructs an uninitialized in-memory backend. Call
// Initialize before use.
func NewMemoryStore(cfg Config) *MemoryStore {
	s := &MemoryStore{
		streams: make(map[string][]*Event),
	}
	s.buffer = NewBuffer(bufferConfig{
		MaxEntries:    cfg.BufferMaxEntries,
		MaxBytes:      cfg.BufferMaxBytes,
		FlushInterval: cfg.FlushInterval,
	})
	s.worker = NewFlushWorker(s.buffer, s, cfg.FlushInterval)
	return s
}

func (s *MemoryStore) Initialize(ctx context.Context) error {
	s.lifecycle.set(StateInitializing)
	s.lifecycle.set(StateReady)
	logging.Info().Msg("eventstore: memory backend ready")
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.lifecycle.set(StateClosing)
	defer s.lifecycle.set(StateClosed)

	s.worker.Flush(ctx)
	for _, entry := range s.buffer.Drain() {
		select {
		case entry.ack <- ErrShutdown:
		default:
		}
	}
	return nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, event *Event) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	ack, err := s.buffer.Append(event)
	if err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ErrShutdown
	}
}

// WriteStreamEvents implements the in-memory commit path: appends the
// batch and fails with ConcurrencyConflict if the first
// event's version does not equal the current stream length.
func (s *MemoryStore) WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.streams[streamID]
	expected := int64(len(current))
	if events[0].Version() != expected {
		s.recordError()
		return &ConcurrencyConflictError{
			StreamID:        streamID,
			ExpectedVersion: expected,
			ActualVersion:   events[0].Version(),
		}
	}

	s.streams[streamID] = append(current, events...)
	s.recordCommit(len(events))
	return nil
}

func (s *MemoryStore) GetStream(ctx context.Context, streamID string, fromVersion int64, toVersion *int64) ([]*Event, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.streams[streamID]
	result := make([]*Event, 0, len(all))
	for _, e := range all {
		if e.Version() < fromVersion {
			continue
		}
		if toVersion != nil && e.Version() > *toVersion {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *MemoryStore) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]*Event, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*Event
	for _, stream := range s.streams {
		for _, e := range stream {
			if e.EventType() != eventType {
				continue
			}
			if since != nil && e.Timestamp().Before(*since) {
				continue
			}
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp().Before(result[j].Timestamp())
	})
	return result, nil
}

func (s *MemoryStore) LastCommittedVersion(streamID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.streams[streamID])) - 1, nil
}

func (s *MemoryStore) ListStreamIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	return ids, nil
}

// Worker exposes the embedded flush worker so a caller wiring a
// supervisor tree (cmd/eventstored) can add it as a supervised service.
func (s *MemoryStore) Worker() *FlushWorker { return s.worker }

func (s *MemoryStore) recordCommit(n int) {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.eventsCommitted += int64(n)
	s.metrics.batchesCommitted++
}

func (s *MemoryStore) recordError() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.conflicts++
}

func (s *MemoryStore) GetMetrics() map[string]any {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	return map[string]any{
		"events_committed":  s.metrics.eventsCommitted,
		"batches_committed": s.metrics.batchesCommitted,
		"conflicts":         s.metrics.conflicts,
		"buffer_depth":      s.buffer.Len(),
		"buffer_bytes":      s.buffer.Bytes(),
		"state":             s.lifecycle.get().String(),
	}
}

type storeMetrics struct {
	eventsCommitted  int64
	batchesCommitted int64
	conflicts        int64
}
