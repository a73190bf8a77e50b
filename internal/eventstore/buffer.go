// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"sync"
	"time"
)

// bufferEntry pairs an enqueued Event with the channel its append caller
// is waiting on. Ownership is exclusively the buffer's while enqueued;
// it is destroyed on successful commit (ack with nil) or terminal failure
// (ack with an error).
type bufferEntry struct {
	event    *Event
	ack      chan error
	attempts int
}

// bufferConfig mirrors the three buffer-shaped options of Config.
type bufferConfig struct {
	MaxEntries    int
	MaxBytes      int64
	FlushInterval time.Duration
}

// Buffer is the process-local ordered write queue: an owned object held
// by the backend instance, not a package-level variable. It never blocks
// on I/O; flushing is the flush pipeline's job (flush.go), which drains
// it via Snapshot.
//
// The buffer itself is not durable — only the backend it flushes into
// is — so a process crash before a flush commits loses whatever is still
// queued. It is a purely in-memory, bounded, order-preserving queue with
// an exponential-backoff retry path for partitions the backend rejects
// transiently.
type Buffer struct {
	cfg bufferConfig

	mu        sync.Mutex
	entries   []*bufferEntry
	totalSize int64
	oldestAt  time.Time

	flushSignal chan struct{} // non-blocking nudge to the flush worker
}

// NewBuffer constructs an empty Buffer bounded by cfg.
func NewBuffer(cfg bufferConfig) *Buffer {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Buffer{
		cfg:         cfg,
		flushSignal: make(chan struct{}, 1),
	}
}

// Append enqueues event at the tail and returns a channel the caller can
// receive on for the append's outcome. It never blocks on I/O; it fails
// synchronously with ErrBufferFull if the configured ceiling is crossed.
// Crossing buffer_max_entries or buffer_max_bytes also nudges the flush
// worker to run eagerly rather than waiting for the next timer tick.
func (b *Buffer) Append(event *Event) (<-chan error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := event.approxSize()
	if len(b.entries) >= b.cfg.MaxEntries {
		return nil, ErrBufferFull
	}
	if b.cfg.MaxBytes > 0 && b.totalSize+size > b.cfg.MaxBytes {
		return nil, ErrBufferFull
	}

	ack := make(chan error, 1)
	b.entries = append(b.entries, &bufferEntry{event: event, ack: ack})
	b.totalSize += size
	if len(b.entries) == 1 {
		b.oldestAt = time.Now()
	}

	crossedHighWater := len(b.entries) >= b.cfg.MaxEntries || (b.cfg.MaxBytes > 0 && b.totalSize >= b.cfg.MaxBytes)
	crossedMaxLatency := time.Since(b.oldestAt) >= b.cfg.FlushInterval
	if crossedHighWater || crossedMaxLatency {
		b.nudge()
	}

	return ack, nil
}

// nudge signals the flush worker without blocking if a signal is already
// pending; must be called with mu held.
func (b *Buffer) nudge() {
	select {
	case b.flushSignal <- struct{}{}:
	default:
	}
}

// Signal exposes the nudge channel for the flush worker's select loop.
func (b *Buffer) Signal() <-chan struct{} {
	return b.flushSignal
}

// Snapshot drains the entire current buffer contents and clears it. This
// is the first step of a flush iteration: everything returned here is
// either committed or reinserted by the caller.
func (b *Buffer) Snapshot() []*bufferEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return nil
	}
	drained := b.entries
	b.entries = nil
	b.totalSize = 0
	return drained
}

// Reinsert pushes entries back onto the head of the buffer in their
// original relative order: a retriable partition failure re-enters the
// queue ahead of anything appended since, so it is retried before newer
// events and intra-stream order is preserved across the retry.
func (b *Buffer) Reinsert(entries []*bufferEntry) {
	if len(entries) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rebuilt := make([]*bufferEntry, 0, len(entries)+len(b.entries))
	rebuilt = append(rebuilt, entries...)
	rebuilt = append(rebuilt, b.entries...)
	b.entries = rebuilt
	for _, e := range entries {
		b.totalSize += e.event.approxSize()
	}
	if len(b.entries) == len(entries) {
		b.oldestAt = time.Now()
	}
}

// Len reports the current entry count, used by the flush worker for the
// buffer depth gauge and by the backends' GetMetrics.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Bytes reports the current estimated total byte size, used by the flush
// worker for the buffer size gauge and by the backends' GetMetrics.
func (b *Buffer) Bytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSize
}

// Drain removes and returns every entry still queued, used by Close to
// surface ErrShutdown to any caller whose append was never flushed.
func (b *Buffer) Drain() []*bufferEntry {
	return b.Snapshot()
}

// partitionByStream groups entries by stream_id, preserving intra-stream
// order. Go map iteration order is randomized, which is fine: ordering is
// only guaranteed within a stream, never across streams.
func partitionByStream(entries []*bufferEntry) map[string][]*bufferEntry {
	partitions := make(map[string][]*bufferEntry)
	for _, e := range entries {
		sid := e.event.StreamID()
		partitions[sid] = append(partitions[sid], e)
	}
	return partitions
}
