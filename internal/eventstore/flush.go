// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/eventstore/internal/logging"
	"github.com/tomtom215/eventstore/internal/metrics"
)

// flushWorkerState is the flush worker's state machine:
// Idle -> Flushing -> Idle on success; Flushing -> Idle (with reinsert)
// on retriable error; Flushing -> Idle (with drop+report) on
// non-retriable error; terminal Stopped on close.
type flushWorkerState int

const (
	flushIdle flushWorkerState = iota
	flushFlushing
	flushStopped
)

// FlushWorker drains a Buffer into a Store on a timer, on a high-water
// nudge, or on demand.
//
// It translates a cooperative background loop (snapshot, partition,
// write-per-stream, reinsert-or-drop) into suture's supervised
// Serve(ctx)/String() service pattern, so a failed flush iteration can be
// restarted by its parent supervisor without taking the whole process
// down.
type FlushWorker struct {
	buffer  *Buffer
	store   Store
	breaker *gobreaker.CircuitBreaker[struct{}]

	interval time.Duration
	state    flushWorkerState

	// maxRetryAttempts bounds how many times a partition can be reinserted
	// before a transient error is treated as exhausted and converted to
	// permanent, surfaced to the waiting append callers. Backoff between
	// attempts is exponential: base * 2^attempts, capped at 5 minutes.
	maxRetryAttempts int
	retryBase        time.Duration
	retryCap         time.Duration
}

// NewFlushWorker constructs a FlushWorker over buffer and store, wrapping
// store calls in a circuit breaker so a persistently failing backend
// fails fast instead of stalling every flush attempt on its timeout.
func NewFlushWorker(buffer *Buffer, store Store, interval time.Duration) *FlushWorker {
	settings := gobreaker.Settings{
		Name:        "eventstore-flush",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &FlushWorker{
		buffer:           buffer,
		store:            store,
		breaker:          gobreaker.NewCircuitBreaker[struct{}](settings),
		interval:         interval,
		maxRetryAttempts: 10,
		retryBase:        100 * time.Millisecond,
		retryCap:         5 * time.Minute,
	}
}

// Serve implements suture.Service: it runs the flush loop until ctx is
// canceled, then performs one final drain-flush before returning, so a
// graceful Close (see Close in memory_store.go/sql_store.go)
// does not silently lose entries still sitting in the buffer.
func (w *FlushWorker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flushOnce(context.Background())
			w.state = flushStopped
			return ctx.Err()
		case <-ticker.C:
			w.flushOnce(ctx)
		case <-w.buffer.Signal():
			w.flushOnce(ctx)
		}
	}
}

func (w *FlushWorker) String() string { return "eventstore-flush-worker" }

// Flush drains the buffer and commits it, for callers (tests,
// shutdown paths) that want a synchronous flush outside the Serve loop.
func (w *FlushWorker) Flush(ctx context.Context) {
	w.flushOnce(ctx)
}

func (w *FlushWorker) flushOnce(ctx context.Context) {
	w.state = flushFlushing
	defer func() { w.state = flushIdle }()

	start := time.Now()
	entries := w.buffer.Snapshot() // step 1
	metrics.BufferDepth.Set(float64(w.buffer.Len()))
	metrics.BufferBytes.Set(float64(w.buffer.Bytes()))
	if len(entries) == 0 {
		return
	}
	partitions := partitionByStream(entries) // step 2

	for streamID, partition := range partitions {
		w.commitPartition(ctx, streamID, partition) // step 3-5
		metrics.FlushBatchSize.Observe(float64(len(partition)))
	}
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
}

// commitPartition implements steps 3-5 of the flush algorithm for one
// stream's partition.
func (w *FlushWorker) commitPartition(ctx context.Context, streamID string, partition []*bufferEntry) {
	events := make([]*Event, len(partition))
	for i, e := range partition {
		events[i] = e.event
	}

	opStart := time.Now()
	_, err := w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.store.WriteStreamEvents(ctx, streamID, events)
	})
	metrics.RecordBackendOp("write_stream_events", w.backendKind(), time.Since(opStart), errKindOf(err))
	if err == nil {
		ackAll(partition, nil)
		metrics.RecordFlushOutcome("committed")
		return
	}

	if isConcurrencyConflict(err) {
		// non-retriable: surfaced to the append callers, dropped from the buffer.
		ackAll(partition, err)
		metrics.RecordFlushOutcome("dropped")
		return
	}

	if IsRetriable(err) && attemptsOf(partition) < w.maxRetryAttempts {
		backoff := w.backoffFor(attemptsOf(partition))
		logging.Warn().Str("stream_id", streamID).Int("attempts", attemptsOf(partition)).
			Dur("backoff", backoff).Msg("flush: retriable partition failure, reinserting")
		bumpAttempts(partition)
		metrics.RecordFlushOutcome("reinserted")
		time.AfterFunc(backoff, func() { w.buffer.Reinsert(partition) })
		return
	}

	// retry budget exhausted or classified permanent outright: drop and
	// surface to the waiting append callers.
	logging.Error().Str("stream_id", streamID).Err(err).Msg("flush: permanent partition failure, dropping")
	ackAll(partition, fmt.Errorf("flush failed permanently: %w", err))
	metrics.RecordFlushOutcome("dropped")
}

// backendKind is a placeholder label for BackendOpDuration/BackendOpErrors;
// FlushWorker itself is backend-agnostic (it holds a Store interface), so
// the concrete kind is not distinguishable here without a type switch. Kept
// as a constant label rather than reflecting on w.store's concrete type.
func (w *FlushWorker) backendKind() string { return "store" }

func (w *FlushWorker) backoffFor(attempts int) time.Duration {
	if attempts > 50 {
		return w.retryCap
	}
	d := w.retryBase * time.Duration(math.Pow(2, float64(attempts)))
	if d > w.retryCap || d <= 0 {
		return w.retryCap
	}
	return d
}

func isConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// errKindOf maps a write failure to the error-kind label on the backend
// operation counters.
func errKindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case isConcurrencyConflict(err):
		return "conflict"
	case IsRetriable(err):
		return "transient"
	default:
		return "permanent"
	}
}

func ackAll(partition []*bufferEntry, err error) {
	for _, e := range partition {
		select {
		case e.ack <- err:
		default:
		}
	}
}

// Attempts are tracked on the bufferEntry itself; a reinserted partition
// carries its count back into the buffer with it.
func attemptsOf(partition []*bufferEntry) int {
	if len(partition) == 0 {
		return 0
	}
	return partition[0].attempts
}

func bumpAttempts(partition []*bufferEntry) {
	for _, e := range partition {
		e.attempts++
	}
}
