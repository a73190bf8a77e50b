// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Package metrics provides Prometheus instrumentation for the event
// store: buffer pressure, flush outcomes, backend call latency/errors,
// advisory-lock wait time, and migrator progress.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BufferDepth is the current number of entries queued in the write
	// buffer, sampled by the flush worker.
	BufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventstore_buffer_depth",
			Help: "Current number of entries queued in the write buffer",
		},
	)

	// BufferBytes is the current estimated byte size of the write buffer.
	BufferBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventstore_buffer_bytes",
			Help: "Current estimated byte size of the write buffer",
		},
	)

	// FlushDuration measures wall time spent in one flush cycle.
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventstore_flush_duration_seconds",
			Help:    "Duration of one flush cycle (snapshot through per-stream commit)",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FlushBatchSize measures the number of events committed per
	// stream partition per flush.
	FlushBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventstore_flush_batch_size",
			Help:    "Number of events committed per stream partition per flush",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// FlushOutcomes counts flush partition results by outcome:
	// committed, reinserted, dropped.
	FlushOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_flush_outcomes_total",
			Help: "Flush partition outcomes by result",
		},
		[]string{"outcome"},
	)

	// BackendOpDuration measures backend call latency by operation.
	BackendOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstore_backend_op_duration_seconds",
			Help:    "Duration of backend operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	// BackendOpErrors counts backend operation failures by kind.
	BackendOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_backend_op_errors_total",
			Help: "Backend operation failures by error kind",
		},
		[]string{"operation", "backend", "kind"},
	)

	// AdvisoryLockWait measures time spent waiting to acquire the
	// per-stream transactional advisory lock.
	AdvisoryLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventstore_advisory_lock_wait_seconds",
			Help:    "Time spent waiting to acquire the per-stream advisory lock",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PoolConnectionsInUse tracks the SQL backend's connection pool
	// utilization.
	PoolConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventstore_pool_connections_in_use",
			Help: "Current number of acquired connections in the backend pool",
		},
	)

	// MigratorStreamsTotal counts migrator per-stream outcomes.
	MigratorStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_migrator_streams_total",
			Help: "Migrator per-stream outcomes",
		},
		[]string{"outcome"},
	)

	// MigratorEventsMigrated counts events written to the destination by
	// the migrator.
	MigratorEventsMigrated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventstore_migrator_events_migrated_total",
			Help: "Total events written to the destination backend by the migrator",
		},
	)
)

// RecordFlush records one flush cycle's duration and batch size.
func RecordFlush(duration time.Duration, batchSize int) {
	FlushDuration.Observe(duration.Seconds())
	FlushBatchSize.Observe(float64(batchSize))
}

// RecordFlushOutcome increments the flush outcome counter.
func RecordFlushOutcome(outcome string) {
	FlushOutcomes.WithLabelValues(outcome).Inc()
}

// RecordBackendOp records a completed backend call. errKind is the
// caller's classification of the failure ("conflict", "transient",
// "permanent"); pass the empty string on success.
func RecordBackendOp(operation, backend string, duration time.Duration, errKind string) {
	BackendOpDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
	if errKind != "" {
		BackendOpErrors.WithLabelValues(operation, backend, errKind).Inc()
	}
}

// RecordMigratorStream increments the migrator stream-outcome counter.
func RecordMigratorStream(outcome string, eventsMigrated int) {
	MigratorStreamsTotal.WithLabelValues(outcome).Inc()
	MigratorEventsMigrated.Add(float64(eventsMigrated))
}
