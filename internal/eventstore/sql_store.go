// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/eventstore/internal/logging"
	"github.com/tomtom215/eventstore/internal/metrics"
)

// schemaDDL is the events table: CREATE TABLE/INDEX IF NOT EXISTS,
// snake_case names, inline UNIQUE, applied idempotently on every startup.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS events (
	sequence BIGSERIAL PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	stream_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data JSONB NOT NULL,
	version BIGINT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	correlation_id TEXT,
	CONSTRAINT events_stream_version_uniq UNIQUE(stream_id, version)
);
CREATE INDEX IF NOT EXISTS idx_events_stream_version ON events(stream_id, version);
CREATE INDEX IF NOT EXISTS idx_events_type_timestamp ON events(event_type, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`

// SQLStore is the durable backend: a Postgres table with a
// UNIQUE(stream_id, version) constraint as correctness backstop, appended
// to under a per-stream dual-key transactional advisory lock.
//
// Connection pooling uses pgxpool.ParseConfig + pgxpool.NewWithConfig;
// writes use CopyFrom for bulk insert and stream reads are ordered by
// version.
type SQLStore struct {
	lifecycle

	cfg  Config
	pool *pgxpool.Pool

	buffer *Buffer
	worker *FlushWorker

	queryTimeout time.Duration
}

// NewSQLStore constructs an uninitialized SQL backend. Call Initialize
// before use; Initialize opens the pool and ensures the schema exists.
func NewSQLStore(cfg Config) (*SQLStore, error) {
	s := &SQLStore{cfg: cfg, queryTimeout: cfg.QueryTimeout}
	s.buffer = NewBuffer(bufferConfig{
		MaxEntries:    cfg.BufferMaxEntries,
		MaxBytes:      cfg.BufferMaxBytes,
		FlushInterval: cfg.FlushInterval,
	})
	s.worker = NewFlushWorker(s.buffer, s, cfg.FlushInterval)
	return s, nil
}

func (s *SQLStore) Initialize(ctx context.Context) error {
	s.lifecycle.set(StateInitializing)

	poolCfg, err := pgxpool.ParseConfig(s.cfg.DSN)
	if err != nil {
		return fmt.Errorf("eventstore: parse dsn: %w", err)
	}
	poolCfg.MinConns = int32(s.cfg.PoolMin)
	poolCfg.MaxConns = int32(s.cfg.PoolMax)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("eventstore: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("eventstore: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return fmt.Errorf("eventstore: apply schema: %w", err)
	}

	s.pool = pool
	s.lifecycle.set(StateReady)
	logging.Info().Msg("eventstore: sql backend ready")
	return nil
}

func (s *SQLStore) Close(ctx context.Context) error {
	s.lifecycle.set(StateClosing)
	defer s.lifecycle.set(StateClosed)

	s.worker.Flush(ctx)
	for _, entry := range s.buffer.Drain() {
		select {
		case entry.ack <- ErrShutdown:
		default:
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *SQLStore) AppendEvent(ctx context.Context, event *Event) error {
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

// WriteStreamEvents implements the append path: acquires the dual-key
// transactional advisory lock, validates the batch's first
// version against the current max, inserts all rows in one statement,
// and commits — the lock releases automatically at transaction end.
func (s *SQLStore) WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyBackendError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	lockStart := time.Now()
	high, low := deriveLockKeys(streamID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, high, low); err != nil {
		return classifyBackendError(err)
	}
	metrics.AdvisoryLockWait.Observe(time.Since(lockStart).Seconds())

	var maxVersion *int64
	if err := tx.QueryRow(ctx, `SELECT MAX(version) FROM events WHERE stream_id = $1`, streamID).Scan(&maxVersion); err != nil {
		return classifyBackendError(err)
	}
	expected := int64(0)
	if maxVersion != nil {
		expected = *maxVersion + 1
	}
	if events[0].Version() != expected {
		return &ConcurrencyConflictError{StreamID: streamID, ExpectedVersion: expected, ActualVersion: events[0].Version()}
	}

	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{e.ID(), e.StreamID(), e.EventType(), e.Data(), e.Version(), e.Timestamp(), nullableString(e.CorrelationID())}
	}
	columns := []string{"event_id", "stream_id", "event_type", "data", "version", "timestamp", "correlation_id"}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"events"}, columns, pgx.CopyFromRows(rows)); err != nil {
		if isStreamVersionConstraintViolation(err) {
			// Two processes raced past the advisory lock (e.g. one held it
			// under a different connection during a failover); the unique
			// constraint is the backstop the spec calls for. This is a version
			// conflict, not a generic permanent backend error: the caller's
			// remedy is the same as any other ConcurrencyConflict, reload and
			// retry with the current version.
			return &ConcurrencyConflictError{StreamID: streamID, ExpectedVersion: expected, ActualVersion: events[0].Version()}
		}
		return classifyBackendError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyBackendError(err)
	}
	return nil
}

func (s *SQLStore) GetStream(ctx context.Context, streamID string, fromVersion int64, toVersion *int64) ([]*Event, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var rows pgxRows
	var err error
	if toVersion != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT event_id, stream_id, event_type, data, version, timestamp, correlation_id
			FROM events WHERE stream_id = $1 AND version >= $2 AND version <= $3
			ORDER BY version ASC`, streamID, fromVersion, *toVersion)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT event_id, stream_id, event_type, data, version, timestamp, correlation_id
			FROM events WHERE stream_id = $1 AND version >= $2
			ORDER BY version ASC`, streamID, fromVersion)
	}
	if err != nil {
		return nil, classifyBackendError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLStore) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]*Event, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var rows pgxRows
	var err error
	if since != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT event_id, stream_id, event_type, data, version, timestamp, correlation_id
			FROM events WHERE event_type = $1 AND timestamp >= $2
			ORDER BY timestamp ASC`, eventType, *since)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT event_id, stream_id, event_type, data, version, timestamp, correlation_id
			FROM events WHERE event_type = $1
			ORDER BY timestamp ASC`, eventType)
	}
	if err != nil {
		return nil, classifyBackendError(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLStore) LastCommittedVersion(streamID string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	var maxVersion *int64
	err := s.pool.QueryRow(ctx, `SELECT MAX(version) FROM events WHERE stream_id = $1`, streamID).Scan(&maxVersion)
	if err != nil {
		return 0, classifyBackendError(err)
	}
	if maxVersion == nil {
		return -1, nil
	}
	return *maxVersion, nil
}

func (s *SQLStore) ListStreamIDs(ctx context.Context) ([]string, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT DISTINCT stream_id FROM events`)
	if err != nil {
		return nil, classifyBackendError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("eventstore: scan stream_id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return ids, nil
}

func (s *SQLStore) Worker() *FlushWorker { return s.worker }

func (s *SQLStore) GetMetrics() map[string]any {
	m := map[string]any{
		"buffer_depth": s.buffer.Len(),
		"buffer_bytes": s.buffer.Bytes(),
		"state":        s.lifecycle.get().String(),
	}
	if s.pool != nil {
		stat := s.pool.Stat()
		metrics.PoolConnectionsInUse.Set(float64(stat.AcquiredConns()))
		m["pool_acquired"] = stat.AcquiredConns()
		m["pool_idle"] = stat.IdleConns()
		m["pool_total_conns"] = stat.TotalConns()
	}
	return m
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// pgxRows abstracts over pgx.Rows to keep scanEvents testable without a
// live pool.
type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func scanEvents(rows pgxRows) ([]*Event, error) {
	var result []*Event
	for rows.Next() {
		var (
			eventID, streamID, eventType string
			data                         any
			version                      int64
			timestamp                    time.Time
			correlationID                *string
		)
		if err := rows.Scan(&eventID, &streamID, &eventType, &data, &version, &timestamp, &correlationID); err != nil {
			return nil, fmt.Errorf("eventstore: scan event: %w", err)
		}
		cid := ""
		if correlationID != nil {
			cid = *correlationID
		}
		result = append(result, &Event{
			id:            eventID,
			streamID:      streamID,
			eventType:     eventType,
			data:          data,
			version:       version,
			timestamp:     timestamp,
			correlationID: cid,
			frozen:        true,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	if result == nil {
		result = []*Event{}
	}
	return result, nil
}
