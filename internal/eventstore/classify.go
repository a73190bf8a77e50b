// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes relevant to classification. See
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeDeadlockDetected    = "40P01"
	pgCodeSerializationFailed = "40001"
	pgCodeLockNotAvailable    = "55P03"
	pgCodeConnectionException = "08000"
	pgCodeConnectionFailure   = "08006"
	pgCodeAdminShutdown       = "57P01"
	pgCodeInsufficientPriv    = "42501"
)

// streamVersionConstraintName is the UNIQUE(stream_id, version) backstop
// declared in schemaDDL. Named explicitly (rather than left to Postgres's
// auto-generated name) so this check is stable across schema edits.
const streamVersionConstraintName = "events_stream_version_uniq"

// isStreamVersionConstraintViolation reports whether err is a unique
// violation of specifically the (stream_id, version) backstop, as
// opposed to any other constraint (e.g. the event_id uniqueness check).
// Per §7, this one case is a ConcurrencyConflict, not a generic
// PermanentBackendError — the advisory lock should make it rare, but two
// writers racing past it (e.g. across a failover) land here.
func isStreamVersionConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgCodeUniqueViolation && pgErr.ConstraintName == streamVersionConstraintName
}

// classifyBackendError turns a raw error returned by the SQL driver into a
// TransientBackendError or PermanentBackendError, dispatching on typed
// pgconn.PgError codes and context errors instead of substring matching
// on a log message, since the SQL backend has structured errors
// available.
//
// Every unique violation is classified permanent here, the
// UNIQUE(stream_id, version) backstop included: callers on the write path
// check isStreamVersionConstraintViolation first and report that case as
// ConcurrencyConflictError instead, since it is not a backend error at all
// from the append caller's perspective.
func classifyBackendError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransientBackendError(CategoryTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewTransientBackendError(CategoryTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeDeadlockDetected, pgCodeSerializationFailed, pgCodeLockNotAvailable:
			return NewTransientBackendError(CategoryDeadlock, err)
		case pgCodeConnectionException, pgCodeConnectionFailure, pgCodeAdminShutdown:
			return NewTransientBackendError(CategoryConnection, err)
		case pgCodeUniqueViolation:
			return NewPermanentBackendError(CategoryConstraint, err)
		case pgCodeInsufficientPriv:
			return NewPermanentBackendError(CategoryConstraint, err)
		}
	}

	// Connection pool exhaustion and unrecognized driver errors default to
	// transient: an operator expanding pool_max or a transient network blip
	// is the common case, and the flush pipeline's bounded retry budget
	// (see flush.go) keeps a truly permanent failure from retrying forever.
	return NewTransientBackendError(CategoryConnection, err)
}
