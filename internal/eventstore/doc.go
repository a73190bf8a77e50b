// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Package eventstore is an append-only persistence layer for immutable
// domain events organized into named streams. Events are appended with
// strict per-stream version monotonicity and replayed back in order to
// reconstruct state.
//
// A Store is obtained from NewStore, which selects between an in-memory
// and a Postgres-backed implementation based on Config.Backend. Writers
// call AppendEvent, which enqueues into a process-local buffer; a
// background flush worker drains the buffer into the backend in
// per-stream batches under a transactional advisory lock.
package eventstore
