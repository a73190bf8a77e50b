// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Package logging provides zerolog-based structured logging for the
// event store: JSON output for production, console output for
// development, correlation-ID propagation through context, and an slog
// adapter so the suture supervisor tree logs through the same pipeline.
//
// Initialize once at process start:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
// Log with structured fields, terminating every chain with .Msg():
//
//	logging.Info().Str("stream_id", sid).Int("events", n).Msg("batch committed")
//	logging.Error().Err(err).Msg("flush failed")
//
// The correlation ID that links related events across streams doubles
// as the log correlation key. Thread it through context and use Ctx so
// every line touching an append, flush cycle, or migration step carries
// it:
//
//	ctx = logging.ContextWithCorrelationID(ctx, event.CorrelationID())
//	logging.Ctx(ctx).Debug().Str("stream_id", sid).Msg("enqueued")
//
// Libraries that speak log/slog (sutureslog in particular) are bridged
// via NewSlogLogger, which routes slog records into the same zerolog
// backend:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg)
//
// Tests capture output with NewTestLogger:
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
package logging
