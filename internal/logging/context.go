// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

// correlationIDKey is the context key for correlation IDs. The same ID
// that links related events across streams is carried through the
// context so every log line touching an append, flush, or migration step
// can be tied back to the events it produced.
const correlationIDKey contextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// ContextWithCorrelationID returns a new context carrying the given
// correlation ID.
//
//	ctx = logging.ContextWithCorrelationID(ctx, event.CorrelationID())
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context carrying a freshly
// generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from ctx, or ""
// if none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns a logger with the context's correlation ID automatically
// attached.
//
//	logging.Ctx(ctx).Info().Str("stream_id", sid).Msg("batch committed")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := Logger()
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logger = logger.With().Str("correlation_id", correlationID).Logger()
	}
	return &logger
}

// CtxWith returns a logger context builder with the correlation ID
// pre-populated, for callers that want to add further default fields.
//
//	logger := logging.CtxWith(ctx).Str("stream_id", sid).Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := Logger().With()
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}
	return logCtx
}

// WithComponent creates a child logger with a component field.
//
//	migratorLogger := logging.WithComponent("migrator")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
