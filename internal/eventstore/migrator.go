// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tomtom215/eventstore/internal/logging"
	"github.com/tomtom215/eventstore/internal/metrics"
)

// MigrateOption configures an optional aspect of a Migrate run.
type MigrateOption func(*migrateOptions)

type migrateOptions struct {
	limiter *rate.Limiter
}

// WithReadRateLimit paces the migrator's per-stream reads against the
// source backend so a large migration does not starve concurrent
// production traffic on a shared database. eventsPerSecond <= 0 disables
// pacing (the default). burst bounds how many streams' worth of reads can
// proceed before the limiter starts delaying.
func WithReadRateLimit(eventsPerSecond float64, burst int) MigrateOption {
	return func(o *migrateOptions) {
		if eventsPerSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
		}
	}
}

// MigrationReport summarizes a completed (or partially completed, if an
// error was returned alongside it) run of Migrate.
type MigrationReport struct {
	StreamsTotal    int
	StreamsMigrated int
	StreamsSkipped  int
	StreamsFailed   int
	EventsMigrated  int
	FailedStreamIDs []string
}

// Migrate copies every stream from source to destination.
// It is idempotent and restartable by construction: for each stream it
// reads the destination's already-committed prefix and only writes the
// remainder, so re-running Migrate after a partial failure resumes
// rather than re-copying or duplicating events.
//
// A stream is skipped (not an error) when source and destination already
// agree up to the source's full length. A stream fails with
// MigrationConsistencyError when the shared prefix disagrees — the
// destination has events the source doesn't, or a different event_id at
// the same version — since that means the destination was written to by
// something other than a previous migration run and resuming would
// silently lose or reorder data.
//
// A checkpoint-table approach for tracking resume position was
// considered and rejected in favor of comparing source/destination state
// directly: it needs no side table to stay consistent, at the cost of a
// read of the destination stream on every run.
func Migrate(ctx context.Context, source, destination Store, opts ...MigrateOption) (*MigrationReport, error) {
	cfg := migrateOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}

	streamIDs, err := source.ListStreamIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("eventstore: migrator: list source streams: %w", err)
	}

	report := &MigrationReport{StreamsTotal: len(streamIDs)}

	for _, streamID := range streamIDs {
		if cfg.limiter != nil {
			if err := cfg.limiter.Wait(ctx); err != nil {
				return report, fmt.Errorf("eventstore: migrator: rate limit wait: %w", err)
			}
		}

		events, err := source.GetStream(ctx, streamID, 0, nil)
		if err != nil {
			report.StreamsFailed++
			report.FailedStreamIDs = append(report.FailedStreamIDs, streamID)
			metrics.RecordMigratorStream("failed", 0)
			logging.Error().Err(err).Str("stream_id", streamID).Msg("eventstore: migrator: read source stream failed")
			continue
		}

		destVersion, err := destination.LastCommittedVersion(streamID)
		if err != nil {
			report.StreamsFailed++
			report.FailedStreamIDs = append(report.FailedStreamIDs, streamID)
			metrics.RecordMigratorStream("failed", 0)
			logging.Error().Err(err).Str("stream_id", streamID).Msg("eventstore: migrator: read destination version failed")
			continue
		}

		var destEvents []*Event
		if destVersion >= 0 {
			destEvents, err = destination.GetStream(ctx, streamID, 0, &destVersion)
			if err != nil {
				report.StreamsFailed++
				report.FailedStreamIDs = append(report.FailedStreamIDs, streamID)
				metrics.RecordMigratorStream("failed", 0)
				logging.Error().Err(err).Str("stream_id", streamID).Msg("eventstore: migrator: read destination prefix failed")
				continue
			}
		}

		remaining, err := reconcilePrefix(streamID, events, destEvents)
		if err != nil {
			report.StreamsFailed++
			report.FailedStreamIDs = append(report.FailedStreamIDs, streamID)
			metrics.RecordMigratorStream("failed", 0)
			logging.Error().Err(err).Str("stream_id", streamID).Msg("eventstore: migrator: prefix mismatch")
			continue
		}

		if len(remaining) == 0 {
			report.StreamsSkipped++
			metrics.RecordMigratorStream("skipped", 0)
			continue
		}

		if err := destination.WriteStreamEvents(ctx, streamID, remaining); err != nil {
			report.StreamsFailed++
			report.FailedStreamIDs = append(report.FailedStreamIDs, streamID)
			metrics.RecordMigratorStream("failed", 0)
			logging.Error().Err(err).Str("stream_id", streamID).Msg("eventstore: migrator: write destination failed")
			continue
		}

		report.StreamsMigrated++
		report.EventsMigrated += len(remaining)
		metrics.RecordMigratorStream("migrated", len(remaining))
	}

	logging.Info().
		Int("streams_total", report.StreamsTotal).
		Int("streams_migrated", report.StreamsMigrated).
		Int("streams_skipped", report.StreamsSkipped).
		Int("streams_failed", report.StreamsFailed).
		Int("events_migrated", report.EventsMigrated).
		Msg("eventstore: migration complete")

	if report.StreamsFailed > 0 {
		return report, fmt.Errorf("eventstore: migrator: %d stream(s) failed", report.StreamsFailed)
	}
	return report, nil
}

// reconcilePrefix checks that the destination's already-committed events
// are the same events the source holds at versions 0..k — compared by
// event_id, not just by count — then returns the source events still
// missing from the destination. An empty destEvents means the destination
// has no events for this stream yet.
func reconcilePrefix(streamID string, sourceEvents, destEvents []*Event) ([]*Event, error) {
	if len(destEvents) == 0 {
		return sourceEvents, nil
	}

	destVersion := destEvents[len(destEvents)-1].Version()
	if int64(len(sourceEvents)) <= destVersion {
		// Source doesn't even reach the version the destination claims
		// to have committed: the destination diverged independently.
		return nil, &MigrationConsistencyError{StreamID: streamID, LastDestVer: destVersion, MismatchedAt: int64(len(sourceEvents))}
	}

	for i, d := range destEvents {
		if i >= len(sourceEvents) || !sourceEvents[i].Equal(d) {
			return nil, &MigrationConsistencyError{StreamID: streamID, LastDestVer: destVersion, MismatchedAt: int64(i)}
		}
	}

	remaining := make([]*Event, 0, len(sourceEvents))
	for _, e := range sourceEvents {
		if e.Version() > destVersion {
			remaining = append(remaining, e)
		}
	}
	return remaining, nil
}
