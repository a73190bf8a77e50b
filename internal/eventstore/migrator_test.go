// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryStore(t *testing.T, streamID string, count int) *MemoryStore {
	t.Helper()
	s := newReadyMemoryStore(t)
	events := make([]*Event, count)
	for i := range events {
		events[i] = newTestEvent(t, streamID, int64(i))
	}
	if count > 0 {
		require.NoError(t, s.WriteStreamEvents(context.Background(), streamID, events))
	}
	return s
}

func TestMigrateCopiesEntireEmptyDestination(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 3)
	dst := newReadyMemoryStore(t)

	report, err := Migrate(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StreamsTotal)
	assert.Equal(t, 1, report.StreamsMigrated)
	assert.Equal(t, 0, report.StreamsSkipped)
	assert.Equal(t, 3, report.EventsMigrated)

	got, err := dst.GetStream(context.Background(), "stream-1", 0, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMigrateIsIdempotentOnRerun(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 3)
	dst := newReadyMemoryStore(t)

	_, err := Migrate(context.Background(), src, dst)
	require.NoError(t, err)

	report, err := Migrate(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StreamsSkipped)
	assert.Equal(t, 0, report.StreamsMigrated)

	got, err := dst.GetStream(context.Background(), "stream-1", 0, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3, "a rerun must not duplicate already-migrated events")
}

func TestMigrateResumesPartiallyMigratedStream(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 5)
	dst := newReadyMemoryStore(t)
	// Pre-seed the destination with the first 2 events, as if a prior
	// migration run committed a prefix before failing.
	partial, err := src.GetStream(context.Background(), "stream-1", 0, nil)
	require.NoError(t, err)
	require.NoError(t, dst.WriteStreamEvents(context.Background(), "stream-1", partial[:2]))

	report, err := Migrate(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StreamsMigrated)
	assert.Equal(t, 3, report.EventsMigrated, "only the missing suffix should be copied")

	got, err := dst.GetStream(context.Background(), "stream-1", 0, nil)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestMigrateDetectsDivergentDestination(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 2)
	dst := newReadyMemoryStore(t)
	// Seed the destination with events whose version numbering claims a
	// commit depth the source cannot satisfy (source only reaches version 1).
	foreign, err := NewEvent("stream-1", "order.created", nil, 0, "")
	require.NoError(t, err)
	foreign2, err := NewEvent("stream-1", "order.created", nil, 1, "")
	require.NoError(t, err)
	foreign3, err := NewEvent("stream-1", "order.created", nil, 2, "")
	require.NoError(t, err)
	require.NoError(t, dst.WriteStreamEvents(context.Background(), "stream-1", []*Event{foreign, foreign2, foreign3}))

	report, err := Migrate(context.Background(), src, dst)
	require.Error(t, err)
	assert.Equal(t, 1, report.StreamsFailed)
	assert.Contains(t, report.FailedStreamIDs, "stream-1")
}

func TestMigrateDetectsForeignPrefixByEventID(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 3)
	dst := newReadyMemoryStore(t)
	// The destination holds an event at version 0 that is not the source's
	// version-0 event: a count-only comparison would "resume" right past it.
	foreign, err := NewEvent("stream-1", "order.created", nil, 0, "")
	require.NoError(t, err)
	require.NoError(t, dst.WriteStreamEvents(context.Background(), "stream-1", []*Event{foreign}))

	report, err := Migrate(context.Background(), src, dst)
	require.Error(t, err)
	assert.Equal(t, 1, report.StreamsFailed)

	got, err := dst.GetStream(context.Background(), "stream-1", 0, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1, "a failed stream must be left at its previous state")
}

func TestMigrateAggregatesAcrossMultipleStreams(t *testing.T) {
	src := newReadyMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, src.WriteStreamEvents(ctx, "stream-1", []*Event{newTestEvent(t, "stream-1", 0)}))
	require.NoError(t, src.WriteStreamEvents(ctx, "stream-2", []*Event{newTestEvent(t, "stream-2", 0), newTestEvent(t, "stream-2", 1)}))
	dst := newReadyMemoryStore(t)

	report, err := Migrate(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, report.StreamsTotal)
	assert.Equal(t, 2, report.StreamsMigrated)
	assert.Equal(t, 3, report.EventsMigrated)
}

// failingDestination wraps a MemoryStore and fails the first
// WriteStreamEvents call, to exercise Migrate's partial-failure reporting.
type failingDestination struct {
	*MemoryStore
	failOnce bool
}

func (f *failingDestination) WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error {
	if f.failOnce {
		f.failOnce = false
		return errors.New("destination unavailable")
	}
	return f.MemoryStore.WriteStreamEvents(ctx, streamID, events)
}

func TestMigratePartialFailureIsReportedAndResumable(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 2)
	dst := &failingDestination{MemoryStore: newReadyMemoryStore(t), failOnce: true}

	report, err := Migrate(context.Background(), src, dst)
	require.Error(t, err)
	assert.Equal(t, 1, report.StreamsFailed)

	// A subsequent run against the same (now-healthy) destination resumes
	// rather than erroring again.
	report, err = Migrate(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StreamsMigrated)
}

func TestReconcilePrefixEmptyDestinationReturnsEverything(t *testing.T) {
	events := []*Event{newTestEvent(t, "stream-1", 0), newTestEvent(t, "stream-1", 1)}
	remaining, err := reconcilePrefix("stream-1", events, nil)
	require.NoError(t, err)
	assert.Equal(t, events, remaining)
}

func TestReconcilePrefixFullyCaughtUpReturnsEmpty(t *testing.T) {
	events := []*Event{newTestEvent(t, "stream-1", 0), newTestEvent(t, "stream-1", 1)}
	remaining, err := reconcilePrefix("stream-1", events, events)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestReconcilePrefixRejectsMismatchedEventIDs(t *testing.T) {
	source := []*Event{newTestEvent(t, "stream-1", 0), newTestEvent(t, "stream-1", 1)}
	// Same stream, same versions, different identity: the destination was
	// written by something other than a previous migration run.
	foreign := []*Event{newTestEvent(t, "stream-1", 0)}

	_, err := reconcilePrefix("stream-1", source, foreign)
	var mc *MigrationConsistencyError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, int64(0), mc.MismatchedAt)
}

func TestMigrateWithReadRateLimitPacesMultiStreamReads(t *testing.T) {
	src := newReadyMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, src.WriteStreamEvents(ctx, "stream-1", []*Event{newTestEvent(t, "stream-1", 0)}))
	require.NoError(t, src.WriteStreamEvents(ctx, "stream-2", []*Event{newTestEvent(t, "stream-2", 0)}))
	require.NoError(t, src.WriteStreamEvents(ctx, "stream-3", []*Event{newTestEvent(t, "stream-3", 0)}))
	dst := newReadyMemoryStore(t)

	start := time.Now()
	report, err := Migrate(ctx, src, dst, WithReadRateLimit(10, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, report.StreamsMigrated)
	// burst=1 at 10/s forces the 2nd and 3rd stream reads to wait roughly
	// 100ms apiece, so three streams take noticeably longer than unpaced.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestMigrateWithoutRateLimitOptionIsUnpaced(t *testing.T) {
	src := seededMemoryStore(t, "stream-1", 1)
	dst := newReadyMemoryStore(t)

	report, err := Migrate(context.Background(), src, dst, WithReadRateLimit(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.StreamsMigrated)
}
