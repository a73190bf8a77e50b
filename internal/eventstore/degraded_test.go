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

// controllableStore is a Store double whose every method returns a
// configured error, for exercising Degraded's per-method error handling.
type controllableStore struct {
	err error
}

func (c *controllableStore) AppendEvent(ctx context.Context, event *Event) error { return c.err }

func (c *controllableStore) GetStream(ctx context.Context, streamID string, fromVersion int64, toVersion *int64) ([]*Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []*Event{}, nil
}

func (c *controllableStore) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]*Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []*Event{}, nil
}

func (c *controllableStore) WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error {
	return c.err
}

func (c *controllableStore) LastCommittedVersion(streamID string) (int64, error) { return -1, c.err }

func (c *controllableStore) ListStreamIDs(ctx context.Context) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []string{}, nil
}

func (c *controllableStore) Initialize(ctx context.Context) error { return c.err }

func (c *controllableStore) Close(ctx context.Context) error { return c.err }

func (c *controllableStore) GetMetrics() map[string]any { return map[string]any{} }

func TestDegradedSwallowsBackendNotReadyOnAppend(t *testing.T) {
	inner := &controllableStore{err: ErrBackendNotReady}
	d := NewDegraded(inner)

	err := d.AppendEvent(context.Background(), newTestEvent(t, "stream-1", 0))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), d.DegradedEntries())
}

func TestDegradedSwallowsBackendNotReadyOnReads(t *testing.T) {
	inner := &controllableStore{err: ErrBackendNotReady}
	d := NewDegraded(inner)

	events, err := d.GetStream(context.Background(), "stream-1", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = d.GetEventsByType(context.Background(), "order.created", nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	ids, err := d.ListStreamIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.Equal(t, int64(3), d.DegradedEntries())
}

func TestDegradedSwallowsBackendNotReadyOnWriteStreamEvents(t *testing.T) {
	inner := &controllableStore{err: ErrBackendNotReady}
	d := NewDegraded(inner)

	err := d.WriteStreamEvents(context.Background(), "stream-1", []*Event{newTestEvent(t, "stream-1", 0)})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), d.DegradedEntries())
}

func TestDegradedPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	inner := &controllableStore{err: boom}
	d := NewDegraded(inner)

	err := d.AppendEvent(context.Background(), newTestEvent(t, "stream-1", 0))
	assert.ErrorIs(t, err, boom)

	_, err = d.GetStream(context.Background(), "stream-1", 0, nil)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int64(0), d.DegradedEntries(), "errors other than ErrBackendNotReady must not count as degraded")
}

func TestDegradedInitializeAlwaysSucceeds(t *testing.T) {
	inner := &controllableStore{err: errors.New("dial failed")}
	d := NewDegraded(inner)

	err := d.Initialize(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), d.DegradedEntries())
}

func TestDegradedGetMetricsIncludesEntryCount(t *testing.T) {
	inner := &controllableStore{}
	d := NewDegraded(inner)
	m := d.GetMetrics()
	assert.Equal(t, int64(0), m["degraded_mode_entries"])
}

func TestDegradedPassesThroughWhenHealthy(t *testing.T) {
	inner := &controllableStore{}
	d := NewDegraded(inner)

	assert.NoError(t, d.AppendEvent(context.Background(), newTestEvent(t, "stream-1", 0)))
	assert.Equal(t, int64(0), d.DegradedEntries())
}
