// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package eventstore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Degraded wraps a Store so a collaborator that cannot tolerate
// initialization failure can keep running when the store is not Ready:
// appends silently no-op and reads return empty sequences instead of
// propagating ErrBackendNotReady.
//
// This is explicitly a collaborator-level policy, not the store's own:
// the Store interface and both backend implementations never swallow
// their own lifecycle errors. A DegradedEntries counter tracks how many
// operations were silently dropped, for monitoring.
type Degraded struct {
	inner   Store
	entries atomic.Int64
}

// NewDegraded wraps inner. inner is used as-is; Degraded adds no
// lifecycle of its own.
func NewDegraded(inner Store) *Degraded {
	return &Degraded{inner: inner}
}

// DegradedEntries reports how many operations were swallowed because the
// inner store was not ready.
func (d *Degraded) DegradedEntries() int64 { return d.entries.Load() }

func (d *Degraded) AppendEvent(ctx context.Context, event *Event) error {
	if err := d.inner.AppendEvent(ctx, event); err != nil {
		if errors.Is(err, ErrBackendNotReady) {
			d.entries.Add(1)
			return nil
		}
		return err
	}
	return nil
}

func (d *Degraded) GetStream(ctx context.Context, streamID string, fromVersion int64, toVersion *int64) ([]*Event, error) {
	events, err := d.inner.GetStream(ctx, streamID, fromVersion, toVersion)
	if err != nil {
		if errors.Is(err, ErrBackendNotReady) {
			d.entries.Add(1)
			return []*Event{}, nil
		}
		return nil, err
	}
	return events, nil
}

func (d *Degraded) GetEventsByType(ctx context.Context, eventType string, since *time.Time) ([]*Event, error) {
	events, err := d.inner.GetEventsByType(ctx, eventType, since)
	if err != nil {
		if errors.Is(err, ErrBackendNotReady) {
			d.entries.Add(1)
			return []*Event{}, nil
		}
		return nil, err
	}
	return events, nil
}

func (d *Degraded) WriteStreamEvents(ctx context.Context, streamID string, events []*Event) error {
	if err := d.inner.WriteStreamEvents(ctx, streamID, events); err != nil {
		if errors.Is(err, ErrBackendNotReady) {
			d.entries.Add(1)
			return nil
		}
		return err
	}
	return nil
}

func (d *Degraded) LastCommittedVersion(streamID string) (int64, error) {
	return d.inner.LastCommittedVersion(streamID)
}

func (d *Degraded) ListStreamIDs(ctx context.Context) ([]string, error) {
	ids, err := d.inner.ListStreamIDs(ctx)
	if err != nil {
		if errors.Is(err, ErrBackendNotReady) {
			d.entries.Add(1)
			return []string{}, nil
		}
		return nil, err
	}
	return ids, nil
}

func (d *Degraded) Initialize(ctx context.Context) error {
	// Initialization failures are exactly what this adapter exists to
	// tolerate: swallow the error, record it, and let the collaborator
	// keep running in degraded mode.
	if err := d.inner.Initialize(ctx); err != nil {
		d.entries.Add(1)
		return nil
	}
	return nil
}

func (d *Degraded) Close(ctx context.Context) error {
	return d.inner.Close(ctx)
}

func (d *Degraded) GetMetrics() map[string]any {
	m := d.inner.GetMetrics()
	m["degraded_mode_entries"] = d.entries.Load()
	return m
}

var _ Store = (*Degraded)(nil)
