// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

package main

import (
	"context"
	"time"

	"github.com/tomtom215/eventstore/internal/eventstore"
	"github.com/tomtom215/eventstore/internal/logging"
)

// metricsSummaryLogger periodically logs the backend's GetMetrics snapshot.
// It is a maintenance-layer suture.Service: its failures must never take
// down the store layer it reports on.
type metricsSummaryLogger struct {
	store    eventstore.Store
	interval time.Duration
}

func newMetricsSummaryLogger(store eventstore.Store, interval time.Duration) *metricsSummaryLogger {
	return &metricsSummaryLogger{store: store, interval: interval}
}

func (m *metricsSummaryLogger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			event := logging.Info()
			for k, v := range m.store.GetMetrics() {
				event = event.Interface(k, v)
			}
			event.Msg("eventstored: metrics summary")
		}
	}
}

func (m *metricsSummaryLogger) String() string { return "metrics-summary" }
