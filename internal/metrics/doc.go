// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Package metrics provides Prometheus instrumentation for the event
// store.
//
// Metrics are exposed at /metrics in Prometheus text format when
// cmd/eventstored registers promhttp.Handler(). The store's own
// Store.GetMetrics() returns a point-in-time snapshot suitable for
// logging; this package is the continuously-scraped counterpart.
package metrics
