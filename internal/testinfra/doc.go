// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// providing realistic testing environments that closely match production.
//
// # Postgres Container
//
// StartPostgres wraps the postgres module
// (github.com/testcontainers/testcontainers-go/modules/postgres) to
// provide a real Postgres instance for testing the SQL-backed Store:
//
//	//go:build integration
//
//	func TestSQLStoreIntegration(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    dsn := testinfra.StartPostgres(t)
//
//	    store, err := eventstore.NewSQLStore(eventstore.Config{Backend: eventstore.BackendSQL, DSN: dsn})
//	    // ...
//	}
//
// # Benefits Over Mocks
//
// Using a real Postgres container provides several advantages:
//   - Tests validate the actual advisory-lock and CopyFrom behavior
//   - No mock drift (mocks getting out of sync with real pgx behavior)
//   - Tests run against production-equivalent infrastructure
//
// # CI Considerations
//
// These tests require Docker and network access. In CI:
//   - Self-hosted runners have Docker pre-installed
//   - Container images are cached between runs
//   - Tests are skipped gracefully via SkipIfNoDocker if Docker is unavailable
//
// # Network Requirements
//
// First run may need to download container images. Subsequent runs use cached images.
package testinfra
