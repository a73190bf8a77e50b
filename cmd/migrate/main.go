// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Command migrate copies every stream from a source backend to a
// destination backend. It exits 0 when every stream migrated or was
// already up to date, 1 when one or more streams failed to migrate, and
// 2 on a usage or configuration error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/eventstore/internal/eventstore"
	"github.com/tomtom215/eventstore/internal/logging"
)

const (
	exitOK            = 0
	exitStreamsFailed = 1
	exitConfigError   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	from := fs.String("from", "", "source backend: memory or sql (required)")
	to := fs.String("to", "", "destination backend: memory or sql (required)")
	fromDSN := fs.String("from-dsn", "", "source connection string, required when -from=sql")
	toDSN := fs.String("to-dsn", "", "destination connection string, required when -to=sql")
	timeout := fs.Duration("timeout", 5*time.Minute, "overall migration timeout")
	maxStreamsPerSec := fs.Float64("max-streams-per-sec", 0, "pace source reads to at most this many streams/sec (0 disables pacing)")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	logging.Init(logging.Config{Level: "info", Format: "console"})

	if *from == "" || *to == "" {
		logging.Error().Msg("migrate: -from and -to are required")
		fs.Usage()
		return exitConfigError
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, err := openBackend(ctx, *from, *fromDSN)
	if err != nil {
		logging.Error().Err(err).Msg("migrate: open source")
		return exitConfigError
	}
	defer source.Close(ctx)

	destination, err := openBackend(ctx, *to, *toDSN)
	if err != nil {
		logging.Error().Err(err).Msg("migrate: open destination")
		return exitConfigError
	}
	defer destination.Close(ctx)

	var opts []eventstore.MigrateOption
	if *maxStreamsPerSec > 0 {
		opts = append(opts, eventstore.WithReadRateLimit(*maxStreamsPerSec, 1))
	}
	report, err := eventstore.Migrate(ctx, source, destination, opts...)
	if report != nil {
		fmt.Fprintf(os.Stdout, "streams: total=%d migrated=%d skipped=%d failed=%d events_migrated=%d\n",
			report.StreamsTotal, report.StreamsMigrated, report.StreamsSkipped, report.StreamsFailed, report.EventsMigrated)
		if len(report.FailedStreamIDs) > 0 {
			fmt.Fprintf(os.Stdout, "failed stream ids: %v\n", report.FailedStreamIDs)
		}
	}
	if err != nil {
		logging.Error().Err(err).Msg("migrate: completed with failures")
		return exitStreamsFailed
	}
	return exitOK
}

func openBackend(ctx context.Context, kind, dsn string) (eventstore.Store, error) {
	cfg := eventstore.DefaultConfig()
	cfg.Backend = eventstore.BackendKind(kind)
	cfg.DSN = dsn
	store, err := eventstore.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
