// Eventstore - Durable Append-Only Event Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventstore

// Command eventstored runs the event store as a long-lived process: it
// loads configuration, wires up the backend and its flush pipeline, and
// keeps them alive under a supervisor tree until it receives a shutdown
// signal.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/eventstore/internal/config"
	"github.com/tomtom215/eventstore/internal/eventstore"
	"github.com/tomtom215/eventstore/internal/logging"
	"github.com/tomtom215/eventstore/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet, so report to stderr directly.
		os.Stderr.WriteString("eventstored: " + err.Error() + "\n")
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Info().Str("backend", string(cfg.Backend)).Msg("eventstored: starting")

	store, err := eventstore.NewStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("eventstored: construct store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Initialize(ctx); err != nil {
		logging.Fatal().Err(err).Msg("eventstored: initialize store")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("eventstored: build supervisor tree")
	}

	worker, ok := flushWorker(store)
	if !ok {
		logging.Fatal().Msg("eventstored: backend does not expose a flush worker")
	}
	tree.AddStoreService(worker)
	tree.AddMaintenanceService(newMetricsSummaryLogger(store, time.Minute))

	srv := &http.Server{Addr: ":9090", Handler: promhttp.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error().Err(err).Msg("eventstored: metrics server")
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := tree.ServeBackground(sigCtx)

	<-sigCtx.Done()
	logging.Info().Msg("eventstored: shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if err := store.Close(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("eventstored: close store")
	}

	select {
	case err := <-serveErr:
		if err != nil && err != context.Canceled {
			logging.Error().Err(err).Msg("eventstored: supervisor tree exited with error")
		}
	case <-shutdownCtx.Done():
		if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
			logging.Warn().Int("count", len(report)).Msg("eventstored: services did not stop within the shutdown deadline")
		}
	}

	logging.Info().Msg("eventstored: stopped")
}

// flushWorker recovers the concrete backend's FlushWorker. Store is an
// interface so the supervisor tree, which only understands suture
// services, needs the concrete type to find it.
func flushWorker(store eventstore.Store) (*eventstore.FlushWorker, bool) {
	type workerHolder interface {
		Worker() *eventstore.FlushWorker
	}
	wh, ok := store.(workerHolder)
	if !ok {
		return nil, false
	}
	return wh.Worker(), true
}
