// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Command funnel-ingest runs Funnel's ingestion pipeline (spec §4.3): either
// live mode (a persistent relay subscription) or backfill mode (paginated
// historical replay), selected by the BACKFILL environment variable. It
// also hosts the standalone Prometheus metrics endpoint (spec §6: default
// port 9090).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andotherstuff/funnel/internal/config"
	"github.com/andotherstuff/funnel/internal/ingest"
	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/nostr"
	"github.com/andotherstuff/funnel/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level})

	if err := cfg.ValidateIngestion(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := store.New(&cfg.ClickHouse)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to analytics store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store connection")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info().Int("port", cfg.Metrics.Port).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	batcher := ingest.NewBatcher(cfg.Batch.Size, cfg.Batch.Interval(), db.InsertBatch)
	batcherDone := make(chan struct{})
	go func() {
		batcher.Run(ctx)
		close(batcherDone)
	}()

	var runErr error
	if cfg.Backfill.Enabled {
		logging.Info().Str("relay_url", cfg.Relay.URL).Msg("starting backfill")
		loop := ingest.NewBackfillLoop(cfg.Relay.URL, []nostr.Kind{nostr.KindLongVideo, nostr.KindShortVideo}, 0, batcher)
		runErr = loop.Run(ctx)
	} else {
		logging.Info().Str("relay_url", cfg.Relay.URL).Msg("starting live ingestion")
		loop := ingest.NewLiveLoop(cfg.Relay.URL, db, batcher)
		runErr = loop.Run(ctx)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logging.Error().Err(runErr).Msg("ingestion loop exited with error")
	}

	stop()
	<-batcherDone
	logging.Info().Msg("ingestion stopped")
}
