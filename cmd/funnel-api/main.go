// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Command funnel-api runs Funnel's read-only query API (spec §4.4): the
// chi router in internal/api served over HTTP, backed by the analytics
// store. It shares configuration and store wiring with cmd/funnel-ingest
// but owns no relay connection and no batcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andotherstuff/funnel/internal/api"
	"github.com/andotherstuff/funnel/internal/config"
	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/store"
)

// shutdownGrace bounds how long in-flight requests get to finish once a
// shutdown signal arrives (spec §5 Cancellation).
const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level})

	if err := cfg.ValidateAPI(); err != nil {
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

	router := api.NewRouter(db, cfg.API)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Int("port", cfg.API.Port).Msg("query API listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("error during graceful shutdown")
	}
	logging.Info().Msg("query API stopped")
}
