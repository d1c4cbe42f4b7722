// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Package api is Funnel's query API (spec §4.4): a chi/v5 router exposing
// the read-only HTTP surface over the analytics store, following the
// teacher's internal/api/chi_router.go route-grouping and middleware-stack
// conventions.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andotherstuff/funnel/internal/config"
)

// NewRouter builds the complete route tree for the query API process.
func NewRouter(s Store, cfg config.APIConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	h := &handler{store: s}

	r.Group(func(r chi.Router) {
		r.Use(cacheControl("no-store"))
		r.Get("/health", h.health)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware(bearerAuth(cfg.Token)))

		r.With(endpointMetrics("videos"), cacheControl("public, max-age=60")).
			Get("/videos", h.listVideos)

		r.With(endpointMetrics("video_stats"), cacheControl("public, max-age=30")).
			Get("/videos/{id}/stats", h.videoStats)

		r.With(endpointMetrics("user_videos"), cacheControl("public, max-age=60")).
			Get("/users/{pubkey}/videos", h.userVideos)

		r.With(endpointMetrics("search"), cacheControl("public, max-age=60")).
			Get("/search", h.search)

		r.With(endpointMetrics("stats"), cacheControl("public, max-age=60")).
			Get("/stats", h.globalStats)
	})

	return r
}
