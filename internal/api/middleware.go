// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/andotherstuff/funnel/internal/metrics"
)

// chiMiddleware adapts a func(http.HandlerFunc) http.HandlerFunc middleware
// into chi's native func(http.Handler) http.Handler signature.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// bearerAuth enforces spec §4.4's Auth rule: bearer-token required on
// /api/* when API_TOKEN is configured, constant-time compared. An empty
// token disables auth entirely, matching the teacher's pattern of making
// security middleware a no-op when its corresponding config is unset rather
// than requiring a separate feature flag.
func bearerAuth(token string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if token == "" {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			supplied := strings.TrimPrefix(header, prefix)
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next(w, r)
		}
	}
}

// cacheControl sets a fixed Cache-Control header on successful responses.
// It never overrides a header an error path already set, since writeError
// always sets its own no-store value before this middleware's wrapped
// handler returns.
func cacheControl(value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}

// endpointMetrics records spec §4.5's api_requests_total and
// api_clickhouse_query_duration_seconds for one named endpoint. The
// histogram is measured across the whole handler rather than just the store
// call beneath it, since every route here does no other blocking work
// between receiving the request and writing the response.
func endpointMetrics(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.APIRequestsTotal.WithLabelValues(endpoint).Inc()
			next.ServeHTTP(w, r)
			metrics.APIClickHouseQueryDurationSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		})
	}
}
