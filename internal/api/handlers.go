// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/store"
)

func logError(err error) {
	logging.Error().Err(err).Msg("API request failed")
}

// handler holds the dependencies every route needs.
type handler struct {
	store Store
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "no-store", map[string]string{"status": "ok"})
}

// sort values accepted by GET /api/videos.
const (
	sortRecent   = "recent"
	sortTrending = "trending"
	sortPopular  = "popular" // synonym for trending, per spec §4.4
)

func (h *handler) listVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = sortRecent
	}
	kind := parseKind(q.Get("kind"))
	limit := parseLimit(q.Get("limit"))

	var (
		videos []store.VideoStats
		err    error
	)
	switch sortBy {
	case sortTrending, sortPopular:
		videos, err = h.store.VideosTrending(r.Context(), kind, limit)
	case sortRecent:
		videos, err = h.store.VideosRecent(r.Context(), kind, limit)
	default:
		writeError(w, http.StatusBadRequest, "sort must be one of recent, trending, popular")
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toVideoDTOs(videos))
}

func (h *handler) videoStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := h.store.VideoStatsByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toVideoDTO(v))
}

func (h *handler) userVideos(w http.ResponseWriter, r *http.Request) {
	pubkey := chi.URLParam(r, "pubkey")
	limit := parseLimit(r.URL.Query().Get("limit"))
	videos, err := h.store.VideosByAuthor(r.Context(), pubkey, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", toVideoDTOs(videos))
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := q.Get("tag")
	text := q.Get("q")
	limit := parseLimit(q.Get("limit"))

	switch {
	case tag != "":
		hits, err := h.store.SearchByHashtag(r.Context(), tag, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "", toHashtagHitDTOs(hits))
	case text != "":
		videos, err := h.store.SearchByText(r.Context(), text, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, "", toVideoDTOs(videos))
	default:
		writeError(w, http.StatusBadRequest, "Search requires 'tag' or 'q' parameter")
	}
}

func (h *handler) globalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GlobalStats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", globalStatsDTO{TotalEvents: stats.TotalEvents, TotalVideos: stats.TotalVideos})
}

// writeStoreError maps store-layer sentinel errors to spec §7's API error
// kinds: not-found becomes 404, a tripped circuit breaker becomes 503, and
// anything else is an unexpected internal error (full detail logged,
// generic message to the caller).
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		logError(err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseKind parses the optional kind query parameter; an empty or
// unparseable value means "no kind filter" (0, since 0 is not a valid
// Nostr kind for videos).
func parseKind(raw string) uint16 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

// parseLimit parses the optional limit query parameter; an empty or
// unparseable value defers to each query's own default (store.clampLimit
// treats a non-positive value as "use the default").
func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
