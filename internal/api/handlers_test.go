// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andotherstuff/funnel/internal/config"
	"github.com/andotherstuff/funnel/internal/store"
)

func TestListVideos_DefaultSortIsRecent(t *testing.T) {
	fs := &fakeStore{recent: []store.VideoStats{{ID: "a"}}}
	router := NewRouter(fs, config.APIConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"a","pubkey":"","kind":0,"created_at":"0001-01-01T00:00:00Z","d_tag":"","title":"","thumbnail":"","video_url":"","reactions":0,"comments":0,"reposts":0,"engagement_score":0}]`, rec.Body.String())
}

func TestListVideos_TrendingAndPopularBothUseTrendingQuery(t *testing.T) {
	for _, sortBy := range []string{"trending", "popular"} {
		score := 4.5
		fs := &fakeStore{trending: []store.VideoStats{{ID: "t", TrendingScore: &score}}}
		router := NewRouter(fs, config.APIConfig{})

		req := httptest.NewRequest(http.MethodGet, "/api/videos?sort="+sortBy, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "sort=%s", sortBy)
		assert.Contains(t, rec.Body.String(), `"trending_score":4.5`, "sort=%s", sortBy)
	}
}

func TestListVideos_InvalidSortIsBadRequest(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos?sort=bogus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"sort must be one of recent, trending, popular"}`, rec.Body.String())
}

func TestListVideos_KindAndLimitPassThrough(t *testing.T) {
	fs := &fakeStore{}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos?kind=34236&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 34236, fs.gotKind)
	assert.Equal(t, 10, fs.gotLimit)
}

func TestVideoStats_NotFound(t *testing.T) {
	fs := &fakeStore{videoStatsErr: store.ErrNotFound}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos/missing/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestVideoStats_StoreUnavailable(t *testing.T) {
	fs := &fakeStore{videoStatsErr: store.ErrStoreUnavailable}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos/x/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"store unavailable"}`, rec.Body.String())
}

func TestVideoStats_UnexpectedErrorIsGeneric(t *testing.T) {
	fs := &fakeStore{videoStatsErr: assertErr("boom")}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos/x/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestUserVideos_EmptyReturnsEmptyArray(t *testing.T) {
	fs := &fakeStore{byAuthor: nil}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/users/deadbeef/videos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSearch_TagWinsWhenBothPresent(t *testing.T) {
	fs := &fakeStore{
		hashtagHits: []store.HashtagHit{{EventID: "e1", Tag: "funny", CreatedAt: time.Unix(0, 0).UTC()}},
		textResults: []store.VideoStats{{ID: "should-not-be-used"}},
	}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/search?tag=funny&q=ignored", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event_id":"e1"`)
	assert.NotContains(t, rec.Body.String(), "should-not-be-used")
}

func TestSearch_NeitherParamIsBadRequest(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Search requires 'tag' or 'q' parameter"}`, rec.Body.String())
}

func TestGlobalStats_ReturnsFlatShape(t *testing.T) {
	fs := &fakeStore{globalStats: store.GlobalStats{TotalEvents: 100, TotalVideos: 7}}
	router := NewRouter(fs, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_events":100,"total_videos":7}`, rec.Body.String())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
