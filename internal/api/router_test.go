// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andotherstuff/funnel/internal/config"
)

func TestHealth_ReturnsOKWithNoStore(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics_IsServedAndPublic(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{Token: "secret"})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAPIRoutes_NoTokenConfigured_SkipsAuth(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRoutes_MissingAuthHeader(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{Token: "secret"})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing authorization header"}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAPIRoutes_WrongScheme(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{Token: "secret"})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Basic secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}

func TestAPIRoutes_WrongToken(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{Token: "secret"})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}

func TestAPIRoutes_CorrectToken(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{Token: "secret"})
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVideos_SetsCacheControl(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
}

func TestVideoStats_ShortCacheWindow(t *testing.T) {
	router := NewRouter(&fakeStore{}, config.APIConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/videos/abc/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
}
