// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"context"

	"github.com/andotherstuff/funnel/internal/store"
)

// fakeStore is a scripted Store for handler tests, avoiding a live
// ClickHouse connection.
type fakeStore struct {
	videoStats     store.VideoStats
	videoStatsErr  error
	recent         []store.VideoStats
	recentErr      error
	trending       []store.VideoStats
	trendingErr    error
	byAuthor       []store.VideoStats
	byAuthorErr    error
	hashtagHits    []store.HashtagHit
	hashtagErr     error
	textResults    []store.VideoStats
	textErr        error
	globalStats    store.GlobalStats
	globalStatsErr error

	gotKind  uint16
	gotLimit int
}

func (f *fakeStore) VideoStatsByID(context.Context, string) (store.VideoStats, error) {
	return f.videoStats, f.videoStatsErr
}

func (f *fakeStore) VideosRecent(_ context.Context, kind uint16, limit int) ([]store.VideoStats, error) {
	f.gotKind, f.gotLimit = kind, limit
	return f.recent, f.recentErr
}

func (f *fakeStore) VideosTrending(_ context.Context, kind uint16, limit int) ([]store.VideoStats, error) {
	f.gotKind, f.gotLimit = kind, limit
	return f.trending, f.trendingErr
}

func (f *fakeStore) VideosByAuthor(context.Context, string, int) ([]store.VideoStats, error) {
	return f.byAuthor, f.byAuthorErr
}

func (f *fakeStore) SearchByHashtag(context.Context, string, int) ([]store.HashtagHit, error) {
	return f.hashtagHits, f.hashtagErr
}

func (f *fakeStore) SearchByText(context.Context, string, int) ([]store.VideoStats, error) {
	return f.textResults, f.textErr
}

func (f *fakeStore) GlobalStats(context.Context) (store.GlobalStats, error) {
	return f.globalStats, f.globalStatsErr
}
