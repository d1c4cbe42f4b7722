// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"context"

	"github.com/andotherstuff/funnel/internal/store"
)

// Store is the subset of *store.DB every handler needs, narrowed to an
// interface at the package boundary so tests can substitute a fake instead
// of a live ClickHouse connection, following the teacher's habit of small
// interfaces over its Plex/Tautulli clients.
type Store interface {
	VideoStatsByID(ctx context.Context, id string) (store.VideoStats, error)
	VideosRecent(ctx context.Context, kind uint16, limit int) ([]store.VideoStats, error)
	VideosTrending(ctx context.Context, kind uint16, limit int) ([]store.VideoStats, error)
	VideosByAuthor(ctx context.Context, pubkey string, limit int) ([]store.VideoStats, error)
	SearchByHashtag(ctx context.Context, tag string, limit int) ([]store.HashtagHit, error)
	SearchByText(ctx context.Context, q string, limit int) ([]store.VideoStats, error)
	GlobalStats(ctx context.Context) (store.GlobalStats, error)
}

var _ Store = (*store.DB)(nil)
