// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// videoProjectionCTE resolves the "current" version of every addressable
// video event (kinds 34235/34236) by preferring the latest created_at per
// (pubkey, kind, d tag), per spec §9's read-time resolution rule, and
// pulls the d/title/thumb/url tag values out of event_tags_flat — the
// flattened-tags materialized view the store is assumed to maintain
// (spec §3, Derived tables). A video event missing a d tag falls back to
// partitioning on its own id so it never collapses into an unrelated
// group.
const videoProjectionCTE = `
WITH
	d_tags AS (
		SELECT event_id, argMin(value, position) AS d_tag
		FROM event_tags_flat WHERE tag_name = 'd' GROUP BY event_id
	),
	title_tags AS (
		SELECT event_id, argMin(value, position) AS title
		FROM event_tags_flat WHERE tag_name = 'title' GROUP BY event_id
	),
	thumb_tags AS (
		SELECT event_id, argMin(value, position) AS thumbnail
		FROM event_tags_flat WHERE tag_name = 'thumb' GROUP BY event_id
	),
	url_tags AS (
		SELECT event_id, argMin(value, position) AS video_url
		FROM event_tags_flat WHERE tag_name = 'url' GROUP BY event_id
	),
	videos AS (
		SELECT id, pubkey, created_at, kind, d_tag, title, thumbnail, video_url FROM (
			SELECT
				e.id, e.pubkey, e.created_at, e.kind,
				coalesce(d.d_tag, '') AS d_tag,
				coalesce(t.title, '') AS title,
				coalesce(th.thumbnail, '') AS thumbnail,
				coalesce(u.video_url, '') AS video_url,
				row_number() OVER (
					PARTITION BY e.pubkey, e.kind, coalesce(d.d_tag, e.id)
					ORDER BY e.created_at DESC
				) AS rn
			FROM events_local e
			LEFT JOIN d_tags d ON d.event_id = e.id
			LEFT JOIN title_tags t ON t.event_id = e.id
			LEFT JOIN thumb_tags th ON th.event_id = e.id
			LEFT JOIN url_tags u ON u.event_id = e.id
			WHERE e.kind IN (34235, 34236)
		) ranked WHERE rn = 1
	),
	counts AS (
		SELECT
			v.id,
			coalesce(r.count, 0) AS reactions,
			coalesce(c.count, 0) AS comments,
			coalesce(rp.count, 0) AS reposts
		FROM videos v
		LEFT JOIN reaction_counts r ON r.event_id = v.id
		LEFT JOIN comment_counts c ON c.event_id = v.id
		LEFT JOIN repost_counts rp ON rp.event_id = v.id
	)
`

// videoRow mirrors the columns every video query below selects.
type videoRow struct {
	ID        string    `ch:"id"`
	PubKey    string    `ch:"pubkey"`
	CreatedAt time.Time `ch:"created_at"`
	Kind      uint16    `ch:"kind"`
	DTag      string    `ch:"d_tag"`
	Title     string    `ch:"title"`
	Thumbnail string    `ch:"thumbnail"`
	VideoURL  string    `ch:"video_url"`
	Reactions int64     `ch:"reactions"`
	Comments  int64     `ch:"comments"`
	Reposts   int64     `ch:"reposts"`
}

func (r videoRow) toStats() VideoStats {
	return VideoStats{
		ID:              r.ID,
		PubKey:          r.PubKey,
		Kind:            r.Kind,
		CreatedAt:       r.CreatedAt,
		DTag:            r.DTag,
		Title:           r.Title,
		Thumbnail:       r.Thumbnail,
		VideoURL:        r.VideoURL,
		Reactions:       r.Reactions,
		Comments:        r.Comments,
		Reposts:         r.Reposts,
		EngagementScore: engagementScore(r.Reactions, r.Comments, r.Reposts),
	}
}

// VideoStatsByID implements spec §4.2's video_stats_by_id(id) -> VideoStats.
func (db *DB) VideoStatsByID(ctx context.Context, id string) (VideoStats, error) {
	return withReadBreaker(db, func() (VideoStats, error) {
		query := videoProjectionCTE + `
			SELECT v.id, v.pubkey, v.created_at, v.kind, v.d_tag, v.title, v.thumbnail, v.video_url,
				c.reactions, c.comments, c.reposts
			FROM videos v INNER JOIN counts c ON c.id = v.id
			WHERE v.id = ?
			LIMIT 1
		`
		var rows []videoRow
		if err := db.conn.Select(ctx, &rows, query, id); err != nil {
			return VideoStats{}, fmt.Errorf("video_stats_by_id: %w", err)
		}
		if len(rows) == 0 {
			return VideoStats{}, ErrNotFound
		}
		return rows[0].toStats(), nil
	})
}

// defaultVideosLimit is the limit GET /api/videos applies when the caller
// omits one (spec §4.4: "Default sort=recent, limit=50, cap 100").
const defaultVideosLimit = 50

// VideosRecent implements spec §4.2's videos_recent(kind?, limit) ->
// []VideoStats, ordered by created_at descending.
func (db *DB) VideosRecent(ctx context.Context, kind uint16, limit int) ([]VideoStats, error) {
	limit = clampLimit(limit, defaultVideosLimit)
	return withReadBreaker(db, func() ([]VideoStats, error) {
		query := videoProjectionCTE + `
			SELECT v.id, v.pubkey, v.created_at, v.kind, v.d_tag, v.title, v.thumbnail, v.video_url,
				c.reactions, c.comments, c.reposts
			FROM videos v INNER JOIN counts c ON c.id = v.id
			WHERE (? = 0 OR v.kind = ?)
			ORDER BY v.created_at DESC
			LIMIT ?
		`
		var rows []videoRow
		if err := db.conn.Select(ctx, &rows, query, kind, kind, limit); err != nil {
			return nil, fmt.Errorf("videos_recent: %w", err)
		}
		return toStatsSlice(rows), nil
	})
}

// trendingWindow bounds videos_trending to videos created in the last 7
// days, matching the "recent enough to still be trending" intuition spec
// §4.2 describes without pinning an exact constant elsewhere.
const trendingWindow = 7 * 24 * time.Hour

// VideosTrending implements spec §4.2's videos_trending(kind?, limit) ->
// []VideoStats. trending_score = engagement_score * exp(-hours_since/24) is
// computed here in Go, not SQL, so the decay formula lives next to
// engagementScore as one auditable unit (spec §9: these weights must never
// change silently).
func (db *DB) VideosTrending(ctx context.Context, kind uint16, limit int) ([]VideoStats, error) {
	limit = clampLimit(limit, defaultVideosLimit)
	return withReadBreaker(db, func() ([]VideoStats, error) {
		query := videoProjectionCTE + `
			SELECT v.id, v.pubkey, v.created_at, v.kind, v.d_tag, v.title, v.thumbnail, v.video_url,
				c.reactions, c.comments, c.reposts
			FROM videos v INNER JOIN counts c ON c.id = v.id
			WHERE v.created_at >= ? AND (? = 0 OR v.kind = ?)
		`
		var rows []videoRow
		cutoff := time.Now().Add(-trendingWindow).UTC()
		if err := db.conn.Select(ctx, &rows, query, cutoff, kind, kind); err != nil {
			return nil, fmt.Errorf("videos_trending: %w", err)
		}

		now := time.Now().UTC()
		stats := make([]VideoStats, len(rows))
		for i, r := range rows {
			s := r.toStats()
			score := trendingScore(s.EngagementScore, now.Sub(r.CreatedAt))
			s.TrendingScore = &score
			stats[i] = s
		}
		sort.Slice(stats, func(i, j int) bool { return *stats[i].TrendingScore > *stats[j].TrendingScore })
		if len(stats) > limit {
			stats = stats[:limit]
		}
		return stats, nil
	})
}

// trendingScore implements trending_score = engagement_score * e^(-Δh/24).
func trendingScore(engagement int64, age time.Duration) float64 {
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}
	return float64(engagement) * math.Exp(-hours/24)
}

// VideosByAuthor implements spec §4.2's videos_by_author(pubkey, limit).
func (db *DB) VideosByAuthor(ctx context.Context, pubkey string, limit int) ([]VideoStats, error) {
	limit = clampLimit(limit, 20)
	return withReadBreaker(db, func() ([]VideoStats, error) {
		query := videoProjectionCTE + `
			SELECT v.id, v.pubkey, v.created_at, v.kind, v.d_tag, v.title, v.thumbnail, v.video_url,
				c.reactions, c.comments, c.reposts
			FROM videos v INNER JOIN counts c ON c.id = v.id
			WHERE v.pubkey = ?
			ORDER BY v.created_at DESC
			LIMIT ?
		`
		var rows []videoRow
		if err := db.conn.Select(ctx, &rows, query, pubkey, limit); err != nil {
			return nil, fmt.Errorf("videos_by_author: %w", err)
		}
		return toStatsSlice(rows), nil
	})
}

// SearchByHashtag implements spec §4.2's search_by_hashtag(tag, limit),
// matching against 't' tags on video events only.
func (db *DB) SearchByHashtag(ctx context.Context, tag string, limit int) ([]HashtagHit, error) {
	limit = clampLimit(limit, 20)
	return withReadBreaker(db, func() ([]HashtagHit, error) {
		query := `
			SELECT DISTINCT f.event_id AS event_id, f.value AS tag, e.created_at AS created_at
			FROM event_tags_flat f
			INNER JOIN events_local e ON e.id = f.event_id
			WHERE f.tag_name = 't' AND f.value = ? AND e.kind IN (34235, 34236)
			ORDER BY e.created_at DESC
			LIMIT ?
		`
		type row struct {
			EventID   string    `ch:"event_id"`
			Tag       string    `ch:"tag"`
			CreatedAt time.Time `ch:"created_at"`
		}
		var rows []row
		if err := db.conn.Select(ctx, &rows, query, tag, limit); err != nil {
			return nil, fmt.Errorf("search_by_hashtag: %w", err)
		}
		hits := make([]HashtagHit, len(rows))
		for i, r := range rows {
			hits[i] = HashtagHit{EventID: r.EventID, Tag: r.Tag, CreatedAt: r.CreatedAt}
		}
		return hits, nil
	})
}

// SearchByText implements spec §4.2's search_by_text(query, limit): a
// case-insensitive substring match against title and content.
func (db *DB) SearchByText(ctx context.Context, q string, limit int) ([]VideoStats, error) {
	limit = clampLimit(limit, 20)
	return withReadBreaker(db, func() ([]VideoStats, error) {
		query := videoProjectionCTE + `
			SELECT v.id, v.pubkey, v.created_at, v.kind, v.d_tag, v.title, v.thumbnail, v.video_url,
				c.reactions, c.comments, c.reposts
			FROM videos v
			INNER JOIN counts c ON c.id = v.id
			INNER JOIN events_local e ON e.id = v.id
			WHERE positionCaseInsensitive(v.title, ?) > 0 OR positionCaseInsensitive(e.content, ?) > 0
			ORDER BY v.created_at DESC
			LIMIT ?
		`
		var rows []videoRow
		if err := db.conn.Select(ctx, &rows, query, q, q, limit); err != nil {
			return nil, fmt.Errorf("search_by_text: %w", err)
		}
		return toStatsSlice(rows), nil
	})
}

// GlobalStats implements spec §4.2's global_stats(). TotalVideos counts
// distinct addressable videos after resolving replacements, not raw kind
// 34235/34236 events, since a replaced draft and its final version are the
// same video (spec §9).
func (db *DB) GlobalStats(ctx context.Context) (GlobalStats, error) {
	return withReadBreaker(db, func() (GlobalStats, error) {
		query := videoProjectionCTE + `
			SELECT (SELECT count() FROM events_local) AS total_events,
				(SELECT count() FROM videos) AS total_videos
		`
		type row struct {
			TotalEvents int64 `ch:"total_events"`
			TotalVideos int64 `ch:"total_videos"`
		}
		var rows []row
		if err := db.conn.Select(ctx, &rows, query); err != nil {
			return GlobalStats{}, fmt.Errorf("global_stats: %w", err)
		}
		if len(rows) == 0 {
			return GlobalStats{}, nil
		}
		return GlobalStats{TotalEvents: rows[0].TotalEvents, TotalVideos: rows[0].TotalVideos}, nil
	})
}

// LatestEventAt implements spec §4.3's resume-point discovery: the ingestion
// loop asks the store for the newest created_at it has already indexed and
// resumes its subscription `since` a buffer before that point. found is false when the
// store holds no events yet.
func (db *DB) LatestEventAt(ctx context.Context) (time.Time, bool, error) {
	result, err := withReadBreaker(db, func() (latestEventResult, error) {
		var rows []struct {
			Max *time.Time `ch:"max_created_at"`
		}
		query := `SELECT max(created_at) AS max_created_at FROM events_local`
		if err := db.conn.Select(ctx, &rows, query); err != nil {
			return latestEventResult{}, fmt.Errorf("latest_event_at: %w", err)
		}
		if len(rows) == 0 || rows[0].Max == nil {
			return latestEventResult{}, nil
		}
		return latestEventResult{at: *rows[0].Max, found: true}, nil
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return result.at, result.found, nil
}

type latestEventResult struct {
	at    time.Time
	found bool
}

func toStatsSlice(rows []videoRow) []VideoStats {
	stats := make([]VideoStats, len(rows))
	for i, r := range rows {
		stats[i] = r.toStats()
	}
	return stats
}
