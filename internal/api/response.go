// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/store"
)

// videoDTO is the wire shape for a video-bearing response (spec §4.4
// "Response shapes"): timestamps render as ISO-8601 Z, counters are
// integers, and trending_score is only present when the query computed one.
type videoDTO struct {
	ID              string   `json:"id"`
	PubKey          string   `json:"pubkey"`
	Kind            uint16   `json:"kind"`
	CreatedAt       string   `json:"created_at"`
	DTag            string   `json:"d_tag"`
	Title           string   `json:"title"`
	Thumbnail       string   `json:"thumbnail"`
	VideoURL        string   `json:"video_url"`
	Reactions       int64    `json:"reactions"`
	Comments        int64    `json:"comments"`
	Reposts         int64    `json:"reposts"`
	EngagementScore int64    `json:"engagement_score"`
	TrendingScore   *float64 `json:"trending_score,omitempty"`
}

func toVideoDTO(v store.VideoStats) videoDTO {
	return videoDTO{
		ID:              v.ID,
		PubKey:          v.PubKey,
		Kind:            v.Kind,
		CreatedAt:       v.CreatedAt.UTC().Format(time.RFC3339),
		DTag:            v.DTag,
		Title:           v.Title,
		Thumbnail:       v.Thumbnail,
		VideoURL:        v.VideoURL,
		Reactions:       v.Reactions,
		Comments:        v.Comments,
		Reposts:         v.Reposts,
		EngagementScore: v.EngagementScore,
		TrendingScore:   v.TrendingScore,
	}
}

func toVideoDTOs(videos []store.VideoStats) []videoDTO {
	dtos := make([]videoDTO, len(videos))
	for i, v := range videos {
		dtos[i] = toVideoDTO(v)
	}
	return dtos
}

type hashtagHitDTO struct {
	EventID   string `json:"event_id"`
	Tag       string `json:"tag"`
	CreatedAt string `json:"created_at"`
}

func toHashtagHitDTOs(hits []store.HashtagHit) []hashtagHitDTO {
	dtos := make([]hashtagHitDTO, len(hits))
	for i, h := range hits {
		dtos[i] = hashtagHitDTO{EventID: h.EventID, Tag: h.Tag, CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339)}
	}
	return dtos
}

type globalStatsDTO struct {
	TotalEvents int64 `json:"total_events"`
	TotalVideos int64 `json:"total_videos"`
}

// writeJSON encodes v as the response body with the given status and an
// optional Cache-Control value (empty skips the header).
func writeJSON(w http.ResponseWriter, status int, cacheControl string, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode API response")
	}
}

// writeError writes spec §4.4's flat {"error":"..."} body. Every error
// response sets Cache-Control: no-store regardless of the route it came from.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, "no-store", map[string]string{"error": message})
}
