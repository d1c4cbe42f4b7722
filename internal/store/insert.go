// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andotherstuff/funnel/internal/nostr"
)

// InsertBatch writes rows to events_local using the store's native batch
// protocol. Delivery is at-least-once: InsertBatch neither deduplicates by
// id itself nor checks whether a row already exists; idempotency comes from
// the store's own replacement semantics, keyed on id, so retrying an
// InsertBatch call after a partial failure is always safe (spec §4.2,
// §4.3).
//
// InsertBatch is never wrapped in the read circuit breaker: the ingestion
// loop is responsible for retrying a failed flush with backoff, not giving
// up on it (spec §7).
func (db *DB) InsertBatch(ctx context.Context, rows []nostr.Row) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := db.conn.PrepareBatch(ctx, `
		INSERT INTO events_local
			(id, pubkey, created_at, kind, content, sig, tags, indexed_at, relay_source)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range rows {
		err := batch.Append(
			row.ID,
			row.PubKey,
			time.Unix(row.CreatedAt, 0).UTC(),
			uint16(row.Kind),
			row.Content,
			row.Sig,
			row.Tags.TagsAsSlices(),
			row.IndexedAt.UTC(),
			row.RelaySource,
		)
		if err != nil {
			return fmt.Errorf("append row %s: %w", row.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
