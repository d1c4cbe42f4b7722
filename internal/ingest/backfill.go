// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/metrics"
	"github.com/andotherstuff/funnel/internal/nostr"
	"github.com/andotherstuff/funnel/internal/relay"
)

// DefaultBackfillLimit is the page size spec §4.3 defaults backfill to.
const DefaultBackfillLimit = 5000

// BackfillLoop paginates the relay's historical archive walking backwards
// in time, per spec §4.3's backfill mode. It is safe to re-run: the store
// deduplicates by id, so a restart simply re-requests pages it has already
// (re)delivered.
type BackfillLoop struct {
	RelayURL string
	Kinds    []nostr.Kind
	Limit    int
	Batcher  *Batcher

	dialFunc func(ctx context.Context, url string) (relayConn, error)
}

// NewBackfillLoop constructs a BackfillLoop against a real relay
// connection. A zero Limit uses DefaultBackfillLimit.
func NewBackfillLoop(relayURL string, kinds []nostr.Kind, limit int, batcher *Batcher) *BackfillLoop {
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}
	return &BackfillLoop{
		RelayURL: relayURL,
		Kinds:    kinds,
		Limit:    limit,
		Batcher:  batcher,
		dialFunc: func(ctx context.Context, url string) (relayConn, error) {
			return relay.Dial(ctx, url)
		},
	}
}

// Run walks the relay's archive backwards from the current wall-clock time
// until a page comes back empty, at which point backfill is complete.
func (b *BackfillLoop) Run(ctx context.Context) error {
	log := logging.With().Str("component", "ingest.backfill").Logger()

	until := time.Now().Unix()
	backoff := NewBackoff()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := b.fetchPage(ctx, until)
		if err != nil {
			log.Error().Err(err).Int64("until", until).Msg("backfill page fetch failed, retrying")
			select {
			case <-time.After(backoff.Next()):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		backoff.Reset()

		if len(events) == 0 {
			log.Info().Int64("until", until).Msg("backfill reached empty page, stopping")
			return nil
		}

		minCreatedAt := events[0].CreatedAt
		for _, ev := range events {
			if ev.CreatedAt < minCreatedAt {
				minCreatedAt = ev.CreatedAt
			}
			row := ev.ToRow(time.Now().UTC(), b.RelayURL)
			if err := b.Batcher.Add(ctx, row); err != nil {
				return err
			}
		}

		log.Info().Int("count", len(events)).Int64("next_until", minCreatedAt-1).Msg("backfill page ingested")
		until = minCreatedAt - 1
	}
}

// fetchPage opens one fresh subscription, collects events until EOSE, and
// closes it (spec §4.3).
func (b *BackfillLoop) fetchPage(ctx context.Context, until int64) ([]*nostr.Event, error) {
	conn, err := b.dialFunc(ctx, b.RelayURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	subID, err := relay.NewSubscriptionID()
	if err != nil {
		return nil, err
	}

	untilCopy := until
	filter := nostr.Filter{Until: &untilCopy, Limit: b.Limit}
	if len(b.Kinds) > 0 {
		filter.Kinds = b.Kinds
	}
	if err := conn.Subscribe(subID, filter); err != nil {
		return nil, err
	}

	var events []*nostr.Event
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, relay.ErrMalformedFrame) {
				continue
			}
			return nil, err
		}
		switch env.Kind {
		case nostr.EnvelopeEvent:
			metrics.IngestionEventsReceivedTotal.WithLabelValues(strconv.Itoa(int(env.Event.Kind))).Inc()
			events = append(events, env.Event)
		case nostr.EnvelopeEOSE:
			return events, nil
		}
	}
}
