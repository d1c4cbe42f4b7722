// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/metrics"
	"github.com/andotherstuff/funnel/internal/nostr"
	"github.com/andotherstuff/funnel/internal/relay"
	"github.com/andotherstuff/funnel/internal/store"
)

// resolveBuffer absorbs out-of-order deliveries and back-dated created_at
// values relative to ingestion time (spec §4.3's Resolving state).
const resolveBuffer = 48 * time.Hour

// latestEventSource is the subset of *store.DB the Resolving state needs;
// an interface so tests can supply a fake without a live store.
type latestEventSource interface {
	LatestEventAt(ctx context.Context) (time.Time, bool, error)
}

var _ latestEventSource = (*store.DB)(nil)

// relayConn is the subset of *relay.Client the state machine needs, an
// interface so tests can drive it against a fake relay without a real
// socket.
type relayConn interface {
	Subscribe(subID string, filter nostr.Filter) error
	ReadEnvelope() (*nostr.Envelope, error)
	Ping() error
	Close() error
}

var _ relayConn = (*relay.Client)(nil)

// LiveLoop runs spec §4.3's live-mode state machine: Resolving,
// Connecting, Subscribed, Draining, Backoff, Stopped.
type LiveLoop struct {
	RelayURL string
	Store    latestEventSource
	Batcher  *Batcher

	// dialFunc is overridable in tests; defaults to relay.Dial.
	dialFunc func(ctx context.Context, url string) (relayConn, error)
}

// NewLiveLoop constructs a LiveLoop against a real relay connection.
func NewLiveLoop(relayURL string, db *store.DB, batcher *Batcher) *LiveLoop {
	return &LiveLoop{
		RelayURL: relayURL,
		Store:    db,
		Batcher:  batcher,
		dialFunc: func(ctx context.Context, url string) (relayConn, error) {
			return relay.Dial(ctx, url)
		},
	}
}

// Run drives the state machine until ctx is canceled, at which point it
// returns ctx.Err() after draining in-flight state.
func (l *LiveLoop) Run(ctx context.Context) error {
	log := logging.With().Str("component", "ingest.live").Logger()

	since := l.resolveSince(ctx, log)
	backoff := NewBackoff()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := l.dialFunc(ctx, l.RelayURL)
		if err != nil {
			log.Error().Err(err).Msg("connect failed")
			if !l.sleepBackoff(ctx, backoff) {
				return ctx.Err()
			}
			continue
		}

		subID, err := relay.NewSubscriptionID()
		if err != nil {
			conn.Close()
			return err
		}

		if err := conn.Subscribe(subID, nostr.Filter{Since: since}); err != nil {
			log.Error().Err(err).Msg("subscribe failed")
			conn.Close()
			if !l.sleepBackoff(ctx, backoff) {
				return ctx.Err()
			}
			continue
		}

		backoff.Reset()
		log.Info().Str("subscription_id", subID).Msg("subscribed")

		readErr := l.readLoop(ctx, conn, log)
		conn.Close()
		_ = l.Batcher.FlushNow(drainCtx())

		if ctx.Err() != nil {
			log.Info().Msg("stopped")
			return ctx.Err()
		}
		log.Warn().Err(readErr).Msg("connection lost, backing off")
		if !l.sleepBackoff(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// drainCtx bounds the Draining-state flush so a wedged store can't block
// reconnection forever.
func drainCtx() context.Context {
	ctx, _ := context.WithTimeout(context.Background(), 10*time.Second)
	return ctx
}

func (l *LiveLoop) sleepBackoff(ctx context.Context, backoff *Backoff) bool {
	select {
	case <-time.After(backoff.Next()):
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *LiveLoop) resolveSince(ctx context.Context, log zerolog.Logger) *int64 {
	latest, found, err := l.Store.LatestEventAt(ctx)
	if err != nil {
		log.Error().Err(err).Msg("latest_event_at failed, starting from full tail")
		return nil
	}
	if !found {
		return nil
	}
	since := latest.Add(-resolveBuffer).Unix()
	if since < 0 {
		since = 0
	}
	return &since
}

func (l *LiveLoop) readLoop(ctx context.Context, conn relayConn, log zerolog.Logger) error {
	pingTicker := time.NewTicker(relay.KeepaliveInterval)
	defer pingTicker.Stop()

	type envResult struct {
		env *nostr.Envelope
		err error
	}
	envCh := make(chan envResult)
	go func() {
		for {
			env, err := conn.ReadEnvelope()
			if err != nil {
				if errors.Is(err, relay.ErrMalformedFrame) {
					log.Warn().Err(err).Msg("malformed relay frame, skipping")
					continue
				}
				select {
				case envCh <- envResult{err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case envCh <- envResult{env: env}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			if err := conn.Ping(); err != nil {
				return err
			}
		case res := <-envCh:
			if res.err != nil {
				return res.err
			}
			l.dispatch(ctx, res.env, log)
		}
	}
}

func (l *LiveLoop) dispatch(ctx context.Context, env *nostr.Envelope, log zerolog.Logger) {
	switch env.Kind {
	case nostr.EnvelopeEvent:
		metrics.IngestionEventsReceivedTotal.WithLabelValues(strconv.Itoa(int(env.Event.Kind))).Inc()
		row := env.Event.ToRow(time.Now().UTC(), l.RelayURL)
		if err := l.Batcher.Add(ctx, row); err != nil {
			log.Warn().Err(err).Msg("dropped event: batcher unavailable")
		}
	case nostr.EnvelopeEOSE:
		log.Debug().Str("subscription_id", env.SubscriptionID).Msg("end of stored events")
	case nostr.EnvelopeNotice:
		log.Info().Str("notice", env.Notice).Msg("relay notice")
	case nostr.EnvelopeOK:
		log.Warn().Str("event_id", env.OKEventID).Msg("unexpected OK on subscription socket")
	}
}
