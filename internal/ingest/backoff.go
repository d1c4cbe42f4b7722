// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package ingest

import (
	"math/rand"
	"time"
)

// Backoff implements spec §4.3's reconnection ladder: start at 1s, double
// on every failure, cap at 60s, with jitter so many instances restarting
// at once don't all hammer the relay in lockstep. A call to Reset restores
// the ladder to its starting rung, which happens on every successful
// (re)connection.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff returns a Backoff at its starting rung (1s, capped at 60s).
func NewBackoff() *Backoff {
	return &Backoff{base: time.Second, max: 60 * time.Second, current: time.Second}
}

// Next returns the delay to sleep before the next attempt, with jitter
// drawn uniformly from [current/2, current], and advances the ladder.
func (b *Backoff) Next() time.Duration {
	d := b.current
	half := d / 2
	jittered := half
	if half > 0 {
		jittered += time.Duration(rand.Int63n(int64(half) + 1))
	}
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return jittered
}

// Reset restores the ladder to its starting rung.
func (b *Backoff) Reset() {
	b.current = b.base
}
