// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/andotherstuff/funnel/internal/logging"
	"github.com/andotherstuff/funnel/internal/metrics"
	"github.com/andotherstuff/funnel/internal/nostr"
)

// FlushFunc writes a batch of rows to the store. A non-nil error means the
// batch was not durably written and must be retried.
type FlushFunc func(ctx context.Context, rows []nostr.Row) error

// Batcher implements spec §4.3's batching policy: flush on whichever
// happens first, the buffer reaching size or the oldest buffered event
// aging past interval. The inbound channel is bounded at 2×size so a slow
// or failing store applies backpressure to the reader instead of letting
// memory grow unbounded.
type Batcher struct {
	size     int
	interval time.Duration
	flush    FlushFunc

	in          chan nostr.Row
	flushSignal chan chan struct{}

	wg sync.WaitGroup
}

// NewBatcher constructs a Batcher. Call Run in its own goroutine before
// calling Add.
func NewBatcher(size int, interval time.Duration, flush FlushFunc) *Batcher {
	return &Batcher{
		size:        size,
		interval:    interval,
		flush:       flush,
		in:          make(chan nostr.Row, 2*size),
		flushSignal: make(chan chan struct{}),
	}
}

// Add enqueues a row, blocking if the buffer is at its backpressure
// watermark until room frees up or ctx is done.
func (b *Batcher) Add(ctx context.Context, row nostr.Row) error {
	select {
	case b.in <- row:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlushNow forces an out-of-band flush of whatever is currently buffered,
// used by the ingestion state machine's Draining transition (spec §4.3:
// "on connection loss or shutdown signal ... flush the batcher"). It is a
// no-op if the buffer happens to be empty.
func (b *Batcher) FlushNow(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case b.flushSignal <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the batcher until ctx is canceled, at which point it performs
// one final flush against a fresh 10-second deadline (spec §4.3) before
// returning.
func (b *Batcher) Run(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	buf := make([]nostr.Row, 0, b.size)
	var oldest time.Time
	timer := time.NewTimer(b.interval)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(b.interval)
	}

	flushBuf := func(ctx context.Context) {
		if len(buf) == 0 {
			return
		}
		b.flushWithRetry(ctx, buf)
		buf = buf[:0]
		metrics.IngestionLagSeconds.Set(0)
	}

	// drainIn moves rows that Add has already handed to the channel, but
	// that Run has not yet received, into buf so a forced or final flush
	// includes them.
	drainIn := func() {
		for {
			select {
			case row := <-b.in:
				buf = append(buf, row)
			default:
				return
			}
		}
	}

	for {
		select {
		case row := <-b.in:
			if len(buf) == 0 {
				oldest = time.Now()
				resetTimer()
			}
			buf = append(buf, row)
			metrics.IngestionLagSeconds.Set(time.Since(oldest).Seconds())
			if len(buf) >= b.size {
				flushBuf(ctx)
				resetTimer()
			}

		case <-timer.C:
			flushBuf(ctx)
			timer.Reset(b.interval)

		case ack := <-b.flushSignal:
			drainIn()
			flushBuf(ctx)
			close(ack)

		case <-ctx.Done():
			drainIn()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flushBuf(shutdownCtx)
			cancel()
			return
		}
	}
}

// Wait blocks until Run has returned.
func (b *Batcher) Wait() {
	b.wg.Wait()
}

func (b *Batcher) flushWithRetry(ctx context.Context, rows []nostr.Row) {
	batch := make([]nostr.Row, len(rows))
	copy(batch, rows)

	backoff := NewBackoff()
	for {
		start := time.Now()
		err := b.flush(ctx, batch)
		metrics.IngestionClickHouseWriteLatencySeconds.Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.IngestionBatchSize.Observe(float64(len(batch)))
			metrics.IngestionEventsWrittenTotal.Add(float64(len(batch)))
			return
		}

		logging.Error().Err(err).Int("batch_size", len(batch)).Msg("batch flush failed, retrying")
		wait := backoff.Next()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}
