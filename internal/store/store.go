// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/andotherstuff/funnel/internal/config"
)

// ErrNotFound is returned by single-row queries that found nothing.
var ErrNotFound = errors.New("store: not found")

// DB wraps a ClickHouse connection and exposes Funnel's insert and read
// contracts (spec §4.2). Reads are wrapped in a circuit breaker so a
// degraded store fails API requests fast instead of hanging them; inserts
// are never wrapped, since the ingestion loop must retry forever with
// backoff rather than give up (spec §4.3, §7).
type DB struct {
	conn        clickhouse.Conn
	readBreaker *gobreaker.CircuitBreaker[any]
}

// New opens a connection to the analytics store at cfg.URL. The URL scheme
// determines whether TLS is used: https/clickhouse-secure/wss enables it,
// anything else does not (spec §6: CLICKHOUSE_URL).
func New(cfg *config.ClickHouseConfig) (*DB, error) {
	addr, tlsConfig, err := parseAddr(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse CLICKHOUSE_URL: %w", err)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Protocol: clickhouse.HTTP,
		TLS:      tlsConfig,
		Settings: clickhouse.Settings{
			// Amortizes write amplification: the server buffers inserted
			// rows server-side and acknowledges once durably queued,
			// rather than forcing a part-write per batch (spec §4.2).
			"async_insert":          1,
			"wait_for_async_insert": 1,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "clickhouse-reads",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &DB{conn: conn, readBreaker: breaker}, nil
}

func parseAddr(rawURL string) (string, *tls.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, err
	}
	if u.Host == "" {
		return "", nil, fmt.Errorf("missing host in %q", rawURL)
	}
	var tlsConfig *tls.Config
	switch u.Scheme {
	case "https", "clickhouse-secure", "wss":
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return u.Host, tlsConfig, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// withReadBreaker executes fn through the read circuit breaker, mapping a
// tripped breaker to ErrStoreUnavailable so the API layer can return 503
// instead of hanging.
func withReadBreaker[T any](db *DB, fn func() (T, error)) (T, error) {
	var zero T
	result, err := db.readBreaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return zero, err
	}
	return result.(T), nil
}

// ErrStoreUnavailable indicates the circuit breaker has tripped because
// reads have been failing consecutively; callers should surface a 503.
var ErrStoreUnavailable = errors.New("store: unavailable")
