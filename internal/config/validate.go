// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net/url"
)

// ValidateClickHouse checks the settings both processes require to reach
// the analytics store (spec §6).
func (c *Config) ValidateClickHouse() error {
	if c.ClickHouse.URL == "" {
		return fmt.Errorf("CLICKHOUSE_URL is required")
	}
	if _, err := url.Parse(c.ClickHouse.URL); err != nil {
		return fmt.Errorf("CLICKHOUSE_URL is invalid: %w", err)
	}
	if c.ClickHouse.Password == "" {
		return fmt.Errorf("CLICKHOUSE_PASSWORD is required")
	}
	return nil
}

// ValidateIngestion checks the settings the ingestion process requires in
// addition to the store settings (spec §6).
func (c *Config) ValidateIngestion() error {
	if err := c.ValidateClickHouse(); err != nil {
		return err
	}
	if c.Relay.URL == "" {
		return fmt.Errorf("RELAY_URL is required")
	}
	u, err := url.Parse(c.Relay.URL)
	if err != nil {
		return fmt.Errorf("RELAY_URL is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("RELAY_URL must use the ws:// or wss:// scheme, got %q", u.Scheme)
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.Batch.Size)
	}
	if c.Batch.IntervalMS <= 0 {
		return fmt.Errorf("BATCH_INTERVAL_MS must be positive, got %d", c.Batch.IntervalMS)
	}
	return nil
}

// ValidateAPI checks the settings the query API process requires (spec
// §6). API_TOKEN is optional — its absence disables auth rather than
// failing startup.
func (c *Config) ValidateAPI() error {
	return c.ValidateClickHouse()
}
