// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Package config loads Funnel's environment-variable configuration (spec
// §6) using Koanf v2, following the teacher's layered-provider approach:
// built-in defaults, then an optional YAML file, then environment
// variables (highest priority).
package config

import "time"

// Config holds every setting either Funnel process reads. Both the
// ingestion process and the API process load the same Config and use the
// sections relevant to them; unused sections are simply ignored.
type Config struct {
	Relay      RelayConfig      `koanf:"relay"`
	ClickHouse ClickHouseConfig `koanf:"clickhouse"`
	Batch      BatchConfig      `koanf:"batch"`
	Backfill   BackfillConfig   `koanf:"backfill"`
	API        APIConfig        `koanf:"api"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// RelayConfig configures the upstream Nostr relay connection (ingestion
// process only).
type RelayConfig struct {
	URL string `koanf:"url"`
}

// ClickHouseConfig configures the analytics store client.
type ClickHouseConfig struct {
	URL      string `koanf:"url"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// BatchConfig configures the ingestion loop's batching policy (spec §4.3).
// IntervalMS mirrors the BATCH_INTERVAL_MS environment variable directly
// (milliseconds, not a Go duration string) so the env provider never needs
// a custom unmarshal hook.
type BatchConfig struct {
	Size       int `koanf:"size"`
	IntervalMS int `koanf:"interval_ms"`
}

// Interval returns the batch max-age as a time.Duration.
func (b BatchConfig) Interval() time.Duration {
	return time.Duration(b.IntervalMS) * time.Millisecond
}

// BackfillConfig toggles backfill mode (spec §4.3).
type BackfillConfig struct {
	Enabled bool `koanf:"enabled"`
}

// APIConfig configures the query API process (spec §4.4). Port is not part
// of spec §6's required table (the default is 8080 per spec §6) but is
// exposed for operators who need to rebind it, matching the teacher's habit
// of making every bound port overridable.
type APIConfig struct {
	Token string `koanf:"token"`
	Port  int    `koanf:"port"`
}

// MetricsConfig configures the ingestion process's standalone metrics
// listener (spec §6: default port 9090).
type MetricsConfig struct {
	Port int `koanf:"port"`
}

// LoggingConfig configures the shared logging package.
type LoggingConfig struct {
	Level string `koanf:"level"`
}
