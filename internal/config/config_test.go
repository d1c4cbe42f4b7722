// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	var unset []string
	for k, v := range kv {
		if old, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, old) })
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}
	for _, k := range unset {
		k := k
		t.Cleanup(func() { os.Unsetenv(k) })
	}
	fn()
}

func TestLoad_Defaults(t *testing.T) {
	withEnv(t, map[string]string{
		"CLICKHOUSE_URL":      "https://ch.internal:8443",
		"CLICKHOUSE_PASSWORD": "secret",
	}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ClickHouse.User != "default" {
			t.Errorf("ClickHouse.User = %q, want default", cfg.ClickHouse.User)
		}
		if cfg.ClickHouse.Database != "nostr" {
			t.Errorf("ClickHouse.Database = %q, want nostr", cfg.ClickHouse.Database)
		}
		if cfg.Batch.Size != 1000 {
			t.Errorf("Batch.Size = %d, want 1000", cfg.Batch.Size)
		}
		if cfg.Batch.IntervalMS != 100 {
			t.Errorf("Batch.IntervalMS = %d, want 100", cfg.Batch.IntervalMS)
		}
		if cfg.API.Port != 8080 {
			t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
		}
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	withEnv(t, map[string]string{
		"CLICKHOUSE_URL":      "https://ch.internal:8443",
		"CLICKHOUSE_PASSWORD": "secret",
		"BATCH_SIZE":          "2",
		"BATCH_INTERVAL_MS":   "50",
		"BACKFILL":            "1",
		"API_TOKEN":           "s3cret",
		"RELAY_URL":           "wss://relay.example/",
	}, func() {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Batch.Size != 2 {
			t.Errorf("Batch.Size = %d, want 2", cfg.Batch.Size)
		}
		if cfg.Batch.Interval().Milliseconds() != 50 {
			t.Errorf("Batch.Interval() = %v, want 50ms", cfg.Batch.Interval())
		}
		if !cfg.Backfill.Enabled {
			t.Error("Backfill.Enabled = false, want true")
		}
		if cfg.API.Token != "s3cret" {
			t.Errorf("API.Token = %q, want s3cret", cfg.API.Token)
		}
		if cfg.Relay.URL != "wss://relay.example/" {
			t.Errorf("Relay.URL = %q, want wss://relay.example/", cfg.Relay.URL)
		}
	})
}

func TestValidateIngestion_MissingRelayURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.ClickHouse.URL = "https://ch.internal:8443"
	cfg.ClickHouse.Password = "secret"

	if err := cfg.ValidateIngestion(); err == nil {
		t.Error("expected error for missing RELAY_URL")
	}
}

func TestValidateIngestion_BadScheme(t *testing.T) {
	cfg := defaultConfig()
	cfg.ClickHouse.URL = "https://ch.internal:8443"
	cfg.ClickHouse.Password = "secret"
	cfg.Relay.URL = "http://relay.example/"

	if err := cfg.ValidateIngestion(); err == nil {
		t.Error("expected error for non-ws RELAY_URL scheme")
	}
}

func TestValidateIngestion_Valid(t *testing.T) {
	cfg := defaultConfig()
	cfg.ClickHouse.URL = "https://ch.internal:8443"
	cfg.ClickHouse.Password = "secret"
	cfg.Relay.URL = "wss://relay.example/"

	if err := cfg.ValidateIngestion(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateAPI_MissingClickHousePassword(t *testing.T) {
	cfg := defaultConfig()
	cfg.ClickHouse.URL = "https://ch.internal:8443"

	if err := cfg.ValidateAPI(); err == nil {
		t.Error("expected error for missing CLICKHOUSE_PASSWORD")
	}
}

func TestValidateAPI_TokenOptional(t *testing.T) {
	cfg := defaultConfig()
	cfg.ClickHouse.URL = "https://ch.internal:8443"
	cfg.ClickHouse.Password = "secret"

	if err := cfg.ValidateAPI(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
