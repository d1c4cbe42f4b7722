// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where an optional config file is
// searched, in priority order. Funnel's configuration surface is documented
// as environment-variable-only (spec §6); the file layer exists purely as
// the same override convenience the teacher's config loader offers, and is
// a no-op when none of these paths exist.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/funnel/config.yaml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		ClickHouse: ClickHouseConfig{
			User:     "default",
			Database: "nostr",
		},
		Batch: BatchConfig{
			Size:       1000,
			IntervalMS: 100,
		},
		API: APIConfig{
			Port: 8080,
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// envKoanfPaths maps the exact environment variable names from spec §6 to
// their koanf dotted path. Funnel's env vars don't follow a mechanical
// SECTION_FIELD split (BATCH_INTERVAL_MS maps to batch.interval_ms,
// BACKFILL maps to backfill.enabled), so an explicit table is clearer and
// safer than a generic transform function.
var envKoanfPaths = map[string]string{
	"RELAY_URL":           "relay.url",
	"CLICKHOUSE_URL":      "clickhouse.url",
	"CLICKHOUSE_USER":     "clickhouse.user",
	"CLICKHOUSE_PASSWORD": "clickhouse.password",
	"CLICKHOUSE_DATABASE": "clickhouse.database",
	"BATCH_SIZE":          "batch.size",
	"BATCH_INTERVAL_MS":   "batch.interval_ms",
	"BACKFILL":            "backfill.enabled",
	"API_TOKEN":           "api.token",
	"API_PORT":            "api.port",
	"METRICS_PORT":        "metrics.port",
	"LOG_LEVEL":           "logging.level",
}

// Load builds Config from defaults, an optional YAML file, and environment
// variables (env wins). It does not validate the result; callers run
// ValidateIngestion or ValidateAPI afterwards. A returned error is always a
// configuration error (spec §7) and callers should treat it as fatal.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		path, ok := envKoanfPaths[key]
		if !ok {
			return "", nil
		}
		return path, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
