// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Package logging provides centralized zerolog-based structured logging for
// Funnel, matching the teacher's internal/logging package: a global logger
// configured once at startup, JSON output for production, and package-level
// helpers so call sites never reach for the stdlib log package.
//
// Quick start:
//
//	logging.Init(logging.Config{Level: "info"})
//	logging.Info().Str("component", "ingest").Msg("starting")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error (default: info).
	Level string
	// Output is the writer for JSON log output. Default: os.Stderr. Tests
	// set this to capture log lines.
	Output io.Writer
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

//nolint:gochecknoinits // ensures logging works before an explicit Init() call
func init() {
	initLogger(Config{Level: "info"})
}

// Init (re)configures the global logger. Safe to call multiple times; call
// it once at process startup after config.Load() succeeds.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	log = zerolog.New(w).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global zerolog.Logger instance.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With starts a child-logger builder for adding component-scoped fields,
// e.g. logging.With().Str("component", "ingest").Logger().
func With() zerolog.Context {
	return Logger().With()
}

// Debug starts a debug-level log event.
func Debug() *zerolog.Event { return Logger().Debug() }

// Info starts an info-level log event.
func Info() *zerolog.Event { return Logger().Info() }

// Warn starts a warn-level log event.
func Warn() *zerolog.Event { return Logger().Warn() }

// Error starts an error-level log event.
func Error() *zerolog.Event { return Logger().Error() }

// Fatal starts a fatal-level log event; emitting it calls os.Exit(1) after
// the log line is written. Reserved for configuration errors (spec §7).
func Fatal() *zerolog.Event { return Logger().Fatal() }
