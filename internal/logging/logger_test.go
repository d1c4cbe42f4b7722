// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInit_LevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "info"}) })

	Info().Msg("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected no output at warn level for an info log, got %q", buf.String())
	}

	Warn().Msg("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn log to appear, got %q", buf.String())
	}
}

func TestWith_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "info"}) })

	l := With().Str("component", "ingest").Logger()
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"ingest"`) {
		t.Errorf("expected component field in output, got %q", buf.String())
	}
}
