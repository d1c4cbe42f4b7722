// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package ingest

import (
	"io"

	"github.com/rs/zerolog"
)

// testLogger returns a zerolog.Logger that discards output, for state
// machine tests that don't assert on log lines.
func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
