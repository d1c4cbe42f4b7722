// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package nostr

import "time"

// Row is the verbatim-plus-provenance shape Funnel writes to the store's
// events_local table (spec §3). IndexedAt and RelaySource are stamped by
// the ingestion loop, not present on the wire event.
type Row struct {
	ID          string
	PubKey      string
	CreatedAt   int64
	Kind        Kind
	Content     string
	Sig         string
	Tags        Tags
	IndexedAt   time.Time
	RelaySource string
}

// ToRow stamps an Event with ingestion provenance, producing the row the
// store client will insert.
func (e *Event) ToRow(indexedAt time.Time, relaySource string) Row {
	return Row{
		ID:          e.ID,
		PubKey:      e.PubKey,
		CreatedAt:   e.CreatedAt,
		Kind:        e.Kind,
		Content:     e.Content,
		Sig:         e.Sig,
		Tags:        e.Tags,
		IndexedAt:   indexedAt,
		RelaySource: relaySource,
	}
}

// TagsAsSlices flattens Tags into [][]string for drivers (e.g. ClickHouse's
// Array(Array(String)) column binding) that don't understand the named Tag
// type directly.
func (t Tags) TagsAsSlices() [][]string {
	out := make([][]string, len(t))
	for i, tag := range t {
		out[i] = []string(tag)
	}
	return out
}
