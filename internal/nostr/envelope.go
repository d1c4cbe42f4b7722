// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package nostr

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// EnvelopeKind identifies which of the relay's wire message shapes an
// envelope carries (spec §4.1).
type EnvelopeKind string

const (
	EnvelopeEvent  EnvelopeKind = "EVENT"
	EnvelopeEOSE   EnvelopeKind = "EOSE"
	EnvelopeNotice EnvelopeKind = "NOTICE"
	EnvelopeOK     EnvelopeKind = "OK"
	EnvelopeReq    EnvelopeKind = "REQ"
	EnvelopeClose  EnvelopeKind = "CLOSE"
)

// Envelope is a decoded relay message: a JSON array whose first element is
// a command string. Funnel only ever receives EVENT, EOSE, NOTICE and OK on
// a subscription socket; it only ever sends REQ and CLOSE.
type Envelope struct {
	Kind EnvelopeKind

	// SubscriptionID is populated for EVENT and EOSE envelopes.
	SubscriptionID string

	// Event is populated for EVENT envelopes.
	Event *Event

	// Notice is populated for NOTICE envelopes.
	Notice string

	// OKEventID, OKAccepted and OKReason are populated for OK envelopes.
	OKEventID  string
	OKAccepted bool
	OKReason   string
}

// ParseEnvelope decodes a raw relay frame. An envelope that fails to parse,
// or whose inner event object fails schema validation, returns an error;
// the ingestion loops skip such a frame without closing the connection
// (spec §4.1, §7). The live loop logs it at warn; backfill skips it without
// logging. No counter of malformed frames is kept.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("decode envelope array: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty envelope array")
	}

	var cmd string
	if err := json.Unmarshal(parts[0], &cmd); err != nil {
		return nil, fmt.Errorf("decode envelope command: %w", err)
	}

	switch EnvelopeKind(cmd) {
	case EnvelopeEvent:
		return parseEventEnvelope(parts)
	case EnvelopeEOSE:
		return parseEOSEEnvelope(parts)
	case EnvelopeNotice:
		return parseNoticeEnvelope(parts)
	case EnvelopeOK:
		return parseOKEnvelope(parts)
	default:
		return nil, fmt.Errorf("unknown envelope command: %q", cmd)
	}
}

func parseEventEnvelope(parts []json.RawMessage) (*Envelope, error) {
	if len(parts) != 3 {
		return nil, fmt.Errorf("EVENT envelope: expected 3 elements, got %d", len(parts))
	}
	var subID string
	if err := json.Unmarshal(parts[1], &subID); err != nil {
		return nil, fmt.Errorf("EVENT envelope: decode subscription id: %w", err)
	}
	var ev Event
	if err := json.Unmarshal(parts[2], &ev); err != nil {
		return nil, fmt.Errorf("EVENT envelope: decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("EVENT envelope: invalid event: %w", err)
	}
	return &Envelope{Kind: EnvelopeEvent, SubscriptionID: subID, Event: &ev}, nil
}

func parseEOSEEnvelope(parts []json.RawMessage) (*Envelope, error) {
	if len(parts) != 2 {
		return nil, fmt.Errorf("EOSE envelope: expected 2 elements, got %d", len(parts))
	}
	var subID string
	if err := json.Unmarshal(parts[1], &subID); err != nil {
		return nil, fmt.Errorf("EOSE envelope: decode subscription id: %w", err)
	}
	return &Envelope{Kind: EnvelopeEOSE, SubscriptionID: subID}, nil
}

func parseNoticeEnvelope(parts []json.RawMessage) (*Envelope, error) {
	if len(parts) != 2 {
		return nil, fmt.Errorf("NOTICE envelope: expected 2 elements, got %d", len(parts))
	}
	var text string
	if err := json.Unmarshal(parts[1], &text); err != nil {
		return nil, fmt.Errorf("NOTICE envelope: decode text: %w", err)
	}
	return &Envelope{Kind: EnvelopeNotice, Notice: text}, nil
}

func parseOKEnvelope(parts []json.RawMessage) (*Envelope, error) {
	if len(parts) != 4 {
		return nil, fmt.Errorf("OK envelope: expected 4 elements, got %d", len(parts))
	}
	var id string
	var accepted bool
	var reason string
	if err := json.Unmarshal(parts[1], &id); err != nil {
		return nil, fmt.Errorf("OK envelope: decode event id: %w", err)
	}
	if err := json.Unmarshal(parts[2], &accepted); err != nil {
		return nil, fmt.Errorf("OK envelope: decode accepted flag: %w", err)
	}
	if err := json.Unmarshal(parts[3], &reason); err != nil {
		return nil, fmt.Errorf("OK envelope: decode reason: %w", err)
	}
	return &Envelope{Kind: EnvelopeOK, OKEventID: id, OKAccepted: accepted, OKReason: reason}, nil
}

// Filter is a Nostr subscription predicate object. Only the fields Funnel's
// two producer modes actually send are represented (spec §4.3).
type Filter struct {
	Since *int64 `json:"since,omitempty"`
	Until *int64 `json:"until,omitempty"`
	Kinds []Kind `json:"kinds,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ReqMessage builds a ["REQ", <sub_id>, <filter>] frame.
func ReqMessage(subID string, filter Filter) ([]byte, error) {
	return json.Marshal([3]interface{}{EnvelopeReq, subID, filter})
}

// CloseMessage builds a ["CLOSE", <sub_id>] frame.
func CloseMessage(subID string) ([]byte, error) {
	return json.Marshal([2]interface{}{EnvelopeClose, subID})
}
