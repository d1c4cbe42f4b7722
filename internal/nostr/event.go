// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

// Package nostr implements the subset of the Nostr base protocol Funnel
// needs: event parsing and validation, video-specific tag projection, and
// relay envelope decoding. Signature verification is intentionally out of
// scope — the upstream relay is trusted for that (see spec §1 Non-goals).
package nostr

import (
	"fmt"
	"regexp"
)

// Kind classifies a Nostr event. Only a handful of values are meaningful to
// Funnel; everything else passes through the pipeline untouched.
type Kind uint16

const (
	KindProfile       Kind = 0
	KindNote          Kind = 1
	KindRepost        Kind = 6
	KindReaction      Kind = 7
	KindGenericRepost Kind = 16
	KindLongVideo     Kind = 34235
	KindShortVideo    Kind = 34236
)

// IsVideo reports whether k identifies a long- or short-form video event.
func (k Kind) IsVideo() bool {
	return k == KindLongVideo || k == KindShortVideo
}

// IsAddressable reports whether k falls in the replaceable/addressable
// range (30000-39999). Addressable events may be superseded by a later
// event from the same pubkey with the same "d" tag; the store retains all
// versions and the query layer resolves "current" at read time (spec §3,
// §9).
func (k Kind) IsAddressable() bool {
	return k >= 30000 && k <= 39999
}

var (
	hex64Pattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)
	hex128Pattern = regexp.MustCompile(`^[0-9a-f]{128}$`)
)

// Tag is one ordered sequence of strings within an event's tag array.
// Position 0 is the tag name; position 1 is the primary value; positions
// 2+ carry tag-specific metadata.
type Tag []string

// Name returns the tag name (position 0), or "" for a malformed empty tag.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the primary value (position 1), or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is an ordered sequence of Tag.
type Tags []Tag

// First returns the primary value of the first tag with the given name, and
// whether any such tag was found. Duplicates and unknown positions are
// tolerated — first match wins (spec §4.1).
func (t Tags) First(name string) (string, bool) {
	for _, tag := range t {
		if tag.Name() == name {
			return tag.Value(), true
		}
	}
	return "", false
}

// FirstOrEmpty is First without the found flag, for call sites that treat
// absence and empty-string identically.
func (t Tags) FirstOrEmpty(name string) string {
	v, _ := t.First(name)
	return v
}

// All returns every tag with the given name, in encounter order.
func (t Tags) All(name string) []Tag {
	var out []Tag
	for _, tag := range t {
		if tag.Name() == name {
			out = append(out, tag)
		}
	}
	return out
}

// Event is the canonical Nostr record, immutable once constructed (spec §3).
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      Kind   `json:"kind"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
	Tags      Tags   `json:"tags"`
}

// Validate checks the invariants spec §3 places on a decoded event. A
// validation failure means the frame is malformed, not that the connection
// is unhealthy — callers skip the frame (spec §4.1, §7); no counter of
// rejected events is kept.
func (e *Event) Validate() error {
	if !hex64Pattern.MatchString(e.ID) {
		return fmt.Errorf("invalid event id: expected 64 lowercase hex chars")
	}
	if !hex64Pattern.MatchString(e.PubKey) {
		return fmt.Errorf("invalid pubkey: expected 64 lowercase hex chars")
	}
	if !hex128Pattern.MatchString(e.Sig) {
		return fmt.Errorf("invalid sig: expected 128 lowercase hex chars")
	}
	if e.CreatedAt < 0 {
		return fmt.Errorf("invalid created_at: must be >= 0")
	}
	if e.Tags == nil {
		return fmt.Errorf("invalid tags: must not be null")
	}
	for i, tag := range e.Tags {
		if len(tag) < 1 {
			return fmt.Errorf("invalid tags[%d]: must have at least one element", i)
		}
	}
	return nil
}

// VideoMeta is the video-specific projection over an event's tags, valid
// for events of kind 34235/34236 (spec §3).
type VideoMeta struct {
	DTag      string
	Title     string
	Thumbnail string
	VideoURL  string
}

// ExtractVideoMeta projects VideoMeta from an event's tags. It is purely a
// tag-array search: duplicates and unknown tag positions are tolerated, and
// missing fields yield empty strings (spec §4.1). Callers are responsible
// for checking e.Kind.IsVideo() first if that distinction matters; this
// function imposes no kind restriction of its own.
func ExtractVideoMeta(tags Tags) VideoMeta {
	return VideoMeta{
		DTag:      tags.FirstOrEmpty("d"),
		Title:     tags.FirstOrEmpty("title"),
		Thumbnail: tags.FirstOrEmpty("thumb"),
		VideoURL:  tags.FirstOrEmpty("url"),
	}
}

// ReferencedEventIDs returns the values of every "e" tag, in order. Used to
// attribute reactions/comments/reposts to the event(s) they reference.
func (t Tags) ReferencedEventIDs() []string {
	var ids []string
	for _, tag := range t.All("e") {
		if v := tag.Value(); v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}

// Hashtags returns the values of every "t" tag, in order.
func (t Tags) Hashtags() []string {
	var out []string
	for _, tag := range t.All("t") {
		if v := tag.Value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}
