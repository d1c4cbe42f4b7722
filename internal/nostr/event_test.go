// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package nostr

import "testing"

func hex(ch byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ch
	}
	return string(b)
}

func validEvent() *Event {
	return &Event{
		ID:        hex('a', 64),
		PubKey:    hex('b', 64),
		CreatedAt: 1700000000,
		Kind:      KindLongVideo,
		Content:   "",
		Sig:       hex('c', 128),
		Tags: Tags{
			{"d", "slug-1"},
			{"title", "Hello"},
			{"thumb", "http://t/"},
		},
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"valid event", func(*Event) {}, false},
		{"short id", func(e *Event) { e.ID = "abc" }, true},
		{"uppercase pubkey", func(e *Event) { e.PubKey = hex('B', 64) }, true},
		{"wrong sig length", func(e *Event) { e.Sig = hex('c', 127) }, true},
		{"negative created_at", func(e *Event) { e.CreatedAt = -1 }, true},
		{"nil tags", func(e *Event) { e.Tags = nil }, true},
		{"empty inner tag", func(e *Event) { e.Tags = Tags{{}} }, true},
		{"empty outer tags ok", func(e *Event) { e.Tags = Tags{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(ev)
			err := ev.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExtractVideoMeta(t *testing.T) {
	tags := Tags{
		{"d", "slug-1"},
		{"title", "Hello"},
		{"thumb", "http://t/"},
	}

	meta := ExtractVideoMeta(tags)
	if meta.DTag != "slug-1" {
		t.Errorf("DTag = %q, want slug-1", meta.DTag)
	}
	if meta.Title != "Hello" {
		t.Errorf("Title = %q, want Hello", meta.Title)
	}
	if meta.Thumbnail != "http://t/" {
		t.Errorf("Thumbnail = %q, want http://t/", meta.Thumbnail)
	}
	if meta.VideoURL != "" {
		t.Errorf("VideoURL = %q, want empty", meta.VideoURL)
	}
}

func TestExtractVideoMeta_FirstMatchWins(t *testing.T) {
	tags := Tags{
		{"title", "First"},
		{"title", "Second"},
	}
	meta := ExtractVideoMeta(tags)
	if meta.Title != "First" {
		t.Errorf("Title = %q, want First (first match wins)", meta.Title)
	}
}

func TestTags_ReferencedEventIDs(t *testing.T) {
	tags := Tags{
		{"e", hex('1', 64)},
		{"p", hex('2', 64)},
		{"e", hex('3', 64)},
	}
	ids := tags.ReferencedEventIDs()
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if ids[0] != hex('1', 64) || ids[1] != hex('3', 64) {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestTags_Hashtags(t *testing.T) {
	tags := Tags{{"t", "nostr"}, {"t", "video"}, {"d", "ignored"}}
	tagsOut := tags.Hashtags()
	if len(tagsOut) != 2 || tagsOut[0] != "nostr" || tagsOut[1] != "video" {
		t.Errorf("unexpected hashtags: %v", tagsOut)
	}
}

func TestKind_IsVideo(t *testing.T) {
	if !KindLongVideo.IsVideo() || !KindShortVideo.IsVideo() {
		t.Error("expected video kinds to report IsVideo")
	}
	if KindNote.IsVideo() {
		t.Error("kind 1 should not be a video")
	}
}

func TestKind_IsAddressable(t *testing.T) {
	if !KindLongVideo.IsAddressable() {
		t.Error("34235 should be addressable")
	}
	if KindNote.IsAddressable() {
		t.Error("kind 1 should not be addressable")
	}
}
