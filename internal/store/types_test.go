// Funnel - Nostr Video Analytics Ingestion and Query Service
// SPDX-License-Identifier: MIT

package store

import "testing"

func TestClampLimit(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		def       int
		want      int
	}{
		{"zero uses default", 0, 20, 20},
		{"negative uses default", -5, 20, 20},
		{"within bound passes through", 50, 20, 50},
		{"exceeds MaxLimit is capped", 1000, 20, MaxLimit},
		{"exactly MaxLimit passes through", MaxLimit, 20, MaxLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clampLimit(tc.requested, tc.def); got != tc.want {
				t.Errorf("clampLimit(%d, %d) = %d, want %d", tc.requested, tc.def, got, tc.want)
			}
		})
	}
}

func TestEngagementScore(t *testing.T) {
	cases := []struct {
		reactions, comments, reposts, want int64
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{0, 1, 0, 2},
		{0, 0, 1, 3},
		{5, 3, 2, 5 + 2*3 + 3*2},
	}
	for _, tc := range cases {
		if got := engagementScore(tc.reactions, tc.comments, tc.reposts); got != tc.want {
			t.Errorf("engagementScore(%d,%d,%d) = %d, want %d", tc.reactions, tc.comments, tc.reposts, got, tc.want)
		}
	}
}
