package booking

import (
	"testing"
	"time"
)

// Wednesday.
var refNow = time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

func TestResolveDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		phrase string
		want   string
		ok     bool
	}{
		{"today", "2026-08-26", true},
		{"tomorrow", "2026-08-27", true},
		{"Tomorrow", "2026-08-27", true},
		{"day after tomorrow", "2026-08-28", true},
		{"friday", "2026-08-28", true},
		{"next friday", "2026-08-28", true},
		{"wednesday", "2026-09-02", true}, // same weekday rolls a week forward
		{"2026-09-15", "2026-09-15", true},
		{"someday", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.phrase, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolveDate(tc.phrase, refNow)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ResolveDate(%q) = %q, %v; want %q, %v", tc.phrase, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestResolveDateIsDeterministic(t *testing.T) {
	t.Parallel()

	first, _ := ResolveDate("next monday", refNow)
	for i := 0; i < 5; i++ {
		if got, _ := ResolveDate("next monday", refNow); got != first {
			t.Fatalf("ResolveDate varied: %q vs %q", got, first)
		}
	}
}

func TestResolveTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		phrase string
		want   string
		ok     bool
	}{
		{"3pm", "15:00", true},
		{"3 pm", "15:00", true},
		{"at 3pm", "15:00", true},
		{"3:30pm", "15:30", true},
		{"12pm", "12:00", true},
		{"12am", "00:00", true},
		{"noon", "12:00", true},
		{"midnight", "00:00", true},
		{"15:00", "15:00", true},
		{"09:05", "09:05", true},
		{"3", "", false},   // bare hour is ambiguous
		{"25:00", "", false},
		{"13pm", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.phrase, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolveTime(tc.phrase)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ResolveTime(%q) = %q, %v; want %q, %v", tc.phrase, got, ok, tc.want, tc.ok)
			}
		})
	}
}
