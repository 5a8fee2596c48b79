package models

import (
	"testing"
	"time"
)

func TestParseSession(t *testing.T) {
	for _, s := range []string{"US", "EU", "APAC"} {
		got, err := ParseSession(s)
		if err != nil || string(got) != s {
			t.Fatalf("ParseSession(%q) = %v, %v", s, got, err)
		}
	}
	for _, s := range []string{"", "None"} {
		got, err := ParseSession(s)
		if err != nil || got != SessionNone {
			t.Fatalf("ParseSession(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseSession("TOKYO"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

func TestSessionEUBounds(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{6, 59, false},
		{7, 0, true},
		{12, 0, true},
		{15, 30, true}, // end minute inclusive
		{15, 31, false},
	}
	for _, c := range cases {
		if got := SessionEU.InSession(c.hour, c.minute); got != c.want {
			t.Fatalf("EU InSession(%02d:%02d) = %v, want %v", c.hour, c.minute, got, c.want)
		}
	}
}

func TestSessionUSBounds(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{13, 29, false},
		{13, 30, true},
		{20, 0, true},
		{20, 1, false},
	}
	for _, c := range cases {
		if got := SessionUS.InSession(c.hour, c.minute); got != c.want {
			t.Fatalf("US InSession(%02d:%02d) = %v, want %v", c.hour, c.minute, got, c.want)
		}
	}
}

// APAC runs 00:00-07:00 with start not after end, so the conjunctive rule
// applies: inside the band plus the 07:00 end minute.
func TestSessionAPACBounds(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{0, 0, true},
		{3, 0, true},
		{7, 0, true},
		{7, 1, false},
		{23, 59, false},
	}
	for _, c := range cases {
		if got := SessionAPAC.InSession(c.hour, c.minute); got != c.want {
			t.Fatalf("APAC InSession(%02d:%02d) = %v, want %v", c.hour, c.minute, got, c.want)
		}
	}
}

func TestFilterBySession(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	series := PriceSeries{
		{Timestamp: day.Add(6 * time.Hour), Price: 1},                   // pre-EU
		{Timestamp: day.Add(8 * time.Hour), Price: 2},                   // in EU
		{Timestamp: day.Add(15*time.Hour + 30*time.Minute), Price: 3},   // EU end, inclusive
		{Timestamp: day.Add(16 * time.Hour), Price: 4},                  // post-EU
	}

	got := FilterBySession(series, SessionEU)
	if len(got) != 2 {
		t.Fatalf("expected 2 in-session points, got %d", len(got))
	}
	if got[0].Price != 2 || got[1].Price != 3 {
		t.Fatalf("unexpected points kept: %+v", got)
	}

	if n := len(FilterBySession(series, SessionNone)); n != len(series) {
		t.Fatalf("SessionNone must not filter, got %d", n)
	}
}
