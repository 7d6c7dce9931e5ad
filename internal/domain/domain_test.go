package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestDateOfUsesUTC(t *testing.T) {
	// 23:30 in New York on Jan 1 is already Jan 2 in UTC.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, ny)
	got := DateOf(ts)
	want := civil.Date{Year: 2024, Month: time.January, Day: 2}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDateOfTruncatesToDay(t *testing.T) {
	a := DateOf(time.Date(2024, 3, 5, 0, 0, 1, 0, time.UTC))
	b := DateOf(time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC))
	if a != b {
		t.Fatalf("same-day timestamps produced different dates: %s vs %s", a, b)
	}
}

func TestDefaultWatchlistIsUppercase(t *testing.T) {
	for _, s := range DefaultWatchlist {
		for _, r := range s {
			if r < 'A' || r > 'Z' {
				t.Fatalf("watchlist symbol %q is not an uppercase ticker", s)
			}
		}
	}
}
