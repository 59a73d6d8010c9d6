package weekclock

import (
	"testing"
	"time"
)

func TestOfStartsOnMonday(t *testing.T) {
	cases := []time.Time{
		time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),    // a Monday
		time.Date(2026, 8, 26, 13, 45, 0, 0, time.UTC),  // mid-week
		time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC), // Sunday night
	}

	for _, tc := range cases {
		w := Of(tc)
		if w.StartsAt.Weekday() != time.Monday {
			t.Fatalf("%v: window starts on %v", tc, w.StartsAt.Weekday())
		}
		if !w.StartsAt.Equal(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("%v: wrong start %v", tc, w.StartsAt)
		}
		if !w.EndsAt.Equal(w.StartsAt.AddDate(0, 0, 7)) {
			t.Fatalf("window is not seven days: %v .. %v", w.StartsAt, w.EndsAt)
		}
	}
}

func TestNextIsContiguous(t *testing.T) {
	w := Of(time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC))
	n := Next(w)

	if !n.StartsAt.Equal(w.EndsAt) {
		t.Fatalf("next window starts %v, previous ends %v", n.StartsAt, w.EndsAt)
	}
	if n.Number == w.Number && n.Year == w.Year {
		t.Fatal("next window key did not advance")
	}
}

func TestYearBoundaryUsesISOWeek(t *testing.T) {
	// 2026-01-01 is a Thursday; ISO week 1 of 2026 starts Monday 2025-12-29.
	w := Of(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	if w.Number != 1 || w.Year != 2026 {
		t.Fatalf("got week %d/%d want 1/2026", w.Number, w.Year)
	}
	if !w.StartsAt.Equal(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("wrong start %v", w.StartsAt)
	}
}
