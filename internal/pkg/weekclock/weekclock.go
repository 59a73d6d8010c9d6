// Package weekclock computes the Monday-00:00 week windows and the
// (number, year) composite key used by weekly scoreboard rows.
package weekclock

import "time"

type Window struct {
	Number   int
	Year     int
	StartsAt time.Time
	EndsAt   time.Time
}

// Of returns the window containing t. Weeks start Monday 00:00 UTC and end
// just before the next Monday; Number/Year follow ISO-8601 week numbering.
func Of(t time.Time) Window {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}

	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -(weekday - 1))
	year, number := start.ISOWeek()

	return Window{
		Number:   number,
		Year:     year,
		StartsAt: start,
		EndsAt:   start.AddDate(0, 0, 7),
	}
}

// Next returns the window immediately after w.
func Next(w Window) Window {
	return Of(w.EndsAt)
}
