package service

import (
	"fmt"
	"time"
)

// DateLayout wire and query format for calendar dates.
const DateLayout = "2006-01-02"

// calendarDate drops the clock and zone of t, keeping its Y/M/D as written.
// DATE columns come back from the driver as UTC midnight; this keeps them there.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// today returns the current business date in loc.
func today(now time.Time, loc *time.Location) time.Time {
	return calendarDate(now.In(loc))
}

// monthRange returns the half-open [first day, first day of next month) range.
func monthRange(year, month int) (time.Time, time.Time, error) {
	if year < 2000 || year > 2100 {
		return time.Time{}, time.Time{}, validation(fmt.Sprintf("invalid year: %d", year))
	}
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, validation(fmt.Sprintf("invalid month: %d", month))
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return t, nil
}

// addMonths adds n calendar months, clamping to the last day of the target
// month (Jan 31 + 1 month = Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
