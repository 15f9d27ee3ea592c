package timeutil

import (
	"strings"
	"time"

	"daily-planner/internal/model"
)

const dateLayout = "2006-01-02"

// Day is the length of a calendar day in UTC.
const Day = 24 * time.Hour

// DayStart returns the UTC midnight of t's calendar date in t's own location.
func DayStart(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar day of now as observed in loc, normalized to UTC midnight
// so it compares directly against stored due dates. Callers compute it once per
// operation and pass the value down.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DayStart(now.In(loc))
}

// AddDays shifts a day boundary by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayStart(b).Sub(DayStart(a)) / Day)
}

// FormatDate renders a due date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ParseDueDate accepts a plain calendar date (YYYY-MM-DD) or an RFC3339 timestamp
// and returns the date as UTC midnight.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, model.Invalid("dueDate", "empty date")
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return DayStart(ts.UTC()), nil
	}
	return time.Time{}, model.Invalid("dueDate", "cannot parse %q, expected YYYY-MM-DD or RFC3339", raw)
}
