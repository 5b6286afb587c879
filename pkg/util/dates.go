package util

import "time"

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameOrBefore reports whether the calendar date of a is on or before the
// calendar date of b, both read in loc.
func SameOrBefore(a, b time.Time, loc *time.Location) bool {
	return !StartOfDay(a, loc).After(StartOfDay(b, loc))
}
