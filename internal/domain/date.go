package domain

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for calendar dates (ISO 8601, no time part).
const dateLayout = "2006-01-02"

// DateOf truncates a timestamp to its calendar day in UTC. All day-level
// comparisons in the aggregator go through this so that records stored with
// different time-of-day components land in the same bucket.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// ParseDate parses a YYYY-MM-DD string into a day-truncated UTC time.
// Returns ErrInvalidDate for anything that is not a valid calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, ErrInvalidDate)
	}
	return t, nil
}

// FormatDate renders a timestamp's calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
