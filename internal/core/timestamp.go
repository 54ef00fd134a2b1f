package core

import (
	"strings"
	"time"
)

// DateTimeLocalLayout is the value format of an HTML datetime-local input.
const DateTimeLocalLayout = "2006-01-02T15:04"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	DateTimeLocalLayout,
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp as exchanged with the backend.
// Offsets are honoured; naive timestamps are read as UTC. The result is
// always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatTimestamp renders the canonical wire form: UTC with a Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseDateTimeLocal reads a datetime-local input value in loc.
func ParseDateTimeLocal(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateTimeLocalLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}

// FormatDateTimeLocal renders t as a datetime-local input value in loc.
func FormatDateTimeLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateTimeLocalLayout)
}
