package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read in
// the caller's location; fractional seconds are accepted after any seconds
// field. Month, day and hour take one or two digits.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-1-2 15:04:05Z07:00",
	"2006-1-2 15:04:05 -0700",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
}

// ParseTimeIn parses a signal-log timestamp. Naive values are placed in loc;
// values carrying an offset keep it, so the wall clock is what was written.
func ParseTimeIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
