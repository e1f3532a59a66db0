package events

import (
	"fmt"
	"strings"
	"time"
)

// ClockLayout is the time-of-day format used at rest
const ClockLayout = "3:04 PM"

var clockLayouts = []string{
	ClockLayout,
	"03:04 PM",
	"3:04PM",
	"03:04PM",
	"15:04",
	"15:04:05",
}

// ParseClock parses a time-of-day string. It accepts the 12-hour stored
// format and falls back to 24-hour renderings.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, false
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return 0, 0, false
}

// FormatClock renders a time of day in the stored 12-hour format
func FormatClock(hour, minute int) string {
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format(ClockLayout)
}

// NormalizeClock rewrites a parseable time string into the stored format.
// Unparseable input yields an empty string.
func NormalizeClock(s string) string {
	h, m, ok := ParseClock(s)
	if !ok {
		return ""
	}
	return FormatClock(h, m)
}

// At combines a calendar date with a stored time-of-day in loc
func At(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time of day %q", clock)
	}
	if loc == nil {
		loc = time.UTC
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}
