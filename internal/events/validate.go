package events

import (
	"fmt"
	"strings"
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))
}

// Validate checks an event before it is accepted from an entry form.
// Stored events are not required to pass it.
func Validate(e Event) error {
	if _, ok := ParseProgram(string(e.Program)); !ok {
		return invalidf("unknown program %q", e.Program)
	}
	if _, ok := ParseCategory(string(e.Category)); !ok {
		return invalidf("unknown category %q", e.Category)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return invalidf("start and end date are required")
	}
	if DateOf(e.EndDate).Before(DateOf(e.StartDate)) {
		return invalidf("end date is before start date")
	}
	if len(strings.TrimSpace(e.Title)) > 500 {
		return invalidf("title is too long")
	}
	if e.AllDay {
		return nil
	}

	sh, sm, ok := ParseClock(e.StartTime)
	if !ok {
		return invalidf("start time %q is not a time of day", e.StartTime)
	}
	if strings.TrimSpace(e.EndTime) == "" {
		return nil
	}
	eh, em, ok := ParseClock(e.EndTime)
	if !ok {
		return invalidf("end time %q is not a time of day", e.EndTime)
	}
	// Times only conflict when the event starts and ends on the same day
	if DateOf(e.StartDate).Equal(DateOf(e.EndDate)) && eh*60+em <= sh*60+sm {
		return invalidf("end time must be after start time")
	}
	return nil
}
