// Package events holds the admission event model and the pure view logic
// that turns a stored record set into a status-annotated, ordered view.
package events

import (
	"errors"
	"time"
)

// DateLayout is the calendar-date format used at rest and on the wire
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when an event id does not exist
	ErrNotFound = errors.New("event not found")
	// ErrInvalidEvent wraps boundary validation failures
	ErrInvalidEvent = errors.New("invalid event")
)

// Event represents a single admission-process milestone
type Event struct {
	ID        int
	Order     int
	Program   Program
	Category  Category
	Title     string
	StartDate time.Time
	EndDate   time.Time
	StartTime string
	EndTime   string
	AllDay    bool
}

// IsAllDay reports whether the event should be shown without times.
// An event flagged as timed but carrying no usable start time falls back
// to all-day.
func (e Event) IsAllDay() bool {
	if e.AllDay {
		return true
	}
	_, _, ok := ParseClock(e.StartTime)
	return !ok
}

// Patch carries the fields an update may change. Nil fields are left alone.
type Patch struct {
	Program   *Program
	Category  *Category
	Title     *string
	StartDate *time.Time
	EndDate   *time.Time
	StartTime *string
	EndTime   *string
	AllDay    *bool
}

// Apply returns a copy of e with the patch applied. Identity and order are
// never touched by a patch.
func (p Patch) Apply(e Event) Event {
	if p.Program != nil {
		e.Program = *p.Program
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.StartDate != nil {
		e.StartDate = DateOf(*p.StartDate)
	}
	if p.EndDate != nil {
		e.EndDate = DateOf(*p.EndDate)
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	return e
}

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// The wall-clock date of t in its own location is kept.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses the date formats found in stored tables: plain dates and
// the date-time renderings older exports left behind.
func ParseDate(s string) (time.Time, error) {
	layouts := []string{
		DateLayout,
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006/01/02",
		"02-01-2006",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DateOf(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
