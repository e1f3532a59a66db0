package events

import "time"

// Status is the derived display state of an event relative to a date
type Status string

const (
	StatusActive   Status = "Active"
	StatusUpcoming Status = "Upcoming"
	StatusClosed   Status = "Closed"

	// StatusToday refines Active or Upcoming for display only. It is never
	// returned by StatusAt and is not a filter bucket.
	StatusToday Status = "Today"
)

// Statuses lists the canonical filter buckets
var Statuses = []Status{StatusActive, StatusUpcoming, StatusClosed}

// ParseStatus matches one of the canonical buckets ignoring case
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if sameFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// StatusAt classifies e against today. Both bounds are inclusive, so an event
// starting and ending today is Active.
func StatusAt(e Event, today time.Time) Status {
	today = DateOf(today)
	switch {
	case DateOf(e.EndDate).Before(today):
		return StatusClosed
	case DateOf(e.StartDate).After(today):
		return StatusUpcoming
	default:
		return StatusActive
	}
}

// DisplayStatus is StatusAt with the Today refinement layered on top
func DisplayStatus(e Event, today time.Time) Status {
	st := StatusAt(e, today)
	if st != StatusClosed && DateOf(e.StartDate).Equal(DateOf(today)) {
		return StatusToday
	}
	return st
}
