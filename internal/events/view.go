package events

import (
	"sort"
	"strings"
	"time"
)

// Direction is a reorder step
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// less is the canonical display order:
// Program, category priority, manual order, start date, then id.
func less(a, b Event) bool {
	if a.Program != b.Program {
		return a.Program < b.Program
	}
	if pa, pb := Priority(a.Category), Priority(b.Category); pa != pb {
		return pa < pb
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.Before(b.StartDate)
	}
	return a.ID < b.ID
}

// Sort orders events in place by the canonical display order
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return less(events[i], events[j])
	})
}

// SortByStartDate orders events in place by start date, then id
func SortByStartDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
}

// VisibleToUser returns the events a visitor sees on today: everything not
// Closed, in canonical display order. The input is not modified.
func VisibleToUser(events []Event, today time.Time) []Event {
	visible := make([]Event, 0, len(events))
	for _, e := range events {
		if StatusAt(e, today) != StatusClosed {
			visible = append(visible, e)
		}
	}
	Sort(visible)
	return visible
}

// Filter narrows a visitor view. Zero-valued fields match everything.
type Filter struct {
	Programs   []Program
	Categories []Category
	Statuses   []Status
	From       time.Time
	To         time.Time
	Query      string
}

// Apply returns the events matching f, keeping input order
func (f Filter) Apply(events []Event, today time.Time) []Event {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	from, to := DateOf(f.From), DateOf(f.To)

	var out []Event
	for _, e := range events {
		if len(f.Programs) > 0 && !containsProgram(f.Programs, e.Program) {
			continue
		}
		if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, StatusAt(e, today)) {
			continue
		}
		// Date window keeps events overlapping [From, To]
		if !f.From.IsZero() && DateOf(e.EndDate).Before(from) {
			continue
		}
		if !f.To.IsZero() && DateOf(e.StartDate).After(to) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Title), query) &&
			!strings.Contains(strings.ToLower(string(e.Category)), query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsProgram(list []Program, p Program) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}

func containsCategory(list []Category, c Category) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func containsStatus(list []Status, s Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// NextID returns 1 for an empty collection, else max(ID)+1
func NextID(events []Event) int {
	next := 1
	for _, e := range events {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

// NextOrder returns 1 for an empty collection, else max(Order)+1
func NextOrder(events []Event) int {
	next := 1
	for _, e := range events {
		if e.Order >= next {
			next = e.Order + 1
		}
	}
	return next
}

// IndexOf returns the position of the event with id, or -1
func IndexOf(events []Event, id int) int {
	for i, e := range events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Reorder swaps the Order of the event with id and its neighbour in the
// program-scoped manual order. Moving the first event up or the last event
// down is a no-op. The input slice is left untouched.
func Reorder(events []Event, id int, dir Direction) ([]Event, error) {
	idx := IndexOf(events, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	out := make([]Event, len(events))
	copy(out, events)

	// Positions of the same-program events, sorted by manual order
	program := out[idx].Program
	var scope []int
	for i, e := range out {
		if e.Program == program {
			scope = append(scope, i)
		}
	}
	sort.SliceStable(scope, func(i, j int) bool {
		a, b := out[scope[i]], out[scope[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})

	pos := -1
	for i, at := range scope {
		if at == idx {
			pos = i
			break
		}
	}

	var neighbour int
	switch dir {
	case Up:
		if pos == 0 {
			return out, nil
		}
		neighbour = scope[pos-1]
	case Down:
		if pos == len(scope)-1 {
			return out, nil
		}
		neighbour = scope[pos+1]
	default:
		return nil, invalidf("unknown direction %q", dir)
	}

	// Imported tables may repeat an order value; swapping equal values would
	// not move anything, so number the program's events 1..n first
	if out[idx].Order == out[neighbour].Order {
		for k, at := range scope {
			out[at].Order = k + 1
		}
	}

	out[idx].Order, out[neighbour].Order = out[neighbour].Order, out[idx].Order
	return out, nil
}
