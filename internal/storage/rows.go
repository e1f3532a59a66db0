package storage

import (
	"strconv"
	"strings"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// Canonical column names, in the order they are written
const (
	ColumnEventID   = "EventID"
	ColumnOrder     = "Order"
	ColumnProgram   = "Program"
	ColumnCategory  = "Category"
	ColumnTitle     = "Title"
	ColumnStartDate = "Start Date"
	ColumnEndDate   = "End Date"
	ColumnStartTime = "Start Time"
	ColumnEndTime   = "End Time"
	ColumnAllDay    = "All Day"
)

// Columns is the canonical column order
var Columns = []string{
	ColumnEventID,
	ColumnOrder,
	ColumnProgram,
	ColumnCategory,
	ColumnTitle,
	ColumnStartDate,
	ColumnEndDate,
	ColumnStartTime,
	ColumnEndTime,
	ColumnAllDay,
}

// columnAliases maps header spellings found in older tables to canonical names
var columnAliases = map[string]string{
	"eventid":    ColumnEventID,
	"event id":   ColumnEventID,
	"id":         ColumnEventID,
	"order":      ColumnOrder,
	"program":    ColumnProgram,
	"exam":       ColumnProgram,
	"category":   ColumnCategory,
	"title":      ColumnTitle,
	"start date": ColumnStartDate,
	"end date":   ColumnEndDate,
	"start time": ColumnStartTime,
	"end time":   ColumnEndTime,
	"all day":    ColumnAllDay,
	"allday":     ColumnAllDay,
}

// rawRow is one tolerant row keyed by canonical column name. Columns the
// source did not have are simply absent.
type rawRow map[string]string

// rowDecoder maps tolerant raw rows onto the strict Event type
type rowDecoder struct {
	hasID    bool
	hasOrder bool
}

func canonicalColumn(header string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	name, ok := columnAliases[key]
	return name, ok
}

// decoded is an event plus what the row left blank
type decoded struct {
	event      events.Event
	needsID    bool
	needsOrder bool
}

// decode converts a row. ok is false when the row must be dropped: a
// required date is missing or unreadable, or a present number is not one.
func (d rowDecoder) decode(row rawRow) (decoded, bool) {
	var out decoded
	e := &out.event

	start, err := events.ParseDate(strings.TrimSpace(row[ColumnStartDate]))
	if err != nil {
		return out, false
	}
	end, err := events.ParseDate(strings.TrimSpace(row[ColumnEndDate]))
	if err != nil {
		return out, false
	}
	e.StartDate, e.EndDate = start, end

	if d.hasID {
		id, err := parseWholeNumber(row[ColumnEventID])
		if err != nil || id <= 0 {
			return out, false
		}
		e.ID = id
	} else {
		out.needsID = true
	}

	if v := strings.TrimSpace(row[ColumnOrder]); d.hasOrder && v != "" {
		order, err := parseWholeNumber(v)
		if err != nil {
			return out, false
		}
		e.Order = order
	} else {
		out.needsOrder = true
	}

	e.Program = events.Program(strings.TrimSpace(row[ColumnProgram]))
	e.Category = events.Category(strings.TrimSpace(row[ColumnCategory]))
	e.Title = strings.TrimSpace(row[ColumnTitle])
	e.StartTime = events.NormalizeClock(row[ColumnStartTime])
	e.EndTime = events.NormalizeClock(row[ColumnEndTime])

	allDay, ok := parseBool(row[ColumnAllDay])
	if !ok {
		// Tables written before the column existed only had all-day events
		allDay = e.StartTime == ""
	}
	e.AllDay = allDay

	return out, true
}

// parseWholeNumber accepts "3" as well as the "3.0" float rendering some
// spreadsheet exports produce
func parseWholeNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	}
	return false, false
}

// formatBool renders booleans the way stored tables spell them
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// encode renders an event as a record in canonical column order
func encode(e events.Event) []string {
	return []string{
		strconv.Itoa(e.ID),
		strconv.Itoa(e.Order),
		string(e.Program),
		string(e.Category),
		e.Title,
		e.StartDate.Format(events.DateLayout),
		e.EndDate.Format(events.DateLayout),
		e.StartTime,
		e.EndTime,
		formatBool(e.AllDay),
	}
}

// finish numbers the rows of tables without an id column, drops rows whose
// id repeats an earlier one, and gives blank orders fresh values after the
// highest stored order. It returns the events and how many were dropped.
func finish(rows []decoded) ([]events.Event, int) {
	out := make([]events.Event, 0, len(rows))
	needsOrder := make([]bool, 0, len(rows))
	seen := make(map[int]bool)
	dropped := 0
	nextID := 1

	for _, r := range rows {
		if r.needsID {
			r.event.ID = nextID
			nextID++
		}
		if seen[r.event.ID] {
			dropped++
			continue
		}
		seen[r.event.ID] = true
		out = append(out, r.event)
		needsOrder = append(needsOrder, r.needsOrder)
	}

	nextOrder := events.NextOrder(out)
	for i := range out {
		if needsOrder[i] {
			out[i].Order = nextOrder
			nextOrder++
		}
	}
	return out, dropped
}
