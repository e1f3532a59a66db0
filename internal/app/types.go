package app

import (
	"strings"
	"time"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// EventResponse is an event as served to clients, annotated with its status
type EventResponse struct {
	ID            int    `json:"event_id"`
	Order         int    `json:"order"`
	Program       string `json:"program"`
	Category      string `json:"category"`
	Title         string `json:"title"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	AllDay        bool   `json:"all_day"`
	Priority      int    `json:"priority"`
	Status        string `json:"status"`
	DisplayStatus string `json:"display_status"`
}

// PeriodResponse is one labelled group of a grouped view
type PeriodResponse struct {
	Label  string          `json:"label"`
	Start  string          `json:"start"`
	Events []EventResponse `json:"events"`
}

// CalendarDayResponse is one cell of the month grid
type CalendarDayResponse struct {
	Date    string          `json:"date"`
	InMonth bool            `json:"in_month"`
	IsToday bool            `json:"is_today"`
	Events  []EventResponse `json:"events"`
}

// EventRequest is the body of a create or update. On update, omitted fields
// are left unchanged.
type EventRequest struct {
	Program   *string `json:"program"`
	Category  *string `json:"category"`
	Title     *string `json:"title"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	AllDay    *bool   `json:"all_day"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toResponse(e events.Event, today time.Time) EventResponse {
	resp := EventResponse{
		ID:            e.ID,
		Order:         e.Order,
		Program:       string(e.Program),
		Category:      string(e.Category),
		Title:         e.Title,
		StartDate:     e.StartDate.Format(events.DateLayout),
		EndDate:       e.EndDate.Format(events.DateLayout),
		AllDay:        e.IsAllDay(),
		Priority:      events.Priority(e.Category),
		Status:        string(events.StatusAt(e, today)),
		DisplayStatus: string(events.DisplayStatus(e, today)),
	}
	if !resp.AllDay {
		resp.StartTime = e.StartTime
		resp.EndTime = e.EndTime
	}
	return resp
}

func toResponses(evs []events.Event, today time.Time) []EventResponse {
	out := make([]EventResponse, 0, len(evs))
	for _, e := range evs {
		out = append(out, toResponse(e, today))
	}
	return out
}

// toPatch converts a request into a patch, normalizing enum casing, dates
// and clock strings. Unknown enum values are kept verbatim for Validate to
// reject.
func (r EventRequest) toPatch() (events.Patch, error) {
	var p events.Patch

	if r.Program != nil {
		program := events.Program(strings.TrimSpace(*r.Program))
		if known, ok := events.ParseProgram(*r.Program); ok {
			program = known
		}
		p.Program = &program
	}
	if r.Category != nil {
		category := events.Category(strings.TrimSpace(*r.Category))
		if known, ok := events.ParseCategory(*r.Category); ok {
			category = known
		}
		p.Category = &category
	}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		p.Title = &title
	}
	if r.StartDate != nil {
		d, err := events.ParseDate(*r.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &d
	}
	if r.EndDate != nil {
		d, err := events.ParseDate(*r.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &d
	}
	if r.StartTime != nil {
		clock := normalizeClockInput(*r.StartTime)
		p.StartTime = &clock
	}
	if r.EndTime != nil {
		clock := normalizeClockInput(*r.EndTime)
		p.EndTime = &clock
	}
	if r.AllDay != nil {
		allDay := *r.AllDay
		p.AllDay = &allDay
	}
	return p, nil
}

// normalizeClockInput canonicalizes a parseable clock and keeps anything
// else verbatim, so validation can report it.
func normalizeClockInput(s string) string {
	s = strings.TrimSpace(s)
	if norm := events.NormalizeClock(s); norm != "" {
		return norm
	}
	return s
}

// toEvent builds a new event from a create request. All Day defaults to true
// when no start time is given.
func (r EventRequest) toEvent() (events.Event, error) {
	p, err := r.toPatch()
	if err != nil {
		return events.Event{}, err
	}
	e := p.Apply(events.Event{})
	if r.AllDay == nil {
		e.AllDay = e.StartTime == ""
	}
	if e.AllDay {
		e.StartTime, e.EndTime = "", ""
	}
	return e, nil
}
