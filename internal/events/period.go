package events

import (
	"fmt"
	"sort"
	"time"
)

// Granularity selects how GroupByPeriod partitions events
type Granularity string

const (
	ByMonth Granularity = "month"
	ByWeek  Granularity = "week"
)

// ParseGranularity accepts "month" or "week"
func ParseGranularity(s string) (Granularity, bool) {
	switch Granularity(s) {
	case ByMonth, ByWeek:
		return Granularity(s), true
	}
	return "", false
}

// PeriodGroup is one labelled partition of a view
type PeriodGroup struct {
	Label  string
	Start  time.Time
	Events []Event
}

type periodKey struct {
	year int
	unit int
}

// GroupByPeriod partitions events by the month or ISO week of their start
// date. Groups come back in chronological order; events inside a group keep
// their input order.
func GroupByPeriod(events []Event, g Granularity) []PeriodGroup {
	index := make(map[periodKey]int)
	var groups []PeriodGroup

	for _, e := range events {
		var key periodKey
		var label string
		var start time.Time

		switch g {
		case ByWeek:
			year, week := e.StartDate.ISOWeek()
			key = periodKey{year, week}
			label = fmt.Sprintf("Week %d", week)
			start = isoWeekStart(year, week)
		default:
			y, m, _ := e.StartDate.Date()
			key = periodKey{y, int(m)}
			label = fmt.Sprintf("%s %d", m, y)
			start = NewDate(y, m, 1)
		}

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PeriodGroup{Label: label, Start: start})
		}
		groups[i].Events = append(groups[i].Events, e)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Start.Before(groups[j].Start)
	})
	return groups
}

// isoWeekStart returns the Monday of the given ISO week
func isoWeekStart(year, week int) time.Time {
	// Jan 4th is always in week 1
	jan4 := NewDate(year, time.January, 4)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}

// CalendarDay is one cell of a month grid
type CalendarDay struct {
	Date    time.Time
	InMonth bool
	Events  []Event
}

// MonthGrid lays out a month as Monday-first weeks. Each day lists the events
// whose date range covers it, in input order. Leading and trailing days from
// the neighbouring months pad the first and last week.
func MonthGrid(year int, month time.Month, events []Event) [][]CalendarDay {
	first := NewDate(year, month, 1)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -((int(first.Weekday()) + 6) % 7))
	end := last.AddDate(0, 0, (7-int(last.Weekday()))%7)

	var weeks [][]CalendarDay
	var week []CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := CalendarDay{Date: d, InMonth: d.Month() == month}
		for _, e := range events {
			if !DateOf(e.StartDate).After(d) && !DateOf(e.EndDate).Before(d) {
				day.Events = append(day.Events, e)
			}
		}
		week = append(week, day)
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = nil
		}
	}
	return weeks
}
