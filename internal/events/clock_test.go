package events

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"9:30 AM", 9, 30, true},
		{"09:30 am", 9, 30, true},
		{"12:00 PM", 12, 0, true},
		{"12:15 AM", 0, 15, true},
		{"5:45PM", 17, 45, true},
		{"17:45", 17, 45, true},
		{"17:45:00", 17, 45, true},
		{"", 0, 0, false},
		{"noon", 0, 0, false},
		{"25:00", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, ok := ParseClock(tt.in)
			if ok != tt.ok || h != tt.hour || m != tt.minute {
				t.Errorf("ParseClock(%q) = %d:%d %v, want %d:%d %v", tt.in, h, m, ok, tt.hour, tt.minute, tt.ok)
			}
		})
	}
}

func TestNormalizeClock(t *testing.T) {
	if got := NormalizeClock("14:05"); got != "2:05 PM" {
		t.Errorf("NormalizeClock(14:05) = %q", got)
	}
	if got := NormalizeClock("garbage"); got != "" {
		t.Errorf("NormalizeClock(garbage) = %q, want empty", got)
	}
}

func TestAt(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got, err := At(NewDate(2025, 4, 1), "10:00 AM", loc)
	if err != nil {
		t.Fatalf("At() failed: %v", err)
	}
	want := time.Date(2025, 4, 1, 10, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("At() = %s, want %s", got, want)
	}
	if _, err := At(NewDate(2025, 4, 1), "", loc); err == nil {
		t.Error("Expected error for empty time")
	}
}

func TestIsAllDay(t *testing.T) {
	if !(Event{AllDay: true, StartTime: "9:00 AM"}).IsAllDay() {
		t.Error("All Day flag should win")
	}
	if (Event{StartTime: "9:00 AM"}).IsAllDay() {
		t.Error("Timed event reported as all-day")
	}
	if !(Event{StartTime: "whenever"}).IsAllDay() {
		t.Error("Unparseable time should fall back to all-day")
	}
}

func TestValidate(t *testing.T) {
	base := Event{
		Program:   ProgramKEAM,
		Category:  CategoryOnlineApplication,
		Title:     "Apply",
		StartDate: NewDate(2025, 1, 1),
		EndDate:   NewDate(2025, 1, 31),
		AllDay:    true,
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"Valid all-day", func(e *Event) {}, false},
		{"Unknown program", func(e *Event) { e.Program = "MBBS" }, true},
		{"Unknown category", func(e *Event) { e.Category = "Spot" }, true},
		{"Missing date", func(e *Event) { e.EndDate = time.Time{} }, true},
		{"End before start", func(e *Event) { e.EndDate = NewDate(2024, 12, 31) }, true},
		{"Timed without start", func(e *Event) { e.AllDay = false }, true},
		{"Timed valid", func(e *Event) { e.AllDay = false; e.StartTime = "9:00 AM"; e.EndTime = "5:00 PM" }, false},
		{"Same day end before start", func(e *Event) {
			e.AllDay = false
			e.EndDate = e.StartDate
			e.StartTime = "5:00 PM"
			e.EndTime = "9:00 AM"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			err := Validate(e)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}
