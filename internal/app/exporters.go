package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// uidNamespace makes ICS UIDs stable per event id across exports
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(ICSDomain))

// Exporter renders event lists into downloadable formats
type Exporter struct {
	Location *time.Location
	BaseURL  string
	Logger   *zap.Logger
}

// EventUID returns the stable ICS UID of an event
func EventUID(id int) string {
	return uuid.NewSHA1(uidNamespace, []byte(strconv.Itoa(id))).String() + "@" + ICSDomain
}

// exportFilename builds a download name from a view label
func exportFilename(label, ext string) string {
	name := strings.ToLower(strings.TrimSpace(label))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" {
		name = "all"
	}
	return fmt.Sprintf("admission_events_%s.%s", name, ext)
}

func eventSummary(e events.Event) string {
	if e.Program == "" {
		return string(e.Category)
	}
	return fmt.Sprintf("%s - %s", e.Program, e.Category)
}

// newCalendar builds the calendar shared by downloads and subscriptions
func (x *Exporter) newCalendar(name string, evs []events.Event) (*ics.Calendar, []*ics.VEvent) {
	cal := ics.NewCalendar()
	cal.SetProductId(ICSProductID)
	cal.SetXWRCalName("Admission Events " + name)
	cal.SetXWRTimezone(x.Location.String())

	stamp := time.Now().UTC()
	out := make([]*ics.VEvent, 0, len(evs))
	for _, e := range evs {
		ev := cal.AddEvent(EventUID(e.ID))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(eventSummary(e))
		ev.SetDescription(e.Title)
		ev.AddProperty(ics.ComponentPropertyCategories, string(e.Category))
		if x.BaseURL != "" {
			ev.SetURL(fmt.Sprintf("%s/api/events/%d", strings.TrimRight(x.BaseURL, "/"), e.ID))
		}

		if start, end, ok := x.timedSpan(e); ok {
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		} else {
			// All-day DTEND is exclusive
			ev.SetAllDayStartAt(e.StartDate)
			ev.SetAllDayEndAt(e.EndDate.AddDate(0, 0, 1))
		}
		out = append(out, ev)
	}
	return cal, out
}

// timedSpan resolves a timed event to instants in the board zone. Events
// without a usable end time last one hour.
func (x *Exporter) timedSpan(e events.Event) (time.Time, time.Time, bool) {
	if e.IsAllDay() {
		return time.Time{}, time.Time{}, false
	}
	start, err := events.At(e.StartDate, e.StartTime, x.Location)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := events.At(e.EndDate, e.EndTime, x.Location)
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end, true
}

// eventStart is the instant reminders are measured from
func (x *Exporter) eventStart(e events.Event) time.Time {
	if start, _, ok := x.timedSpan(e); ok {
		return start
	}
	return time.Date(e.StartDate.Year(), e.StartDate.Month(), e.StartDate.Day(), 0, 0, 0, 0, x.Location)
}

// GenerateICS writes an iCalendar download with optional reminders
func (x *Exporter) GenerateICS(w http.ResponseWriter, r *http.Request, name string, evs []events.Event) {
	// Parse reminder settings
	q := r.URL.Query()
	reminders := []struct {
		enabled    bool
		daysBefore int
		at         string
	}{
		{q.Get("reminder2Days") == "true", 2, q.Get("time2Days")},
		{q.Get("reminder1Day") == "true", 1, q.Get("time1Day")},
		{q.Get("reminderSameDay") == "true", 0, q.Get("timeSameDay")},
	}

	cal, vevents := x.newCalendar(name, evs)
	for i, ev := range vevents {
		start := x.eventStart(evs[i])
		for _, rem := range reminders {
			if rem.enabled && rem.at != "" {
				AddAlarm(ev, start, rem.daysBefore, rem.at, eventSummary(evs[i]))
			}
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(name, "ics"))
	x.write(w, cal.Serialize())
}

// GenerateSubscriptionICS writes an iCalendar subscription feed. Unlike
// GenerateICS it is served inline, carries METHOD:PUBLISH with a refresh
// hint and has no alarms, since calendar apps ignore them in subscriptions.
func (x *Exporter) GenerateSubscriptionICS(w http.ResponseWriter, r *http.Request, name string, evs []events.Event) {
	cal, _ := x.newCalendar(name, evs)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXPublishedTTL("PT1H")

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	x.write(w, cal.Serialize())
}

func (x *Exporter) write(w http.ResponseWriter, body string) {
	if _, err := fmt.Fprint(w, body); err != nil {
		x.Logger.Warn("error writing response", zap.Error(err))
	}
}

// AlarmTrigger computes the ISO 8601 trigger of a reminder at alarmTime,
// daysBefore days ahead of eventStart's date, relative to eventStart.
func AlarmTrigger(eventStart time.Time, daysBefore int, alarmTime string) (string, bool) {
	hour, minute, ok := events.ParseClock(alarmTime)
	if !ok {
		return "", false
	}

	alarmDate := eventStart.AddDate(0, 0, -daysBefore)
	alarmAt := time.Date(alarmDate.Year(), alarmDate.Month(), alarmDate.Day(), hour, minute, 0, 0, eventStart.Location())

	totalMinutes := int(alarmAt.Sub(eventStart).Minutes())
	isNegative := totalMinutes < 0
	if isNegative {
		totalMinutes = -totalMinutes
	}

	days := totalMinutes / (24 * 60)
	remainingMinutes := totalMinutes % (24 * 60)
	hours := remainingMinutes / 60
	minutes := remainingMinutes % 60

	trigger := fmt.Sprintf("P%dDT%dH%dM", days, hours, minutes)
	if isNegative {
		trigger = "-" + trigger
	}
	return trigger, true
}

// AddAlarm attaches a display reminder to ev. Unparseable times are skipped.
func AddAlarm(ev *ics.VEvent, eventStart time.Time, daysBefore int, alarmTime string, description string) {
	trigger, ok := AlarmTrigger(eventStart, daysBefore, alarmTime)
	if !ok {
		return
	}
	alarm := ev.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger(trigger)
	alarm.SetProperty(ics.ComponentPropertyDescription, "Reminder: "+description)
}

// exportColumns is the header of the CSV and spreadsheet downloads
var exportColumns = []string{
	"EventID", "Program", "Category", "Title", "Start Date", "End Date",
	"Start Time", "End Time", "All Day", "Status",
}

func exportRow(e events.Event, today time.Time) []string {
	resp := toResponse(e, today)
	return []string{
		strconv.Itoa(resp.ID), resp.Program, resp.Category, resp.Title,
		resp.StartDate, resp.EndDate, resp.StartTime, resp.EndTime,
		strconv.FormatBool(resp.AllDay), resp.DisplayStatus,
	}
}

// GenerateCSV writes a CSV download
func (x *Exporter) GenerateCSV(w http.ResponseWriter, name string, evs []events.Event, today time.Time) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(name, "csv"))

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		x.Logger.Warn("error writing CSV export", zap.Error(err))
		return
	}
	for _, e := range evs {
		if err := cw.Write(exportRow(e, today)); err != nil {
			x.Logger.Warn("error writing CSV export", zap.Error(err))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		x.Logger.Warn("error writing CSV export", zap.Error(err))
	}
}

// GenerateJSON writes a JSON download
func (x *Exporter) GenerateJSON(w http.ResponseWriter, name string, evs []events.Event, today time.Time) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(name, "json"))

	data := map[string]interface{}{
		"view":   name,
		"today":  today.Format(events.DateLayout),
		"count":  len(evs),
		"events": toResponses(evs, today),
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		x.Logger.Error("error encoding JSON export", zap.Error(err))
		http.Error(w, ErrFailedToGenerateJSON, http.StatusInternalServerError)
	}
}

// GenerateXLSX writes a spreadsheet download with a styled header row
func (x *Exporter) GenerateXLSX(w http.ResponseWriter, name string, evs []events.Event, today time.Time) {
	f, err := buildXLSX(evs, today)
	if err != nil {
		x.failXLSX(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(name, "xlsx"))
	if err := f.Write(w); err != nil {
		x.Logger.Error("error writing spreadsheet export", zap.Error(err))
	}
}

// buildXLSX lays out the events sheet. The first excelize error aborts the
// export.
func buildXLSX(evs []events.Event, today time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	sh := &xlsxSheet{f: f, name: "Events"}
	if err := f.SetSheetName("Sheet1", sh.name); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, title := range exportColumns {
		sh.set(i+1, 1, title)
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportColumns))
	if err != nil {
		f.Close()
		return nil, err
	}
	sh.style("A1", lastCol+"1", headerStyle)

	sh.width("A", "A", 9)
	sh.width("B", "C", 26)
	sh.width("D", "D", 60)
	sh.width("E", lastCol, 13)

	for r, e := range evs {
		for c, value := range exportRow(e, today) {
			if c == 0 {
				sh.set(c+1, r+2, e.ID)
				continue
			}
			sh.set(c+1, r+2, value)
		}
	}

	if sh.err != nil {
		f.Close()
		return nil, sh.err
	}
	return f, nil
}

// xlsxSheet keeps the first error of a run of sheet writes; later writes
// are skipped
type xlsxSheet struct {
	f    *excelize.File
	name string
	err  error
}

func (s *xlsxSheet) set(col, row int, value any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellValue(s.name, cell, value)
}

func (s *xlsxSheet) style(from, to string, style int) {
	if s.err == nil {
		s.err = s.f.SetCellStyle(s.name, from, to, style)
	}
}

func (s *xlsxSheet) width(from, to string, width float64) {
	if s.err == nil {
		s.err = s.f.SetColWidth(s.name, from, to, width)
	}
}

func (x *Exporter) failXLSX(w http.ResponseWriter, err error) {
	x.Logger.Error("error building spreadsheet export", zap.Error(err))
	http.Error(w, ErrFailedToGenerateXLSX, http.StatusInternalServerError)
}
