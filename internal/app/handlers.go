package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// GetConfig returns the closed sets and board settings the UI needs
func (s *Server) GetConfig(c *gin.Context) {
	type categoryInfo struct {
		Name     string `json:"name"`
		Priority int    `json:"priority"`
	}
	categories := make([]categoryInfo, 0, len(events.Categories))
	for _, cat := range events.Categories {
		categories = append(categories, categoryInfo{Name: string(cat), Priority: events.Priority(cat)})
	}

	c.JSON(http.StatusOK, gin.H{
		"programs":   events.Programs,
		"categories": categories,
		"statuses":   events.Statuses,
		"today":      s.today().Format(events.DateLayout),
		"timezone":   s.loc.String(),
		"mode":       s.Mode(),
		"editMode":   s.editMode,
	})
}

// visibleEvents loads the visitor view: everything not Closed, canonically
// ordered, then narrowed by the query filter
func (s *Server) visibleEvents(c *gin.Context) ([]events.Event, events.Filter, time.Time, bool) {
	f, ok := parseFilter(c)
	if !ok {
		return nil, f, time.Time{}, false
	}

	all, err := s.store.LoadAll(c.Request.Context())
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToLoad)
		return nil, f, time.Time{}, false
	}

	today := s.today()
	return f.Apply(events.VisibleToUser(all, today), today), f, today, true
}

// respondWithView writes a flat or period-grouped event list
func (s *Server) respondWithView(c *gin.Context, view []events.Event, today time.Time) {
	body := gin.H{
		"today": today.Format(events.DateLayout),
		"count": len(view),
	}

	if raw := c.Query("group"); raw != "" {
		g, ok := events.ParseGranularity(raw)
		if !ok {
			respondWithError(c, http.StatusBadRequest, ErrInvalidGrouping)
			return
		}
		groups := events.GroupByPeriod(view, g)
		out := make([]PeriodResponse, 0, len(groups))
		for _, grp := range groups {
			out = append(out, PeriodResponse{
				Label:  grp.Label,
				Start:  grp.Start.Format(events.DateLayout),
				Events: toResponses(grp.Events, today),
			})
		}
		body["groups"] = out
	} else {
		body["events"] = toResponses(view, today)
	}

	c.JSON(http.StatusOK, body)
}

// ListEvents returns the visitor view
// Query params: program, category, status, from, to, q, group (month|week)
func (s *Server) ListEvents(c *gin.Context) {
	view, _, today, ok := s.visibleEvents(c)
	if !ok {
		return
	}
	s.respondWithView(c, view, today)
}

// ListAllEvents returns every stored event, Closed included, for the admin
func (s *Server) ListAllEvents(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}

	all, err := s.store.LoadAll(c.Request.Context())
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToLoad)
		return
	}

	today := s.today()
	view := f.Apply(all, today)
	events.Sort(view)
	s.respondWithView(c, view, today)
}

// GetEvent returns one event. Closed events are hidden from visitors.
func (s *Server) GetEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	e, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToLoad)
		return
	}

	today := s.today()
	if events.StatusAt(e, today) == events.StatusClosed && !currentSession(c).IsAdmin() {
		respondWithError(c, http.StatusNotFound, ErrEventNotFound)
		return
	}
	c.JSON(http.StatusOK, toResponse(e, today))
}

// HandleCalendar returns a Monday-first month grid of the visitor view
// Query params: year, month (default: current), plus the list filters
func (s *Server) HandleCalendar(c *gin.Context) {
	today := s.today()
	year, month := today.Year(), today.Month()

	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			respondWithError(c, http.StatusBadRequest, ErrInvalidYear)
			return
		}
		year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			respondWithError(c, http.StatusBadRequest, ErrInvalidMonth)
			return
		}
		month = time.Month(m)
	}

	view, _, _, ok := s.visibleEvents(c)
	if !ok {
		return
	}

	grid := events.MonthGrid(year, month, view)
	weeks := make([][]CalendarDayResponse, 0, len(grid))
	for _, week := range grid {
		days := make([]CalendarDayResponse, 0, len(week))
		for _, day := range week {
			days = append(days, CalendarDayResponse{
				Date:    day.Date.Format(events.DateLayout),
				InMonth: day.InMonth,
				IsToday: day.Date.Equal(today),
				Events:  toResponses(day.Events, today),
			})
		}
		weeks = append(weeks, days)
	}

	c.JSON(http.StatusOK, gin.H{
		"year":  year,
		"month": int(month),
		"label": month.String() + " " + strconv.Itoa(year),
		"weeks": weeks,
	})
}

// HandleDownload exports the visitor view as ICS, CSV, JSON or XLSX
func (s *Server) HandleDownload(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "ics"))
	switch format {
	case "ics", "csv", "json", "xlsx":
	default:
		respondWithError(c, http.StatusBadRequest, ErrInvalidFormat)
		return
	}

	view, f, today, ok := s.visibleEvents(c)
	if !ok {
		return
	}
	label := filterLabel(f)

	switch format {
	case "ics":
		s.exporter.GenerateICS(c.Writer, c.Request, label, view)
	case "csv":
		s.exporter.GenerateCSV(c.Writer, label, view, today)
	case "json":
		s.exporter.GenerateJSON(c.Writer, label, view, today)
	case "xlsx":
		s.exporter.GenerateXLSX(c.Writer, label, view, today)
	}
}

// HandleSubscribe serves a calendar subscription feed for one program, or
// for every program when the path segment is "all"
func (s *Server) HandleSubscribe(c *gin.Context) {
	name := c.Param("program")

	var program events.Program
	if !strings.EqualFold(name, "all") {
		p, ok := events.ParseProgram(name)
		if !ok {
			respondWithError(c, http.StatusNotFound, "Unknown program: "+name)
			return
		}
		program = p
	}

	view, _, _, ok := s.visibleEvents(c)
	if !ok {
		return
	}
	if program != "" {
		view = events.Filter{Programs: []events.Program{program}}.Apply(view, s.today())
		name = string(program)
	} else {
		name = "all"
	}

	s.exporter.GenerateSubscriptionICS(c.Writer, c.Request, name, view)
}

// GetSession reports the caller's role
func (s *Server) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session":      currentSession(c),
		"editMode":     s.editMode,
		"authRequired": s.creds != nil,
	})
}

// Login checks the admin credentials and issues a session token
func (s *Server) Login(c *gin.Context) {
	if !s.editMode {
		respondWithError(c, http.StatusForbidden, ErrEditModeDisabled)
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	match, err := s.creds.Check(req.Username, req.Password)
	if err != nil {
		s.logger.Error("error verifying password", zap.Error(err))
	}
	if !match {
		s.logger.Warn("failed login", zap.String("ip", c.ClientIP()), zap.String("user", req.Username))
		respondWithError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, session, err := s.sessions.Issue(req.Username)
	if err != nil {
		s.logger.Error("failed to issue session", zap.Error(err))
		respondWithError(c, http.StatusInternalServerError, ErrInternalServer)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", false, true)
	s.logger.Info("admin logged in", zap.String("user", req.Username))

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"session": session,
	})
}

// Logout drops the session cookie. Bearer tokens simply expire.
func (s *Server) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleStatus reports the medium and what the last load dropped
func (s *Server) HandleStatus(c *gin.Context) {
	all, report, err := s.store.LoadAllWithReport(c.Request.Context())
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToLoad)
		return
	}

	today := s.today()
	counts := make(map[events.Status]int, len(events.Statuses))
	for _, e := range all {
		counts[events.StatusAt(e, today)]++
	}

	c.JSON(http.StatusOK, gin.H{
		"medium":  s.store.Describe(),
		"missing": report.Missing,
		"rows":    report.Rows,
		"dropped": report.Dropped,
		"events":  len(all),
		"counts":  counts,
		"today":   today.Format(events.DateLayout),
	})
}

// AddEvent creates an event from the entry form
func (s *Server) AddEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	e, err := req.toEvent()
	if err != nil {
		respondWithError(c, http.StatusBadRequest, ErrInvalidDateFormat)
		return
	}
	if err := events.Validate(e); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.store.Add(c.Request.Context(), e)
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToSave)
		return
	}

	s.logger.Info("event added", zap.Int("event_id", added.ID), zap.String("program", string(added.Program)))
	c.JSON(http.StatusCreated, toResponse(added, s.today()))
}

// UpdateEvent applies a partial update. Identity and order never change.
func (s *Server) UpdateEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		respondWithError(c, http.StatusBadRequest, ErrInvalidDateFormat)
		return
	}

	// Switching to all-day clears the times
	if patch.AllDay != nil && *patch.AllDay {
		empty := ""
		patch.StartTime, patch.EndTime = &empty, &empty
	}

	// Validated against the stored event inside the store's update cycle
	updated, err := s.store.UpdateChecked(c.Request.Context(), id, patch, events.Validate)
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToSave)
		return
	}

	s.logger.Info("event updated", zap.Int("event_id", id))
	c.JSON(http.StatusOK, toResponse(updated, s.today()))
}

// DeleteEvent removes an event
func (s *Server) DeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.respondWithStoreError(c, err, ErrFailedToSave)
		return
	}

	s.logger.Info("event deleted", zap.Int("event_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MoveEvent shifts an event one step within its program's manual order
func (s *Server) MoveEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Direction string `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	dir := events.Direction(strings.ToLower(req.Direction))
	if dir != events.Up && dir != events.Down {
		respondWithError(c, http.StatusBadRequest, ErrInvalidDirection)
		return
	}

	if err := s.store.Move(c.Request.Context(), id, dir); err != nil {
		s.respondWithStoreError(c, err, ErrFailedToSave)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SwapEvents exchanges the manual order of two events
func (s *Server) SwapEvents(c *gin.Context) {
	var req struct {
		A int `json:"a" binding:"required"`
		B int `json:"b" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SwapOrder(c.Request.Context(), req.A, req.B); err != nil {
		s.respondWithStoreError(c, err, ErrFailedToSave)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PurgeClosed deletes every event that has ended before today
func (s *Server) PurgeClosed(c *gin.Context) {
	removed, err := s.store.PurgeClosed(c.Request.Context(), s.today())
	if err != nil {
		s.respondWithStoreError(c, err, ErrFailedToSave)
		return
	}

	s.logger.Info("closed events purged", zap.Int("removed", removed))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed})
}
