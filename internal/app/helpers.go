package app

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/events"
)

// respondWithError writes the JSON error body
func respondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// respondWithStoreError maps store and validation errors to a status
func (s *Server) respondWithStoreError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, events.ErrNotFound):
		respondWithError(c, http.StatusNotFound, ErrEventNotFound)
	case errors.Is(err, events.ErrInvalidEvent):
		respondWithError(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(fallback, zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
		_ = c.Error(err)
		respondWithError(c, http.StatusInternalServerError, fallback)
	}
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondWithError(c, http.StatusBadRequest, ErrInvalidID)
		return 0, false
	}
	return id, true
}

// queryList reads a query parameter given repeatedly or comma separated
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseFilter builds a view filter from query parameters
func parseFilter(c *gin.Context) (events.Filter, bool) {
	var f events.Filter

	for _, v := range queryList(c, "program") {
		p, ok := events.ParseProgram(v)
		if !ok {
			respondWithError(c, http.StatusBadRequest, "Unknown program: "+v)
			return f, false
		}
		f.Programs = append(f.Programs, p)
	}
	for _, v := range queryList(c, "category") {
		cat, ok := events.ParseCategory(v)
		if !ok {
			respondWithError(c, http.StatusBadRequest, "Unknown category: "+v)
			return f, false
		}
		f.Categories = append(f.Categories, cat)
	}
	for _, v := range queryList(c, "status") {
		st, ok := events.ParseStatus(v)
		if !ok {
			respondWithError(c, http.StatusBadRequest, "Unknown status: "+v)
			return f, false
		}
		f.Statuses = append(f.Statuses, st)
	}

	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		return f, false
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		return f, false
	}

	f.Query = c.Query("q")
	return f, true
}

// queryDate parses an optional date parameter. Absent yields the zero time.
func queryDate(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	d, err := events.ParseDate(raw)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, ErrInvalidDateFormat)
		return time.Time{}, false
	}
	return d, true
}

// filterLabel names a filtered view for download titles
func filterLabel(f events.Filter) string {
	if len(f.Programs) == 1 {
		return string(f.Programs[0])
	}
	return "all"
}
