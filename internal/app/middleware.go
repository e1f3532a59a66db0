package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDMaxLen = 64
	sessionKey      = "session"

	// SessionCookie carries the admin token for browser clients
	SessionCookie = "board_session"
)

// RequestID reuses X-Request-ID when it is sane and generates one otherwise
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}

// RequestLogger logs one line per request at a level chosen by status
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case statusCode >= 500:
			logger.Error("request failed", fields...)
		case statusCode >= 400:
			logger.Warn("client error", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// LoadSession resolves the caller's session from a bearer token or the
// session cookie. Callers without a valid token are visitors.
func (s *Server) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := Session{Role: RoleUser}

		token := ""
		if h := c.GetHeader("Authorization"); h != "" {
			parts := strings.SplitN(h, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			token, _ = c.Cookie(SessionCookie)
		}

		if token != "" {
			parsed, err := s.sessions.Parse(token)
			if err != nil {
				s.logger.Debug("ignoring session token", zap.Error(err))
			} else {
				session = parsed
			}
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// currentSession returns the session set by LoadSession
func currentSession(c *gin.Context) Session {
	if v, ok := c.Get(sessionKey); ok {
		if session, ok := v.(Session); ok {
			return session
		}
	}
	return Session{Role: RoleUser}
}

// RequireAdmin lets through admin sessions and valid Basic Auth. Without an
// auth file every caller is admin.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.creds == nil || currentSession(c).IsAdmin() {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if ok {
			match, err := s.creds.Check(user, pass)
			if err != nil {
				s.logger.Error("error verifying password", zap.Error(err))
			}
			if match {
				c.Set(sessionKey, Session{Role: RoleAdmin, User: user})
				c.Next()
				return
			}
		}

		s.logger.Warn("failed auth attempt", zap.String("ip", c.ClientIP()), zap.String("user", user))
		c.Header("WWW-Authenticate", `Basic realm="Admission Board Admin"`)
		respondWithError(c, http.StatusUnauthorized, "Unauthorized")
		c.Abort()
	}
}
