package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/admission-board/internal/events"
	"github.com/klabast/wb-services/admission-board/internal/storage"
)

// Options wires a Server
type Options struct {
	Store       *storage.EventStore
	Credentials *Credentials
	Sessions    *Sessions
	Logger      *zap.Logger
	Location    *time.Location
	BaseURL     string
	EditMode    bool
}

// Server serves the board over HTTP. Admin routes exist only in edit mode.
type Server struct {
	store    *storage.EventStore
	exporter *Exporter
	creds    *Credentials
	sessions *Sessions
	logger   *zap.Logger
	loc      *time.Location
	editMode bool
	now      func() time.Time
}

// NewServer creates a Server from opts
func NewServer(opts Options) *Server {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    opts.Store,
		exporter: &Exporter{Location: loc, BaseURL: opts.BaseURL, Logger: logger},
		creds:    opts.Credentials,
		sessions: opts.Sessions,
		logger:   logger,
		loc:      loc,
		editMode: opts.EditMode,
		now:      time.Now,
	}
}

// today is the current calendar date in the board zone
func (s *Server) today() time.Time {
	return events.DateOf(s.now().In(s.loc))
}

// Mode returns serve or edit
func (s *Server) Mode() string {
	if s.editMode {
		return ModeEdit
	}
	return ModeServe
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger), s.LoadSession())

	api := r.Group("/api")
	{
		api.GET("/config", s.GetConfig)
		api.GET("/events", s.ListEvents)
		api.GET("/events/:id", s.GetEvent)
		api.GET("/calendar", s.HandleCalendar)
		api.GET("/download", s.HandleDownload)
		api.GET("/subscribe/:program", s.HandleSubscribe)
		api.GET("/session", s.GetSession)
		api.POST("/login", s.Login)
		api.POST("/logout", s.Logout)
	}

	if s.editMode {
		admin := r.Group("/api/admin")
		admin.Use(s.RequireAdmin())
		{
			admin.GET("/events", s.ListAllEvents)
			admin.GET("/status", s.HandleStatus)
			admin.POST("/events", s.AddEvent)
			admin.PUT("/events/:id", s.UpdateEvent)
			admin.DELETE("/events/:id", s.DeleteEvent)
			admin.POST("/events/:id/move", s.MoveEvent)
			admin.POST("/events/swap", s.SwapEvents)
			admin.POST("/events/purge-closed", s.PurgeClosed)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respondWithError(c, http.StatusNotFound, "Route not found")
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
