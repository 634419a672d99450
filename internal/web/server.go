// Package web serves the backup dashboard: server-rendered pages, the small JSON
// endpoints used for field-level validation and auto-refresh, and /metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/aatumaykin/ghbackup/internal/cron"
	"github.com/aatumaykin/ghbackup/internal/dashboard"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/metrics"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/workers"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// TaskSubmitter queues background work without blocking the request.
type TaskSubmitter interface {
	TrySubmit(task workers.Task) (string, error)
}

// Schedule applies the stored schedule to the running scheduler.
type Schedule interface {
	Apply(cfg *storage.BackupConfig) error
	Next() (time.Time, bool)
}

// ConnectionTester checks a token against the GitHub API.
type ConnectionTester func(ctx context.Context, token string) error

// Deps are the collaborators of the web server.
type Deps struct {
	Config   *config.Config
	Store    *storage.Store
	Backups  *backup.Service
	Tasks    TaskSubmitter
	Schedule Schedule
	TestConn ConnectionTester
	// RequestSync schedules a debounced repository sync.
	RequestSync func() bool
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg       *config.Config
	store     *storage.Store
	backups   *backup.Service
	tasks     TaskSubmitter
	schedule  Schedule
	testConn  ConnectionTester
	sync      func() bool
	metrics   *metrics.Metrics
	logger    *logger.Logger
	validator *cron.Validator
	policy    dashboard.RefreshPolicy

	engine *gin.Engine
	http   *http.Server
}

// New builds the router. It does not start listening.
func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Store == nil || d.Backups == nil {
		return nil, errors.New("web: config, store and backup service are required")
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.RequestSync == nil {
		d.RequestSync = func() bool { return false }
	}

	s := &Server{
		cfg:       d.Config,
		store:     d.Store,
		backups:   d.Backups,
		tasks:     d.Tasks,
		schedule:  d.Schedule,
		testConn:  d.TestConn,
		sync:      d.RequestSync,
		metrics:   d.Metrics,
		logger:    d.Logger.Component("web"),
		validator: d.Config.CronValidator(),
		policy: dashboard.RefreshPolicy{
			Interval:      d.Config.UI.RefreshInterval(),
			IdleThreshold: d.Config.UI.IdleThreshold(),
		},
	}

	renderer, err := newRenderer(s.templateFuncs())
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	if d.Config.Server.Mode == gin.DebugMode {
		gin.DefaultWriter = s.logger.Writer(slog.LevelDebug)
	}

	store, err := newSessionStore(d.Config.Server.SessionSecret)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.HTMLRender = renderer
	engine.Use(s.recovery(), s.requestLogger(), sessions.Sessions(sessionCookie, store))
	s.engine = engine
	s.routes()

	s.http = &http.Server{
		Addr:         d.Config.Server.Listen,
		Handler:      engine,
		ReadTimeout:  time.Duration(d.Config.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(d.Config.Server.WriteTimeoutSeconds) * time.Second,
		ErrorLog:     slog.NewLogLogger(s.logger.StdLogger().Handler(), slog.LevelWarn),
	}
	return s, nil
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/", s.handleIndex)
	r.GET("/config", s.handleConfigForm)
	r.POST("/config", s.handleConfigSave)
	r.GET("/repositories", s.handleRepositories)
	r.POST("/sync-repositories", s.handleSyncRepositories)
	r.POST("/bulk-toggle-repositories", s.handleBulkToggle)
	r.POST("/toggle-repository/:id", s.handleToggleRepository)
	r.POST("/backup-now", s.handleBackupNow)
	r.GET("/status", s.handleStatus)
	r.GET("/download-backup/:id", s.handleDownload)
	r.POST("/delete-job/:id", s.handleDeleteJob)
	r.POST("/purge-system", s.handlePurge)

	api := r.Group("/api")
	{
		api.GET("/cron/validate", s.handleCronValidate)
		api.POST("/token/validate", s.handleTokenValidate)
		api.GET("/status", s.handleAPIStatus)
	}

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		r.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	r.StaticFS("/static", staticFS())
	r.NoRoute(s.handleNotFound)
}

// Handler returns the router, used by tests and by ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe blocks until the server is shut down.
// http.ErrServerClosed is not reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("dashboard listening", logger.Field{Key: "addr", Value: s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLogger пишет каждый запрос в структурированный лог
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: c.Request.URL.Path},
			{Key: "status", Value: c.Writer.Status()},
			{Key: "latency", Value: time.Since(start).String()},
			{Key: "client_ip", Value: c.ClientIP()},
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.Field{Key: "errors", Value: c.Errors.String()})
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError, len(c.Errors) > 0:
			s.logger.WarnCtx(c.Request.Context(), "request failed", fields...)
		default:
			s.logger.DebugCtx(c.Request.Context(), "request", fields...)
		}
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.ErrorCtx(c.Request.Context(), "panic in handler", fmt.Errorf("%v", recovered),
			logger.Field{Key: "path", Value: c.Request.URL.Path})
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
