// Package app provides the main application structure for ghbackup.
// It coordinates the SQLite store, the backup service, the worker pool,
// the cron scheduler and the web dashboard.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/aatumaykin/ghbackup/internal/cron"
	"github.com/aatumaykin/ghbackup/internal/dashboard"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/metrics"
	"github.com/aatumaykin/ghbackup/internal/notify"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/web"
	"github.com/aatumaykin/ghbackup/internal/workers"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	config *config.Config
	logger *logger.Logger

	// Persistence
	store *storage.Store

	// Backups
	backups  *backup.Service
	cloner   backup.Cloner
	clients  backup.ClientFactory
	notifier notify.Notifier
	metrics  *metrics.Metrics

	// Background task execution
	workerPool *workers.WorkerPool

	// Scheduled backups
	cronScheduler *cron.Scheduler
	schedule      *BackupSchedule

	// Collapses bursts of configuration saves into one sync
	syncDebouncer *dashboard.Debouncer

	// Dashboard
	server *web.Server

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Thread-safety
	mu      sync.RWMutex
	started bool
}

// Option customises an App before Initialize.
type Option func(*App)

// WithCloner replaces the git cloner.
func WithCloner(c backup.Cloner) Option {
	return func(a *App) { a.cloner = c }
}

// WithClientFactory replaces the GitHub client factory.
func WithClientFactory(f backup.ClientFactory) Option {
	return func(a *App) { a.clients = f }
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run initializes the application, serves the dashboard and blocks until ctx is
// cancelled or the HTTP server fails. Shutdown runs in both cases.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	a.logger.Info("Application is running", logger.Field{Key: "listen", Value: a.server.Addr()})

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("dashboard server stopped: %w", err)
		}
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Backups returns the backup service. Nil before Initialize.
func (a *App) Backups() *backup.Service {
	return a.backups
}

// Store returns the database. Nil before Initialize.
func (a *App) Store() *storage.Store {
	return a.store
}

// Server returns the dashboard server. Nil before Initialize.
func (a *App) Server() *web.Server {
	return a.server
}
