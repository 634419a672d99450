package app

import (
	"context"
	"errors"
	"time"
)

const (
	serverShutdownTimeout = 10 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Shutdown performs graceful shutdown of all components.
// It stops the application in the reverse order of Initialize:
//  1. Stops the dashboard server
//  2. Drops a pending debounced sync
//  3. Stops the cron scheduler
//  4. Waits for the worker pool (running backups are cancelled after a timeout)
//  5. Closes the database
//
// The method is thread-safe and can be called from multiple goroutines.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.shutdownInternal()
}

func (a *App) shutdownInternal() error {
	var errs []error

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to stop dashboard server", err)
			errs = append(errs, err)
		}
		cancel()
		a.server = nil
	}

	if a.syncDebouncer != nil {
		a.syncDebouncer.Stop()
		a.syncDebouncer = nil
	}

	if a.cronScheduler != nil {
		if a.cronScheduler.IsStarted() {
			if err := a.cronScheduler.Stop(); err != nil {
				a.logger.Error("Failed to stop cron scheduler", err)
			}
		}
		a.cronScheduler = nil
	}

	if a.workerPool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
		if err := a.workerPool.Stop(ctx); err != nil {
			a.logger.Error("Worker pool did not stop in time", err)
			errs = append(errs, err)
		}
		cancel()
		a.workerPool = nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close database", err)
			errs = append(errs, err)
		}
		a.store = nil
	}

	if a.started {
		a.logger.Info("Application shutdown complete")
	}
	a.started = false
	return errors.Join(errs...)
}
