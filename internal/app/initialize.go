package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/aatumaykin/ghbackup/internal/cron"
	"github.com/aatumaykin/ghbackup/internal/dashboard"
	"github.com/aatumaykin/ghbackup/internal/github"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/metrics"
	"github.com/aatumaykin/ghbackup/internal/notify"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/web"
	"github.com/aatumaykin/ghbackup/internal/workers"
	"github.com/gin-gonic/gin"
)

// Initialize initializes all application components.
// It opens the store, recovers interrupted jobs, starts the worker pool and the
// scheduler, restores the stored schedule and builds the dashboard server.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.New("application already initialized")
	}

	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)

	// 2. Open the database and run migrations
	store, err := storage.Open(a.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store

	// 3. Metrics
	if a.config.Metrics.Enabled {
		a.metrics = metrics.InitPrometheusMetrics(a.config.Metrics.Namespace, metrics.NewRegistry())
	}

	// 4. Notifications
	if a.notifier == nil {
		notifier, err := BuildNotifier(a.config, a.logger)
		if err != nil {
			return err
		}
		a.notifier = notifier
	}

	// 5. Backup service
	if a.clients == nil {
		a.clients = GitHubClientFactory(a.config, a.logger)
	}
	if a.cloner == nil {
		a.cloner = backup.NewGitCloner(a.config.Backup.GitBinary, a.config.Backup.CloneDepth, a.config.Backup.CloneTimeout())
	}
	a.backups = backup.NewService(backup.Deps{
		Store:       a.store,
		Clients:     a.clients,
		Cloner:      a.cloner,
		Notifier:    a.notifier,
		Metrics:     a.metrics,
		Logger:      a.logger,
		DefaultPath: a.config.Backup.DefaultPath,
	})
	if _, err := a.backups.RecoverInterrupted(a.ctx); err != nil {
		return fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}

	stored, err := a.seedConfig(a.ctx)
	if err != nil {
		return err
	}
	a.backups.RefreshMetrics(a.ctx)

	// 6. Worker pool
	a.workerPool = workers.NewPool(workers.Config{
		Workers:   a.config.Workers.PoolSize,
		QueueSize: a.config.Workers.QueueSize,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
	a.workerPool.Register(workers.TaskBackupAll, a.executeBackupAll)
	a.workerPool.Register(workers.TaskSync, a.executeSync)
	a.workerPool.Start()
	a.logger.Info("worker pool started",
		logger.Field{Key: "workers", Value: a.workerPool.WorkerCount()},
		logger.Field{Key: "queue_size", Value: a.workerPool.QueueSize()})

	// 7. Cron scheduler, restored from the stored configuration
	loc, err := a.config.Location()
	if err != nil {
		return err
	}
	a.cronScheduler = cron.NewScheduler(a.logger.Component("cron"),
		cron.WithLocation(loc),
		cron.WithValidator(a.config.CronValidator()))
	if err := a.cronScheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}
	a.schedule = NewBackupSchedule(a.cronScheduler, a.workerPool, a.logger)
	if err := a.schedule.Apply(stored); err != nil {
		// сохранённое выражение могло стать невалидным при strict_steps
		a.logger.Error("failed to restore backup schedule", err)
	}

	// 8. Debounced repository sync
	a.syncDebouncer = dashboard.NewDebouncer(a.config.UI.AutosaveQuiet(), func() {
		if _, err := a.workerPool.TrySubmit(workers.Task{Type: workers.TaskSync}); err != nil {
			a.logger.Warn("debounced sync not queued", logger.Field{Key: "error", Value: err.Error()})
		}
	})

	// 9. Dashboard
	gin.SetMode(a.config.Server.Mode)
	server, err := web.New(web.Deps{
		Config:      a.config,
		Store:       a.store,
		Backups:     a.backups,
		Tasks:       a.workerPool,
		Schedule:    a.schedule,
		TestConn:    a.testConnection,
		RequestSync: a.syncDebouncer.Trigger,
		Metrics:     a.metrics,
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard server: %w", err)
	}
	a.server = server

	// 10. Mark as started
	a.started = true
	return nil
}

// seedConfig stores the TOML defaults on a fresh database when a token is configured,
// and returns the configuration now in effect (nil when nothing is stored).
func (a *App) seedConfig(ctx context.Context) (*storage.BackupConfig, error) {
	cfg, err := a.store.Config.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load backup configuration: %w", err)
	}
	if a.config.GitHub.Token == "" {
		return nil, nil
	}

	seed := &storage.BackupConfig{
		GitHubToken:     a.config.GitHub.Token,
		BackupPath:      a.config.Backup.DefaultPath,
		MaxBackups:      a.config.Backup.DefaultMaxBackups,
		ScheduleCron:    a.config.Backup.DefaultCron,
		AutoSyncEnabled: true,
	}
	if err := a.store.Config.Save(ctx, seed); err != nil {
		return nil, fmt.Errorf("failed to seed backup configuration: %w", err)
	}
	a.logger.Info("seeded backup configuration from config file",
		logger.Field{Key: "backup_path", Value: seed.BackupPath})
	return a.store.Config.Get(ctx)
}

func (a *App) executeBackupAll(ctx context.Context, _ workers.Task) (string, error) {
	summary, err := a.backups.BackupAll(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%d repositories backed up (%s)",
		summary.Succeeded, summary.Total, backup.FormatSize(summary.Bytes)), nil
}

func (a *App) executeSync(ctx context.Context, _ workers.Task) (string, error) {
	added, err := a.backups.SyncRepositories(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d new repositories", added), nil
}

func (a *App) testConnection(ctx context.Context, token string) error {
	return NewGitHubClient(a.config, a.logger, token).TestConnection(ctx)
}

// NewGitHubClient builds a client for token from the [github] section.
func NewGitHubClient(cfg *config.Config, log *logger.Logger, token string) *github.Client {
	return github.NewClient(github.Config{
		BaseURL:       cfg.GitHub.APIURL,
		Token:         token,
		UserAgent:     cfg.GitHub.UserAgent,
		Timeout:       cfg.GitHub.Timeout(),
		PerPage:       cfg.GitHub.PerPage,
		RetryAttempts: cfg.GitHub.RetryAttempts,
		Logger:        log,
	})
}

// GitHubClientFactory returns a backup.ClientFactory backed by the GitHub REST API.
func GitHubClientFactory(cfg *config.Config, log *logger.Logger) backup.ClientFactory {
	return func(token string) backup.RepoLister {
		return NewGitHubClient(cfg, log, token)
	}
}

// BuildNotifier returns the notifier described by [notifications]. Backup results are
// always logged; Telegram is added when enabled.
func BuildNotifier(cfg *config.Config, log *logger.Logger) (notify.Notifier, error) {
	notifiers := notify.Multi{notify.Log{Logger: log.Component("notify")}}

	tg := cfg.Notifications.Telegram
	if tg.Enabled {
		telegram, err := notify.NewTelegram(notify.TelegramConfig{
			Token:        tg.Token,
			ChatIDs:      tg.ChatIDs,
			Timeout:      tg.Timeout(),
			OnlyFailures: tg.OnlyFailures,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		notifiers = append(notifiers, telegram)
	}
	return notifiers, nil
}
