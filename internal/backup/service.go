// Package backup clones repositories, archives them and applies retention.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aatumaykin/ghbackup/internal/github"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/metrics"
	"github.com/aatumaykin/ghbackup/internal/notify"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/version"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured  = errors.New("no backup configuration found")
	ErrNoToken        = errors.New("GitHub token is not configured")
	ErrAlreadyRunning = errors.New("a backup run is already in progress")
)

// InterruptedMessage is stored on jobs found running at startup.
const InterruptedMessage = "Backup interrupted: application stopped while the job was running"

// RepoLister lists repositories visible to a token.
type RepoLister interface {
	ListRepositories(ctx context.Context) ([]github.Repository, error)
}

// ClientFactory builds a RepoLister for a token.
type ClientFactory func(token string) RepoLister

// Deps are the collaborators of Service.
type Deps struct {
	Store       *storage.Store
	Clients     ClientFactory
	Cloner      Cloner
	Notifier    notify.Notifier
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
	DefaultPath string
	Now         func() time.Time
}

// Service runs backups against the configuration stored in the database.
type Service struct {
	store       *storage.Store
	clients     ClientFactory
	cloner      Cloner
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	logger      *logger.Logger
	defaultPath string
	now         func() time.Time

	running  atomic.Bool
	inflight atomic.Int32
}

// NewService creates a backup service.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.DefaultPath == "" {
		d.DefaultPath = "./backups"
	}
	return &Service{
		store:       d.Store,
		clients:     d.Clients,
		cloner:      d.Cloner,
		notifier:    d.Notifier,
		metrics:     d.Metrics,
		logger:      d.Logger.Component("backup"),
		defaultPath: d.DefaultPath,
		now:         d.Now,
	}
}

// RunSummary is the outcome of BackupAll.
type RunSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64
	StartedAt time.Time
	Duration  time.Duration
	Failures  []string
}

// Running reports whether BackupAll is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

func (s *Service) config(ctx context.Context) (*storage.BackupConfig, error) {
	cfg, err := s.store.Config.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup configuration: %w", err)
	}
	return cfg, nil
}

// BackupAll backs up every enabled repository, then applies retention.
// A failing repository does not stop the rest of the run.
func (s *Service) BackupAll(ctx context.Context) (*RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	cfg, err := s.config(ctx)
	if err != nil {
		s.logger.ErrorCtx(ctx, "backup run aborted", err)
		return nil, err
	}

	summary := &RunSummary{RunID: uuid.NewString(), StartedAt: s.now()}
	log := s.logger.With(logger.Field{Key: "run_id", Value: summary.RunID})

	if cfg.AutoSyncEnabled {
		log.InfoCtx(ctx, "auto-sync enabled, checking for new repositories")
		if _, err := s.syncRepositories(ctx, cfg); err != nil {
			log.ErrorCtx(ctx, "auto-sync failed", err)
		}
	}

	repos, err := s.store.Repos.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	if len(repos) == 0 {
		log.InfoCtx(ctx, "no enabled repositories found for backup")
		return summary, nil
	}

	log.InfoCtx(ctx, "starting backup", logger.Field{Key: "repositories", Value: len(repos)})
	summary.Total = len(repos)

	for _, repo := range repos {
		if ctx.Err() != nil {
			summary.Failed += summary.Total - summary.Succeeded - summary.Failed
			summary.Failures = append(summary.Failures, "run cancelled: "+ctx.Err().Error())
			break
		}
		job, err := s.backupRepository(ctx, cfg, repo, summary.RunID)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %s", repo.FullName, err.Error()))
			continue
		}
		summary.Succeeded++
		summary.Bytes += job.FileSize
	}

	if _, err := s.cleanup(context.WithoutCancel(ctx), cfg); err != nil {
		log.ErrorCtx(ctx, "retention cleanup failed", err)
	}

	summary.Duration = s.now().Sub(summary.StartedAt)
	finished := s.now()
	s.metrics.RecordRun(finished)
	if err := s.store.Settings.SetTime(context.WithoutCancel(ctx), storage.SettingLastRun, finished); err != nil {
		log.ErrorCtx(ctx, "failed to record last run", err)
	}
	log.InfoCtx(ctx, "backup run finished",
		logger.Field{Key: "succeeded", Value: summary.Succeeded},
		logger.Field{Key: "failed", Value: summary.Failed},
		logger.Field{Key: "size", Value: FormatSize(summary.Bytes)},
		logger.Field{Key: "duration", Value: summary.Duration.String()})

	notify.Send(context.WithoutCancel(ctx), s.notifier, log, summaryNotification(summary))
	return summary, nil
}

func summaryNotification(sum *RunSummary) notify.Notification {
	n := notify.Notification{
		Level: notify.LevelSuccess,
		Title: fmt.Sprintf("Backup finished: %d/%d repositories", sum.Succeeded, sum.Total),
	}
	switch {
	case sum.Failed > 0 && sum.Succeeded == 0:
		n.Level = notify.LevelError
		n.Title = fmt.Sprintf("Backup failed: 0/%d repositories", sum.Total)
	case sum.Failed > 0:
		n.Level = notify.LevelWarning
	}

	lines := []string{
		fmt.Sprintf("Archived %s in %s", FormatSize(sum.Bytes), sum.Duration.Round(time.Second)),
	}
	for _, f := range sum.Failures {
		lines = append(lines, "• "+f)
	}
	n.Message = strings.Join(lines, "\n")
	return n
}

// BackupRepository backs up a single repository using the stored configuration.
func (s *Service) BackupRepository(ctx context.Context, repo storage.Repository) (*storage.BackupJob, error) {
	cfg, err := s.config(ctx)
	if err != nil {
		return nil, err
	}
	return s.backupRepository(ctx, cfg, repo, "")
}

func (s *Service) backupRepository(ctx context.Context, cfg *storage.BackupConfig, repo storage.Repository, runID string) (*storage.BackupJob, error) {
	log := s.logger.With(logger.Field{Key: "repository", Value: repo.FullName})
	started := s.now()

	job, err := s.store.Jobs.Create(ctx, repo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	s.metrics.SetJobsRunning(int(s.inflight.Add(1)))
	defer func() { s.metrics.SetJobsRunning(int(s.inflight.Add(-1))) }()

	path, size, err := s.cloneAndArchive(ctx, cfg, repo, runID)

	// статус задачи пишем даже при отменённом контексте
	dbCtx := context.WithoutCancel(ctx)
	if err != nil {
		msg := Redact(err.Error(), cfg.GitHubToken)
		log.ErrorCtx(ctx, "backup failed", errors.New(msg))
		if ferr := s.store.Jobs.Fail(dbCtx, job.ID, msg); ferr != nil {
			log.ErrorCtx(ctx, "failed to mark job failed", ferr)
		}
		s.metrics.RecordBackup(string(storage.JobFailed), s.now().Sub(started), 0)
		return nil, errors.New(msg)
	}

	if err := s.store.Jobs.Complete(dbCtx, job.ID, path, size); err != nil {
		return nil, fmt.Errorf("failed to complete job: %w", err)
	}
	if err := s.store.Repos.TouchLastBackup(dbCtx, repo.ID); err != nil {
		log.ErrorCtx(ctx, "failed to update last backup time", err)
	}
	s.metrics.RecordBackup(string(storage.JobCompleted), s.now().Sub(started), size)

	log.InfoCtx(ctx, "successfully backed up",
		logger.Field{Key: "archive", Value: filepath.Base(path)},
		logger.Field{Key: "size", Value: FormatSize(size)})

	job.Status = storage.JobCompleted
	job.BackupFilePath = path
	job.FileSize = size
	return job, nil
}

func (s *Service) cloneAndArchive(ctx context.Context, cfg *storage.BackupConfig, repo storage.Repository, runID string) (string, int64, error) {
	if err := os.MkdirAll(cfg.BackupPath, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.MkdirTemp("", "ghbackup-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	repoDir := filepath.Join(tmp, safeName(repo.Name))
	s.logger.DebugCtx(ctx, "cloning repository", logger.Field{Key: "repository", Value: repo.FullName})
	commit, err := s.cloner.Clone(ctx, repo.CloneURL, cfg.GitHubToken, repoDir)
	if err != nil {
		return "", 0, err
	}

	now := s.now()
	dest := uniquePath(filepath.Join(cfg.BackupPath, ArchiveName(repo.Name, now)))
	manifest := &Manifest{
		Repository: repo.Name,
		FullName:   repo.FullName,
		CloneURL:   repo.CloneURL,
		Commit:     commit,
		RunID:      runID,
		CreatedAt:  now.UTC(),
		Tool:       version.UserAgent(),
	}
	size, err := CreateArchive(repoDir, dest, manifest)
	if err != nil {
		return "", 0, err
	}
	return dest, size, nil
}

// Cleanup keeps the newest max_backups completed archives per repository.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	cfg, err := s.config(ctx)
	if err != nil {
		return 0, err
	}
	return s.cleanup(ctx, cfg)
}

func (s *Service) cleanup(ctx context.Context, cfg *storage.BackupConfig) (int, error) {
	if cfg.MaxBackups <= 0 {
		return 0, nil
	}

	repos, err := s.store.Repos.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, repo := range repos {
		jobs, err := s.store.Jobs.CompletedForRepository(ctx, repo.ID)
		if err != nil {
			return removed, err
		}
		if len(jobs) <= cfg.MaxBackups {
			continue
		}
		for _, job := range jobs[cfg.MaxBackups:] {
			if err := s.deleteJob(ctx, job); err != nil {
				s.logger.ErrorCtx(ctx, "failed to delete old backup", err,
					logger.Field{Key: "path", Value: job.BackupFilePath})
				continue
			}
			s.logger.InfoCtx(ctx, "deleted old backup", logger.Field{Key: "path", Value: job.BackupFilePath})
			removed++
		}
	}
	return removed, nil
}

// DeleteJob removes a job record together with its archive.
func (s *Service) DeleteJob(ctx context.Context, id int64) error {
	job, err := s.store.Jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteJob(ctx, *job)
}

func (s *Service) deleteJob(ctx context.Context, job storage.BackupJob) error {
	if job.BackupFilePath != "" {
		if err := os.Remove(job.BackupFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete archive: %w", err)
		}
	}
	return s.store.Jobs.Delete(ctx, job.ID)
}

// SyncRepositories adds repositories visible to the stored token that are not yet known.
func (s *Service) SyncRepositories(ctx context.Context) (int, error) {
	cfg, err := s.config(ctx)
	if err != nil {
		return 0, err
	}
	return s.syncRepositories(ctx, cfg)
}

func (s *Service) syncRepositories(ctx context.Context, cfg *storage.BackupConfig) (int, error) {
	if !cfg.HasToken() {
		return 0, ErrNoToken
	}
	if s.clients == nil {
		return 0, errors.New("no GitHub client available")
	}

	remote, err := s.clients(cfg.GitHubToken).ListRepositories(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, r := range remote {
		inserted, err := s.store.Repos.InsertIfMissing(ctx, r.Name, r.FullName, r.CloneURL)
		if err != nil {
			return added, fmt.Errorf("failed to store repository %s: %w", r.FullName, err)
		}
		if inserted {
			added++
		}
	}

	if added > 0 {
		s.logger.InfoCtx(ctx, "sync: added new repositories", logger.Field{Key: "count", Value: added})
	} else {
		s.logger.InfoCtx(ctx, "sync: no new repositories found")
	}
	s.RefreshMetrics(ctx)
	return added, nil
}

// RecoverInterrupted marks jobs left running by a previous process as failed.
func (s *Service) RecoverInterrupted(ctx context.Context) (int64, error) {
	n, err := s.store.Jobs.FailInterrupted(ctx, InterruptedMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.WarnCtx(ctx, "marked interrupted jobs as failed", logger.Field{Key: "count", Value: n})
	}
	return n, nil
}

// Purge deletes every record and every archive, then recreates the empty backup directory.
// It returns the backup directory that was wiped.
func (s *Service) Purge(ctx context.Context) (string, error) {
	path := s.defaultPath
	if cfg, err := s.store.Config.Get(ctx); err == nil && cfg.BackupPath != "" {
		path = cfg.BackupPath
	}

	if err := s.store.Purge(ctx); err != nil {
		return path, fmt.Errorf("failed to purge database: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return path, fmt.Errorf("failed to delete backup directory: %w", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return path, fmt.Errorf("failed to recreate backup directory: %w", err)
	}

	s.logger.WarnCtx(ctx, "system purged", logger.Field{Key: "backup_path", Value: path})
	s.RefreshMetrics(ctx)
	return path, nil
}

// LastRun returns when the last backup run finished.
func (s *Service) LastRun(ctx context.Context) (time.Time, bool) {
	t, err := s.store.Settings.GetTime(ctx, storage.SettingLastRun)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// RefreshMetrics updates repository gauges from the database.
func (s *Service) RefreshMetrics(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	total, err := s.store.Repos.Count(ctx)
	if err != nil {
		return
	}
	enabled, err := s.store.Repos.CountEnabled(ctx)
	if err != nil {
		return
	}
	s.metrics.SetRepositoryCounts(enabled, total-enabled)
}

// FormatSize renders a byte count for humans, e.g. "1.5 MiB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}
