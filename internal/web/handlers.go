package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/workers"
	"github.com/gin-gonic/gin"
)

const (
	dashboardJobs = 10
	statusJobs    = 50
	syncTimeout   = 2 * time.Minute
)

// Flash texts shown by the dashboard.
const (
	msgConfigureTokenFirst = "Please configure GitHub token first."
	msgBackupStarted       = "Backup started successfully! Check the status page for progress."
	msgBackupInProgress    = "A backup is already in progress."
	msgBackupFileNotFound  = "Backup file not found."
	msgJobDeleted          = "Backup job deleted successfully."
	msgPurged              = "All system data has been permanently purged. The system has been reset to initial state."
	msgAllEnabled          = "All repositories enabled for backup"
	msgAllDisabled         = "All repositories disabled for backup"
	msgInvalidAction       = "Invalid action"
)

// loadConfig returns the stored configuration or nil when nothing is saved yet.
func (s *Server) loadConfig(ctx context.Context) (*storage.BackupConfig, error) {
	cfg, err := s.store.Config.Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return cfg, err
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	s.logger.ErrorCtx(c.Request.Context(), msg, err, logger.Field{Key: "path", Value: c.Request.URL.Path})
	c.String(http.StatusInternalServerError, "Internal server error")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		s.fail(c, "failed to load configuration", err)
		return
	}
	jobs, err := s.store.Jobs.Recent(ctx, dashboardJobs)
	if err != nil {
		s.fail(c, "failed to load recent jobs", err)
		return
	}
	enabled, err := s.store.Repos.CountEnabled(ctx)
	if err != nil {
		s.fail(c, "failed to count repositories", err)
		return
	}
	running, err := s.store.Jobs.CountRunning(ctx)
	if err != nil {
		s.fail(c, "failed to count running jobs", err)
		return
	}
	totalSize, err := s.store.Jobs.TotalArchiveSize(ctx)
	if err != nil {
		s.fail(c, "failed to sum archive sizes", err)
		return
	}

	data := gin.H{
		"Title":        "Dashboard",
		"Config":       cfg,
		"RecentJobs":   jobs,
		"EnabledRepos": enabled,
		"RunningJobs":  running,
		"TotalSize":    totalSize,
	}
	if last, ok := s.backups.LastRun(ctx); ok {
		data["LastRun"] = last
	}
	if s.schedule != nil {
		if next, ok := s.schedule.Next(); ok {
			data["SchedulerActive"] = true
			data["NextRun"] = next
		}
	}
	s.render(c, http.StatusOK, "index", data)
}

func (s *Server) handleRepositories(c *gin.Context) {
	ctx := c.Request.Context()

	cfg, err := s.loadConfig(ctx)
	if err != nil {
		s.fail(c, "failed to load configuration", err)
		return
	}
	if !cfg.HasToken() {
		flash(c, FlashWarning, msgConfigureTokenFirst)
		redirect(c, "/config")
		return
	}

	repos, err := s.store.Repos.List(ctx)
	if err != nil {
		s.fail(c, "failed to list repositories", err)
		return
	}
	enabled := 0
	for _, r := range repos {
		if r.Enabled {
			enabled++
		}
	}
	s.render(c, http.StatusOK, "repositories", gin.H{
		"Title":        "Repositories",
		"Repositories": repos,
		"EnabledCount": enabled,
	})
}

func (s *Server) handleSyncRepositories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), syncTimeout)
	defer cancel()

	added, err := s.backups.SyncRepositories(ctx)
	switch {
	case errors.Is(err, backup.ErrNotConfigured), errors.Is(err, backup.ErrNoToken):
		flash(c, FlashWarning, msgConfigureTokenFirst)
		redirect(c, "/config")
		return
	case err != nil:
		s.logger.ErrorCtx(ctx, "repository sync failed", err)
		flash(c, FlashError, fmt.Sprintf("Error syncing repositories: %s", err))
	default:
		flash(c, FlashSuccess, fmt.Sprintf("Successfully synced %d new repositories.", added))
	}
	redirect(c, "/repositories")
}

type bulkToggleRequest struct {
	Action string `json:"action"`
}

type apiResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleBulkToggle(c *gin.Context) {
	var req bulkToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiResult{Message: msgInvalidAction})
		return
	}

	var enable bool
	var message string
	switch req.Action {
	case "enable_all":
		enable, message = true, msgAllEnabled
	case "disable_all":
		enable, message = false, msgAllDisabled
	default:
		c.JSON(http.StatusBadRequest, apiResult{Message: msgInvalidAction})
		return
	}

	ctx := c.Request.Context()
	n, err := s.store.Repos.SetAllEnabled(ctx, enable)
	if err != nil {
		s.logger.ErrorCtx(ctx, "bulk toggle failed", err)
		c.JSON(http.StatusInternalServerError, apiResult{Message: err.Error()})
		return
	}
	s.backups.RefreshMetrics(ctx)
	s.logger.InfoCtx(ctx, "bulk toggle",
		logger.Field{Key: "enabled", Value: enable},
		logger.Field{Key: "count", Value: n})
	c.JSON(http.StatusOK, apiResult{Success: true, Message: message})
}

func (s *Server) handleToggleRepository(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.handleNotFound(c)
		return
	}

	ctx := c.Request.Context()
	repo, err := s.store.Repos.Toggle(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.handleNotFound(c)
		return
	}
	if err != nil {
		s.fail(c, "failed to toggle repository", err)
		return
	}
	s.backups.RefreshMetrics(ctx)

	state := "disabled"
	if repo.Enabled {
		state = "enabled"
	}
	flash(c, FlashSuccess, fmt.Sprintf("Repository %s %s for backup.", repo.Name, state))
	redirect(c, "/repositories")
}

func (s *Server) handleBackupNow(c *gin.Context) {
	cfg, err := s.loadConfig(c.Request.Context())
	if err != nil {
		s.fail(c, "failed to load configuration", err)
		return
	}
	if !cfg.HasToken() {
		flash(c, FlashError, msgConfigureTokenFirst)
		redirect(c, "/config")
		return
	}
	if s.backups.Running() {
		flash(c, FlashWarning, msgBackupInProgress)
		redirect(c, "/")
		return
	}
	if s.tasks == nil {
		flash(c, FlashError, "Error starting backup: no worker pool available")
		redirect(c, "/")
		return
	}

	_, err = s.tasks.TrySubmit(workers.Task{Type: workers.TaskBackupAll})
	switch {
	case errors.Is(err, workers.ErrQueueFull):
		flash(c, FlashWarning, msgBackupInProgress)
	case err != nil:
		s.logger.ErrorCtx(c.Request.Context(), "failed to queue backup", err)
		flash(c, FlashError, fmt.Sprintf("Error starting backup: %s", err))
	default:
		flash(c, FlashSuccess, msgBackupStarted)
	}
	redirect(c, "/")
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	jobs, err := s.store.Jobs.Recent(ctx, statusJobs)
	if err != nil {
		s.fail(c, "failed to load jobs", err)
		return
	}
	running, err := s.store.Jobs.Running(ctx)
	if err != nil {
		s.fail(c, "failed to load running jobs", err)
		return
	}
	s.render(c, http.StatusOK, "status", gin.H{
		"Title":       "Backup Status",
		"Jobs":        jobs,
		"RunningJobs": running,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.handleNotFound(c)
		return
	}

	job, err := s.store.Jobs.Get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.handleNotFound(c)
		return
	}
	if err != nil {
		s.fail(c, "failed to load job", err)
		return
	}

	if job.BackupFilePath == "" {
		flash(c, FlashError, msgBackupFileNotFound)
		redirect(c, "/status")
		return
	}
	if info, err := os.Stat(job.BackupFilePath); err != nil || !info.Mode().IsRegular() {
		flash(c, FlashError, msgBackupFileNotFound)
		redirect(c, "/status")
		return
	}
	c.FileAttachment(job.BackupFilePath, filepath.Base(job.BackupFilePath))
}

func (s *Server) handleDeleteJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.handleNotFound(c)
		return
	}

	err := s.backups.DeleteJob(c.Request.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.handleNotFound(c)
		return
	case err != nil:
		s.logger.ErrorCtx(c.Request.Context(), "failed to delete job", err, logger.Field{Key: "job_id", Value: id})
		flash(c, FlashError, fmt.Sprintf("Error deleting backup job: %s", err))
	default:
		flash(c, FlashSuccess, msgJobDeleted)
	}
	redirect(c, "/status")
}

func (s *Server) handlePurge(c *gin.Context) {
	ctx := c.Request.Context()

	if s.backups.Running() {
		flash(c, FlashError, "Cannot purge the system while a backup is running.")
		redirect(c, "/")
		return
	}

	if _, err := s.backups.Purge(ctx); err != nil {
		s.logger.ErrorCtx(ctx, "purge failed", err)
		flash(c, FlashError, fmt.Sprintf("Error purging system: %s", err))
		redirect(c, "/")
		return
	}
	if s.schedule != nil {
		if err := s.schedule.Apply(nil); err != nil {
			s.logger.ErrorCtx(ctx, "failed to clear schedule", err)
		}
	}

	flash(c, FlashSuccess, msgPurged)
	redirect(c, "/config")
}
