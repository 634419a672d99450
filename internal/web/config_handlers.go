package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/ghbackup/internal/github"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/gin-gonic/gin"
)

const connectionTimeout = 30 * time.Second

const (
	msgInvalidToken     = "Invalid GitHub token. Please check your token and try again."
	msgConfigSaved      = "Configuration saved successfully!"
	msgConfigSavedSync  = "Configuration saved and %d repositories synced!"
	msgConfigSyncFailed = "Configuration saved, but could not sync repositories automatically."
	customCron          = "custom"
)

// CronPreset is one option of the schedule select box.
type CronPreset struct {
	Expression string
	Label      string
}

var cronPresets = []CronPreset{
	{Expression: "0 2 * * *", Label: "Daily at 2:00 AM"},
	{Expression: "0 2 * * 0", Label: "Weekly on Sunday at 2:00 AM"},
	{Expression: "0 2 1 * *", Label: "Monthly on the 1st at 2:00 AM"},
	{Expression: "0 */6 * * *", Label: "Every 6 hours"},
	{Expression: "0 */12 * * *", Label: "Every 12 hours"},
}

// configForm mirrors the fields of the configuration page.
type configForm struct {
	Token           string
	BackupPath      string
	MaxBackups      string
	ScheduleEnabled bool
	ScheduleCron    string
	AutoSyncEnabled bool
}

// IsPreset reports whether the cron expression is one of the select options.
func (f configForm) IsPreset() bool {
	for _, p := range cronPresets {
		if p.Expression == f.ScheduleCron {
			return true
		}
	}
	return false
}

func (s *Server) formFromConfig(cfg *storage.BackupConfig) configForm {
	if cfg == nil {
		return configForm{
			Token:           s.cfg.GitHub.Token,
			BackupPath:      s.cfg.Backup.DefaultPath,
			MaxBackups:      strconv.Itoa(s.cfg.Backup.DefaultMaxBackups),
			ScheduleCron:    s.cfg.Backup.DefaultCron,
			AutoSyncEnabled: true,
		}
	}
	return configForm{
		Token:           cfg.GitHubToken,
		BackupPath:      cfg.BackupPath,
		MaxBackups:      strconv.Itoa(cfg.MaxBackups),
		ScheduleEnabled: cfg.ScheduleEnabled,
		ScheduleCron:    cfg.ScheduleCron,
		AutoSyncEnabled: cfg.AutoSyncEnabled,
	}
}

func readConfigForm(c *gin.Context) configForm {
	cron := strings.TrimSpace(c.PostForm("schedule_cron"))
	if final := strings.TrimSpace(c.PostForm("final_cron")); final != "" {
		cron = final
	} else if cron == customCron {
		cron = strings.TrimSpace(c.PostForm("custom_cron"))
	}
	return configForm{
		Token:           strings.TrimSpace(c.PostForm("github_token")),
		BackupPath:      strings.TrimSpace(c.PostForm("backup_path")),
		MaxBackups:      strings.TrimSpace(c.PostForm("max_backups")),
		ScheduleEnabled: checkbox(c.PostForm("schedule_enabled")),
		ScheduleCron:    cron,
		AutoSyncEnabled: checkbox(c.PostForm("auto_sync_enabled")),
	}
}

func checkbox(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (s *Server) renderConfig(c *gin.Context, code int, form configForm) {
	s.render(c, code, "config", gin.H{
		"Title":   "Configuration",
		"Form":    form,
		"Presets": cronPresets,
	})
}

func (s *Server) handleConfigForm(c *gin.Context) {
	cfg, err := s.loadConfig(c.Request.Context())
	if err != nil {
		s.fail(c, "failed to load configuration", err)
		return
	}
	s.renderConfig(c, http.StatusOK, s.formFromConfig(cfg))
}

// handleConfigSave validates and stores the configuration.
// Validation failures re-render the form with an alert-danger flash; success redirects to the dashboard.
func (s *Server) handleConfigSave(c *gin.Context) {
	ctx := c.Request.Context()
	form := readConfigForm(c)

	if !github.ValidateToken(form.Token).Valid {
		flash(c, FlashError, msgInvalidToken)
		s.renderConfig(c, http.StatusUnprocessableEntity, form)
		return
	}
	if s.testConn != nil {
		tctx, cancel := context.WithTimeout(ctx, connectionTimeout)
		err := s.testConn(tctx, form.Token)
		cancel()
		if err != nil {
			s.logger.WarnCtx(ctx, "GitHub token rejected", logger.Field{Key: "error", Value: err.Error()})
			flash(c, FlashError, msgInvalidToken)
			s.renderConfig(c, http.StatusUnprocessableEntity, form)
			return
		}
	}

	maxBackups, err := strconv.Atoi(form.MaxBackups)
	if err != nil || maxBackups < 0 {
		flash(c, FlashError, "Max backups must be a non-negative number.")
		s.renderConfig(c, http.StatusUnprocessableEntity, form)
		return
	}

	if form.BackupPath == "" {
		form.BackupPath = s.cfg.Backup.DefaultPath
	}
	if strings.Contains(form.BackupPath, "..") {
		flash(c, FlashError, "Backup path must not contain '..'.")
		s.renderConfig(c, http.StatusUnprocessableEntity, form)
		return
	}

	if form.ScheduleEnabled {
		verdict := s.validator.Validate(form.ScheduleCron)
		s.metrics.RecordCronValidation(verdict.Valid)
		if !verdict.Valid {
			flash(c, FlashError, verdict.Reason)
			s.renderConfig(c, http.StatusUnprocessableEntity, form)
			return
		}
	}
	if form.ScheduleCron == "" {
		form.ScheduleCron = s.cfg.Backup.DefaultCron
	}

	cfg := &storage.BackupConfig{
		GitHubToken:     form.Token,
		BackupPath:      form.BackupPath,
		MaxBackups:      maxBackups,
		ScheduleEnabled: form.ScheduleEnabled,
		ScheduleCron:    form.ScheduleCron,
		AutoSyncEnabled: form.AutoSyncEnabled,
	}
	if err := s.store.Config.Save(ctx, cfg); err != nil {
		s.logger.ErrorCtx(ctx, "failed to save configuration", err)
		flash(c, FlashError, fmt.Sprintf("Error saving configuration: %s", err))
		s.renderConfig(c, http.StatusInternalServerError, form)
		return
	}
	if err := os.MkdirAll(cfg.BackupPath, 0755); err != nil {
		s.logger.ErrorCtx(ctx, "failed to create backup directory", err,
			logger.Field{Key: "path", Value: cfg.BackupPath})
		flash(c, FlashWarning, fmt.Sprintf("Configuration saved, but backup directory could not be created: %s", err))
	}

	if s.schedule != nil {
		if err := s.schedule.Apply(cfg); err != nil {
			s.logger.ErrorCtx(ctx, "failed to apply schedule", err)
			flash(c, FlashWarning, fmt.Sprintf("Configuration saved, but the schedule could not be applied: %s", err))
		}
	}

	s.afterSaveSync(c)
	redirect(c, "/")
}

// afterSaveSync syncs immediately on first configuration, otherwise debounces the sync
// so a burst of auto-saves costs one GitHub listing.
func (s *Server) afterSaveSync(c *gin.Context) {
	ctx := c.Request.Context()

	known, err := s.store.Repos.Count(ctx)
	if err == nil && known > 0 {
		s.sync()
		flash(c, FlashSuccess, msgConfigSaved)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	added, err := s.backups.SyncRepositories(sctx)
	if err != nil {
		s.logger.WarnCtx(ctx, "initial repository sync failed", logger.Field{Key: "error", Value: err.Error()})
		flash(c, FlashWarning, msgConfigSyncFailed)
		return
	}
	flash(c, FlashSuccess, fmt.Sprintf(msgConfigSavedSync, added))
}
