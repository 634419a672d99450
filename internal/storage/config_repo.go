package storage

import (
	"context"
	"database/sql"
	"errors"
)

// ConfigRepo handles the single backup_config row.
type ConfigRepo struct {
	db *sql.DB
}

const configRowID = 1

// Get returns the stored configuration or ErrNotFound.
func (r *ConfigRepo) Get(ctx context.Context) (*BackupConfig, error) {
	var c BackupConfig
	err := r.db.QueryRowContext(ctx, `
	SELECT id, github_token, backup_path, max_backups, schedule_enabled, schedule_cron,
	       auto_sync_enabled, created_at, updated_at
	FROM backup_config WHERE id = ?`, configRowID).Scan(
		&c.ID, &c.GitHubToken, &c.BackupPath, &c.MaxBackups, &c.ScheduleEnabled,
		&c.ScheduleCron, &c.AutoSyncEnabled, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save creates or updates the configuration row. CreatedAt is kept on update.
func (r *ConfigRepo) Save(ctx context.Context, c *BackupConfig) error {
	now := Now()
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO backup_config(id, github_token, backup_path, max_backups, schedule_enabled,
	                          schedule_cron, auto_sync_enabled, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 github_token=excluded.github_token,
	 backup_path=excluded.backup_path,
	 max_backups=excluded.max_backups,
	 schedule_enabled=excluded.schedule_enabled,
	 schedule_cron=excluded.schedule_cron,
	 auto_sync_enabled=excluded.auto_sync_enabled,
	 updated_at=excluded.updated_at;
	`, configRowID, c.GitHubToken, c.BackupPath, c.MaxBackups, boolToInt(c.ScheduleEnabled),
		c.ScheduleCron, boolToInt(c.AutoSyncEnabled), now, now)
	if err != nil {
		return err
	}
	c.ID = configRowID
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	return nil
}
