package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	version, dirty, err := SchemaVersion(s.Path())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// повторное применение миграций не должно падать
	require.NoError(t, RunMigrations(s.Path()))
}

func TestConfigRepo_GetSave(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Config.Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := &BackupConfig{
		GitHubToken:     "ghp_token",
		BackupPath:      "/tmp/backups",
		MaxBackups:      3,
		ScheduleEnabled: true,
		ScheduleCron:    "*/15 * * * *",
		AutoSyncEnabled: true,
	}
	require.NoError(t, s.Config.Save(ctx, cfg))
	assert.Equal(t, int64(1), cfg.ID)

	got, err := s.Config.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghp_token", got.GitHubToken)
	assert.Equal(t, "/tmp/backups", got.BackupPath)
	assert.Equal(t, 3, got.MaxBackups)
	assert.True(t, got.ScheduleEnabled)
	assert.Equal(t, "*/15 * * * *", got.ScheduleCron)
	assert.True(t, got.AutoSyncEnabled)
	assert.True(t, got.HasToken())

	got.ScheduleEnabled = false
	got.GitHubToken = ""
	require.NoError(t, s.Config.Save(ctx, got))

	again, err := s.Config.Get(ctx)
	require.NoError(t, err)
	assert.False(t, again.ScheduleEnabled)
	assert.False(t, again.HasToken())
	assert.Equal(t, got.CreatedAt.Unix(), again.CreatedAt.Unix())
}

func TestRepositoryRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inserted, err := s.Repos.InsertIfMissing(ctx, "alpha", "octo/alpha", "https://github.com/octo/alpha.git")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.Repos.InsertIfMissing(ctx, "alpha", "octo/alpha", "https://github.com/octo/alpha.git")
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate full name must be skipped")

	_, err = s.Repos.InsertIfMissing(ctx, "beta", "octo/beta", "https://github.com/octo/beta.git")
	require.NoError(t, err)

	repos, err := s.Repos.List(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "octo/alpha", repos[0].FullName)
	assert.True(t, repos[0].Enabled)
	assert.Nil(t, repos[0].LastBackup)

	toggled, err := s.Repos.Toggle(ctx, repos[0].ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	n, err := s.Repos.CountEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	enabled, err := s.Repos.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "octo/beta", enabled[0].FullName)

	affected, err := s.Repos.SetAllEnabled(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	require.NoError(t, s.Repos.TouchLastBackup(ctx, repos[1].ID))
	beta, err := s.Repos.Get(ctx, repos[1].ID)
	require.NoError(t, err)
	assert.NotNil(t, beta.LastBackup)

	_, err = s.Repos.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Repos.Toggle(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Repos.InsertIfMissing(ctx, "alpha", "octo/alpha", "https://github.com/octo/alpha.git")
	require.NoError(t, err)
	repos, err := s.Repos.List(ctx)
	require.NoError(t, err)
	repoID := repos[0].ID

	job, err := s.Jobs.Create(ctx, repoID)
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.Status)

	running, err := s.Jobs.CountRunning(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, running)

	require.NoError(t, s.Jobs.Complete(ctx, job.ID, "/tmp/alpha.zip", 2048))
	got, err := s.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status)
	assert.Equal(t, "octo/alpha", got.RepositoryName)
	assert.Equal(t, "/tmp/alpha.zip", got.BackupFilePath)
	assert.Equal(t, int64(2048), got.FileSize)
	require.NotNil(t, got.CompletedAt)

	failed, err := s.Jobs.Create(ctx, repoID)
	require.NoError(t, err)
	require.NoError(t, s.Jobs.Fail(ctx, failed.ID, "Git clone failed: boom"))

	recent, err := s.Jobs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, failed.ID, recent[0].ID, "newest first")
	assert.Equal(t, "Git clone failed: boom", recent[0].ErrorMessage)

	completed, err := s.Jobs.CompletedForRepository(ctx, repoID)
	require.NoError(t, err)
	require.Len(t, completed, 1)

	total, err := s.Jobs.TotalArchiveSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), total)

	require.NoError(t, s.Jobs.Delete(ctx, job.ID))
	assert.ErrorIs(t, s.Jobs.Delete(ctx, job.ID), ErrNotFound)
	assert.ErrorIs(t, s.Jobs.Complete(ctx, 999, "", 0), ErrNotFound)
}

func TestJobRepo_FailInterrupted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Repos.InsertIfMissing(ctx, "alpha", "octo/alpha", "https://github.com/octo/alpha.git")
	require.NoError(t, err)
	repos, err := s.Repos.List(ctx)
	require.NoError(t, err)

	_, err = s.Jobs.Create(ctx, repos[0].ID)
	require.NoError(t, err)
	_, err = s.Jobs.Create(ctx, repos[0].ID)
	require.NoError(t, err)

	n, err := s.Jobs.FailInterrupted(ctx, "interrupted")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	running, err := s.Jobs.Running(ctx)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestSettingsRepo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Settings.Get(ctx, "theme")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Settings.Set(ctx, "theme", "dark"))
	require.NoError(t, s.Settings.Set(ctx, "theme", "light"))

	v, err := s.Settings.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	all, err := s.Settings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("MSK", 3*3600))
	require.NoError(t, s.Settings.SetTime(ctx, SettingLastRun, at))
	got, err := s.Settings.GetTime(ctx, SettingLastRun)
	require.NoError(t, err)
	assert.True(t, got.Equal(at))
	assert.Equal(t, time.UTC, got.Location())
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Config.Save(ctx, &BackupConfig{GitHubToken: "t", BackupPath: "./b", ScheduleCron: "0 2 * * *"}))
	_, err := s.Repos.InsertIfMissing(ctx, "alpha", "octo/alpha", "https://github.com/octo/alpha.git")
	require.NoError(t, err)
	require.NoError(t, s.Settings.Set(ctx, "k", "v"))

	require.NoError(t, s.Purge(ctx))

	_, err = s.Config.Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.Repos.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
