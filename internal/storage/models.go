package storage

import "time"

// JobStatus is the lifecycle state of a backup job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// BackupConfig is the single row of runtime backup settings edited on the dashboard.
type BackupConfig struct {
	ID              int64
	GitHubToken     string
	BackupPath      string
	MaxBackups      int
	ScheduleEnabled bool
	ScheduleCron    string
	AutoSyncEnabled bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasToken reports whether a GitHub token is configured.
func (c *BackupConfig) HasToken() bool {
	return c != nil && c.GitHubToken != ""
}

// Repository represents a repository row.
type Repository struct {
	ID         int64
	Name       string
	FullName   string
	CloneURL   string
	Enabled    bool
	LastBackup *time.Time
	CreatedAt  time.Time
}

// BackupJob represents a backup job row.
type BackupJob struct {
	ID             int64
	RepositoryID   *int64
	RepositoryName string // из JOIN, пусто если репозиторий удалён
	Status         JobStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	ErrorMessage   string
	BackupFilePath string
	FileSize       int64
}

// Duration returns how long the job ran, zero while it is still running.
func (j BackupJob) Duration() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}

// Setting is a key/value application setting.
type Setting struct {
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
