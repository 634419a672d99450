// Package config loads and validates the ghbackup TOML configuration.
//
// Sections:
//   - [server]: HTTP listen address and timeouts
//   - [database]: SQLite database path
//   - [logging]: level, format and output
//   - [github]: API endpoint, timeouts and retry policy
//   - [backup]: defaults for a fresh installation and git settings
//   - [schedule]: timezone and cron validation strictness
//   - [workers]: background worker pool size
//   - [ui]: dashboard refresh and auto-save timings
//   - [metrics]: Prometheus endpoint
//   - [notifications.telegram]: backup result notifications
//
// Secrets and paths may reference environment variables as ${VAR} or ${VAR:default}.
package config

import "time"

// Config is the root configuration document.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Database      DatabaseConfig      `toml:"database"`
	Logging       LoggingConfig       `toml:"logging"`
	GitHub        GitHubConfig        `toml:"github"`
	Backup        BackupConfig        `toml:"backup"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Workers       WorkersConfig       `toml:"workers"`
	UI            UIConfig            `toml:"ui"`
	Metrics       MetricsConfig       `toml:"metrics"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Listen              string `toml:"listen"`
	Mode                string `toml:"mode"` // debug, release
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	// SessionSecret подписывает cookie сессии; при пустом значении ключ случайный на процесс
	SessionSecret string `toml:"session_secret"`
}

// DatabaseConfig представляет конфигурацию SQLite
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// GitHubConfig представляет конфигурацию GitHub API клиента
type GitHubConfig struct {
	APIURL         string `toml:"api_url"`
	Token          string `toml:"token"` // optional seed for a fresh database
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PerPage        int    `toml:"per_page"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Timeout returns the request timeout as a duration.
func (c GitHubConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackupConfig holds defaults seeded into the database and git settings.
type BackupConfig struct {
	DefaultPath         string `toml:"default_path"`
	DefaultMaxBackups   int    `toml:"default_max_backups"`
	DefaultCron         string `toml:"default_cron"`
	GitBinary           string `toml:"git_binary"`
	CloneDepth          int    `toml:"clone_depth"`
	CloneTimeoutSeconds int    `toml:"clone_timeout_seconds"`
}

// CloneTimeout returns the per-repository clone timeout.
func (c BackupConfig) CloneTimeout() time.Duration {
	return time.Duration(c.CloneTimeoutSeconds) * time.Second
}

// ScheduleConfig представляет конфигурацию планировщика
type ScheduleConfig struct {
	Timezone    string `toml:"timezone"`
	StrictSteps bool   `toml:"strict_steps"`
}

// WorkersConfig представляет конфигурацию worker pool
type WorkersConfig struct {
	PoolSize  int `toml:"pool_size"`
	QueueSize int `toml:"queue_size"`
}

// UIConfig holds the dashboard timings rendered into every page.
type UIConfig struct {
	RefreshIntervalSeconds int `toml:"refresh_interval_seconds"`
	IdleThresholdSeconds   int `toml:"idle_threshold_seconds"`
	AutosaveQuietMS        int `toml:"autosave_quiet_ms"`
	BackupSubmitDelayMS    int `toml:"backup_submit_delay_ms"`
}

func (c UIConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

func (c UIConfig) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdSeconds) * time.Second
}

func (c UIConfig) AutosaveQuiet() time.Duration {
	return time.Duration(c.AutosaveQuietMS) * time.Millisecond
}

// MetricsConfig представляет конфигурацию Prometheus
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Namespace string `toml:"namespace"`
}

// NotificationsConfig groups notification sinks.
type NotificationsConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig представляет конфигурацию Telegram уведомлений
type TelegramConfig struct {
	Enabled        bool    `toml:"enabled"`
	Token          string  `toml:"token"`
	ChatIDs        []int64 `toml:"chat_ids"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	OnlyFailures   bool    `toml:"only_failures"`
}

// Timeout returns the per-message send timeout.
func (c TelegramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
