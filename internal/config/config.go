package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aatumaykin/ghbackup/internal/cron"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return nil, err
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	expandEnvVars(&cfg)
	return &cfg
}

// MinSessionSecretLength is the shortest accepted server.session_secret.
const MinSessionSecretLength = 32

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		errs = append(errs, fmt.Errorf("invalid server.mode: %s (expected: debug, release)", c.Server.Mode))
	}
	if n := len(c.Server.SessionSecret); n > 0 && n < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("server.session_secret must be at least %d bytes, got %d", MinSessionSecretLength, n))
	}

	if err := validatePath(c.Database.Path, "database.path"); err != nil {
		errs = append(errs, err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if !strings.HasPrefix(c.GitHub.APIURL, "http://") && !strings.HasPrefix(c.GitHub.APIURL, "https://") {
		errs = append(errs, fmt.Errorf("github.api_url must start with http:// or https://"))
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		errs = append(errs, fmt.Errorf("github.per_page must be between 1 and 100 (got %d)", c.GitHub.PerPage))
	}

	if err := validatePath(c.Backup.DefaultPath, "backup.default_path"); err != nil {
		errs = append(errs, err)
	}
	if c.Backup.DefaultMaxBackups < 0 {
		errs = append(errs, fmt.Errorf("backup.default_max_backups must be >= 0"))
	}
	if verdict := c.CronValidator().Validate(c.Backup.DefaultCron); !verdict.Valid {
		errs = append(errs, fmt.Errorf("backup.default_cron: %s", verdict.Reason))
	}
	if c.Backup.CloneDepth < 0 {
		errs = append(errs, fmt.Errorf("backup.clone_depth must be >= 0"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if c.Workers.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("workers.pool_size must be >= 1"))
	}
	if c.Workers.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("workers.queue_size must be >= 1"))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /"))
	}

	tg := c.Notifications.Telegram
	if tg.Enabled {
		if err := validateTelegramToken(tg.Token); err != nil {
			errs = append(errs, err)
		}
		if len(tg.ChatIDs) == 0 {
			errs = append(errs, fmt.Errorf("notifications.telegram.chat_ids cannot be empty when telegram is enabled"))
		}
	}

	return errs
}

// Location resolves schedule.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}

// CronValidator returns the validator configured by schedule.strict_steps.
func (c *Config) CronValidator() *cron.Validator {
	if c.Schedule.StrictSteps {
		return cron.NewValidator(cron.WithStrictSteps())
	}
	return cron.NewValidator()
}

func validateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("notifications.telegram.token is required when telegram is enabled")
	}

	botID, secret, ok := strings.Cut(token, ":")
	if !ok {
		return formatValidationError("notifications.telegram.token", "invalid format (expected <bot_id>:<token>)", token)
	}
	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}
	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}
	if len(secret) < 10 || len(secret) > 50 {
		return formatValidationError("notifications.telegram.token",
			fmt.Sprintf("invalid token length (expected 10-50 characters, got %d)", len(secret)), token)
	}
	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}
	return nil
}

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Server.Listen == "" {
		c.Server.Listen = "0.0.0.0:5000"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 30
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 60
	}

	if c.Database.Path == "" {
		c.Database.Path = "./ghbackup.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.GitHub.UserAgent == "" {
		c.GitHub.UserAgent = "GitHub-Backup-App/1.0"
	}
	if c.GitHub.TimeoutSeconds == 0 {
		c.GitHub.TimeoutSeconds = 30
	}
	if c.GitHub.PerPage == 0 {
		c.GitHub.PerPage = 100
	}
	if c.GitHub.RetryAttempts == 0 {
		c.GitHub.RetryAttempts = 3
	}

	if c.Backup.DefaultPath == "" {
		c.Backup.DefaultPath = "./backups"
	}
	if c.Backup.DefaultMaxBackups == 0 {
		c.Backup.DefaultMaxBackups = 5
	}
	if c.Backup.DefaultCron == "" {
		c.Backup.DefaultCron = "0 2 * * *"
	}
	if c.Backup.GitBinary == "" {
		c.Backup.GitBinary = "git"
	}
	if c.Backup.CloneDepth == 0 {
		c.Backup.CloneDepth = 1
	}
	if c.Backup.CloneTimeoutSeconds == 0 {
		c.Backup.CloneTimeoutSeconds = 600
	}

	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 16
	}

	if c.UI.RefreshIntervalSeconds == 0 {
		c.UI.RefreshIntervalSeconds = 10
	}
	if c.UI.IdleThresholdSeconds == 0 {
		c.UI.IdleThresholdSeconds = 8
	}
	if c.UI.AutosaveQuietMS == 0 {
		c.UI.AutosaveQuietMS = 2000
	}
	if c.UI.BackupSubmitDelayMS == 0 {
		c.UI.BackupSubmitDelayMS = 500
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "ghbackup"
	}

	if c.Notifications.Telegram.TimeoutSeconds == 0 {
		c.Notifications.Telegram.TimeoutSeconds = 10
	}
}

// expandEnvVars расширяет переменные окружения в секретах и путях
func expandEnvVars(c *Config) {
	c.GitHub.Token = expandEnv(c.GitHub.Token)
	c.Notifications.Telegram.Token = expandEnv(c.Notifications.Telegram.Token)
	c.Server.SessionSecret = expandEnv(c.Server.SessionSecret)

	c.Database.Path = expandHome(expandEnv(c.Database.Path))
	c.Backup.DefaultPath = expandHome(expandEnv(c.Backup.DefaultPath))
	c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
}

// expandEnv расширяет переменную окружения формата ${VAR} или ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}
	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	key, defaultVal, hasDefault := strings.Cut(s[2:end], ":")
	if val := os.Getenv(key); val != "" {
		return val + s[end+1:]
	}
	if hasDefault {
		return defaultVal + s[end+1:]
	}
	return s[end+1:]
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
