package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "127.0.0.1:8080"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, 100, cfg.GitHub.PerPage)
	assert.Equal(t, "./backups", cfg.Backup.DefaultPath)
	assert.Equal(t, 5, cfg.Backup.DefaultMaxBackups)
	assert.Equal(t, "0 2 * * *", cfg.Backup.DefaultCron)
	assert.Equal(t, 10*time.Second, cfg.UI.RefreshInterval())
	assert.Equal(t, 8*time.Second, cfg.UI.IdleThreshold())
	assert.Equal(t, 2*time.Second, cfg.UI.AutosaveQuiet())
	assert.Equal(t, 500, cfg.UI.BackupSubmitDelayMS)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[server\nlisten="))
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Listen)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("GHB_TEST_TG_TOKEN", "123456789:abcdefghijklmnopqrstuvwxyz")
	path := writeConfig(t, `
[database]
path = "${GHB_TEST_DB_DIR:/var/lib/ghbackup}/data.db"

[notifications.telegram]
enabled = true
token = "${GHB_TEST_TG_TOKEN}"
chat_ids = [42]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ghbackup/data.db", cfg.Database.Path)
	assert.Equal(t, "123456789:abcdefghijklmnopqrstuvwxyz", cfg.Notifications.Telegram.Token)
	assert.Empty(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "bad mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: "invalid server.mode"},
		{name: "short session secret", mutate: func(c *Config) { c.Server.SessionSecret = "short" }, wantErr: "server.session_secret must be at least 32 bytes"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid logging.level"},
		{name: "bad api url", mutate: func(c *Config) { c.GitHub.APIURL = "api.github.com" }, wantErr: "github.api_url"},
		{name: "per page too large", mutate: func(c *Config) { c.GitHub.PerPage = 500 }, wantErr: "github.per_page"},
		{name: "path traversal", mutate: func(c *Config) { c.Backup.DefaultPath = "../../etc" }, wantErr: "path traversal"},
		{name: "bad default cron", mutate: func(c *Config) { c.Backup.DefaultCron = "60 * * * *" }, wantErr: "Invalid value in minute: 60"},
		{name: "strict steps reject default", mutate: func(c *Config) {
			c.Schedule.StrictSteps = true
			c.Backup.DefaultCron = "*/99 * * * *"
		}, wantErr: "Step value out of range"},
		{name: "unknown timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, wantErr: "schedule.timezone"},
		{name: "telegram without token", mutate: func(c *Config) {
			c.Notifications.Telegram.Enabled = true
			c.Notifications.Telegram.ChatIDs = []int64{1}
		}, wantErr: "notifications.telegram.token is required"},
		{name: "telegram malformed token masked", mutate: func(c *Config) {
			c.Notifications.Telegram.Enabled = true
			c.Notifications.Telegram.ChatIDs = []int64{1}
			c.Notifications.Telegram.Token = "notatelegramtoken"
		}, wantErr: "(value: nota*********oken)"},
		{name: "telegram without chats", mutate: func(c *Config) {
			c.Notifications.Telegram.Enabled = true
			c.Notifications.Telegram.Token = "123456789:abcdefghijklmnop"
		}, wantErr: "chat_ids cannot be empty"},
		{name: "metrics path", mutate: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Path = "metrics"
		}, wantErr: "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)

			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected error containing %q, got %v", tt.wantErr, errs)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Schedule.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "ghp_****************cdef", MaskSecret("ghp_0123456789abcdefcdef"))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("GHB_TEST_VALUE", "set")
	assert.Equal(t, "set", expandEnv("${GHB_TEST_VALUE}"))
	assert.Equal(t, "fallback", expandEnv("${GHB_TEST_UNSET_VALUE:fallback}"))
	assert.Equal(t, "set/suffix", expandEnv("${GHB_TEST_VALUE}/suffix"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "${broken", expandEnv("${broken"))
}

func TestLoadEnvOptional(t *testing.T) {
	assert.NoError(t, LoadEnvOptional(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nexport GHB_TEST_FROM_ENV=\"hello\"\nBROKEN LINE\n"), 0644))
	t.Setenv("GHB_TEST_FROM_ENV", "")
	require.NoError(t, os.Unsetenv("GHB_TEST_FROM_ENV"))

	require.NoError(t, LoadEnvOptional(path))
	assert.Equal(t, "hello", os.Getenv("GHB_TEST_FROM_ENV"))
}
