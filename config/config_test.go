// ABOUTME: Tests for configuration loading
// ABOUTME: Covers YAML parsing, ${VAR} substitution, env overrides, and validation failures
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

const validConfig = `
telegram:
  token: ${TEST_TG_TOKEN}
  admin_ids: [11, 22]
google:
  client_id: client
  client_secret: secret
  redirect_url: https://bot.example.com/oauth/callback
  page_size: 50
database:
  driver: postgres
  dsn: postgres://localhost/networkgpt?sslmode=disable
sync:
  schedule: "@every 1h"
  max_parallel: 4
oauth:
  callback_addr: ":9090"
  state_secret: 0123456789abcdef
  state_ttl: 5m
logging:
  level: debug
  format: json
`

func TestLoad(t *testing.T) {
	t.Setenv("TEST_TG_TOKEN", "123:abc")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{11, 22}, cfg.Telegram.AdminIDs)
	assert.Equal(t, 50, cfg.Google.PageSize)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Sync.MaxParallel)
	assert.Equal(t, LockLocal, cfg.Sync.Lock, "unset values keep their defaults")
	assert.Equal(t, 5*time.Minute, cfg.OAuth.StateTTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Telegram.WelcomeMessage)
}

func TestLoadMissingEnvFailsValidation(t *testing.T) {
	t.Setenv("TEST_TG_TOKEN", "")
	t.Setenv("TELEGRAM_TOKEN", "")

	_, err := Load(writeConfig(t, validConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")
	t.Setenv("OAUTH_STATE_SECRET", "a-long-enough-secret")
	t.Setenv("TELEGRAM_ADMIN_IDS", "1, 2,x")
	t.Setenv("DATABASE_DSN", ":memory:")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "env-client", cfg.Google.ClientID)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AdminIDs)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
}

func TestValidateRedisLockNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.Telegram.Token = "t"
	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"
	cfg.OAuth.StateSecret = "0123456789abcdef"
	require.NoError(t, cfg.Validate())

	cfg.Sync.Lock = LockRedis
	assert.Error(t, cfg.Validate())

	cfg.Sync.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_EXPAND", "value")

	got := ExpandEnv([]byte("a: ${TEST_EXPAND}\nb: ${TEST_UNSET_VAR_XYZ}\nc: $HOME\n"))
	assert.Equal(t, "a: value\nb: \nc: $HOME\n", string(got))
}

func TestSampleParses(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "t")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("OAUTH_STATE_SECRET", "0123456789abcdef")

	cfg, err := Load(writeConfig(t, Sample()))
	require.NoError(t, err)
	assert.Equal(t, "@every 6h", cfg.Sync.Schedule)
}

func TestValidateSyncIgnoresTelegram(t *testing.T) {
	cfg := Default()
	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"
	cfg.OAuth.StateSecret = "0123456789abcdef"

	assert.NoError(t, cfg.ValidateSync())
	assert.Error(t, cfg.Validate(), "full validation still needs the bot token")

	cfg.Google.ClientSecret = ""
	assert.Error(t, cfg.ValidateSync())
}
