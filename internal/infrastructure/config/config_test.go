package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABCDEF-token")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 50, cfg.Limits.MaxMessagesPerDay)
	assert.Equal(t, 600*time.Second, cfg.Limits.SessionTimeout)
	assert.Equal(t, 120*time.Second, cfg.Limits.DeleteSessionTimeout)
	assert.Equal(t, "LON", cfg.Hotels.CityCode)
	assert.Equal(t, "GBP", cfg.Hotels.Currency)
	assert.False(t, cfg.Hotels.Configured())
	assert.Equal(t, 6*time.Hour, cfg.Alerts.CheckInterval)
	assert.False(t, cfg.IsWebhookMode())
}

func TestLoadConfig_SecondsAndDurations(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TIMEOUT", "30")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("DEFAULT_CITY", "London")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Limits.SessionTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "LON", cfg.Hotels.CityCode)
}

func TestLoadConfig_CollectsAllErrors(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("TELEGRAM_MODE", "carrier-pigeon")

	_, err := LoadConfig("")
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "TELEGRAM_BOT_TOKEN is required")
	assert.Contains(t, msg, "GEMINI_API_KEY is required")
	assert.Contains(t, msg, "DB_DRIVER")
	assert.Contains(t, msg, "TELEGRAM_MODE")
	assert.Contains(t, msg, "; ")
}

func TestLoadConfig_RedisCacheNeedsRedis(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ENABLED", "false")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ENABLED")
}

func TestLoadConfig_WebhookMode(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_MODE", "webhook")
	t.Setenv("WEBHOOK_DOMAIN", "bot.example.com/")
	t.Setenv("WEBHOOK_PATH", "/tg")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.IsWebhookMode())
	assert.Equal(t, "https://bot.example.com/tg", cfg.GetWebhookURL())
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "TELEGRAM_BOT_TOKEN=file-token-123456\nGEMINI_API_KEY=file-key\nMAX_MESSAGES_PER_DAY=7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv не перезаписывает уже заданные переменные
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("MAX_MESSAGES_PER_DAY", "")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("MAX_MESSAGES_PER_DAY")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token-123456", cfg.Telegram.BotToken)
	assert.Equal(t, 7, cfg.Limits.MaxMessagesPerDay)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("abcd"))
	assert.Equal(t, "1234...wxyz", maskSecret("1234567890wxyz"))
}
