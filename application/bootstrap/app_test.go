package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"london-hotel-monitor-bot/application/scheduler"
	"london-hotel-monitor-bot/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{TelegramMode: "polling", Environment: "test"}
	cfg.Cache.Backend = config.CacheBackendMemory
	cfg.Limits.SessionTimeout = 10 * time.Minute
	return cfg
}

func TestBuilderAppliesOptions(t *testing.T) {
	cfg := testConfig()
	app, err := NewAppBuilder().
		WithConfig(cfg).
		WithTestMode(true).
		WithWebhookSecret("override").
		Build()
	require.NoError(t, err)

	assert.True(t, app.testMode)
	assert.Equal(t, "override", cfg.Webhook.SecretToken)
	assert.False(t, app.IsRunning())
	assert.Equal(t, "polling", app.Mode())
}

func TestBuilderOptionError(t *testing.T) {
	_, err := NewAppBuilder().
		WithConfig(testConfig()).
		WithOption(func(*Application) error { return errors.New("boom") }).
		Build()
	assert.ErrorContains(t, err, "boom")
}

func TestNewApplicationRequiresConfig(t *testing.T) {
	_, err := NewApplication(nil)
	assert.Error(t, err)
}

func TestHealthBeforeInitialize(t *testing.T) {
	app, err := NewApplication(testConfig())
	require.NoError(t, err)

	report := app.Health(context.Background())
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "down", report.Components["database"])
	assert.Equal(t, "disabled", report.Components["redis"])
	assert.Equal(t, "disabled", report.Components["hotels"])
	assert.Zero(t, report.LiveSessions)
	assert.Empty(t, report.Uptime)
}

func TestStatusAndStop(t *testing.T) {
	app, err := NewApplication(testConfig())
	require.NoError(t, err)

	status := app.Status()
	assert.Equal(t, false, status["running"])
	assert.Equal(t, "polling", status["mode"])
	assert.NotContains(t, status, "uptime")

	// повторный Stop не блокируется
	require.NoError(t, app.Stop())
	require.NoError(t, app.Stop())
}

type fakeUsers struct {
	total int
	err   error
}

func (f fakeUsers) GetTotalCount(context.Context) (int, error) {
	return f.total, f.err
}

func TestStatsIncludesUserCount(t *testing.T) {
	app, err := NewApplication(testConfig())
	require.NoError(t, err)

	app.users = fakeUsers{total: 17}
	stats := app.Stats()
	assert.Equal(t, 17, stats["users_total"])
	assert.Equal(t, "polling", stats["mode"])

	app.users = fakeUsers{err: errors.New("db down")}
	assert.NotContains(t, app.Stats(), "users_total")
}

func TestJobStats(t *testing.T) {
	next := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	out := jobStats([]scheduler.JobStatus{
		{Name: "alert_price_check", NextRun: next, Runs: 2, LastRun: next.Add(-time.Hour), LastErr: errors.New("db down")},
		{Name: "idle", NextRun: next},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "db down", out[0]["last_error"])
	assert.Equal(t, 2, out[0]["runs"])
	assert.Equal(t, "2026-01-02T03:00:00Z", out[0]["next_run"])
	assert.NotContains(t, out[1], "last_run")
	assert.NotContains(t, out[1], "last_error")
}
