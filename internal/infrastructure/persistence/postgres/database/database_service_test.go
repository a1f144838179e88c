package database

import (
	"context"
	"path/filepath"
	"testing"

	"london-hotel-monitor-bot/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseService_SQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver:            config.DriverSQLite,
		Path:              filepath.Join(t.TempDir(), "nested", "bot.db"),
		EnableAutoMigrate: true,
	}

	ds := NewDatabaseService(cfg)
	assert.False(t, ds.HealthCheck(ctx))

	require.NoError(t, ds.Start(ctx))
	assert.Equal(t, StateRunning, ds.State())
	assert.True(t, ds.HealthCheck(ctx))
	require.NotNil(t, ds.GetDB())

	var tables int
	require.NoError(t, ds.GetDB().Get(&tables,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'alerts', 'price_history')`))
	assert.Equal(t, 3, tables)

	assert.Error(t, ds.Start(ctx), "second start must fail")

	require.NoError(t, ds.Stop())
	assert.Equal(t, StateStopped, ds.State())
	assert.Nil(t, ds.GetDB())
	assert.Equal(t, false, ds.GetStats()["connected"])
}

func TestDatabaseService_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver:            config.DriverSQLite,
		Path:              filepath.Join(t.TempDir(), "bot.db"),
		EnableAutoMigrate: true,
	}

	first := NewDatabaseService(cfg)
	require.NoError(t, first.Start(ctx))
	require.NoError(t, first.Stop())

	second := NewDatabaseService(cfg)
	require.NoError(t, second.Start(ctx))
	defer second.Stop()

	var applied int
	require.NoError(t, second.GetDB().Get(&applied, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 2, applied)
}

func TestDatabaseService_UnknownDriver(t *testing.T) {
	ds := NewDatabaseService(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, ds.Start(context.Background()))
	assert.Equal(t, StateError, ds.State())
}
