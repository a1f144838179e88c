// internal/infrastructure/persistence/postgres/database/database_service.go
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres"
	"london-hotel-monitor-bot/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// DatabaseService сервис для работы с базой данных
type DatabaseService struct {
	config config.DatabaseConfig
	db     *sqlx.DB
	mu     sync.RWMutex
	state  ServiceState
}

// ServiceState состояние сервиса
type ServiceState string

const (
	StateStopped  ServiceState = "stopped"
	StateStarting ServiceState = "starting"
	StateRunning  ServiceState = "running"
	StateStopping ServiceState = "stopping"
	StateError    ServiceState = "error"
)

// NewDatabaseService создает новый сервис базы данных
func NewDatabaseService(cfg config.DatabaseConfig) *DatabaseService {
	return &DatabaseService{
		config: cfg,
		state:  StateStopped,
	}
}

// Start подключается к базе и применяет миграции
func (ds *DatabaseService) Start(ctx context.Context) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.state == StateRunning {
		return fmt.Errorf("database service already running")
	}

	logger.Info("🔄 Starting database service (%s)...", ds.config.Driver)
	ds.state = StateStarting

	db, err := postgres.Connect(ctx, ds.config)
	if err != nil {
		ds.state = StateError
		return err
	}

	ds.db = db
	ds.state = StateRunning

	if ds.config.Driver == config.DriverPostgres {
		logger.Info("   • Host: %s:%d/%s", ds.config.Host, ds.config.Port, ds.config.Name)
		logger.Info("   • Pool: %d/%d connections", ds.config.MaxIdleConns, ds.config.MaxOpenConns)
	} else {
		logger.Info("   • File: %s", ds.config.Path)
	}

	return nil
}

// Stop закрывает соединение
func (ds *DatabaseService) Stop() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.state != StateRunning {
		return nil
	}

	logger.Info("🛑 Stopping database service...")
	ds.state = StateStopping

	if ds.db != nil {
		if err := ds.db.Close(); err != nil {
			ds.state = StateError
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	ds.db = nil
	ds.state = StateStopped
	logger.Info("✅ Database service stopped")

	return nil
}

// GetDB возвращает соединение с базой данных
func (ds *DatabaseService) GetDB() *sqlx.DB {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.db
}

// State возвращает состояние сервиса
func (ds *DatabaseService) State() ServiceState {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.state
}

// HealthCheck проверяет здоровье базы данных
func (ds *DatabaseService) HealthCheck(ctx context.Context) bool {
	ds.mu.RLock()
	db, state := ds.db, ds.state
	ds.mu.RUnlock()

	if state != StateRunning || db == nil {
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("⚠️ Database health check failed: %v", err)
		return false
	}

	return true
}

// GetStats возвращает статистику пула соединений
func (ds *DatabaseService) GetStats() map[string]interface{} {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	stats := map[string]interface{}{
		"state":     ds.state,
		"driver":    ds.config.Driver,
		"connected": ds.db != nil,
	}

	if ds.db != nil {
		dbStats := ds.db.Stats()
		stats["open_connections"] = dbStats.OpenConnections
		stats["in_use"] = dbStats.InUse
		stats["idle"] = dbStats.Idle
		stats["wait_count"] = dbStats.WaitCount
	}

	return stats
}

// Name возвращает имя сервиса
func (ds *DatabaseService) Name() string {
	return "DatabaseService"
}
