package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/pkg/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Connect открывает соединение с базой данных выбранного драйвера
// и при необходимости применяет миграции
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = openPostgres(cfg)
	case config.DriverSQLite:
		db, err = OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	// Проверка подключения
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	logger.Info("✅ Connected to %s", cfg.Driver)

	if cfg.EnableAutoMigrate {
		if err := RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func openPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	return db, nil
}

// OpenSQLite открывает SQLite базу. Путь ":memory:" дает базу в памяти.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Одно соединение: SQLite сериализует запись, а база в памяти
	// живет только пока открыто ее соединение
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return db, nil
}

// RunMigrations применяет встроенные миграции для драйвера базы
func RunMigrations(db *sqlx.DB) error {
	migrator := NewMigrator(db)

	// Загружаем миграции для диалекта
	if err := migrator.LoadEmbedded(); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	// Применяем миграции
	if err := migrator.Migrate(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Валидируем миграции
	if err := migrator.Validate(); err != nil {
		return fmt.Errorf("migration validation failed: %w", err)
	}

	logger.Info("✅ Database migrations completed successfully")
	return nil
}
