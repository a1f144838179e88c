// internal/infrastructure/persistence/postgres/migrator.go
package postgres

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"london-hotel-monitor-bot/pkg/logger"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrator управляет миграциями базы данных
type Migrator struct {
	db         *sqlx.DB
	migrations map[int]*Migration
}

// Migration представляет одну миграцию
type Migration struct {
	ID          int
	Name        string
	Description string
	SQL         string
	Checksum    string
}

// NewMigrator создает новый мигратор
func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: make(map[int]*Migration),
	}
}

// dialect возвращает каталог миграций для драйвера
func (m *Migrator) dialect() string {
	if m.db.DriverName() == "postgres" {
		return "postgres"
	}
	return "sqlite"
}

// Init инициализирует таблицу миграций
func (m *Migrator) Init() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		checksum VARCHAR(64) NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`

	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// LoadEmbedded загружает встроенные миграции для текущего драйвера
func (m *Migrator) LoadEmbedded() error {
	return m.LoadFS(migrationFiles, path.Join("migrations", m.dialect()))
}

// LoadFS загружает миграции из каталога файловой системы
func (m *Migrator) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Фильтруем и сортируем SQL файлы
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, filename := range names {
		content, err := fs.ReadFile(fsys, path.Join(dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}
		if err := m.addMigration(filename, string(content)); err != nil {
			return err
		}
	}

	logger.Debug("📂 Loaded %d migrations from %s", len(m.migrations), dir)
	return nil
}

func (m *Migrator) addMigration(filename, content string) error {
	// Формат: 001_create_users.sql
	id, name, err := parseMigrationFilename(filename)
	if err != nil {
		return err
	}
	if _, exists := m.migrations[id]; exists {
		return fmt.Errorf("duplicate migration id %d (%s)", id, filename)
	}

	m.migrations[id] = &Migration{
		ID:          id,
		Name:        name,
		Description: extractDescription(content),
		SQL:         content,
		Checksum:    calculateChecksum(content),
	}
	return nil
}

// Migrate применяет все непройденные миграции по возрастанию ID
func (m *Migrator) Migrate() error {
	if err := m.Init(); err != nil {
		return err
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var appliedCount int
	for _, id := range m.sortedIDs() {
		migration := m.migrations[id]

		if record, ok := applied[id]; ok {
			if record.Checksum != migration.Checksum {
				logger.Warn("⚠️ Checksum mismatch for migration %d: %s", id, migration.Name)
				return fmt.Errorf("checksum mismatch for migration %d: %s", id, migration.Name)
			}
			continue
		}

		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %s: %w", id, migration.Name, err)
		}
		appliedCount++
	}

	if appliedCount > 0 {
		logger.Info("✅ Applied %d new migrations", appliedCount)
	} else {
		logger.Info("✅ Database is up to date")
	}
	return nil
}

// Status показывает статус всех загруженных миграций
func (m *Migrator) Status() ([]MigrationStatus, error) {
	if err := m.Init(); err != nil {
		return nil, err
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return nil, err
	}

	var statuses []MigrationStatus
	for _, id := range m.sortedIDs() {
		migration := m.migrations[id]
		status := MigrationStatus{ID: id, Name: migration.Name, Status: "pending"}

		if record, ok := applied[id]; ok {
			status.Applied = true
			status.AppliedAt = record.AppliedAt
			status.Status = "applied"
			if record.Checksum != migration.Checksum {
				status.Status = "checksum_mismatch"
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Validate проверяет, что примененные миграции совпадают с файлами
func (m *Migrator) Validate() error {
	applied, err := m.getAppliedMigrations()
	if err != nil {
		return err
	}

	var problems []string
	for id, record := range applied {
		migration, ok := m.migrations[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("Migration %d applied but not found in files", id))
			continue
		}
		if record.Checksum != migration.Checksum {
			problems = append(problems, fmt.Sprintf("Migration %d (%s): checksum mismatch", id, migration.Name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("migration validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Вспомогательные методы

func (m *Migrator) sortedIDs() []int {
	ids := make([]int, 0, len(m.migrations))
	for id := range m.migrations {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *Migrator) getAppliedMigrations() (map[int]*MigrationRecord, error) {
	var records []MigrationRecord
	if err := m.db.Select(&records, `SELECT id, name, checksum, applied_at FROM schema_migrations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	applied := make(map[int]*MigrationRecord, len(records))
	for i := range records {
		applied[records[i].ID] = &records[i]
	}
	return applied, nil
}

func (m *Migrator) applyMigration(migration *Migration) error {
	logger.Info("📤 Applying migration: %s", migration.Name)

	tx, err := m.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	query := m.db.Rebind(`
	INSERT INTO schema_migrations (id, name, description, checksum, applied_at)
	VALUES (?, ?, ?, ?, ?)`)
	if _, err := tx.Exec(query,
		migration.ID,
		migration.Name,
		migration.Description,
		migration.Checksum,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to save migration record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// Структуры для статуса

type MigrationStatus struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitempty"`
	Status    string    `json:"status"`
}

type MigrationRecord struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Checksum  string    `db:"checksum"`
	AppliedAt time.Time `db:"applied_at"`
}

// Вспомогательные функции

func parseMigrationFilename(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".sql")

	// Разделяем по первому подчеркиванию
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid migration filename format: %s (expected: 001_name.sql)", filename)
	}

	var id int
	if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil {
		return 0, "", fmt.Errorf("invalid migration ID in filename: %s", filename)
	}

	return id, strings.ReplaceAll(parts[1], "_", " "), nil
}

func extractDescription(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return "No description"
}

func calculateChecksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
