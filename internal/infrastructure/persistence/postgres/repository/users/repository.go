// internal/infrastructure/persistence/postgres/repository/users/repository.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"

	"github.com/jmoiron/sqlx"
)

// UserRepository интерфейс для работы с данными пользователей
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (*models.User, error)
	GetOrCreate(ctx context.Context, userID int64, username, firstName string) (*models.User, error)
	Touch(ctx context.Context, userID int64) error
	ResetDailyCount(ctx context.Context, userID int64) error
	GetCount(ctx context.Context, userID int64) (int, error)
	GetTotalCount(ctx context.Context) (int, error)
}

// UserRepositoryImpl реализация репозитория пользователей
type UserRepositoryImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *sqlx.DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock подменяет источник времени (для тестов)
func (r *UserRepositoryImpl) WithClock(now func() time.Time) *UserRepositoryImpl {
	r.now = now
	return r
}

const selectUser = `
	SELECT user_id, username, first_name, message_count, last_interaction, created_at
	FROM users
`

// FindByID находит пользователя по Telegram ID. Отсутствие дает sql.ErrNoRows.
func (r *UserRepositoryImpl) FindByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(selectUser + ` WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate возвращает пользователя, создавая его при первом обращении
func (r *UserRepositoryImpl) GetOrCreate(ctx context.Context, userID int64, username, firstName string) (*models.User, error) {
	user, err := r.FindByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to find user %d: %w", userID, err)
	}

	now := r.now()
	query := r.db.Rebind(`
		INSERT INTO users (user_id, username, first_name, message_count, last_interaction, created_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`)
	if _, err := r.db.ExecContext(ctx, query, userID, username, firstName, now, now); err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
	}

	// Перечитываем: строку мог создать параллельный запрос
	user, err = r.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user %d: %w", userID, err)
	}
	return user, nil
}

// Touch увеличивает счетчик сообщений и обновляет время последнего обращения
func (r *UserRepositoryImpl) Touch(ctx context.Context, userID int64) error {
	query := r.db.Rebind(`
		UPDATE users
		SET message_count = message_count + 1, last_interaction = ?
		WHERE user_id = ?
	`)
	return r.execAffecting(ctx, query, r.now(), userID)
}

// ResetDailyCount обнуляет дневной счетчик пользователя
func (r *UserRepositoryImpl) ResetDailyCount(ctx context.Context, userID int64) error {
	query := r.db.Rebind(`UPDATE users SET message_count = 0 WHERE user_id = ?`)
	return r.execAffecting(ctx, query, userID)
}

// GetCount возвращает текущее значение дневного счетчика
func (r *UserRepositoryImpl) GetCount(ctx context.Context, userID int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT message_count FROM users WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, err
	}
	return count, nil
}

// GetTotalCount возвращает общее количество пользователей
func (r *UserRepositoryImpl) GetTotalCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *UserRepositoryImpl) execAffecting(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
