// internal/infrastructure/persistence/postgres/repository/alerts/repository.go
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"

	"github.com/jmoiron/sqlx"
)

// AlertRepository интерфейс для работы с алертами и историей цен
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *models.Alert) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Alert, error)
	ListActiveAlerts(ctx context.Context, userID int64) ([]*models.Alert, error)
	ListAllActiveAlerts(ctx context.Context) ([]*models.Alert, error)
	SoftDelete(ctx context.Context, alertID, userID int64) (bool, error)
	RecordPriceObservation(ctx context.Context, alertID int64, price float64, provider, currency string) error
	PriceHistory(ctx context.Context, alertID int64, days int) ([]*models.PriceObservation, error)
	LatestObservation(ctx context.Context, alertID int64) (*models.PriceObservation, error)
}

// AlertRepositoryImpl реализация репозитория алертов
type AlertRepositoryImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAlertRepository создает новый репозиторий алертов
func NewAlertRepository(db *sqlx.DB) *AlertRepositoryImpl {
	return &AlertRepositoryImpl{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock подменяет источник времени (для тестов)
func (r *AlertRepositoryImpl) WithClock(now func() time.Time) *AlertRepositoryImpl {
	r.now = now
	return r
}

const selectAlert = `
	SELECT id, user_id, hotel_name, area, check_in, check_out, guests, rooms,
		max_price, is_active, created_at, last_checked
	FROM alerts
`

// CreateAlert создает алерт и возвращает его ID
func (r *AlertRepositoryImpl) CreateAlert(ctx context.Context, alert *models.Alert) (int64, error) {
	if alert.Guests <= 0 {
		alert.Guests = 2
	}
	if alert.Rooms <= 0 {
		alert.Rooms = 1
	}
	alert.Area = strings.ToLower(strings.TrimSpace(alert.Area))
	alert.IsActive = true
	alert.CreatedAt = r.now()

	// Начинаем транзакцию
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO alerts (
			user_id, hotel_name, area, check_in, check_out,
			guests, rooms, max_price, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err = tx.QueryRowxContext(ctx, query,
		alert.UserID, alert.HotelName, alert.Area, alert.CheckIn, alert.CheckOut,
		alert.Guests, alert.Rooms, alert.MaxPrice, alert.IsActive, alert.CreatedAt,
	).Scan(&alert.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to create alert: %w", err)
	}

	// Фиксируем транзакцию
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return alert.ID, nil
}

// FindByID находит алерт по ID. Отсутствие дает sql.ErrNoRows.
func (r *AlertRepositoryImpl) FindByID(ctx context.Context, id int64) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.GetContext(ctx, &alert, r.db.Rebind(selectAlert+` WHERE id = ?`), id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListActiveAlerts возвращает активные алерты пользователя, новые первыми
func (r *AlertRepositoryImpl) ListActiveAlerts(ctx context.Context, userID int64) ([]*models.Alert, error) {
	var alerts []*models.Alert
	query := r.db.Rebind(selectAlert + ` WHERE user_id = ? AND is_active = TRUE ORDER BY created_at DESC, id DESC`)
	if err := r.db.SelectContext(ctx, &alerts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list alerts for user %d: %w", userID, err)
	}
	return alerts, nil
}

// ListAllActiveAlerts возвращает все активные алерты (для фоновой проверки цен)
func (r *AlertRepositoryImpl) ListAllActiveAlerts(ctx context.Context) ([]*models.Alert, error) {
	var alerts []*models.Alert
	if err := r.db.SelectContext(ctx, &alerts, selectAlert+` WHERE is_active = TRUE ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	return alerts, nil
}

// SoftDelete деактивирует алерт, если он принадлежит пользователю.
// Возвращает false, если алерт не найден, чужой или уже удален.
func (r *AlertRepositoryImpl) SoftDelete(ctx context.Context, alertID, userID int64) (bool, error) {
	query := r.db.Rebind(`
		UPDATE alerts SET is_active = FALSE
		WHERE id = ? AND user_id = ? AND is_active = TRUE
	`)

	result, err := r.db.ExecContext(ctx, query, alertID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete alert %d: %w", alertID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// RecordPriceObservation сохраняет наблюдение и обновляет last_checked алерта
func (r *AlertRepositoryImpl) RecordPriceObservation(ctx context.Context, alertID int64, price float64, provider, currency string) error {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	now := r.now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := r.db.Rebind(`
		INSERT INTO price_history (alert_id, price, provider, currency, checked_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, insert, alertID, price, provider, currency, now); err != nil {
		return fmt.Errorf("failed to record price for alert %d: %w", alertID, err)
	}

	update := r.db.Rebind(`UPDATE alerts SET last_checked = ? WHERE id = ?`)
	if _, err := tx.ExecContext(ctx, update, now, alertID); err != nil {
		return fmt.Errorf("failed to update last_checked for alert %d: %w", alertID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PriceHistory возвращает наблюдения за последние days дней, по возрастанию времени
func (r *AlertRepositoryImpl) PriceHistory(ctx context.Context, alertID int64, days int) ([]*models.PriceObservation, error) {
	if days <= 0 {
		days = 7
	}
	since := r.now().AddDate(0, 0, -days)

	var history []*models.PriceObservation
	query := r.db.Rebind(`
		SELECT id, alert_id, price, provider, currency, checked_at
		FROM price_history
		WHERE alert_id = ? AND checked_at >= ?
		ORDER BY checked_at ASC, id ASC
	`)
	if err := r.db.SelectContext(ctx, &history, query, alertID, since); err != nil {
		return nil, fmt.Errorf("failed to load price history for alert %d: %w", alertID, err)
	}
	return history, nil
}

// LatestObservation возвращает последнее наблюдение. Отсутствие дает sql.ErrNoRows.
func (r *AlertRepositoryImpl) LatestObservation(ctx context.Context, alertID int64) (*models.PriceObservation, error) {
	var obs models.PriceObservation
	query := r.db.Rebind(`
		SELECT id, alert_id, price, provider, currency, checked_at
		FROM price_history
		WHERE alert_id = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT 1
	`)
	if err := r.db.GetContext(ctx, &obs, query, alertID); err != nil {
		return nil, err
	}
	return &obs, nil
}
