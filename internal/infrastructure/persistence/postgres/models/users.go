// internal/infrastructure/persistence/postgres/models/users.go
package models

import (
	"strings"
	"time"
)

// User - пользователь Telegram с дневным счетчиком сообщений
type User struct {
	UserID    int64  `db:"user_id" json:"user_id"`
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`

	// Лимиты
	MessageCount    int       `db:"message_count" json:"message_count"`
	LastInteraction time.Time `db:"last_interaction" json:"last_interaction"`

	// Временные метки
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DisplayName возвращает имя для обращения к пользователю
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "traveller"
}

// InteractedBefore проверяет, было ли последнее обращение до начала дня (UTC), в котором находится now
func (u *User) InteractedBefore(now time.Time) bool {
	return DayStart(u.LastInteraction).Before(DayStart(now))
}

// DayStart возвращает полночь UTC для момента t
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
