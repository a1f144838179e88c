// internal/infrastructure/persistence/postgres/models/alert.go
package models

import (
	"database/sql"
	"time"
)

// DateLayout формат дат заезда и выезда
const DateLayout = "2006-01-02"

// Alert - ценовой алерт пользователя
type Alert struct {
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id"`
	HotelName sql.NullString `db:"hotel_name" json:"hotel_name"`
	Area      string         `db:"area" json:"area"`
	CheckIn   string         `db:"check_in" json:"check_in"`
	CheckOut  string         `db:"check_out" json:"check_out"`
	Guests    int            `db:"guests" json:"guests"`
	Rooms     int            `db:"rooms" json:"rooms"`
	MaxPrice  float64        `db:"max_price" json:"max_price"`

	// Статус
	IsActive bool `db:"is_active" json:"is_active"`

	// Временные метки
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	LastChecked sql.NullTime `db:"last_checked" json:"last_checked"`
}

// HotelLabel возвращает имя отеля или "any hotel"
func (a *Alert) HotelLabel() string {
	if a.HotelName.Valid && a.HotelName.String != "" {
		return a.HotelName.String
	}
	return "any hotel"
}

// CheckInDate разбирает дату заезда
func (a *Alert) CheckInDate() (time.Time, error) {
	return time.ParseInLocation(DateLayout, a.CheckIn, time.UTC)
}

// CheckOutDate разбирает дату выезда
func (a *Alert) CheckOutDate() (time.Time, error) {
	return time.ParseInLocation(DateLayout, a.CheckOut, time.UTC)
}

// IsExpired проверяет, что дата заезда уже прошла
func (a *Alert) IsExpired(now time.Time) bool {
	checkIn, err := a.CheckInDate()
	if err != nil {
		return false
	}
	return checkIn.Before(DayStart(now))
}
