package models

import "time"

// DefaultCurrency валюта наблюдений по умолчанию
const DefaultCurrency = "GBP"

// PriceObservation - зафиксированная цена по алерту (только добавление)
type PriceObservation struct {
	ID        int64     `db:"id" json:"id"`
	AlertID   int64     `db:"alert_id" json:"alert_id"`
	Price     float64   `db:"price" json:"price"`
	Provider  string    `db:"provider" json:"provider"`
	Currency  string    `db:"currency" json:"currency"`
	CheckedAt time.Time `db:"checked_at" json:"checked_at"`
}
