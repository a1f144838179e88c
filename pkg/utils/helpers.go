// pkg/utils/helpers.go
package utils

import (
	"fmt"
	"strings"
	"time"
)

var currencySymbols = map[string]string{
	"GBP": "£",
	"EUR": "€",
	"USD": "$",
}

// FormatDuration форматирует продолжительность в читаемый вид
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatPrice форматирует цену с заданной точностью
func FormatPrice(price float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, price)
}

// FormatMoney форматирует сумму с символом валюты (£120.50), неизвестная валюта идет суффиксом
func FormatMoney(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "GBP"
	}
	if sym, ok := currencySymbols[code]; ok {
		return sym + FormatPrice(amount, 2)
	}
	return FormatPrice(amount, 2) + " " + code
}

// FormatPercent форматирует процентное значение
func FormatPercent(value float64) string {
	if value > 0 {
		return fmt.Sprintf("+%.2f%%", value)
	}
	return fmt.Sprintf("%.2f%%", value)
}

// FormatStars звезды отеля
func FormatStars(stars int) string {
	if stars <= 0 {
		return ""
	}
	if stars > 5 {
		stars = 5
	}
	return strings.Repeat("⭐", stars)
}

// Plural добавляет "s" для количества отличного от единицы
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
