package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "£120.50", FormatMoney(120.5, "GBP"))
	assert.Equal(t, "£99.00", FormatMoney(99, ""))
	assert.Equal(t, "€10.00", FormatMoney(10, "eur"))
	assert.Equal(t, "10.00 CHF", FormatMoney(10, "CHF"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1h 5m", FormatDuration(65*time.Minute))
	assert.Equal(t, "7m", FormatDuration(7*time.Minute))
	assert.Equal(t, "+1.50%", FormatPercent(1.5))
	assert.Equal(t, "-2.00%", FormatPercent(-2))
	assert.Equal(t, "⭐⭐⭐", FormatStars(3))
	assert.Equal(t, "", FormatStars(0))
	assert.Equal(t, "⭐⭐⭐⭐⭐", FormatStars(7))
	assert.Equal(t, "1 night", Plural(1, "night"))
	assert.Equal(t, "2 nights", Plural(2, "night"))
}
