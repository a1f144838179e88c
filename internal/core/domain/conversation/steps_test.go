package conversation

import (
	"errors"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/hotels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepValidation(t *testing.T) {
	now := time.Date(2099, 1, 5, 15, 0, 0, 0, time.UTC)
	answers := newAnswers()
	answers.Set(StepCheckIn, mustDate("2099-01-10"))

	tests := []struct {
		name    string
		step    step
		input   string
		want    any
		invalid bool
	}{
		{"area trimmed and case-insensitive", areaStep, "  WestMinster ", mustArea("westminster"), false},
		{"unknown area", areaStep, "atlantis", nil, true},
		{"check-in today", checkInStep, "2099-01-05", mustDate("2099-01-05"), false},
		{"check-in in the past", checkInStep, "2099-01-04", nil, true},
		{"check-in bad format", checkInStep, "10/01/2099", nil, true},
		{"check-out after check-in", checkOutStep, "2099-01-11", mustDate("2099-01-11"), false},
		{"check-out same day", checkOutStep, "2099-01-10", nil, true},
		{"check-out before", checkOutStep, "2099-01-09", nil, true},
		{"guests", guestsStep, " 2 ", 2, false},
		{"guests upper bound", guestsStep, "10", 10, false},
		{"guests zero", guestsStep, "0", nil, true},
		{"guests eleven", guestsStep, "11", nil, true},
		{"guests text", guestsStep, "two", nil, true},
		{"max price", maxPriceStep, "250", 250.0, false},
		{"max price with pound", maxPriceStep, "£199.99", 199.99, false},
		{"max price negative", maxPriceStep, "-5", nil, true},
		{"max price infinite", maxPriceStep, "Inf", nil, true},
		{"max price NaN", maxPriceStep, "NaN", nil, true},
		{"hotel any", hotelNameStep, "ANY", "", false},
		{"hotel name", hotelNameStep, " The Savoy ", "The Savoy", false},
		{"hotel empty", hotelNameStep, "   ", nil, true},
		{"alert id", alertIDStep, "#5", int64(5), false},
		{"alert id zero", alertIDStep, "0", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.step.parse(tt.input, answers, now)
			if tt.invalid {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
				assert.Equal(t, tt.step.key, ve.Step)
				assert.NotEmpty(t, ve.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokens(t *testing.T) {
	assert.True(t, isCancelToken("  CANCEL "))
	assert.False(t, isCancelToken("cancel please"))

	for _, tok := range []string{"done", "Exit", " quit", "STOP"} {
		assert.True(t, isStopToken(tok), tok)
	}
	assert.False(t, isStopToken("cancel"))
}

func mustDate(s string) time.Time {
	d, err := time.ParseInLocation(hotels.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func mustArea(key string) hotels.Area {
	a, ok := hotels.LookupArea(key)
	if !ok {
		panic(key)
	}
	return a
}
