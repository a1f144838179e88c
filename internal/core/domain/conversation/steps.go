package conversation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
)

const (
	minGuests = 1
	maxGuests = 10
)

// step один вопрос диалога
type step struct {
	key    string
	prompt func(a *Answers) string
	parse  func(input string, a *Answers, now time.Time) (any, error)
}

var (
	searchSteps = []step{areaStep, checkInStep, checkOutStep, guestsStep}
	alertSteps  = []step{areaStep, checkInStep, checkOutStep, guestsStep, maxPriceStep, hotelNameStep}
	deleteSteps = []step{alertIDStep}
	chatSteps   = []step{messageStep}
)

func stepsFor(flow FlowKind) []step {
	switch flow {
	case FlowSearch:
		return searchSteps
	case FlowAlertCreate:
		return alertSteps
	case FlowDelete:
		return deleteSteps
	case FlowChat:
		return chatSteps
	case FlowNone:
	}
	return nil
}

var areaStep = step{
	key:    StepArea,
	prompt: func(*Answers) string { return promptArea() },
	parse: func(input string, _ *Answers, _ time.Time) (any, error) {
		area, ok := hotels.LookupArea(input)
		if !ok {
			return nil, invalid(StepArea, "Unknown area. Use /areas to see the options.")
		}
		return area, nil
	},
}

var checkInStep = step{
	key:    StepCheckIn,
	prompt: func(*Answers) string { return promptCheckIn },
	parse: func(input string, _ *Answers, now time.Time) (any, error) {
		d, err := parseDate(StepCheckIn, input)
		if err != nil {
			return nil, err
		}
		if d.Before(models.DayStart(now)) {
			return nil, invalid(StepCheckIn, "Check-in date can't be in the past.")
		}
		return d, nil
	},
}

var checkOutStep = step{
	key:    StepCheckOut,
	prompt: func(*Answers) string { return promptCheckOut },
	parse: func(input string, a *Answers, _ time.Time) (any, error) {
		d, err := parseDate(StepCheckOut, input)
		if err != nil {
			return nil, err
		}
		if !d.After(a.date(StepCheckIn)) {
			return nil, invalid(StepCheckOut, "Check-out must be after check-in.")
		}
		return d, nil
	},
}

var guestsStep = step{
	key:    StepGuests,
	prompt: func(*Answers) string { return promptGuests },
	parse: func(input string, _ *Answers, _ time.Time) (any, error) {
		n, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil || n < minGuests || n > maxGuests {
			return nil, invalid(StepGuests, "Please enter a number of guests from 1 to 10.")
		}
		return n, nil
	},
}

var maxPriceStep = step{
	key:    StepMaxPrice,
	prompt: func(*Answers) string { return promptMaxPrice },
	parse: func(input string, _ *Answers, _ time.Time) (any, error) {
		raw := strings.TrimSpace(input)
		raw = strings.TrimPrefix(raw, "£")
		raw = strings.ReplaceAll(raw, ",", "")
		price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
			return nil, invalid(StepMaxPrice, "Please enter a positive price, for example 250.")
		}
		return price, nil
	},
}

var hotelNameStep = step{
	key:    StepHotelName,
	prompt: func(*Answers) string { return promptHotelName },
	parse: func(input string, _ *Answers, _ time.Time) (any, error) {
		name := strings.TrimSpace(input)
		if name == "" {
			return nil, invalid(StepHotelName, "Please enter a hotel name or 'any'.")
		}
		if strings.EqualFold(name, "any") {
			return "", nil
		}
		return name, nil
	},
}

var alertIDStep = step{
	key:    StepAlertID,
	prompt: func(*Answers) string { return promptAlertID },
	parse: func(input string, _ *Answers, _ time.Time) (any, error) {
		raw := strings.TrimPrefix(strings.TrimSpace(input), "#")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, invalid(StepAlertID, "Please send the alert number, for example 3.")
		}
		return id, nil
	},
}

// messageStep ход свободного чата, обрабатывается сессией напрямую
var messageStep = step{
	key:    StepMessage,
	prompt: func(*Answers) string { return promptChat },
}

func parseDate(stepKey, input string) (time.Time, error) {
	d, err := time.ParseInLocation(hotels.DateLayout, strings.TrimSpace(input), time.UTC)
	if err != nil {
		return time.Time{}, invalid(stepKey, "Invalid date format. Use YYYY-MM-DD.")
	}
	return d, nil
}

// isCancelToken ввод, отменяющий любой диалог
func isCancelToken(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "cancel")
}

// isStopToken ввод, завершающий чат
func isStopToken(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "done", "exit", "quit", "stop":
		return true
	}
	return false
}
