// internal/core/domain/conversation/flow.go
package conversation

import (
	"time"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
)

// FlowKind тип многошагового диалога
type FlowKind int

const (
	FlowNone FlowKind = iota
	FlowSearch
	FlowAlertCreate
	FlowChat
	FlowDelete
)

func (f FlowKind) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowSearch:
		return "search"
	case FlowAlertCreate:
		return "alert_create"
	case FlowChat:
		return "chat"
	case FlowDelete:
		return "delete"
	}
	return "unknown"
}

// Ключи шагов
const (
	StepArea      = "area"
	StepCheckIn   = "check_in"
	StepCheckOut  = "check_out"
	StepGuests    = "guests"
	StepMaxPrice  = "max_price"
	StepHotelName = "hotel_name"
	StepMessage   = "message"
	StepAlertID   = "alert_id"
)

// Answers принятые ответы в порядке шагов
type Answers struct {
	keys   []string
	values map[string]any
}

func newAnswers() *Answers {
	return &Answers{values: make(map[string]any)}
}

// Set сохраняет ответ, повторная запись не меняет порядок
func (a *Answers) Set(key string, value any) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *Answers) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys ключи в порядке принятия
func (a *Answers) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a *Answers) Len() int {
	return len(a.keys)
}

func (a *Answers) area() hotels.Area {
	v, _ := a.values[StepArea].(hotels.Area)
	return v
}

func (a *Answers) date(key string) time.Time {
	v, _ := a.values[key].(time.Time)
	return v
}

func (a *Answers) count(key string) int {
	v, _ := a.values[key].(int)
	return v
}

func (a *Answers) id(key string) int64 {
	v, _ := a.values[key].(int64)
	return v
}

func (a *Answers) price(key string) float64 {
	v, _ := a.values[key].(float64)
	return v
}

func (a *Answers) text(key string) string {
	v, _ := a.values[key].(string)
	return v
}
