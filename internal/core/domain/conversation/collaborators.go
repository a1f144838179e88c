package conversation

import (
	"context"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
)

// HotelSearcher поиск отелей через кэш, ошибки уже превращены в пустой результат
type HotelSearcher interface {
	Search(ctx context.Context, q hotels.SearchQuery) []hotels.Offer
}

// Assistant AI ассистент, при сбое возвращает текст извинения
type Assistant interface {
	Chat(ctx context.Context, message string, history []Turn) string
	AnalyzeOffer(ctx context.Context, offer hotels.Offer) string
	SuggestAreas(ctx context.Context, interests string) string
	IsApology(text string) bool
}

// AlertStore хранилище алертов
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) (int64, error)
	ListActiveAlerts(ctx context.Context, userID int64) ([]*models.Alert, error)
	SoftDelete(ctx context.Context, alertID, userID int64) (bool, error)
	LatestObservation(ctx context.Context, alertID int64) (*models.PriceObservation, error)
}

// UserStore хранилище пользователей
type UserStore interface {
	GetOrCreate(ctx context.Context, userID int64, username, firstName string) (*models.User, error)
}

// RateLimiter дневной лимит сообщений
type RateLimiter interface {
	Admit(ctx context.Context, userID int64, username, firstName string) (bool, error)
	Record(ctx context.Context, userID int64) error
	Remaining(ctx context.Context, userID int64) (int, error)
}

// Notifier доставка сообщений вне цикла запрос-ответ
type Notifier interface {
	Notify(ctx context.Context, chatID int64, reply Reply) error
}

// Inbound входящее сообщение или нажатие кнопки
type Inbound struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string
	Text      string
	Callback  bool
}
