// internal/core/domain/hotels/offer.go
package hotels

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DateLayout формат дат в запросах и ключах кэша
const DateLayout = "2006-01-02"

// TopOffers сколько предложений показывается пользователю
const TopOffers = 5

// ErrProviderUnavailable поставщик цен не настроен
var ErrProviderUnavailable = errors.New("hotel provider unavailable")

// Offer предложение отеля на даты поиска
type Offer struct {
	HotelID      string  `json:"hotel_id"`
	Name         string  `json:"name"`
	TotalPrice   float64 `json:"total_price"`
	Currency     string  `json:"currency"`
	Rating       float64 `json:"rating"` // 0-10
	Stars        int     `json:"stars"`
	Location     string  `json:"location"`
	RoomCategory string  `json:"room_category"`
}

// PricePerNight цена за ночь
func (o Offer) PricePerNight(nights int) float64 {
	if nights <= 0 {
		return o.TotalPrice
	}
	return o.TotalPrice / float64(nights)
}

// SearchQuery параметры поиска
type SearchQuery struct {
	Area     string
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
	Rooms    int
}

// CacheKey ключ вида area_checkin_checkout_guests_rooms
func (q SearchQuery) CacheKey() string {
	return fmt.Sprintf("%s_%s_%s_%d_%d",
		NormalizeAreaKey(q.Area),
		q.CheckIn.Format(DateLayout),
		q.CheckOut.Format(DateLayout),
		q.Guests,
		q.Rooms,
	)
}

// Nights количество ночей
func (q SearchQuery) Nights() int {
	n := int(q.CheckOut.Sub(q.CheckIn).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// Provider внешний поставщик цен на отели
type Provider interface {
	Search(ctx context.Context, q SearchQuery) ([]Offer, error)
}

// UnavailableProvider поставщик-заглушка, когда ключи API не заданы
type UnavailableProvider struct{}

// Search всегда возвращает ErrProviderUnavailable
func (UnavailableProvider) Search(context.Context, SearchQuery) ([]Offer, error) {
	return nil, ErrProviderUnavailable
}
