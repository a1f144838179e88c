// internal/core/domain/alerts/price_checker.go
package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"london-hotel-monitor-bot/internal/core/domain/conversation"
	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
	"london-hotel-monitor-bot/pkg/logger"
	"london-hotel-monitor-bot/pkg/utils"
)

// JobName имя задачи в планировщике
const JobName = "alert_price_check"

const historyDays = 7

// Store операции с алертами, нужные проверке цен
type Store interface {
	ListAllActiveAlerts(ctx context.Context) ([]*models.Alert, error)
	SoftDelete(ctx context.Context, alertID, userID int64) (bool, error)
	RecordPriceObservation(ctx context.Context, alertID int64, price float64, provider, currency string) error
	LatestObservation(ctx context.Context, alertID int64) (*models.PriceObservation, error)
	PriceHistory(ctx context.Context, alertID int64, days int) ([]*models.PriceObservation, error)
}

// Searcher поиск предложений через кэш
type Searcher interface {
	Search(ctx context.Context, q hotels.SearchQuery) []hotels.Offer
}

// RunStats итоги одного прогона
type RunStats struct {
	Checked  int
	Expired  int
	Observed int
	Notified int
	Failed   int
}

// PriceChecker периодически перепроверяет цены по активным алертам
type PriceChecker struct {
	store    Store
	searcher Searcher
	notifier conversation.Notifier
	now      func() time.Time
}

// NewPriceChecker создает проверку цен
func NewPriceChecker(store Store, searcher Searcher, notifier conversation.Notifier) *PriceChecker {
	return &PriceChecker{
		store:    store,
		searcher: searcher,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock подменяет часы (для тестов)
func (c *PriceChecker) WithClock(now func() time.Time) *PriceChecker {
	c.now = now
	return c
}

// Run проверяет все активные алерты по очереди. Ошибка одного алерта не останавливает прогон.
func (c *PriceChecker) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	alerts, err := c.store.ListAllActiveAlerts(ctx)
	if err != nil {
		return stats, fmt.Errorf("list active alerts: %w", err)
	}

	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("price check interrupted after %d alerts: %w", stats.Checked, err)
		}

		stats.Checked++
		if err := c.check(ctx, alert, &stats); err != nil {
			stats.Failed++
			logger.Warn("⚠️ [PriceCheck] alert #%d: %v", alert.ID, err)
		}
	}

	logger.Info("📊 [PriceCheck] checked=%d expired=%d observed=%d notified=%d failed=%d",
		stats.Checked, stats.Expired, stats.Observed, stats.Notified, stats.Failed)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d alerts failed", stats.Failed, stats.Checked)
	}
	return stats, nil
}

func (c *PriceChecker) check(ctx context.Context, alert *models.Alert, stats *RunStats) error {
	now := c.now()

	if alert.IsExpired(now) {
		if _, err := c.store.SoftDelete(ctx, alert.ID, alert.UserID); err != nil {
			return fmt.Errorf("expire: %w", err)
		}
		stats.Expired++
		logger.Debug("🗑 [PriceCheck] alert #%d expired (check-in %s)", alert.ID, alert.CheckIn)
		return nil
	}

	q, err := queryFor(alert)
	if err != nil {
		return err
	}

	offer, ok := cheapest(filterByHotel(c.searcher.Search(ctx, q), alert))
	if !ok {
		logger.Debug("🔍 [PriceCheck] alert #%d: no matching offers", alert.ID)
		return nil
	}

	nightly := offer.PricePerNight(q.Nights())
	previous := c.previousPrice(ctx, alert.ID)

	if err := c.store.RecordPriceObservation(ctx, alert.ID, nightly, offer.Name, offer.Currency); err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	stats.Observed++

	if nightly > alert.MaxPrice {
		return nil
	}

	low := c.weekLow(ctx, alert.ID, nightly)
	reply := conversation.Reply{
		Text:    priceDropText(alert, offer, nightly, previous, low),
		Buttons: [][]conversation.Button{{{Text: "🔍 Search Hotels", Data: conversation.CallbackSearch}}},
	}
	// личный чат пользователя совпадает с его id
	if err := c.notifier.Notify(ctx, alert.UserID, reply); err != nil {
		return fmt.Errorf("notify user %d: %w", alert.UserID, err)
	}
	stats.Notified++
	return nil
}

func (c *PriceChecker) previousPrice(ctx context.Context, alertID int64) float64 {
	obs, err := c.store.LatestObservation(ctx, alertID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn("⚠️ [PriceCheck] previous price for alert #%d: %v", alertID, err)
		}
		return 0
	}
	return obs.Price
}

func (c *PriceChecker) weekLow(ctx context.Context, alertID int64, current float64) float64 {
	history, err := c.store.PriceHistory(ctx, alertID, historyDays)
	if err != nil {
		logger.Warn("⚠️ [PriceCheck] history for alert #%d: %v", alertID, err)
		return current
	}
	low := current
	for _, obs := range history {
		if obs.Price < low {
			low = obs.Price
		}
	}
	return low
}

func queryFor(alert *models.Alert) (hotels.SearchQuery, error) {
	checkIn, err := alert.CheckInDate()
	if err != nil {
		return hotels.SearchQuery{}, fmt.Errorf("bad check-in %q: %w", alert.CheckIn, err)
	}
	checkOut, err := alert.CheckOutDate()
	if err != nil {
		return hotels.SearchQuery{}, fmt.Errorf("bad check-out %q: %w", alert.CheckOut, err)
	}

	rooms := alert.Rooms
	if rooms <= 0 {
		rooms = 1
	}
	return hotels.SearchQuery{
		Area:     alert.Area,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   alert.Guests,
		Rooms:    rooms,
	}, nil
}

func filterByHotel(offers []hotels.Offer, alert *models.Alert) []hotels.Offer {
	if !alert.HotelName.Valid || strings.TrimSpace(alert.HotelName.String) == "" {
		return offers
	}
	needle := strings.ToLower(strings.TrimSpace(alert.HotelName.String))

	var matched []hotels.Offer
	for _, o := range offers {
		if strings.Contains(strings.ToLower(o.Name), needle) {
			matched = append(matched, o)
		}
	}
	return matched
}

func cheapest(offers []hotels.Offer) (hotels.Offer, bool) {
	var best hotels.Offer
	found := false
	for _, o := range offers {
		if o.TotalPrice <= 0 {
			continue
		}
		if !found || o.TotalPrice < best.TotalPrice {
			best, found = o, true
		}
	}
	return best, found
}

func priceDropText(alert *models.Alert, offer hotels.Offer, nightly, previous, low float64) string {
	area := alert.Area
	if a, ok := hotels.LookupArea(alert.Area); ok {
		area = a.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *Price alert #%d*\n\n", alert.ID)
	fmt.Fprintf(&b, "*%s* in %s is now %s/night (your limit %s).\n",
		offer.Name, area, utils.FormatMoney(nightly, offer.Currency), utils.FormatMoney(alert.MaxPrice, models.DefaultCurrency))
	if previous > 0 && previous != nightly {
		fmt.Fprintf(&b, "Change since last check: %s\n", utils.FormatPercent((nightly-previous)/previous*100))
	}
	if low < nightly {
		fmt.Fprintf(&b, "7-day low: %s/night\n", utils.FormatMoney(low, offer.Currency))
	}
	fmt.Fprintf(&b, "Dates: %s to %s, %s\n\n", alert.CheckIn, alert.CheckOut, utils.Plural(alert.Guests, "guest"))
	b.WriteString("Use /search to compare or /delete to stop this alert.")
	return b.String()
}
