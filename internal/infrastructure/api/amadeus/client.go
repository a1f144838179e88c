// internal/infrastructure/api/amadeus/client.go
package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// nearbyDistance радиус отбора отелей вокруг района, в градусах (~3 км)
	nearbyDistance = 0.03
	kmPerDegree    = 111.0

	offerConcurrency = 3
	defaultStars     = 3
	maxBodySize      = 4 << 20
	userAgent        = "LondonHotelMonitorBot/1.0"
)

// AMADEUS CLIENT
// ============================================

// Client поставщик предложений отелей на Amadeus Self-Service API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	cityCode    string
	currency    string
	maxHotels   int
	offerHotels int
	limiter     *rate.Limiter
}

// NewClient создает клиент. Токен OAuth2 получается и обновляется автоматически.
func NewClient(cfg config.HotelsConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	transport := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: offerConcurrency,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	credentials := clientcredentials.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecret,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// клиент для запроса токена берется из контекста
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, transport)
	httpClient := credentials.Client(tokenCtx)
	httpClient.Timeout = timeout

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}

	maxHotels := cfg.MaxHotels
	if maxHotels <= 0 {
		maxHotels = 20
	}
	offerHotels := cfg.OfferHotelLimit
	if offerHotels <= 0 {
		offerHotels = hotels.TopOffers
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		cityCode:    cfg.CityCode,
		currency:    cfg.Currency,
		maxHotels:   maxHotels,
		offerHotels: offerHotels,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Search ищет предложения отелей рядом с районом запроса
func (c *Client) Search(ctx context.Context, q hotels.SearchQuery) ([]hotels.Offer, error) {
	area, ok := hotels.LookupArea(q.Area)
	if !ok {
		return nil, fmt.Errorf("unknown area %q", q.Area)
	}

	refs, err := c.hotelsInCity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list hotels in %s: %w", c.cityCode, err)
	}

	nearby := c.nearby(refs, area)
	if len(nearby) == 0 {
		logger.Warn("⚠️ [Amadeus] No hotels near %s among first %d in %s", area.Name, c.maxHotels, c.cityCode)
		return nil, nil
	}

	found := make([]*hotels.Offer, len(nearby))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(offerConcurrency)
	for i, ref := range nearby {
		g.Go(func() error {
			offer, err := c.cheapestOffer(gctx, ref, q, area)
			if err != nil {
				logger.Warn("⚠️ [Amadeus] Offers for hotel %s: %v", ref.HotelID, err)
				return nil
			}
			found[i] = offer
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offers := make([]hotels.Offer, 0, len(found))
	for _, o := range found {
		if o != nil && o.TotalPrice > 0 {
			offers = append(offers, *o)
		}
	}
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].TotalPrice < offers[j].TotalPrice })
	if len(offers) > hotels.TopOffers {
		offers = offers[:hotels.TopOffers]
	}

	logger.Debug("🏨 [Amadeus] %s %s..%s: %d offers from %d hotels",
		area.Key, q.CheckIn.Format(hotels.DateLayout), q.CheckOut.Format(hotels.DateLayout), len(offers), len(nearby))
	return offers, nil
}

type nearbyHotel struct {
	hotelRef
	distance float64
}

// nearby отбирает отели из первых maxHotels, близкие к району
func (c *Client) nearby(refs []hotelRef, area hotels.Area) []nearbyHotel {
	if len(refs) > c.maxHotels {
		refs = refs[:c.maxHotels]
	}

	var out []nearbyHotel
	for _, ref := range refs {
		if ref.GeoCode.Latitude == 0 && ref.GeoCode.Longitude == 0 {
			continue
		}
		d := area.DistanceTo(ref.GeoCode.Latitude, ref.GeoCode.Longitude)
		if d < nearbyDistance {
			out = append(out, nearbyHotel{hotelRef: ref, distance: d})
		}
		if len(out) == c.offerHotels {
			break
		}
	}
	return out
}

func (c *Client) hotelsInCity(ctx context.Context) ([]hotelRef, error) {
	params := url.Values{}
	params.Set("cityCode", c.cityCode)

	var resp hotelListResponse
	if err := c.get(ctx, hotelsByCity, params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// cheapestOffer возвращает самое дешевое предложение отеля или nil, если мест нет
func (c *Client) cheapestOffer(ctx context.Context, ref nearbyHotel, q hotels.SearchQuery, area hotels.Area) (*hotels.Offer, error) {
	params := url.Values{}
	params.Set("hotelIds", ref.HotelID)
	params.Set("checkInDate", q.CheckIn.Format(hotels.DateLayout))
	params.Set("checkOutDate", q.CheckOut.Format(hotels.DateLayout))
	params.Set("adults", strconv.Itoa(q.Guests))
	params.Set("roomQuantity", strconv.Itoa(max(q.Rooms, 1)))
	params.Set("currency", c.currency)

	var resp offersResponse
	if err := c.get(ctx, hotelOffersPath, params, &resp); err != nil {
		return nil, err
	}

	var best *hotels.Offer
	for _, data := range resp.Data {
		for _, deal := range data.Offers {
			total := deal.total()
			if total <= 0 || (best != nil && total >= best.TotalPrice) {
				continue
			}
			best = toOffer(data.Hotel, deal, ref, area, c.currency)
		}
	}
	return best, nil
}

func toOffer(h hotelInfo, deal roomDeal, ref nearbyHotel, area hotels.Area, fallbackCurrency string) *hotels.Offer {
	name := h.Name
	if name == "" {
		name = ref.Name
	}
	if name == "" {
		name = "Unknown Hotel"
	}
	currency := deal.Price.Currency
	if currency == "" {
		currency = fallbackCurrency
	}

	// рейтинг Amadeus 0..5, у нас 0..10
	rating := float64(h.Rating)
	stars := defaultStars
	if rating >= 1 && rating <= 5 {
		stars = int(rating)
	}

	return &hotels.Offer{
		HotelID:      ref.HotelID,
		Name:         titleCase(name),
		TotalPrice:   deal.total(),
		Currency:     currency,
		Rating:       rating * 2,
		Stars:        stars,
		Location:     fmt.Sprintf("%.1f km from %s", ref.distance*kmPerDegree, area.Name),
		RoomCategory: deal.Room.TypeEstimated.Category,
	}
}

// get выполняет GET с учетом rate limit и разбирает JSON в out
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.amadeus+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// titleCase приводит "PARK PLAZA WESTMINSTER" к "Park Plaza Westminster"
func titleCase(s string) string {
	if strings.ToUpper(s) != s {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
