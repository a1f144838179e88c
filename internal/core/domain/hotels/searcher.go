// internal/core/domain/hotels/searcher.go
package hotels

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/cache"
	"london-hotel-monitor-bot/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// fillTimeout ограничивает общий запрос к поставщику
const fillTimeout = 45 * time.Second

// Searcher поиск отелей через кэш. Одновременные запросы с одинаковым
// ключом схлопываются в один вызов поставщика.
type Searcher struct {
	provider Provider
	cache    cache.ResultCache[[]Offer]
	group    singleflight.Group

	providerCalls atomic.Int64
	cacheHits     atomic.Int64
}

// NewSearcher создает поисковик
func NewSearcher(provider Provider, resultCache cache.ResultCache[[]Offer]) *Searcher {
	if provider == nil {
		provider = UnavailableProvider{}
	}
	return &Searcher{provider: provider, cache: resultCache}
}

// Search возвращает до TopOffers предложений по возрастанию цены.
// Ошибка поставщика логируется и дает пустой список.
func (s *Searcher) Search(ctx context.Context, q SearchQuery) []Offer {
	key := q.CacheKey()

	if offers, ok := s.cache.Get(ctx, key); ok {
		s.cacheHits.Add(1)
		logger.Debug("📦 [Hotels] Cache hit for %s", key)
		return offers
	}

	// Общий запрос не зависит от отмены первого вызывающего:
	// каждый ждет результат на своем ctx.
	fillCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.fill(fillCtx, key, q)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		logger.Debug("⚠️ [Hotels] Search %s abandoned: %v", key, ctx.Err())
		return nil
	}

	if res.Err != nil {
		if errors.Is(res.Err, ErrProviderUnavailable) {
			logger.Debug("⚠️ [Hotels] Provider not configured, no results for %s", key)
		} else {
			logger.Error("❌ [Hotels] Search %s failed: %v", key, res.Err)
		}
		return nil
	}

	return res.Val.([]Offer)
}

func (s *Searcher) fill(ctx context.Context, key string, q SearchQuery) ([]Offer, error) {
	ctx, cancel := context.WithTimeout(ctx, fillTimeout)
	defer cancel()

	// Повторная проверка: кэш мог заполниться, пока ждали
	if offers, ok := s.cache.Get(ctx, key); ok {
		return offers, nil
	}

	s.providerCalls.Add(1)
	offers, err := s.provider.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	offers = topByPrice(offers, TopOffers)
	if len(offers) > 0 {
		s.cache.Put(ctx, key, offers)
	}
	return offers, nil
}

// Stats счетчики обращений к поставщику и попаданий в кэш
func (s *Searcher) Stats() map[string]int64 {
	return map[string]int64{
		"provider_calls": s.providerCalls.Load(),
		"cache_hits":     s.cacheHits.Load(),
	}
}

func topByPrice(offers []Offer, n int) []Offer {
	valid := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if o.TotalPrice > 0 {
			valid = append(valid, o)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].TotalPrice < valid[j].TotalPrice
	})

	if len(valid) > n {
		valid = valid[:n]
	}
	return valid
}
