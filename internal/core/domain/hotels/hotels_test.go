package hotels

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu      sync.Mutex
	calls   []SearchQuery
	offers  []Offer
	err     error
	release chan struct{}
}

func (p *stubProvider) Search(ctx context.Context, q SearchQuery) ([]Offer, error) {
	p.mu.Lock()
	p.calls = append(p.calls, q)
	p.mu.Unlock()

	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.offers, p.err
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func date(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func westminsterQuery() SearchQuery {
	return SearchQuery{Area: "westminster", CheckIn: date("2099-01-10"), CheckOut: date("2099-01-12"), Guests: 2, Rooms: 1}
}

func TestLookupArea(t *testing.T) {
	a, ok := LookupArea("  Covent Garden ")
	require.True(t, ok)
	assert.Equal(t, "covent garden", a.Key)

	_, ok = LookupArea("atlantis")
	assert.False(t, ok)

	assert.Len(t, Areas(), 10)
	assert.Equal(t, "westminster", AreaKeys()[0])
}

func TestSearchQuery_CacheKeyAndNights(t *testing.T) {
	q := westminsterQuery()
	q.Area = "Westminster"
	assert.Equal(t, "westminster_2099-01-10_2099-01-12_2_1", q.CacheKey())
	assert.Equal(t, 2, q.Nights())
	assert.InDelta(t, 150.0, Offer{TotalPrice: 300}.PricePerNight(q.Nights()), 0.001)
}

func TestSearcher_SortsTopFiveAndCaches(t *testing.T) {
	provider := &stubProvider{offers: []Offer{
		{Name: "F", TotalPrice: 600},
		{Name: "A", TotalPrice: 100},
		{Name: "Free", TotalPrice: 0},
		{Name: "C", TotalPrice: 300},
		{Name: "B", TotalPrice: 200},
		{Name: "E", TotalPrice: 500},
		{Name: "D", TotalPrice: 400},
	}}
	s := NewSearcher(provider, cache.NewMemoryCache[[]Offer](time.Hour))
	ctx := context.Background()

	offers := s.Search(ctx, westminsterQuery())
	require.Len(t, offers, 5)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names(offers))

	again := s.Search(ctx, westminsterQuery())
	assert.Equal(t, offers, again)
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, westminsterQuery(), provider.calls[0])
	assert.Equal(t, int64(1), s.Stats()["cache_hits"])
}

func TestSearcher_EmptyAndErrorsAreNotCached(t *testing.T) {
	provider := &stubProvider{err: errors.New("boom")}
	s := NewSearcher(provider, cache.NewMemoryCache[[]Offer](time.Hour))
	ctx := context.Background()

	assert.Empty(t, s.Search(ctx, westminsterQuery()))
	provider.err = nil
	assert.Empty(t, s.Search(ctx, westminsterQuery()))
	assert.Empty(t, s.Search(ctx, westminsterQuery()))
	assert.Equal(t, 3, provider.callCount())
}

func TestSearcher_UnavailableProvider(t *testing.T) {
	s := NewSearcher(nil, cache.NewMemoryCache[[]Offer](time.Hour))
	assert.Empty(t, s.Search(context.Background(), westminsterQuery()))
}

func TestSearcher_CollapsesConcurrentFills(t *testing.T) {
	provider := &stubProvider{
		offers:  []Offer{{Name: "A", TotalPrice: 100}},
		release: make(chan struct{}),
	}
	s := NewSearcher(provider, cache.NewMemoryCache[[]Offer](time.Hour))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]Offer, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Search(ctx, westminsterQuery())
		}(i)
	}

	require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	assert.Equal(t, 1, provider.callCount())
	for _, r := range results {
		assert.Equal(t, []string{"A"}, names(r))
	}
}

func TestSearcher_CancelledCallerDoesNotFailOthers(t *testing.T) {
	provider := &stubProvider{
		offers:  []Offer{{Name: "A", TotalPrice: 100}},
		release: make(chan struct{}),
	}
	s := NewSearcher(provider, cache.NewMemoryCache[[]Offer](time.Hour))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan []Offer, 1)
	go func() { first <- s.Search(firstCtx, westminsterQuery()) }()
	require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, time.Millisecond)

	second := make(chan []Offer, 1)
	go func() { second <- s.Search(context.Background(), westminsterQuery()) }()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case r := <-first:
		assert.Empty(t, r)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(provider.release)
	select {
	case r := <-second:
		assert.Equal(t, []string{"A"}, names(r))
	case <-time.After(time.Second):
		t.Fatal("second caller got no result")
	}

	assert.Equal(t, []string{"A"}, names(s.Search(context.Background(), westminsterQuery())))
	assert.Equal(t, 1, provider.callCount())
}

func names(offers []Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.Name
	}
	return out
}
