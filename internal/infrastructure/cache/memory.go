// internal/infrastructure/cache/memory.go
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// MemoryCache потокобезопасный TTL кэш с опциональным ограничением размера (LRU)
type MemoryCache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        Clock

	items map[string]*list.Element
	order *list.List // front = самый свежий по использованию

	stats Stats
}

// MemoryOption опция конфигурации MemoryCache
type MemoryOption[V any] func(*MemoryCache[V])

// WithClock подменяет источник времени
func WithClock[V any](clock Clock) MemoryOption[V] {
	return func(c *MemoryCache[V]) {
		c.now = clock
	}
}

// WithMaxEntries ограничивает число записей, 0 = без ограничения
func WithMaxEntries[V any](n int) MemoryOption[V] {
	return func(c *MemoryCache[V]) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewMemoryCache создает in-memory кэш
func NewMemoryCache[V any](ttl time.Duration, opts ...MemoryOption[V]) *MemoryCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &MemoryCache[V]{
		ttl:   ttl,
		now:   SystemClock,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get возвращает значение, если оно есть и не истекло.
// Истекшая запись удаляется при этом обращении.
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	entry := elem.Value.(*memoryEntry[V])
	if Expired(entry.insertedAt, c.now(), c.ttl) {
		c.removeElement(elem)
		c.stats.Expired++
		c.stats.Misses++
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.stats.Hits++
	return entry.value, true
}

// Put сохраняет значение, перезаписывая существующее
func (c *MemoryCache[V]) Put(_ context.Context, key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*memoryEntry[V])
		entry.value = value
		entry.insertedAt = now
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&memoryEntry[V]{key: key, value: value, insertedAt: now})
	c.items[key] = elem

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.evictOldest()
	}
}

// Delete удаляет ключ
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Len возвращает количество записей (включая еще не вычищенные истекшие)
func (c *MemoryCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats возвращает снимок статистики
func (c *MemoryCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.order.Len()
	return s
}

func (c *MemoryCache[V]) evictOldest() {
	// Сначала выбрасываем истекшие, затем самый давний по использованию
	now := c.now()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if Expired(elem.Value.(*memoryEntry[V]).insertedAt, now, c.ttl) {
			c.removeElement(elem)
			c.stats.Expired++
			if c.order.Len() <= c.maxEntries {
				return
			}
		}
		elem = prev
	}

	if oldest := c.order.Back(); oldest != nil {
		c.removeElement(oldest)
		c.stats.Evictions++
	}
}

func (c *MemoryCache[V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry[V]).key)
}
