// internal/infrastructure/cache/cache.go
package cache

import (
	"context"
	"time"
)

// DefaultTTL время жизни записи по умолчанию
const DefaultTTL = time.Hour

// ResultCache кэш результатов с истечением по времени.
// Запись, возраст которой >= TTL, никогда не возвращается.
type ResultCache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, value V)
}

// Clock источник времени (подменяется в тестах)
type Clock func() time.Time

// SystemClock возвращает текущее время в UTC
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Expired проверяет, истекла ли запись, вставленная в insertedAt
func Expired(insertedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(insertedAt) >= ttl
}

// Stats статистика кэша
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
	Size      int   `json:"size"`
}
