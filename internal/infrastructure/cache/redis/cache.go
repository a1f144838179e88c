// internal/infrastructure/cache/redis/cache.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/cache"
	"london-hotel-monitor-bot/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// DefaultPrefix префикс ключей бота
const DefaultPrefix = "hotelbot:"

// ErrCacheMiss ключ отсутствует
var ErrCacheMiss = errors.New("cache miss")

// kvStore минимальный набор команд Redis, нужный кэшу
type kvStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
}

// clientStore адаптер go-redis клиента к kvStore
type clientStore struct {
	client *redis.Client
}

func (s clientStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s clientStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (s clientStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Cache JSON-кэш поверх Redis с общим префиксом ключей
type Cache struct {
	store  kvStore
	prefix string
}

// NewCache создает Cache с отдельным клиентом
func NewCache(addr, password string, db int) *Cache {
	return NewCacheWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), DefaultPrefix)
}

// NewCacheWithClient создает Cache с существующим клиентом
func NewCacheWithClient(client *redis.Client, prefix string) *Cache {
	return newCacheWithStore(clientStore{client: client}, prefix)
}

func newCacheWithStore(store kvStore, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{store: store, prefix: prefix}
}

// Set устанавливает значение в Redis с TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.store.Set(ctx, c.prefix+key, data, ttl)
}

// Get получает значение из Redis. Отсутствующий ключ дает ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Delete удаляет ключ из Redis
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Del(ctx, c.prefix+key)
}

// envelope обертка значения с временем вставки
type envelope[V any] struct {
	InsertedAt time.Time `json:"inserted_at"`
	Value      V         `json:"value"`
}

// ResultCache реализация cache.ResultCache поверх Redis.
// Возраст записи перепроверяется при чтении, поэтому семантика TTL
// совпадает с in-memory кэшем даже при расхождении часов.
type ResultCache[V any] struct {
	cache     *Cache
	namespace string
	ttl       time.Duration
	now       cache.Clock
}

// NewResultCache создает кэш результатов в пространстве имен namespace
func NewResultCache[V any](c *Cache, namespace string, ttl time.Duration) *ResultCache[V] {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &ResultCache[V]{
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		now:       cache.SystemClock,
	}
}

// WithClock подменяет источник времени
func (r *ResultCache[V]) WithClock(clock cache.Clock) *ResultCache[V] {
	r.now = clock
	return r
}

func (r *ResultCache[V]) key(key string) string {
	return r.namespace + ":" + key
}

// Get возвращает значение или промах. Ошибки Redis считаются промахом.
func (r *ResultCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	var env envelope[V]

	if err := r.cache.Get(ctx, r.key(key), &env); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("⚠️ [RedisCache] Get %s failed: %v", key, err)
		}
		return zero, false
	}

	if cache.Expired(env.InsertedAt, r.now(), r.ttl) {
		if err := r.cache.Delete(ctx, r.key(key)); err != nil {
			logger.Warn("⚠️ [RedisCache] Delete expired %s failed: %v", key, err)
		}
		return zero, false
	}

	return env.Value, true
}

// Put сохраняет значение. Ошибка Redis только логируется.
func (r *ResultCache[V]) Put(ctx context.Context, key string, value V) {
	env := envelope[V]{InsertedAt: r.now(), Value: value}
	if err := r.cache.Set(ctx, r.key(key), env, r.ttl); err != nil {
		logger.Warn("⚠️ [RedisCache] Put %s failed: %v", key, err)
	}
}
