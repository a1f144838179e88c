// internal/core/domain/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/models"
	"london-hotel-monitor-bot/pkg/logger"
)

// DefaultMaxPerDay лимит сообщений в сутки по умолчанию
const DefaultMaxPerDay = 50

// ErrRateLimited пользователь исчерпал дневной лимит
var ErrRateLimited = errors.New("daily message limit reached")

// UserStore хранилище счетчиков пользователей
type UserStore interface {
	GetOrCreate(ctx context.Context, userID int64, username, firstName string) (*models.User, error)
	Touch(ctx context.Context, userID int64) error
	ResetDailyCount(ctx context.Context, userID int64) error
	GetCount(ctx context.Context, userID int64) (int, error)
}

// Limiter дневной лимит сообщений на пользователя. Счетчик сбрасывается
// при смене суток по UTC.
type Limiter struct {
	store     UserStore
	maxPerDay int
	now       func() time.Time

	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewLimiter создает ограничитель
func NewLimiter(store UserStore, maxPerDay int) *Limiter {
	if maxPerDay <= 0 {
		maxPerDay = DefaultMaxPerDay
	}
	return &Limiter{
		store:     store,
		maxPerDay: maxPerDay,
		now:       func() time.Time { return time.Now().UTC() },
		locks:     make(map[int64]*userLock),
	}
}

// WithClock подменяет источник времени
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// MaxPerDay возвращает дневной лимит
func (l *Limiter) MaxPerDay() int {
	return l.maxPerDay
}

// Allow проверяет, может ли пользователь отправить еще одно сообщение.
// Счетчик не увеличивается.
func (l *Limiter) Allow(ctx context.Context, userID int64) (bool, error) {
	unlock := l.lock(userID)
	defer unlock()

	return l.allow(ctx, userID, "", "")
}

// Record засчитывает сообщение пользователя
func (l *Limiter) Record(ctx context.Context, userID int64) error {
	unlock := l.lock(userID)
	defer unlock()

	return l.record(ctx, userID, "", "")
}

// Admit атомарно проверяет лимит и засчитывает сообщение.
// Возвращает false, если лимит исчерпан.
func (l *Limiter) Admit(ctx context.Context, userID int64, username, firstName string) (bool, error) {
	unlock := l.lock(userID)
	defer unlock()

	ok, err := l.allow(ctx, userID, username, firstName)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Debug("⛔ [RateLimit] User %d reached %d messages today", userID, l.maxPerDay)
		return false, nil
	}

	if err := l.record(ctx, userID, username, firstName); err != nil {
		return false, err
	}
	return true, nil
}

// Remaining возвращает, сколько сообщений осталось на сегодня
func (l *Limiter) Remaining(ctx context.Context, userID int64) (int, error) {
	unlock := l.lock(userID)
	defer unlock()

	user, err := l.store.GetOrCreate(ctx, userID, "", "")
	if err != nil {
		return 0, fmt.Errorf("rate limit lookup for user %d: %w", userID, err)
	}
	if user.InteractedBefore(l.now()) {
		return l.maxPerDay, nil
	}

	count, err := l.store.GetCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("rate limit count for user %d: %w", userID, err)
	}
	if left := l.maxPerDay - count; left > 0 {
		return left, nil
	}
	return 0, nil
}

func (l *Limiter) allow(ctx context.Context, userID int64, username, firstName string) (bool, error) {
	user, err := l.store.GetOrCreate(ctx, userID, username, firstName)
	if err != nil {
		return false, fmt.Errorf("rate limit lookup for user %d: %w", userID, err)
	}

	if user.InteractedBefore(l.now()) {
		if err := l.store.ResetDailyCount(ctx, userID); err != nil {
			return false, fmt.Errorf("rate limit reset for user %d: %w", userID, err)
		}
		return true, nil
	}

	return user.MessageCount < l.maxPerDay, nil
}

func (l *Limiter) record(ctx context.Context, userID int64, username, firstName string) error {
	user, err := l.store.GetOrCreate(ctx, userID, username, firstName)
	if err != nil {
		return fmt.Errorf("rate limit lookup for user %d: %w", userID, err)
	}

	// Счетчик не переносится через полночь
	if user.InteractedBefore(l.now()) && user.MessageCount > 0 {
		if err := l.store.ResetDailyCount(ctx, userID); err != nil {
			return fmt.Errorf("rate limit reset for user %d: %w", userID, err)
		}
	}

	if err := l.store.Touch(ctx, userID); err != nil {
		return fmt.Errorf("rate limit touch for user %d: %w", userID, err)
	}
	return nil
}

// lock берет мьютекс пользователя; запись удаляется, когда ее никто не держит
func (l *Limiter) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
