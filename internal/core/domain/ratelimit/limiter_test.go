package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/repository/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newLimiter(t *testing.T, max int) (*Limiter, *users.UserRepositoryImpl, *testClock) {
	t.Helper()

	db, err := postgres.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2099, 3, 10, 23, 30, 0, 0, time.UTC)}
	repo := users.NewUserRepository(db).WithClock(clock.Now)
	return NewLimiter(repo, max).WithClock(clock.Now), repo, clock
}

func TestLimiter_NewUserPasses(t *testing.T) {
	limiter, repo, _ := newLimiter(t, 50)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := repo.GetCount(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, count, "Allow must not increment")
}

func TestLimiter_FiftyFirstIsRejected(t *testing.T) {
	limiter, _, _ := newLimiter(t, 50)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		ok, err := limiter.Admit(ctx, 42, "alice", "Alice")
		require.NoError(t, err)
		require.True(t, ok, "message %d", i+1)
	}

	ok, err := limiter.Admit(ctx, 42, "alice", "Alice")
	require.NoError(t, err)
	assert.False(t, ok)

	left, err := limiter.Remaining(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestLimiter_DayRolloverResets(t *testing.T) {
	limiter, repo, clock := newLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Admit(ctx, 7, "", "")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	// 23:30 -> 00:10 следующего дня
	clock.Set(clock.Now().Add(40 * time.Minute))

	ok, err = limiter.Allow(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := repo.GetCount(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, count)

	ok, err = limiter.Admit(ctx, 7, "", "")
	require.NoError(t, err)
	assert.True(t, ok)

	left, err := limiter.Remaining(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}

func TestLimiter_RecordDoesNotCarryAcrossMidnight(t *testing.T) {
	limiter, repo, clock := newLimiter(t, 50)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Record(ctx, 9))
	}

	clock.Set(clock.Now().Add(2 * time.Hour))
	require.NoError(t, limiter.Record(ctx, 9))

	count, err := repo.GetCount(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLimiter_ConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	limiter, repo, _ := newLimiter(t, 50)
	ctx := context.Background()

	for i := 0; i < 49; i++ {
		require.NoError(t, limiter.Record(ctx, 1))
	}

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Admit(ctx, 1, "", "")
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
	count, err := repo.GetCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestLimiter_LockTableIsReleased(t *testing.T) {
	limiter, _, _ := newLimiter(t, 50)
	_, err := limiter.Admit(context.Background(), 5, "", "")
	require.NoError(t, err)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.locks)
}
