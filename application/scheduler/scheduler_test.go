package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_NextRun(t *testing.T) {
	now := time.Date(2099, 1, 10, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2099, 1, 10, 18, 0, 0, 0, time.UTC), DailyAt(18, 0).nextRun(now))
	assert.Equal(t, time.Date(2099, 1, 11, 6, 0, 0, 0, time.UTC), DailyAt(6, 0).nextRun(now))
	assert.Equal(t, now.Add(6*time.Hour), Every(6*time.Hour).nextRun(now))
}

func TestScheduler_RunOnStartAndStatus(t *testing.T) {
	s := New(WithTick(5 * time.Millisecond))

	var runs atomic.Int32
	job := &Job{
		Name:       "price_check",
		Schedule:   Every(time.Hour),
		RunOnStart: true,
		Handler: func(context.Context) error {
			runs.Add(1)
			return errors.New("two alerts failed")
		},
	}
	s.Register(job)
	s.Start()

	require.Eventually(t, func() bool { return job.Status().Runs == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), runs.Load(), "next run is an hour away")
	status := s.Jobs()[0]
	assert.EqualError(t, status.LastErr, "two alerts failed")
	assert.False(t, status.Running)
	assert.True(t, status.NextRun.After(status.LastRun))
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	s := New(WithTick(2 * time.Millisecond))

	var active, maxActive, runs atomic.Int32
	release := make(chan struct{})
	job := &Job{
		Name:       "slow",
		Schedule:   Every(time.Nanosecond),
		RunOnStart: true,
		Handler: func(ctx context.Context) error {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			defer active.Add(-1)
			runs.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	}
	s.Register(job)
	s.Start()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := New(WithTick(time.Millisecond))

	started := make(chan struct{})
	var cancelled atomic.Bool
	s.Register(&Job{
		Name:       "blocking",
		Schedule:   Every(time.Hour),
		RunOnStart: true,
		Handler: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	})
	s.Start()

	<-started
	s.Stop()
	s.Stop()
	assert.True(t, cancelled.Load())
}
