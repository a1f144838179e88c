// internal/delivery/telegram/queue/worker.go
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"london-hotel-monitor-bot/pkg/logger"
)

const (
	DefaultIdleTimeout = 2 * time.Minute
	DefaultBufferSize  = 32
)

var (
	// ErrQueueFull у чата слишком много необработанных обновлений
	ErrQueueFull = errors.New("chat queue is full")
	// ErrStopped очередь остановлена
	ErrStopped = errors.New("chat queue is stopped")
)

// Job обработка одного обновления
type Job func(ctx context.Context)

// ChatQueue выполняет задачи одного чата строго по очереди, разные чаты параллельно.
// Воркер чата завершается после idleTimeout без задач.
type ChatQueue struct {
	mu      sync.Mutex
	workers map[int64]*chatWorker
	closed  bool

	idleTimeout time.Duration
	bufferSize  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	processed atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

type chatWorker struct {
	chatID int64
	jobs   chan Job
}

// Stats счетчики очереди
type Stats struct {
	ActiveWorkers int   `json:"active_workers"`
	Processed     int64 `json:"processed"`
	Dropped       int64 `json:"dropped"`
	Panics        int64 `json:"panics"`
}

// NewChatQueue создает очередь
func NewChatQueue(idleTimeout time.Duration, bufferSize int) *ChatQueue {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatQueue{
		workers:     make(map[int64]*chatWorker),
		idleTimeout: idleTimeout,
		bufferSize:  bufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit ставит задачу в очередь чата, при необходимости запуская воркер
func (q *ChatQueue) Submit(chatID int64, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrStopped
	}

	w, ok := q.workers[chatID]
	if !ok {
		w = &chatWorker{chatID: chatID, jobs: make(chan Job, q.bufferSize)}
		q.workers[chatID] = w
		q.wg.Add(1)
		go q.run(w)
	}

	select {
	case w.jobs <- job:
		return nil
	default:
		q.dropped.Add(1)
		logger.Warn("⚠️ [Queue] chat %d has %d pending updates, dropping", chatID, q.bufferSize)
		return ErrQueueFull
	}
}

func (q *ChatQueue) run(w *chatWorker) {
	defer q.wg.Done()

	idle := time.NewTimer(q.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			q.execute(w.chatID, job)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(q.idleTimeout)

		case <-idle.C:
			// задачи ставятся под тем же мьютексом, поэтому пустой канал здесь окончательно пуст
			q.mu.Lock()
			if len(w.jobs) > 0 {
				q.mu.Unlock()
				idle.Reset(q.idleTimeout)
				continue
			}
			if q.workers[w.chatID] == w {
				delete(q.workers, w.chatID)
			}
			q.mu.Unlock()
			logger.Debug("💤 [Queue] worker for chat %d idle, exiting", w.chatID)
			return
		}
	}
}

func (q *ChatQueue) execute(chatID int64, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.panics.Add(1)
			logger.Error("❌ [Queue] panic while handling chat %d: %v", chatID, r)
		}
	}()
	job(q.ctx)
	q.processed.Add(1)
}

// Stop перестает принимать задачи и ждет, пока воркеры доработают очередь.
// Если ctx истек раньше, отменяет контекст задач и возвращает ошибку.
func (q *ChatQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for id, w := range q.workers {
		close(w.jobs)
		delete(q.workers, id)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

// Stats снимок счетчиков
func (q *ChatQueue) Stats() Stats {
	q.mu.Lock()
	active := len(q.workers)
	q.mu.Unlock()

	return Stats{
		ActiveWorkers: active,
		Processed:     q.processed.Load(),
		Dropped:       q.dropped.Load(),
		Panics:        q.panics.Load(),
	}
}
