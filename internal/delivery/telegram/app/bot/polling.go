// internal/delivery/telegram/app/bot/polling.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"london-hotel-monitor-bot/internal/delivery/telegram"
	"london-hotel-monitor-bot/pkg/logger"
)

// UpdateSource источник обновлений для long-polling
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
}

// UpdateHandler обработчик одного обновления
type UpdateHandler func(ctx context.Context, update telegram.Update) error

// PollingClient цикл getUpdates
type PollingClient struct {
	source        UpdateSource
	handle        UpdateHandler
	timeout       int
	retryInterval time.Duration

	offset  int64
	running atomic.Bool
}

// NewPollingClient создает polling клиент
func NewPollingClient(source UpdateSource, handle UpdateHandler, timeout int, retryInterval time.Duration) *PollingClient {
	if timeout < 0 {
		timeout = 0
	}
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	return &PollingClient{
		source:        source,
		handle:        handle,
		timeout:       timeout,
		retryInterval: retryInterval,
	}
}

// Run забирает обновления до отмены ctx
func (pc *PollingClient) Run(ctx context.Context) error {
	if !pc.running.CompareAndSwap(false, true) {
		return fmt.Errorf("polling already running")
	}
	defer pc.running.Store(false)

	logger.Info("🔄 [Polling] Started (timeout %ds)", pc.timeout)
	defer logger.Info("🛑 [Polling] Stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := pc.source.GetUpdates(ctx, pc.offset, pc.timeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("❌ [Polling] getUpdates: %v", err)
			if !sleep(ctx, pc.retryInterval) {
				return nil
			}
			continue
		}

		for _, update := range updates {
			if err := pc.handle(ctx, update); err != nil {
				logger.Warn("⚠️ [Polling] update %d: %v", update.UpdateID, err)
			}
			pc.offset = update.UpdateID + 1
		}
	}
}

// IsRunning работает ли цикл
func (pc *PollingClient) IsRunning() bool {
	return pc.running.Load()
}

// Offset следующий ожидаемый update_id
func (pc *PollingClient) Offset() int64 {
	return pc.offset
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
