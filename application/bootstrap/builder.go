// application/bootstrap/builder.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/pkg/logger"
)

// waitForShutdown ждет сигнала завершения
func (app *Application) waitForShutdown() <-chan struct{} {
	done := make(chan struct{})

	go func() {
		select {
		case <-app.stopChan:
			logger.Info("🛑 Получен сигнал завершения...")
		case <-app.pollingDone:
			logger.Warn("⚠️ Polling loop exited, shutting down")
		}

		app.shutdownWithTimeout(shutdownTimeout)
		close(done)
	}()

	return done
}

// shutdownWithTimeout выполняет graceful shutdown с таймаутом
func (app *Application) shutdownWithTimeout(timeout time.Duration) {
	logger.Info("⏳ Начинаем graceful shutdown (таймаут: %v)...", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		app.shutdown(ctx)
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Info("✅ Graceful shutdown завершен успешно")
	case <-ctx.Done():
		logger.Warn("⚠️ Таймаут graceful shutdown, принудительное завершение")
	}
}

// shutdown останавливает компоненты в обратном порядке:
// входящий трафик, сессии, очередь отправки, фоновые задачи, хранилища
func (app *Application) shutdown(ctx context.Context) {
	app.mu.RLock()
	running := app.running
	app.mu.RUnlock()

	if !running {
		return
	}

	logger.Info("🛑 Останавливаем приложение...")

	// 1. Перестаем принимать обновления
	app.cancel()
	if app.server != nil {
		if err := app.server.Stop(ctx); err != nil {
			logger.Warn("⚠️ HTTP server stop: %v", err)
		}
	}

	// 2. Завершаем живые диалоги
	if app.manager != nil {
		if err := app.manager.Shutdown(ctx); err != nil {
			logger.Warn("⚠️ Session manager shutdown: %v", err)
		}
	}

	// 3. Досылаем накопленные ответы
	if app.bot != nil {
		if err := app.bot.Stop(ctx); err != nil {
			logger.Warn("⚠️ Telegram queue stop: %v", err)
		}
	}

	// 4. Фоновые задачи
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	// 5. Хранилища и клиенты
	app.closeInfrastructure()

	app.mu.Lock()
	app.running = false
	app.mu.Unlock()
	logger.Info("✅ Приложение остановлено. Время работы: %v", time.Since(app.startTime).Round(time.Second))
}

// Run запускает приложение и блокируется до остановки
func (app *Application) Run() error {
	app.mu.Lock()

	if app.running {
		app.mu.Unlock()
		return errors.New("приложение уже запущено")
	}

	logger.Info("🚀 Запуск приложения...")

	if app.bot == nil {
		app.mu.Unlock()
		if err := app.Initialize(); err != nil {
			logger.Error("❌ Ошибка инициализации приложения: %v", err)
			return fmt.Errorf("инициализация приложения: %w", err)
		}
		app.mu.Lock()
	}

	if err := app.startDelivery(); err != nil {
		app.mu.Unlock()
		app.closeInfrastructure()
		return err
	}

	app.scheduler.Start()

	app.running = true
	app.startTime = time.Now()
	app.mu.Unlock()

	logger.Info("✅ Приложение запущено (%s)", app.Mode())
	<-app.waitForShutdown()

	return nil
}

// startDelivery настраивает бота в Telegram и запускает прием обновлений
func (app *Application) startDelivery() error {
	ctx, cancel := context.WithTimeout(app.ctx, 15*time.Second)
	defer cancel()

	if err := app.bot.SetMyCommands(ctx); err != nil {
		logger.Warn("⚠️ setMyCommands failed: %v", err)
	}

	if app.config.IsWebhookMode() {
		if err := app.bot.RegisterWebhook(ctx, app.config.GetWebhookURL(), app.webhookSecret); err != nil {
			return fmt.Errorf("регистрация webhook: %w", err)
		}
		app.server.Start()
		return nil
	}

	// getUpdates не работает при зарегистрированном webhook
	if err := app.bot.ClearWebhook(ctx); err != nil {
		logger.Warn("⚠️ deleteWebhook failed: %v", err)
	}

	app.server.Start()
	app.pollingDone = make(chan struct{})
	go func() {
		defer close(app.pollingDone)
		if err := app.polling.Run(app.ctx); err != nil {
			logger.Error("❌ Polling: %v", err)
		}
	}()
	return nil
}

// Status краткое состояние приложения
func (app *Application) Status() map[string]interface{} {
	app.mu.RLock()
	defer app.mu.RUnlock()

	status := map[string]interface{}{
		"running":   app.running,
		"mode":      app.Mode(),
		"test_mode": app.testMode,
		"config": map[string]interface{}{
			"environment":     app.config.Environment,
			"log_level":       app.config.Logging.Level,
			"cache_backend":   app.config.Cache.Backend,
			"session_timeout": app.config.Limits.SessionTimeout.String(),
		},
	}
	if app.running {
		status["uptime"] = time.Since(app.startTime).Round(time.Second).String()
		status["startTime"] = app.startTime.Format(time.RFC3339)
	}
	if app.manager != nil {
		status["live_sessions"] = app.manager.LiveCount()
	}
	return status
}

// Stop посылает сигнал завершения
func (app *Application) Stop() error {
	select {
	case app.stopChan <- syscall.SIGTERM:
	default:
		// сигнал уже отправлен
	}
	return nil
}

// ==================== AppBuilder ====================

// AppBuilder строитель приложения
type AppBuilder struct {
	config  *config.Config
	options []AppOption
}

// AppOption опция для настройки приложения
type AppOption func(*Application) error

// NewAppBuilder создает новый строитель приложений
func NewAppBuilder() *AppBuilder {
	return &AppBuilder{}
}

// WithConfig устанавливает конфигурацию
func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	b.config = cfg
	return b
}

// WithOption добавляет опцию настройки
func (b *AppBuilder) WithOption(option AppOption) *AppBuilder {
	b.options = append(b.options, option)
	return b
}

// WithTestMode включает тестовый режим (fluent метод)
func (b *AppBuilder) WithTestMode(enabled bool) *AppBuilder {
	b.options = append(b.options, WithTestMode(enabled))
	return b
}

// WithWebhookSecret задает секрет webhook (fluent метод)
func (b *AppBuilder) WithWebhookSecret(secret string) *AppBuilder {
	b.options = append(b.options, WithWebhookSecret(secret))
	return b
}

// Build строит приложение
func (b *AppBuilder) Build() (*Application, error) {
	if b.config == nil {
		cfg, err := config.LoadConfig(".env")
		if err != nil {
			return nil, fmt.Errorf("загрузка конфигурации: %w", err)
		}
		b.config = cfg
		logger.Info("ℹ️  Используется конфигурация по умолчанию (.env)")
	}

	app, err := NewApplication(b.config)
	if err != nil {
		return nil, fmt.Errorf("создание приложения: %w", err)
	}

	for _, option := range b.options {
		if err := option(app); err != nil {
			return nil, fmt.Errorf("применение опции: %w", err)
		}
	}

	return app, nil
}

// ==================== Опции приложения ====================

// WithTestMode сообщения не отправляются в Telegram, только логируются
func WithTestMode(enabled bool) AppOption {
	return func(app *Application) error {
		if enabled {
			logger.Info("🧪 Тестовый режим включен")
		}
		app.testMode = enabled
		return nil
	}
}

// WithWebhookSecret переопределяет WEBHOOK_SECRET_TOKEN
func WithWebhookSecret(secret string) AppOption {
	return func(app *Application) error {
		if secret != "" {
			app.config.Webhook.SecretToken = secret
		}
		return nil
	}
}
