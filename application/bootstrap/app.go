// application/bootstrap/app.go
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"london-hotel-monitor-bot/application/scheduler"
	"london-hotel-monitor-bot/internal/core/domain/alerts"
	"london-hotel-monitor-bot/internal/core/domain/conversation"
	"london-hotel-monitor-bot/internal/core/domain/hotels"
	"london-hotel-monitor-bot/internal/core/domain/ratelimit"
	"london-hotel-monitor-bot/internal/delivery/telegram/app/bot"
	telegram_http "london-hotel-monitor-bot/internal/delivery/telegram/app/http_client"
	"london-hotel-monitor-bot/internal/delivery/telegram/queue"
	"london-hotel-monitor-bot/internal/infrastructure/api/amadeus"
	"london-hotel-monitor-bot/internal/infrastructure/api/gemini"
	"london-hotel-monitor-bot/internal/infrastructure/cache"
	rediscache "london-hotel-monitor-bot/internal/infrastructure/cache/redis"
	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/database"
	alertsrepo "london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/repository/alerts"
	usersrepo "london-hotel-monitor-bot/internal/infrastructure/persistence/postgres/repository/users"
	"london-hotel-monitor-bot/pkg/logger"

	"github.com/google/uuid"
)

const (
	queueIdleTimeout = 2 * time.Minute
	queueBufferSize  = 32
	shutdownTimeout  = 30 * time.Second
	statsTimeout     = 2 * time.Second
)

// userCounter общее число пользователей для /stats
type userCounter interface {
	GetTotalCount(ctx context.Context) (int, error)
}

// Application собирает и запускает все компоненты бота
type Application struct {
	mu        sync.RWMutex
	config    *config.Config
	testMode  bool
	running   bool
	startTime time.Time
	stopChan  chan os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	// инфраструктура
	database  *database.DatabaseService
	redis     *rediscache.RedisService
	assistant *gemini.Assistant

	// ядро
	searcher   *hotels.Searcher
	users      userCounter
	alertStore *alertsrepo.AlertRepositoryImpl
	manager    *conversation.Manager
	scheduler  *scheduler.Scheduler

	// доставка
	bot           *bot.TelegramBot
	polling       *bot.PollingClient
	server        *bot.WebhookServer
	webhookSecret string
	pollingDone   chan struct{}
}

// NewApplication создает приложение по конфигурации
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		config:   cfg,
		stopChan: make(chan os.Signal, 1),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Initialize создает компоненты снизу вверх: хранилища, ядро, доставку
func (app *Application) Initialize() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.bot != nil {
		return nil
	}

	logger.Info("🔧 Инициализация приложения...")
	app.config.PrintSummary()

	if err := app.initInfrastructure(); err != nil {
		app.closeInfrastructure()
		return fmt.Errorf("инфраструктура: %w", err)
	}
	app.initCore()
	app.initDelivery()
	app.registerJobs()

	logger.Info("✅ Приложение инициализировано")
	return nil
}

func (app *Application) initInfrastructure() error {
	app.database = database.NewDatabaseService(app.config.Database)
	if err := app.database.Start(app.ctx); err != nil {
		return fmt.Errorf("база данных: %w", err)
	}

	if app.config.Redis.Enabled {
		app.redis = rediscache.NewRedisService(app.config.Redis)
		if err := app.redis.Start(app.ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	assistant, err := gemini.NewAssistant(app.ctx, app.config.AI)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	app.assistant = assistant
	return nil
}

func (app *Application) initCore() {
	db := app.database.GetDB()
	users := usersrepo.NewUserRepository(db)
	alertStore := alertsrepo.NewAlertRepository(db)
	limiter := ratelimit.NewLimiter(users, app.config.Limits.MaxMessagesPerDay)

	app.searcher = hotels.NewSearcher(app.hotelProvider(), app.searchCache())

	app.manager = conversation.NewManager(conversation.Deps{
		Searcher:  app.searcher,
		Assistant: app.assistant,
		Alerts:    alertStore,
		Users:     users,
		Limiter:   limiter,
	}, conversation.Config{
		SessionTimeout: app.config.Limits.SessionTimeout,
		DeleteTimeout:  app.config.Limits.DeleteSessionTimeout,
	})

	app.alertStore = alertStore
	app.users = users
}

// registerJobs фоновые задачи, уведомления идут через бота
func (app *Application) registerJobs() {
	app.scheduler = scheduler.New()
	if !app.config.Alerts.CheckEnabled {
		return
	}

	checker := alerts.NewPriceChecker(app.alertStore, app.searcher, app.bot)
	app.scheduler.Register(&scheduler.Job{
		Name:        alerts.JobName,
		Description: "Перепроверка цен по активным алертам",
		Schedule:    scheduler.Every(app.config.Alerts.CheckInterval),
		Handler: func(ctx context.Context) error {
			stats, err := checker.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("📊 [Alerts] checked=%d expired=%d notified=%d failed=%d",
				stats.Checked, stats.Expired, stats.Notified, stats.Failed)
			return nil
		},
	})
}

// hotelProvider без ключей Amadeus поиск всегда пустой
func (app *Application) hotelProvider() hotels.Provider {
	if !app.config.Hotels.Configured() {
		logger.Warn("⚠️ Amadeus credentials missing, hotel search disabled")
		return hotels.UnavailableProvider{}
	}
	return amadeus.NewClient(app.config.Hotels)
}

func (app *Application) searchCache() cache.ResultCache[[]hotels.Offer] {
	if app.config.Cache.Backend == config.CacheBackendRedis && app.redis != nil {
		if c := app.redis.GetCache(); c != nil {
			logger.Info("💾 Search cache: redis, TTL %v", app.config.Cache.TTL)
			return rediscache.NewResultCache[[]hotels.Offer](c, "search", app.config.Cache.TTL)
		}
	}
	logger.Info("💾 Search cache: memory, TTL %v", app.config.Cache.TTL)
	return cache.NewMemoryCache[[]hotels.Offer](app.config.Cache.TTL,
		cache.WithMaxEntries[[]hotels.Offer](app.config.Cache.MaxEntries))
}

func (app *Application) initDelivery() {
	api := bot.NewAPI(app.config.Telegram.APIBaseURL, app.config.Telegram.BotToken)
	app.bot = bot.NewTelegramBot(api, app.manager, queue.NewChatQueue(queueIdleTimeout, queueBufferSize))
	app.bot.Sender().SetTestMode(app.testMode)

	// таймауты сессий доставляются через бота
	app.manager.SetNotifier(app.bot)

	if app.config.IsWebhookMode() {
		app.webhookSecret = app.config.Webhook.SecretToken
		if app.webhookSecret == "" {
			app.webhookSecret = uuid.NewString()
			logger.Info("🔑 Generated webhook secret token")
		}
		app.server = bot.NewWebhookServer(bot.ServerConfig{
			Port:        app.config.Webhook.Port,
			WebhookPath: app.config.Webhook.Path,
			SecretToken: app.webhookSecret,
			MaxBodySize: app.config.Webhook.MaxBodySize,
		}, app.bot.HandleUpdate, app.Health, app.Stats)
		return
	}

	source := telegram_http.NewPollingClient(
		telegram_http.BotURL(app.config.Telegram.APIBaseURL, app.config.Telegram.BotToken),
		app.config.Polling.Timeout,
	)
	app.polling = bot.NewPollingClient(source, app.bot.HandleUpdate,
		app.config.Polling.Timeout, time.Duration(app.config.Polling.RetryInterval)*time.Second)
	app.server = bot.NewWebhookServer(bot.ServerConfig{Port: app.config.Logging.HTTPPort}, nil, app.Health, app.Stats)
}

// Mode режим получения обновлений
func (app *Application) Mode() string {
	if app.config.IsWebhookMode() {
		return "webhook"
	}
	return "polling"
}

// IsRunning запущено ли приложение
func (app *Application) IsRunning() bool {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.running
}

// Health проверяет хранилища и живые сессии
func (app *Application) Health(ctx context.Context) bot.HealthReport {
	app.mu.RLock()
	db, rds, manager, started := app.database, app.redis, app.manager, app.startTime
	app.mu.RUnlock()

	report := bot.HealthReport{
		Status:     "ok",
		Mode:       app.Mode(),
		Components: make(map[string]string),
		Time:       time.Now().UTC().Format(time.RFC3339),
	}
	if !started.IsZero() {
		report.Uptime = time.Since(started).Round(time.Second).String()
	}

	report.Components["database"] = componentState(db != nil && db.HealthCheck(ctx))
	switch {
	case rds == nil:
		report.Components["redis"] = "disabled"
	default:
		report.Components["redis"] = componentState(rds.HealthCheck(ctx))
	}
	if app.config.Hotels.Configured() {
		report.Components["hotels"] = "ok"
	} else {
		report.Components["hotels"] = "disabled"
	}

	for _, state := range report.Components {
		if state == "down" {
			report.Status = "degraded"
		}
	}
	if manager != nil {
		report.LiveSessions = manager.LiveCount()
	}
	return report
}

func componentState(ok bool) string {
	if ok {
		return "ok"
	}
	return "down"
}

// Stats счетчики сессий, доставки, поиска и планировщика
func (app *Application) Stats() map[string]interface{} {
	app.mu.RLock()
	defer app.mu.RUnlock()

	stats := map[string]interface{}{
		"mode": app.Mode(),
	}
	if app.manager != nil {
		stats["sessions"] = app.manager.Stats()
	}
	if app.bot != nil {
		stats["telegram"] = app.bot.Stats()
	}
	if app.searcher != nil {
		stats["search"] = app.searcher.Stats()
	}
	if app.scheduler != nil {
		stats["jobs"] = jobStats(app.scheduler.Jobs())
	}
	if app.users != nil {
		ctx, cancel := context.WithTimeout(app.ctx, statsTimeout)
		total, err := app.users.GetTotalCount(ctx)
		cancel()
		if err != nil {
			logger.Warn("⚠️ Users count: %v", err)
		} else {
			stats["users_total"] = total
		}
	}
	if app.database != nil {
		stats["database"] = app.database.GetStats()
	}
	if app.redis != nil {
		stats["redis"] = app.redis.GetStats()
	}
	return stats
}

func jobStats(jobs []scheduler.JobStatus) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(jobs))
	for _, j := range jobs {
		item := map[string]interface{}{
			"name":     j.Name,
			"runs":     j.Runs,
			"running":  j.Running,
			"next_run": j.NextRun.Format(time.RFC3339),
		}
		if !j.LastRun.IsZero() {
			item["last_run"] = j.LastRun.Format(time.RFC3339)
		}
		if j.LastErr != nil {
			item["last_error"] = j.LastErr.Error()
		}
		out = append(out, item)
	}
	return out
}

func (app *Application) closeInfrastructure() {
	if app.assistant != nil {
		if err := app.assistant.Close(); err != nil {
			logger.Warn("⚠️ Gemini client close: %v", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Stop(); err != nil {
			logger.Warn("⚠️ Redis stop: %v", err)
		}
	}
	if app.database != nil {
		if err := app.database.Stop(); err != nil {
			logger.Warn("⚠️ Database stop: %v", err)
		}
	}
}
