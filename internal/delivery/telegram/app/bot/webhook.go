// internal/delivery/telegram/app/bot/webhook.go
package bot

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"london-hotel-monitor-bot/internal/delivery/telegram"
	"london-hotel-monitor-bot/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SecretHeader заголовок, которым Telegram подписывает webhook
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// HealthReport ответ /health
type HealthReport struct {
	Status       string            `json:"status"` // ok | degraded
	Mode         string            `json:"mode"`
	Uptime       string            `json:"uptime"`
	LiveSessions int               `json:"live_sessions"`
	Components   map[string]string `json:"components"`
	Time         string            `json:"time"`
}

// Healthy все компоненты в порядке
func (h HealthReport) Healthy() bool {
	return h.Status == "ok"
}

// HealthFunc собирает состояние приложения
type HealthFunc func(ctx context.Context) HealthReport

// StatsFunc собирает счетчики приложения
type StatsFunc func() map[string]interface{}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Port        int
	WebhookPath string // пусто: режим polling, только /health и /stats
	SecretToken string
	MaxBodySize int64
}

// WebhookServer HTTP сервер бота на echo
type WebhookServer struct {
	cfg    ServerConfig
	echo   *echo.Echo
	handle UpdateHandler
	health HealthFunc
	stats  StatsFunc
}

// NewWebhookServer создает сервер. handle может быть nil в режиме polling.
func NewWebhookServer(cfg ServerConfig, handle UpdateHandler, health HealthFunc, stats StatsFunc) *WebhookServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	ws := &WebhookServer{
		cfg:    cfg,
		echo:   e,
		handle: handle,
		health: health,
		stats:  stats,
	}
	ws.RegisterRoutes(e)
	return ws
}

// RegisterRoutes регистрирует маршруты сервера
func (ws *WebhookServer) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", ws.handleHealth)
	e.GET("/stats", ws.handleStats)

	if ws.cfg.WebhookPath != "" && ws.handle != nil {
		limit := ws.cfg.MaxBodySize
		if limit <= 0 {
			limit = 1 << 20
		}
		e.POST(ws.cfg.WebhookPath, ws.handleWebhook, middleware.BodyLimit(fmt.Sprintf("%dB", limit)))
	}
}

// Echo возвращает echo инстанс (для тестов)
func (ws *WebhookServer) Echo() *echo.Echo {
	return ws.echo
}

// Start запускает сервер в фоне
func (ws *WebhookServer) Start() {
	addr := fmt.Sprintf(":%d", ws.cfg.Port)
	go func() {
		if err := ws.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ [HTTP] Server error: %v", err)
		}
	}()
	if ws.cfg.WebhookPath != "" {
		logger.Info("🚀 [HTTP] Webhook server on %s%s", addr, ws.cfg.WebhookPath)
	} else {
		logger.Info("🚀 [HTTP] Health server on %s", addr)
	}
}

// Stop останавливает сервер, дожидаясь активных запросов
func (ws *WebhookServer) Stop(ctx context.Context) error {
	return ws.echo.Shutdown(ctx)
}

func (ws *WebhookServer) handleWebhook(c echo.Context) error {
	if ws.cfg.SecretToken != "" {
		got := c.Request().Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(ws.cfg.SecretToken)) != 1 {
			logger.Warn("⚠️ [Webhook] Rejected update with bad secret from %s", c.RealIP())
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid secret token"})
		}
	}

	var update telegram.Update
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid update"})
	}

	// обработка асинхронная: Telegram ждет быстрый 200, иначе повторит доставку
	if err := ws.handle(c.Request().Context(), update); err != nil {
		logger.Warn("⚠️ [Webhook] update %d: %v", update.UpdateID, err)
	}
	return c.NoContent(http.StatusOK)
}

func (ws *WebhookServer) handleHealth(c echo.Context) error {
	if ws.health == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	report := ws.health(ctx)
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func (ws *WebhookServer) handleStats(c echo.Context) error {
	if ws.stats == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{})
	}
	return c.JSON(http.StatusOK, ws.stats())
}
