// /internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"london-hotel-monitor-bot/pkg/logger"

	"github.com/joho/godotenv"
)

// Драйверы базы данных
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Бэкенды кэша результатов поиска
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// ============================================
// КОНФИГУРАЦИЯ БАЗЫ ДАННЫХ
// ============================================

// DatabaseConfig - конфигурация базы данных
type DatabaseConfig struct {
	// postgres для продакшена, sqlite для локального запуска
	Driver string `mapstructure:"DB_DRIVER"`

	// Основные параметры подключения
	Host     string `mapstructure:"DB_HOST"`
	Port     int    `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`

	// Путь к файлу SQLite
	Path string `mapstructure:"DATABASE_PATH"`

	// Настройки пула соединений
	MaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	MaxConnLifetime time.Duration `mapstructure:"DB_MAX_CONN_LIFETIME"`
	MaxConnIdleTime time.Duration `mapstructure:"DB_MAX_CONN_IDLE_TIME"`

	EnableAutoMigrate bool `mapstructure:"DB_ENABLE_AUTO_MIGRATE"`
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`     // localhost
	Port     int    `mapstructure:"REDIS_PORT"`     // 6379
	Password string `mapstructure:"REDIS_PASSWORD"` // пустой или пароль
	DB       int    `mapstructure:"REDIS_DB"`       // 0

	Enabled bool `mapstructure:"REDIS_ENABLED"`

	// Настройки пула соединений
	PoolSize        int           `mapstructure:"REDIS_POOL_SIZE"`         // 10
	MinIdleConns    int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`    // 2
	MaxRetries      int           `mapstructure:"REDIS_MAX_RETRIES"`       // 3
	MinRetryBackoff time.Duration `mapstructure:"REDIS_MIN_RETRY_BACKOFF"` // 8ms
	MaxRetryBackoff time.Duration `mapstructure:"REDIS_MAX_RETRY_BACKOFF"` // 512ms
	DialTimeout     time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`      // 5s
	ReadTimeout     time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`      // 3s
	WriteTimeout    time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`     // 3s
	PoolTimeout     time.Duration `mapstructure:"REDIS_POOL_TIMEOUT"`      // 4s
	IdleTimeout     time.Duration `mapstructure:"REDIS_IDLE_TIMEOUT"`      // 5m

	KeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"` // hotelbot:
}

// CacheConfig настройки кэша результатов поиска отелей
type CacheConfig struct {
	Backend    string        `mapstructure:"CACHE_BACKEND"`     // memory | redis
	TTL        time.Duration `mapstructure:"CACHE_TTL"`         // 1h
	MaxEntries int           `mapstructure:"CACHE_MAX_ENTRIES"` // 0 = без ограничения
}

// LimitsConfig лимиты пользователей и сессий
type LimitsConfig struct {
	MaxMessagesPerDay    int           `mapstructure:"MAX_MESSAGES_PER_DAY"`
	SessionTimeout       time.Duration `mapstructure:"SESSION_TIMEOUT"`
	DeleteSessionTimeout time.Duration `mapstructure:"DELETE_SESSION_TIMEOUT"`
}

// HotelsConfig настройки поставщика цен на отели (Amadeus)
type HotelsConfig struct {
	APIKey          string        `mapstructure:"AMADEUS_API_KEY"`
	APISecret       string        `mapstructure:"AMADEUS_API_SECRET"`
	BaseURL         string        `mapstructure:"AMADEUS_BASE_URL"`
	CityCode        string        `mapstructure:"DEFAULT_CITY"`
	Currency        string        `mapstructure:"DEFAULT_CURRENCY"`
	RateLimit       float64       `mapstructure:"AMADEUS_RATE_LIMIT"` // запросов в секунду
	RequestTimeout  time.Duration `mapstructure:"AMADEUS_TIMEOUT"`
	MaxHotels       int           `mapstructure:"AMADEUS_MAX_HOTELS"`
	OfferHotelLimit int           `mapstructure:"AMADEUS_OFFER_HOTELS"`
}

// Configured показывает, заданы ли ключи Amadeus
func (h HotelsConfig) Configured() bool {
	return h.APIKey != "" && h.APISecret != ""
}

// AIConfig настройки AI ассистента
type AIConfig struct {
	APIKey string `mapstructure:"GEMINI_API_KEY"`
	Model  string `mapstructure:"GEMINI_MODEL"`
}

// AlertsConfig настройки фоновой проверки цен
type AlertsConfig struct {
	CheckEnabled  bool          `mapstructure:"ALERT_CHECK_ENABLED"`
	CheckInterval time.Duration `mapstructure:"ALERT_CHECK_INTERVAL"`
}

// ============================================
// ОСНОВНАЯ КОНФИГУРАЦИЯ ПРИЛОЖЕНИЯ
// ============================================

// Config - основная структура конфигурации
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	Version     string `mapstructure:"VERSION"`

	Database DatabaseConfig `mapstructure:"DATABASE"`
	Redis    RedisConfig    `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Limits   LimitsConfig   `mapstructure:",squash"`
	Hotels   HotelsConfig   `mapstructure:",squash"`
	AI       AIConfig       `mapstructure:",squash"`
	Alerts   AlertsConfig   `mapstructure:",squash"`

	// ======================
	// TELEGRAM
	// ======================
	Telegram struct {
		BotToken    string `mapstructure:"TELEGRAM_BOT_TOKEN"`
		BotUsername string `mapstructure:"TG_BOT_USERNAME"`
		APIBaseURL  string `mapstructure:"TELEGRAM_API_URL"`
	}

	TelegramMode string `mapstructure:"TELEGRAM_MODE"` // "polling" или "webhook"

	Webhook struct {
		Domain      string `mapstructure:"WEBHOOK_DOMAIN"`
		Port        int    `mapstructure:"WEBHOOK_PORT"`
		Path        string `mapstructure:"WEBHOOK_PATH"`
		SecretToken string `mapstructure:"WEBHOOK_SECRET_TOKEN"`
		MaxBodySize int64  `mapstructure:"WEBHOOK_MAX_BODY_SIZE"`
	}

	Polling struct {
		Timeout       int `mapstructure:"POLLING_TIMEOUT"`
		RetryInterval int `mapstructure:"POLLING_RETRY_INTERVAL"`
	}

	// ======================
	// ЛОГИРОВАНИЕ И HTTP
	// ======================
	Logging struct {
		Level     string `mapstructure:"LOG_LEVEL"`
		File      string `mapstructure:"LOG_FILE"`
		DebugMode bool   `mapstructure:"DEBUG_MODE"`
		HTTPPort  int    `mapstructure:"HTTP_PORT"`
	}
}

// LoadConfig загружает конфигурацию из .env файла
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("⚠️  Config file not found, using environment variables\n")
		}
	}

	cfg := &Config{}

	// ======================
	// ОСНОВНЫЕ НАСТРОЙКИ
	// ======================
	cfg.Environment = getEnv("ENVIRONMENT", "production")
	cfg.Version = getEnv("VERSION", "1.0.0")

	// ======================
	// БАЗА ДАННЫХ
	// ======================
	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "hotel_monitor")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.Path = getEnv("DATABASE_PATH", "db/hotel_monitor.db")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	cfg.Database.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	cfg.Database.MaxConnIdleTime = getEnvDuration("DB_MAX_CONN_IDLE_TIME", 10*time.Minute)
	cfg.Database.EnableAutoMigrate = getEnvBool("DB_ENABLE_AUTO_MIGRATE", true)

	// ======================
	// REDIS
	// ======================
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnvInt("REDIS_PORT", 6379)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 10)
	cfg.Redis.MinIdleConns = getEnvInt("REDIS_MIN_IDLE_CONNS", 2)
	cfg.Redis.MaxRetries = getEnvInt("REDIS_MAX_RETRIES", 3)
	cfg.Redis.MinRetryBackoff = getEnvDuration("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond)
	cfg.Redis.MaxRetryBackoff = getEnvDuration("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond)
	cfg.Redis.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.Redis.ReadTimeout = getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.Redis.WriteTimeout = getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.Redis.PoolTimeout = getEnvDuration("REDIS_POOL_TIMEOUT", 4*time.Second)
	cfg.Redis.IdleTimeout = getEnvDuration("REDIS_IDLE_TIMEOUT", 5*time.Minute)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", "hotelbot:")
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)

	// ======================
	// КЭШ
	// ======================
	cfg.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory))
	cfg.Cache.TTL = getEnvSeconds("CACHE_TTL", time.Hour)
	cfg.Cache.MaxEntries = getEnvInt("CACHE_MAX_ENTRIES", 0)

	// ======================
	// ЛИМИТЫ
	// ======================
	cfg.Limits.MaxMessagesPerDay = getEnvInt("MAX_MESSAGES_PER_DAY", 50)
	cfg.Limits.SessionTimeout = getEnvSeconds("SESSION_TIMEOUT", 600*time.Second)
	cfg.Limits.DeleteSessionTimeout = getEnvSeconds("DELETE_SESSION_TIMEOUT", 120*time.Second)

	// ======================
	// ОТЕЛИ (AMADEUS)
	// ======================
	cfg.Hotels.APIKey = getEnv("AMADEUS_API_KEY", "")
	cfg.Hotels.APISecret = getEnv("AMADEUS_API_SECRET", "")
	cfg.Hotels.BaseURL = strings.TrimRight(getEnv("AMADEUS_BASE_URL", "https://test.api.amadeus.com"), "/")
	cfg.Hotels.CityCode = getEnv("DEFAULT_CITY", "LON")
	cfg.Hotels.Currency = getEnv("DEFAULT_CURRENCY", "GBP")
	cfg.Hotels.RateLimit = getEnvFloat("AMADEUS_RATE_LIMIT", 5)
	cfg.Hotels.RequestTimeout = getEnvDuration("AMADEUS_TIMEOUT", 20*time.Second)
	cfg.Hotels.MaxHotels = getEnvInt("AMADEUS_MAX_HOTELS", 20)
	cfg.Hotels.OfferHotelLimit = getEnvInt("AMADEUS_OFFER_HOTELS", 5)

	// London раньше задавался именем города, API ждет IATA код
	if strings.EqualFold(cfg.Hotels.CityCode, "london") {
		cfg.Hotels.CityCode = "LON"
	}

	// ======================
	// AI
	// ======================
	cfg.AI.APIKey = getEnv("GEMINI_API_KEY", "")
	cfg.AI.Model = getEnv("GEMINI_MODEL", "gemini-1.5-flash")

	// ======================
	// АЛЕРТЫ
	// ======================
	cfg.Alerts.CheckEnabled = getEnvBool("ALERT_CHECK_ENABLED", true)
	cfg.Alerts.CheckInterval = getEnvDuration("ALERT_CHECK_INTERVAL", 6*time.Hour)

	// ======================
	// TELEGRAM
	// ======================
	cfg.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Telegram.BotUsername = getEnv("TG_BOT_USERNAME", "")
	cfg.Telegram.APIBaseURL = strings.TrimRight(getEnv("TELEGRAM_API_URL", "https://api.telegram.org"), "/")
	cfg.TelegramMode = strings.ToLower(getEnv("TELEGRAM_MODE", "polling"))

	cfg.Webhook.Domain = getEnv("WEBHOOK_DOMAIN", "")
	cfg.Webhook.Port = getEnvInt("WEBHOOK_PORT", 8443)
	cfg.Webhook.Path = getEnv("WEBHOOK_PATH", "/webhook")
	cfg.Webhook.SecretToken = getEnv("WEBHOOK_SECRET_TOKEN", "")
	cfg.Webhook.MaxBodySize = getEnvInt64("WEBHOOK_MAX_BODY_SIZE", 1024*1024) // 1MB

	cfg.Polling.Timeout = getEnvInt("POLLING_TIMEOUT", 30)
	cfg.Polling.RetryInterval = getEnvInt("POLLING_RETRY_INTERVAL", 5)

	// ======================
	// ЛОГИРОВАНИЕ
	// ======================
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.File = getEnv("LOG_FILE", "logs/hotel_monitor.log")
	cfg.Logging.DebugMode = getEnvBool("DEBUG_MODE", false)
	cfg.Logging.HTTPPort = getEnvInt("HTTP_PORT", 8080)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate проверяет обязательные параметры и собирает все ошибки сразу
func (c *Config) validate() error {
	var validationErrors []string

	if c.Telegram.BotToken == "" {
		validationErrors = append(validationErrors, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.AI.APIKey == "" {
		validationErrors = append(validationErrors, "GEMINI_API_KEY is required")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			validationErrors = append(validationErrors, "DB_HOST is required")
		}
		if c.Database.Port <= 0 {
			validationErrors = append(validationErrors, "DB_PORT must be positive")
		}
		if c.Database.User == "" {
			validationErrors = append(validationErrors, "DB_USER is required")
		}
		if c.Database.Name == "" {
			validationErrors = append(validationErrors, "DB_NAME is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			validationErrors = append(validationErrors, "DATABASE_PATH is required for sqlite")
		}
	default:
		validationErrors = append(validationErrors, "DB_DRIVER must be 'postgres' or 'sqlite'")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if !c.Redis.Enabled {
			validationErrors = append(validationErrors, "CACHE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		validationErrors = append(validationErrors, "CACHE_BACKEND must be 'memory' or 'redis'")
	}
	if c.Cache.TTL <= 0 {
		validationErrors = append(validationErrors, "CACHE_TTL must be positive")
	}

	if c.Limits.MaxMessagesPerDay <= 0 {
		validationErrors = append(validationErrors, "MAX_MESSAGES_PER_DAY must be positive")
	}
	if c.Limits.SessionTimeout <= 0 {
		validationErrors = append(validationErrors, "SESSION_TIMEOUT must be positive")
	}
	if c.Alerts.CheckEnabled && c.Alerts.CheckInterval < time.Minute {
		validationErrors = append(validationErrors, "ALERT_CHECK_INTERVAL must be at least 1m")
	}

	if c.TelegramMode != "polling" && c.TelegramMode != "webhook" {
		validationErrors = append(validationErrors, "TELEGRAM_MODE must be 'polling' or 'webhook'")
	}
	if c.IsWebhookMode() {
		if c.Webhook.Domain == "" {
			validationErrors = append(validationErrors, "WEBHOOK_DOMAIN is required in webhook mode")
		}
		if c.Webhook.Port <= 0 || c.Webhook.Port > 65535 {
			validationErrors = append(validationErrors, "WEBHOOK_PORT must be in range 1-65535")
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("%s", strings.Join(validationErrors, "; "))
	}

	return nil
}

// IsWebhookMode проверяет, работает ли бот через webhook
func (c *Config) IsWebhookMode() bool {
	return c.TelegramMode == "webhook"
}

// GetWebhookURL возвращает полный URL для setWebhook
func (c *Config) GetWebhookURL() string {
	domain := strings.TrimRight(c.Webhook.Domain, "/")
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + c.Webhook.Path
}

// GetPostgresDSN возвращает DSN строку для PostgreSQL
func (c *Config) GetPostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddress возвращает адрес Redis
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// PrintSummary выводит основные настройки (секреты маскируются)
func (c *Config) PrintSummary() {
	logger.Info("📋 Application configuration:")
	logger.Info("   • Environment: %s", c.Environment)
	logger.Info("   • Log level: %s", c.Logging.Level)
	logger.Info("   • Telegram mode: %s", c.TelegramMode)
	logger.Info("   • Telegram token: %s", maskSecret(c.Telegram.BotToken))

	if c.Database.Driver == DriverPostgres {
		logger.Info("   • PostgreSQL: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Name)
	} else {
		logger.Info("   • SQLite: %s", c.Database.Path)
	}
	if c.Redis.Enabled {
		logger.Info("   • Redis: %s (DB: %d, Pool: %d)", c.GetRedisAddress(), c.Redis.DB, c.Redis.PoolSize)
	}
	logger.Info("   • Search cache: %s, TTL %v", c.Cache.Backend, c.Cache.TTL)
	logger.Info("   • Limits: %d messages/day, session timeout %v", c.Limits.MaxMessagesPerDay, c.Limits.SessionTimeout)

	if c.Hotels.Configured() {
		logger.Info("   • Amadeus: %s (key %s)", c.Hotels.BaseURL, maskSecret(c.Hotels.APIKey))
	} else {
		logger.Warn("   • Amadeus: not configured, hotel search will return no results")
	}
	logger.Info("   • AI model: %s", c.AI.Model)

	if c.Alerts.CheckEnabled {
		logger.Info("   • Alert price check: every %v", c.Alerts.CheckInterval)
	}
	if c.IsWebhookMode() {
		logger.Info("   • Webhook URL: %s (port %d)", c.GetWebhookURL(), c.Webhook.Port)
	} else {
		logger.Info("   • Polling timeout: %d sec, health port %d", c.Polling.Timeout, c.Logging.HTTPPort)
	}
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ============================================

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvSeconds принимает как "600", так и "10m"
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
