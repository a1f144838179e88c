// cmd/bot/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"london-hotel-monitor-bot/application/bootstrap"
	"london-hotel-monitor-bot/internal/infrastructure/config"
	"london-hotel-monitor-bot/pkg/logger"
)

var (
	version   = "1.0.0"
	buildTime = "неизвестно"
)

func main() {
	var (
		env         string
		cfgPath     string
		logLevel    string
		testMode    bool
		showHelp    bool
		showVersion bool
	)

	flag.StringVar(&env, "env", "dev", "Окружение (dev/prod)")
	flag.StringVar(&cfgPath, "config", "", "Путь к файлу конфигурации (переопределяет env)")
	flag.StringVar(&logLevel, "log-level", "", "Уровень логирования: debug, info, warn, error (переопределяет .env)")
	flag.BoolVar(&testMode, "test", false, "Тестовый режим (сообщения только логируются)")
	flag.BoolVar(&showHelp, "help", false, "Показать справку")
	flag.BoolVar(&showVersion, "version", false, "Показать версию")
	flag.Parse()

	if showVersion {
		printVersion()
		return
	}
	if showHelp {
		printHelp()
		return
	}

	configFile, err := resolveConfigFile(env, cfgPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("📁 Используемый конфиг файл: %s\n", configFile)

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Printf("❌ Не удалось загрузить конфигурацию: %v\n", err)
		os.Exit(1)
	}
	cfg.Environment = env
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if !testMode {
		testMode = strings.ToLower(os.Getenv("TEST_MODE")) == "true"
	}

	os.Exit(run(cfg, testMode))
}

// resolveConfigFile ищет .env: явный путь, configs/<env>/.env, затем ./.env
func resolveConfigFile(env, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	candidates := []string{
		filepath.Join("configs", env, ".env"),
		".env",
		filepath.Join("configs", "dev", ".env"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// без файла работаем только на переменных окружения
	if os.Getenv("TELEGRAM_BOT_TOKEN") != "" {
		return "", nil
	}
	return "", fmt.Errorf("файл конфигурации не найден: %s", strings.Join(candidates, ", "))
}

func run(cfg *config.Config, testMode bool) int {
	if err := initLogger(cfg); err != nil {
		fmt.Printf("❌ %v\n", err)
		return 1
	}
	defer logger.Close()

	logger.Info("🏨 Запуск London Hotel Monitor Bot v%s (сборка: %s)", version, buildTime)
	if testMode {
		logger.Info("🧪 ЗАПУСК В ТЕСТОВОМ РЕЖИМЕ: сообщения не отправляются в Telegram")
	}

	app, err := bootstrap.NewAppBuilder().
		WithConfig(cfg).
		WithTestMode(testMode).
		Build()
	if err != nil {
		logger.Error("❌ Не удалось собрать приложение: %v", err)
		return 1
	}

	if err := app.Initialize(); err != nil {
		logger.Error("❌ Не удалось инициализировать приложение: %v", err)
		return 1
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	runErr := make(chan error, 1)
	go func() {
		runErr <- app.Run()
	}()

	logger.Info("🛑 Нажмите Ctrl+C для остановки")

	select {
	case sig := <-sigChan:
		logger.Info("📶 Получен сигнал: %v", sig)
		_ = app.Stop()
		if err := <-runErr; err != nil {
			logger.Error("❌ Ошибка остановки приложения: %v", err)
			return 1
		}
		return 0

	case err := <-runErr:
		if err != nil {
			logger.Error("❌ Ошибка запуска приложения: %v", err)
			return 1
		}
		return 0
	}
}

func initLogger(cfg *config.Config) error {
	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = "logs/hotel_monitor.log"
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию логов: %w", err)
	}

	if err := logger.InitGlobal(logPath, cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
		fmt.Printf("❌ Не удалось инициализировать файловый логгер: %v. Переход на консольный...\n", err)
		if err := logger.InitGlobal("", cfg.Logging.Level, cfg.Logging.DebugMode); err != nil {
			return fmt.Errorf("не удалось инициализировать консольный логгер: %w", err)
		}
	}
	return nil
}

func printVersion() {
	fmt.Printf("🏨 London Hotel Monitor Bot v%s\n", version)
	fmt.Printf("📅 Сборка: %s\n", buildTime)
	fmt.Println()
	fmt.Println("📊 Функции:")
	fmt.Println("  • Поиск отелей Лондона по району и датам")
	fmt.Println("  • Алерты на снижение цены")
	fmt.Println("  • AI ассистент по районам и предложениям")
}

func printHelp() {
	fmt.Println("🏨 London Hotel Monitor Bot")
	fmt.Println("Telegram бот для поиска отелей в Лондоне и отслеживания цен")
	fmt.Println()
	fmt.Println("Использование: bot [опции]")
	fmt.Println()
	fmt.Println("Опции:")
	fmt.Println("  --env string       Окружение (dev/prod) (по умолчанию: dev)")
	fmt.Println("  --config string    Путь к файлу конфигурации (переопределяет env)")
	fmt.Println("  --log-level string Уровень логирования: debug, info, warn, error")
	fmt.Println("  --test             Тестовый режим (сообщения только логируются)")
	fmt.Println("  --version          Показать информацию о версии")
	fmt.Println("  --help             Показать это справочное сообщение")
	fmt.Println()
	fmt.Println("Переменные окружения (через .env файл):")
	fmt.Println("  TELEGRAM_BOT_TOKEN    Токен Telegram бота")
	fmt.Println("  TELEGRAM_MODE         polling или webhook")
	fmt.Println("  WEBHOOK_DOMAIN        Домен для webhook режима")
	fmt.Println("  GEMINI_API_KEY        Ключ Gemini API")
	fmt.Println("  AMADEUS_API_KEY       Ключ Amadeus API")
	fmt.Println("  AMADEUS_API_SECRET    Секрет Amadeus API")
	fmt.Println("  DB_DRIVER             sqlite или postgres")
	fmt.Println("  DATABASE_PATH         Путь к файлу SQLite")
	fmt.Println("  REDIS_ENABLED         Включить Redis")
	fmt.Println("  CACHE_BACKEND         memory или redis")
	fmt.Println("  MAX_MESSAGES_PER_DAY  Дневной лимит сообщений")
	fmt.Println("  SESSION_TIMEOUT       Таймаут диалога в секундах")
	fmt.Println("  LOG_LEVEL             Уровень логирования")
	fmt.Println()
	fmt.Println("Примеры:")
	fmt.Println("  go run cmd/bot/main.go --env=dev --log-level=debug")
	fmt.Println("  go run cmd/bot/main.go --config=configs/prod/.env")
}
