package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/swayne275/bitly-metrics/internal/bitly"
	"github.com/swayne275/bitly-metrics/internal/config"
	"github.com/swayne275/bitly-metrics/internal/metrics"
	"github.com/swayne275/bitly-metrics/internal/server"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Server  *server.Server
	Handler *metrics.Handler
}

// New initializes and returns a new App instance with all dependencies wired up.
func New() (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"api_version", cfg.App.APIVersion,
	)

	// Setup application dependencies
	client := bitly.NewClient(bitly.Config{
		BaseURL:    cfg.Bitly.BaseURL,
		Timeout:    cfg.Bitly.RequestTimeout,
		PageSize:   cfg.Bitly.PageSize,
		WindowDays: cfg.Bitly.WindowDays,
		Logger:     logger,
	})
	svc := metrics.NewService(client, logger)
	handler := metrics.NewHandler(metrics.HandlerConfig{
		Service: svc,
		Logger:  logger,
	})

	// Create server
	srv := server.New(cfg, logger, handler)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"bitly_base_url", cfg.Bitly.BaseURL,
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Server:  srv,
		Handler: handler,
	}, nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" || env == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
