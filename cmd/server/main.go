package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/config"
	"github.com/hiroki-koketsu/go-todo/internal/database"
	"github.com/hiroki-koketsu/go-todo/internal/handler"
	"github.com/hiroki-koketsu/go-todo/internal/repository"
	"github.com/hiroki-koketsu/go-todo/internal/service"
	"github.com/hiroki-koketsu/go-todo/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

func main() {
	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(startupLogger); err != nil {
		startupLogger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// run wires the server and blocks until a signal or a listener failure.
func run(startupLogger *slog.Logger) error {
	// Load configuration
	cfg := config.Load()

	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("database", cfg.DatabasePath),
	)

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(ctx); err != nil {
			startupLogger.Error("failed to shutdown telemetry", slog.Any("error", err))
		}
	}()
	logger := providers.Log

	db, err := database.Open(cfg.DatabasePath, database.ParseLogLevel(cfg.DBLogLevel))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			startupLogger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	taskRepo := repository.NewTaskRepository(db)
	taskService := service.NewTaskService(taskRepo)

	// Create metrics instruments
	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, taskRepo.Count)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	taskHandler := handler.NewTaskHandler(taskService, logger, metrics)

	r := handler.NewRouter(handler.RouterConfig{
		ServiceName:     cfg.ServiceName,
		HealthcheckPath: cfg.HealthcheckPath,
		FrontendURL:     cfg.FrontendURL,
		RequestTimeout:  cfg.RequestTimeout,
		Logger:          logger,
	}, taskHandler)

	// Wrap router with OpenTelemetry HTTP instrumentation
	otelHandler := otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Skip tracing for health checks
			return r.URL.Path != cfg.HealthcheckPath
		}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr), slog.String("cors_origin", cfg.FrontendURL))
		startupLogger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
	case runErr = <-serverErr:
		logger.Error("server error", slog.Any("error", runErr))
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return runErr
}
