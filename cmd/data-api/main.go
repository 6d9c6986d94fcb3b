// cmd/data-api/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nutrisaur-workers/internal/alerts"
	commonaws "nutrisaur-workers/internal/common/aws"
	"nutrisaur-workers/internal/common/config"
	"nutrisaur-workers/internal/common/database"
	"nutrisaur-workers/internal/common/logger"
	"nutrisaur-workers/internal/common/observability"
	"nutrisaur-workers/internal/dataapi"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting data API...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if err := cfg.ValidateDataAPI(); err != nil {
		zapLog.Fatal("config validation failed", zap.Error(err))
	}

	if cfg.Logging.Level != "" {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("data-api")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init SAM-case alerting (optional) ---
	var alertSender dataapi.AlertSender
	if cfg.Alerts.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Alerts.AWSRegion)
		if err != nil {
			zapLog.Fatal("SES client initialization failed", zap.Error(err))
		}

		var snsService alerts.SNSService
		if cfg.Alerts.SMSEnable {
			snsClient, err := commonaws.NewSNSClient(ctx, cfg.Alerts.AWSRegion)
			if err != nil {
				zapLog.Fatal("SNS client initialization failed", zap.Error(err))
			}
			snsService = snsClient
		}

		alertsConfig := &alerts.Config{
			AWSRegion: cfg.Alerts.AWSRegion,
			FromEmail: cfg.Alerts.FromEmail,
			ToEmail:   cfg.Alerts.ToEmail,
			SMSNumber: cfg.Alerts.SMSNumber,
			SMSEnable: cfg.Alerts.SMSEnable,
		}
		alertSender = alerts.NewNotifier(alertsConfig, sesClient, snsService, &alertsLoggerAdapter{log})
		zapLog.Info("SAM-case alerting enabled", zap.Bool("sms", cfg.Alerts.SMSEnable))
	}

	server := dataapi.NewServer(pg.DB, alertSender, &dataapiLoggerAdapter{log})

	// --- HTTP Server ---
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		code := http.StatusOK
		if err := pg.Ping(r.Context()); err != nil {
			status = "database unreachable"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Data API listening", zap.String("address", cfg.Server.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown error", zap.Error(err))
	}

	zapLog.Info("Data API stopped gracefully")
}

// Logger adapters for packages that declare their own Logger interfaces
type dataapiLoggerAdapter struct {
	logger.Logger
}

func (a *dataapiLoggerAdapter) With(fields map[string]interface{}) dataapi.Logger {
	return &dataapiLoggerAdapter{a.Logger.With(fields)}
}

type alertsLoggerAdapter struct {
	logger.Logger
}

func (a *alertsLoggerAdapter) With(fields map[string]interface{}) alerts.Logger {
	return &alertsLoggerAdapter{a.Logger.With(fields)}
}
