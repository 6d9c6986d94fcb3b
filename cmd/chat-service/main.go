// cmd/chat-service/main.go
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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nutrisaur-workers/internal/common/config"
	"nutrisaur-workers/internal/common/database"
	"nutrisaur-workers/internal/common/logger"
	"nutrisaur-workers/internal/common/observability"

	buildcontext "nutrisaur-workers/internal/chat/build-context"
	"nutrisaur-workers/internal/chat/conversation"
	"nutrisaur-workers/internal/chat/genai"
	"nutrisaur-workers/internal/chat/respond"
	"nutrisaur-workers/internal/facade"
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

	zapLog.Info("Starting chat service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if err := cfg.ValidateChatService(); err != nil {
		zapLog.Fatal("config validation failed", zap.Error(err))
	}

	if cfg.Logging.Level != "" {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("chat-service")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry (optional: the record cache is skipped without it) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redisClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, running without record cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Wire the dispatcher pipeline ---
	facadeConfig := &facade.Config{
		BaseURL:  cfg.APIs.DataAPI.BaseURL,
		Timeout:  config.GetDuration(cfg.APIs.DataAPI.Timeout),
		CacheTTL: config.GetDuration(cfg.APIs.DataAPI.CacheTTL),
	}
	var redisConn *redis.Client
	if redisClient != nil {
		redisConn = redisClient.Client
	}
	facadeClient := facade.NewClient(facadeConfig, redisConn, &facadeLoggerAdapter{log})

	builderConfig := &buildcontext.Config{
		Timeout: config.GetDuration(cfg.APIs.DataAPI.Timeout),
	}
	builder := buildcontext.NewBuilder(builderConfig, facadeClient, &buildContextLoggerAdapter{log})

	genaiConfig := genai.DefaultConfig()
	genaiConfig.BaseURL = cfg.APIs.GenAI.BaseURL
	genaiConfig.APIKey = cfg.APIs.GenAI.APIKey
	genaiConfig.Timeout = config.GetDuration(cfg.APIs.GenAI.Timeout)
	genaiConfig.MaxRetries = cfg.APIs.GenAI.MaxRetries
	generator := genai.NewClient(genaiConfig, &genaiLoggerAdapter{log})

	respondConfig := respond.DefaultConfig()
	respondConfig.Timeout = config.GetDuration(cfg.APIs.DataAPI.Timeout)
	respondConfig.MaxExampleRecords = cfg.Chat.MaxExampleRecords
	responder := respond.NewResponder(respondConfig, facadeClient, builder, generator, &respondLoggerAdapter{log})

	surfaceConfig := &conversation.Config{
		MinReplyDelayFast:     config.GetDuration(cfg.Chat.MinReplyDelayFast),
		MinReplyDelayFallback: config.GetDuration(cfg.Chat.MinReplyDelayFallback),
	}
	surface := conversation.NewSurface(surfaceConfig, responder, &conversationLoggerAdapter{log})

	log.Info("Chat pipeline wired", map[string]interface{}{
		"dataapi": cfg.APIs.DataAPI.BaseURL,
		"genai":   cfg.APIs.GenAI.BaseURL,
		"cache":   redisConn != nil,
	})

	// --- HTTP Server ---
	mux := http.NewServeMux()
	surface.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("Chat service listening", zap.String("address", cfg.Server.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown error", zap.Error(err))
	}

	zapLog.Info("Chat service stopped gracefully")
}

// Logger adapters for packages that declare their own Logger interfaces
type facadeLoggerAdapter struct {
	logger.Logger
}

func (a *facadeLoggerAdapter) With(fields map[string]interface{}) facade.Logger {
	return &facadeLoggerAdapter{a.Logger.With(fields)}
}

type buildContextLoggerAdapter struct {
	logger.Logger
}

func (a *buildContextLoggerAdapter) With(fields map[string]interface{}) buildcontext.Logger {
	return &buildContextLoggerAdapter{a.Logger.With(fields)}
}

type genaiLoggerAdapter struct {
	logger.Logger
}

func (a *genaiLoggerAdapter) With(fields map[string]interface{}) genai.Logger {
	return &genaiLoggerAdapter{a.Logger.With(fields)}
}

type respondLoggerAdapter struct {
	logger.Logger
}

func (a *respondLoggerAdapter) With(fields map[string]interface{}) respond.Logger {
	return &respondLoggerAdapter{a.Logger.With(fields)}
}

type conversationLoggerAdapter struct {
	logger.Logger
}

func (a *conversationLoggerAdapter) With(fields map[string]interface{}) conversation.Logger {
	return &conversationLoggerAdapter{a.Logger.With(fields)}
}
