package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/dago-rule-engine/internal/config"
	"github.com/aescanero/dago-rule-engine/internal/engine"
	celeval "github.com/aescanero/dago-rule-engine/internal/eval/cel"
	"github.com/aescanero/dago-rule-engine/internal/metrics"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/aescanero/dago-rule-engine/internal/server"
	"github.com/aescanero/dago-rule-engine/internal/store"
	"github.com/aescanero/dago-rule-engine/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting rule engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient, err = connectRedis(cfg)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	st, err := openStore(cfg, redisClient, logger)
	if err != nil {
		logger.Fatal("failed to open rule store", zap.Error(err))
	}
	logger.Info("rule store opened", zap.String("backend", cfg.StoreBackend))

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	names := rule.NewNameGenerator(cfg.CombinedNamePrefix, cfg.CombinedNameLength, nil)
	eng := engine.New(st, names, m, logger)

	opts := []server.Option{
		server.WithCORSOrigins(cfg.CORSAllowedOrigins),
		server.WithHealthCheck("store", st.Ping),
	}
	if m != nil {
		opts = append(opts, server.WithMetrics(m))
	}
	if cfg.CELEnabled {
		opts = append(opts, server.WithCEL(celeval.NewEvaluator()))
	}
	if redisClient != nil {
		opts = append(opts, server.WithHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	srv := server.New(cfg.HTTPPort, eng, logger, opts...)
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start http server", zap.Error(err))
	}

	var w *worker.Worker
	if cfg.StreamEnabled {
		w = worker.NewWorker(cfg, redisClient, eng, logger)
		if err := w.Start(); err != nil {
			logger.Fatal("failed to start worker", zap.Error(err))
		}
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("rule engine running, press Ctrl+C to stop")
	<-sigChan

	logger.Info("shutdown signal received, stopping rule engine")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop http server", zap.Error(err))
	}

	if w != nil {
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop worker", zap.Error(err))
		}
	}

	if err := st.Close(); err != nil {
		logger.Error("failed to close rule store", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", zap.Error(err))
		}
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing exit")
	default:
		logger.Info("rule engine stopped gracefully")
	}
}

// connectRedis creates a client and checks the connection
func connectRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// openStore opens the configured rule store backend
func openStore(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendSQLite:
		return store.NewSQLiteStore(cfg.SQLitePath)
	case config.BackendRedis:
		return store.NewRedisStore(redisClient, cfg.RedisKeyPrefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// initLogger initializes the logger
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
