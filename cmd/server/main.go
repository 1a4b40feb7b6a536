package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/score-tracker/internal/auth"
	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/handler"
	"github.com/score-tracker/internal/kafka"
	"github.com/score-tracker/internal/memory"
	"github.com/score-tracker/internal/mongo"
	"github.com/score-tracker/internal/postgres"
	"github.com/score-tracker/internal/redis"
	"github.com/score-tracker/internal/service"
	"github.com/score-tracker/internal/store"
	"github.com/score-tracker/internal/websocket"
	"github.com/score-tracker/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
		if err := cfg.Validate(); err != nil {
			logger.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
	}
	level.Set(cfg.Log.SlogLevel())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the score store
	scoreStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open score store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer scoreStore.Close()
	logger.Info("score store ready", "driver", cfg.Store.Driver)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(cfg.Server.AllowedOrigins, logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services
	scoreService := service.NewScoreService(
		scoreStore,
		auth.NewHasher(cfg.Security.BcryptCost),
		&cfg.Leaderboard,
		logger,
	)
	scoreService.SetNotifier(wsHub)

	// Start leaderboard broadcaster
	broadcaster := worker.NewBroadcaster(scoreService, wsHub, &cfg.Broadcast, logger)
	if cfg.Broadcast.Enabled {
		if err := broadcaster.Start(ctx); err != nil {
			logger.Error("failed to start leaderboard broadcaster", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for score ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, scoreService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	httpHandler := handler.NewHandler(scoreService, wsHub, cfg.Server.AllowedOrigins, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop accepting requests first, then background components in reverse start order
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	if err := broadcaster.Stop(); err != nil {
		logger.Error("failed to stop leaderboard broadcaster", "error", err)
	}

	wsHub.Stop()

	logger.Info("server stopped")
}

// openStore connects the configured score store driver
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		logger.Info("connecting to MongoDB", "database", cfg.Mongo.Database, "collection", cfg.Mongo.Collection)
		s, err := mongo.NewStore(ctx, &cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverPostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		s, err := postgres.NewStore(&cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return s, nil

	case config.DriverRedis:
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		s, err := redis.NewStore(&cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, scores are lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
