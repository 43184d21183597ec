package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"todo-api/internal/auth"
	"todo-api/internal/cache"
	"todo-api/internal/config"
	"todo-api/internal/controller"
	"todo-api/internal/database"
	"todo-api/internal/queue"
	"todo-api/internal/repository"
	"todo-api/internal/routes"
	"todo-api/internal/service"
	"todo-api/internal/worker"
	"todo-api/pkg/logger"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.Get()
	logger.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", "error", err)
		os.Exit(1)
	}

	var (
		todoStore service.TodoStore
		userStore service.UserStore
		checks    []controller.ReadinessCheck
		db        *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(ctx, cfg.DatabaseURL, cfg.DBPoolSize)
		if err != nil {
			logger.Error(ctx, "Database not available; exiting", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(ctx, db); err != nil {
			logger.Error(ctx, "Schema migration failed", "error", err)
			os.Exit(1)
		}
		todoStore = repository.NewTodoRepository(db)
		userStore = repository.NewUserRepository(db)
		checks = append(checks, controller.ReadinessCheck{Name: "database", Ping: db.PingContext})
	} else {
		logger.Warn(ctx, "DATABASE_URL not set; using in-memory store")
		todoStore = repository.NewMemoryTodoRepository()
		userStore = repository.NewMemoryUserRepository()
	}

	backend, err := openCacheBackend(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Cache not available; exiting", "error", err)
		os.Exit(1)
	}
	qc := cache.NewQueryCache(backend, cfg.CacheTTLDuration())
	checks = append(checks, controller.ReadinessCheck{Name: "cache", Ping: qc.Ping})

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)
	authSvc := service.NewAuthService(userStore, auth.NewBcryptHasher(cfg.BcryptCost), tokens)

	// Every replica tags its events so its own worker can skip them.
	instanceID := uuid.New().String()
	workerCtx, stopWorker := context.WithCancel(ctx)
	var (
		events    service.EventPublisher
		publisher *queue.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		if err := queue.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPartitions); err != nil {
			logger.Warn(ctx, "Todo events topic not ensured", "error", err)
		}
		publisher = queue.NewPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		events = publisher
		if cfg.CacheBackend == config.CacheBackendMemory {
			go worker.Run(workerCtx, cfg.KafkaBrokers, cfg.KafkaTopic, "todo-cache-"+instanceID, instanceID, qc)
		}
	}
	todoSvc := service.NewTodosService(todoStore, qc, events, instanceID)

	handler := controller.NewHandler(authSvc, todoSvc, checks...)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(handler, tokens),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort, "cache", cfg.CacheBackend, "instance", instanceID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}

	stopWorker()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error(ctx, "Kafka producer close error", "error", err)
		}
	}
	if err := backend.Close(); err != nil {
		logger.Error(ctx, "Cache close error", "error", err)
	}
	if db != nil {
		_ = db.Close()
	}
	logger.Info(ctx, "Server stopped")
}

func openCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPoolSize)
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Redis cache initialized", "pool_size", cfg.RedisPoolSize)
		return cache.NewRedisBackend(client), nil
	}
	return cache.NewMemoryBackend(cfg.CacheCapacity, cfg.CacheTTLDuration()), nil
}
