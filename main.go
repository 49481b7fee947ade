// feedsync keeps an external ranking backend in step with the primary
// content store and serves assembled feed pages back to clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/locustsocial/feedsync/internal/api"
	"github.com/locustsocial/feedsync/internal/backend"
	"github.com/locustsocial/feedsync/internal/blob"
	"github.com/locustsocial/feedsync/internal/cache"
	"github.com/locustsocial/feedsync/internal/config"
	"github.com/locustsocial/feedsync/internal/feed"
	"github.com/locustsocial/feedsync/internal/forwarder"
	"github.com/locustsocial/feedsync/internal/httpx"
	"github.com/locustsocial/feedsync/internal/logger"
	"github.com/locustsocial/feedsync/internal/metrics"
	"github.com/locustsocial/feedsync/internal/store"
)

const shutdownTimeout = config.DefaultShutdownTimeoutSeconds * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	db, err := connectDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("Failed to connect to redis", logger.Error(err))
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	return runServer(cfg, log, db, redisClient)
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yml"
	}
	return config.Load(path)
}

// connectDatabase opens and verifies the content store connection.
func connectDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := store.Connect(store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.DBName))
	return db, nil
}

// runServer wires the pipeline together and serves until a signal arrives.
func runServer(cfg *config.Config, log logger.Logger, db *sqlx.DB, redisClient *redis.Client) int {
	collector := metrics.NewCollector(prometheus.NewRegistry())

	posts := store.NewPostRepository(db)
	users := store.NewUserRepository(db)
	interactions := store.NewInteractionRepository(db)
	authors := cache.NewAuthorCache(redisClient, cache.DefaultAuthorTTL, log)

	retryClient := httpx.New(httpx.Config{Timeout: cfg.Backend.Timeout}, log)
	backendClient := backend.New(backend.Config{
		BaseURL:     cfg.Backend.BaseURL,
		Secret:      cfg.Backend.Secret,
		MaxAttempts: cfg.Backend.MaxAttempts,
		Timeout:     cfg.Backend.Timeout,
	}, retryClient, log)

	fetcher := blob.NewClient(blob.Config{
		Endpoint: cfg.Storage.Endpoint,
		MaxBytes: cfg.Storage.MaxImageBytes,
	})

	contentForwarder := forwarder.NewContentForwarder(
		posts,
		fetcher,
		backendClient,
		forwarder.NewDebouncer(cfg.Sync.DebounceWindow),
		forwarder.ContentConfig{
			DefaultBucket: cfg.Storage.DefaultBucket,
			MaxImageBytes: cfg.Storage.MaxImageBytes,
		},
		collector,
		log,
	)

	dispatcher := forwarder.NewDispatcher(cfg.Sync.Workers, cfg.Sync.QueueSize, log)
	defer dispatcher.Stop()
	interactionForwarder := forwarder.NewInteractionForwarder(backendClient, interactions, collector, log)
	interactionQueue := forwarder.NewInteractionQueue(dispatcher, interactionForwarder)

	assembler := feed.NewAssembler(backendClient, posts, users, authors, collector, log)

	deps := &api.Dependencies{
		Content:      contentForwarder,
		Interactions: interactionQueue,
		Feed:         assembler,
		RankProxy:    backendClient,
		Metrics:      collector.Handler(),
		Readiness: []api.ReadinessCheck{
			{Name: "database", Check: func(ctx context.Context) error { return db.PingContext(ctx) }},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	}

	server := api.NewServer(cfg, deps, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server error", logger.Error(err))
			return 1
		}
	case sig := <-quit:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", logger.Error(err))
			return 1
		}
	}

	log.Info("feedsync exited cleanly")
	return 0
}
