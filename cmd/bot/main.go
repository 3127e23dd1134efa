package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/api"
	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/gamepulse/sentiment-bot/internal/metrics"
	"github.com/gamepulse/sentiment-bot/internal/monitoring"
	"github.com/gamepulse/sentiment-bot/internal/notifications"
	"github.com/gamepulse/sentiment-bot/internal/scheduler"
	"github.com/gamepulse/sentiment-bot/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting community sentiment bot")
	environment := "production"
	if cfg.Debug {
		environment = "development"
	}
	metrics.Init(version, environment)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	responseCache, err := cache.New(cache.Config{
		Backend:    cfg.CacheBackend,
		TTL:        cfg.CacheTTL,
		RedisAddr:  cfg.RedisAddr,
		ValkeyAddr: cfg.ValkeyAddr,
		Password:   cfg.CachePassword,
		Prefix:     "sentiment-bot:",
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cache.Close(responseCache)

	results, closeResults, err := newResultStore(startupCtx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize result storage: %v", err)
	}
	defer closeResults()

	var publisher notifications.Publisher
	if cfg.NATSURL != "" {
		conn, err := notifications.ConnectNATS(cfg.NATSURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer conn.Close()
		publisher = conn
	}
	notificationService := notifications.NewService(cfg, publisher)
	if !notificationService.Enabled() {
		logrus.Warn("No notification channels configured - scheduled scan reports are only stored")
	}

	monitoringService := monitoring.NewService(cfg, monitoring.Components{
		Lister:    monitoring.NewLister(cfg),
		Extractor: monitoring.NewExtractor(cfg),
		Results:   results,
		Notifier:  notificationService,
		Cache:     responseCache,
	})

	schedulerService, err := scheduler.NewService(cfg, monitoringService)
	if err != nil {
		logrus.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewRouter(monitoringService),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// newResultStore opens the backend named by RESULT_STORE and returns its release func
func newResultStore(ctx context.Context, cfg *config.Config) (storage.ResultStore, func(), error) {
	switch cfg.ResultStore {
	case "azure":
		blobs, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewBlobResultStore(blobs), func() {}, nil
	case "mongo":
		store, err := storage.NewMongoResultStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				logrus.Warnf("Failed to close MongoDB client: %v", err)
			}
		}, nil
	default:
		logrus.Warn("Using in-memory result storage - scan history is lost on restart")
		return storage.NewMemoryResultStore(), func() {}, nil
	}
}
