package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"villa-api/config"
	"villa-api/controllers"
	"villa-api/domain"
	"villa-api/events"
	"villa-api/logging"
	"villa-api/middleware"
	"villa-api/repositories"
	"villa-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// ============================================
	// 1. CONFIGURATION
	// ============================================
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, logging.ParseFormat(cfg.LogFormat))
	logger.WithFields(logrus.Fields{
		"port":   cfg.Port,
		"store":  cfg.StoreDriver,
		"cache":  cfg.CacheEnabled,
		"events": cfg.RabbitMQURL != "",
	}).Info("Configuration loaded")

	// ============================================
	// 2. STORAGE
	// ============================================
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, closeStore, err := openStore(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer closeStore()

	if cfg.SeedData {
		n, err := repositories.Seed(context.Background(), repo, domain.SeedVillas())
		if err != nil {
			logger.WithError(err).Fatal("Failed to seed store")
		}
		logger.WithField("villas", n).Info("Seed data checked")
	}

	// ============================================
	// 3. EVENTS
	// ============================================
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create RabbitMQ publisher")
		}
		publisher = p
	}
	defer publisher.Close()

	// ============================================
	// 4. LAYERS: service -> controller -> router
	// ============================================
	villaService := services.NewVillaService(repo, publisher, logger)
	villaController := controllers.NewVillaController(villaService, logger)

	var limiter *middleware.LimiterStore
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewLimiterStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	gin.SetMode(gin.ReleaseMode)
	router := controllers.NewRouter(villaController, logger, limiter)

	// ============================================
	// 5. SERVER
	// ============================================
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Villa API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Villa API...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down server")
	}
	logger.Info("Villa API shut down complete")
}

// openStore builds the repository selected by STORE_DRIVER, wrapped in the
// cache when enabled. The returned func releases its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repositories.VillaRepository, func(), error) {
	var (
		repo    repositories.VillaRepository
		closers []func()
	)

	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, err
		}
		if err := repositories.Migrate(db); err != nil {
			return nil, nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { sqlDB.Close() })
		}
		logger.WithField("host", cfg.DBHost).Info("Connected to MySQL")
		repo = repositories.NewGormRepository(db)

	case config.DriverMongo:
		client, err := repositories.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { client.Disconnect(context.Background()) })
		logger.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")
		repo = repositories.NewMongoRepository(client.Database(cfg.MongoDatabase))

	default:
		repo = repositories.NewMemoryRepository()
	}

	if cfg.CacheEnabled {
		cached := repositories.NewCachedRepository(repo, repositories.CacheOptions{
			MaxSize:       cfg.CacheSize,
			MemcachedHost: cfg.MemcachedHost,
			Logger:        logger,
		})
		closers = append(closers, cached.Close)
		repo = cached
	}

	return repo, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
