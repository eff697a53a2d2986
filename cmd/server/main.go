package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"compset/server/config"
	"compset/server/internal/analysis"
	"compset/server/internal/api"
	"compset/server/internal/database"
	"compset/server/internal/geocoding"
	"compset/server/internal/metrics"
	"compset/server/internal/processor"
	"compset/server/internal/queue"
	"compset/server/internal/relationship"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.Infof("Using database at: %s", cfg.Database.Path)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	var store relationship.Store
	switch cfg.RelationshipStore {
	case "memory":
		store = relationship.NewMemoryStore(logger)
	default:
		store = database.NewRelationshipRepository(db.GetDB(), logger)
	}
	logger.WithField("backend", cfg.RelationshipStore).Info("Relationship store ready")

	gormDB, err := database.OpenGorm(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open batch database connection")
	}

	m := metrics.New()

	// Unit imports flow through the queue into the batch processor
	unitQueue := queue.NewUnitQueue(cfg.BatchProcessing.MaxBatchSize, logger).
		WithUnitLimit(cfg.BatchProcessing.MaxQueuedUnits).
		WithRecorder(m)
	batchProcessor := processor.NewBatchProcessor(gormDB, unitQueue, cfg, logger).WithRecorder(m)
	unitQueue.Start()
	batchProcessor.Start()

	analyzer := analysis.NewAnalyzer(db, store, cfg.Analysis.MarketTolerancePercent, logger)

	var geocoder api.Geocoder
	if cfg.Geocoding.Enabled {
		geocoder = geocoding.NewGeocoder(logger, geocoding.Options{
			BaseURL:     cfg.Geocoding.URL,
			UserAgent:   cfg.Geocoding.UserAgent,
			CacheDir:    cfg.Geocoding.CacheDir,
			MinInterval: cfg.Geocoding.MinInterval,
		})
		logger.WithField("url", cfg.Geocoding.URL).Info("Geocoding enabled")
	}

	handler := api.NewHandler(api.Options{
		Properties:    db,
		Relationships: store,
		Analyzer:      analyzer,
		Units:         unitQueue,
		Geocoder:      geocoder,
		Metrics:       m,
		Logger:        logger,
		MaxBatchSize:  cfg.BatchProcessing.MaxBatchSize,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(m.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	unitQueue.Close()
	batchProcessor.Stop()
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Server stopped")
}
