package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heatmanager-data/internal/config"
	"heatmanager-data/internal/database"
	httpapi "heatmanager-data/internal/http"
	"heatmanager-data/internal/logger"
	"heatmanager-data/internal/repository"
	"heatmanager-data/internal/service"
	"heatmanager-data/internal/store"
	"heatmanager-data/internal/thingsboard"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "heatmanager-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	deviceCache := store.NewDeviceCache(store.NewRedisKV(redisClient), log)

	structureLog := service.NewStructureLog(cfg.StructureLog, log)
	defer structureLog.Close()

	tbClient := thingsboard.NewClient(cfg.ThingsBoard.URL, log)
	settingsRepo := repository.NewPostgresCustomerSettingsRepository(db)
	telemetryRepo := repository.NewPostgresLatestTelemetryRepository(db)

	syncService := service.NewSyncService(tbClient, settingsRepo, deviceCache, structureLog, log)
	dashboardService := service.NewDashboardService(settingsRepo, telemetryRepo, log)

	router := httpapi.NewRouter(log)
	router.RegisterStructureRoutes(httpapi.NewStructureHandler(syncService, settingsRepo, cfg.ThingsBoard.Token, log))
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(dashboardService, log))
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(db, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}
