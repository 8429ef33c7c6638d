package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"salesops-data/internal/config"
	"salesops-data/internal/database"
	httpapi "salesops-data/internal/http"
	"salesops-data/internal/logger"
	"salesops-data/internal/repository"
	"salesops-data/internal/service"
	"salesops-data/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "salesops-data",
		Env:     cfg.Log.Env,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	loc := cfg.Location()

	var (
		db *sql.DB
		st repository.Store
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for salesops-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if db != nil {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(migrateCtx, db, log)
		cancel()
		if err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		st = repository.NewPostgresStore(db)
	} else {
		st = repository.NewMemoryStore()
	}

	var (
		kv          store.KV
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("Redis unreachable, using in-process KV (import lock is per-replica)", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient)
		}
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}

	// services
	promotion := service.NewPromotionService(st, loc, log)
	conversion := service.NewConversionService(st, loc, log)
	stats := service.NewStatsService(st, cfg.Stats.Role, log)
	dashboard := service.NewDashboardService(st, cfg.Stats.Role, cfg.Stats.TargetPerPerson, loc, log)
	records := service.NewSalesTrackingService(st, log)
	retargeting := service.NewRetargetingService(st, loc, log)
	customers := service.NewCustomerService(st, loc, log)

	cpiClient := service.NewCPIClient(cfg.CPI.BaseURL, cfg.CPI.Token, cfg.CPI.Timeout, log)
	importer := service.NewCPIImportService(st, cpiClient, cfg.CPI.PageSize, loc, log)
	window := time.Duration(cfg.CPI.WindowHours) * time.Hour
	scheduler := service.NewImportScheduler(importer, kv, cfg.CPI.Schedule, window, loc, log)
	if cfg.CPI.SchedulerEnabled {
		if cfg.CPI.Token == "" {
			log.Warn("CPI scheduler enabled without CPI_API_TOKEN, not starting")
		} else if err := scheduler.Start(); err != nil {
			log.Fatal("Failed to start CPI scheduler", zap.Error(err))
		}
	}

	// http
	m := httpapi.NewDTOMapper(loc)
	router := httpapi.NewRouter(httpapi.NewTokenVerifier(cfg.Auth.JWTSecret), log)
	router.RegisterHealthRoutes()
	router.RegisterSalesTrackingRoutes(httpapi.NewSalesTrackingHandler(records, promotion, stats, m, log))
	router.RegisterRetargetingRoutes(httpapi.NewRetargetingHandler(retargeting, conversion, stats, m, log))
	router.RegisterCustomerRoutes(httpapi.NewCustomersHandler(customers, m, log))
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(dashboard, log))
	router.RegisterIntegrationRoutes(httpapi.NewIntegrationsHandler(scheduler, 2*time.Hour, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	scheduler.Stop(shutdownCtx)
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
	log.Info("salesops-data stopped")
}
