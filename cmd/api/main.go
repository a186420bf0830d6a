package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/wiki-auth/internal/application/auth"
	"github.com/mohammadpnp/wiki-auth/internal/bootstrap"
	"github.com/mohammadpnp/wiki-auth/internal/config"
	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
	"github.com/mohammadpnp/wiki-auth/internal/infrastructure/repository"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(level)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	port := getEnv("PORT", "8080")

	cfg := config.Load()
	if cfg.RemoteAPIURL == "" {
		logger.Warn("REMOTE_API_URL is not set, all logins will fail with remote_misconfigured")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect database")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to create pgx pool")
	}
	defer pool.Close()

	server := bootstrap.NewHTTPServer(cfg, db, pool, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	accountRepo := repository.NewAccountRepository(db)
	actorRepo := repository.NewActorRepository(db)
	jobRepo := repository.NewJobRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(pool)
	reattributionRepo := repository.NewReattributionRepository(pool)

	handlers := map[domain.JobKind]app.JobHandler{
		domain.JobPopulateWatchlist: app.NewWatchlistJobHandler(accountRepo, watchlistRepo, logger),
		domain.JobReattributeEdits:  app.NewReattributionJobHandler(accountRepo, actorRepo, reattributionRepo, logger),
	}

	worker := app.NewWorker(jobRepo, handlers, app.WorkerConfig{
		Workers:           parseIntEnv("JOB_WORKERS", 4),
		PollInterval:      time.Duration(parseIntEnv("JOB_POLL_MILLIS", 500)) * time.Millisecond,
		LeaseDuration:     time.Duration(parseIntEnv("JOB_LEASE_SECONDS", 60)) * time.Second,
		HeartbeatInterval: time.Duration(parseIntEnv("JOB_HEARTBEAT_SECONDS", 30)) * time.Second,
	}, logger)
	worker.Start(workerCtx)

	go func() {
		if err := server.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("graceful shutdown failed")
	}
}

func parseIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
