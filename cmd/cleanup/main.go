// Command cleanup runs the retention sweep, either once for ad-hoc use or
// on a cron schedule for deployments without a Pub/Sub push trigger.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidiooh/internal/config"
	"vidiooh/internal/logger"
	"vidiooh/internal/repository"
	"vidiooh/internal/service"
	"vidiooh/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}
	if err := cfg.ResolveSecrets(context.Background()); err != nil {
		logger.Fatal().Msgf("Error resolving secrets: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to create pgx pool: %v", err)
	}
	defer pool.Close()

	store, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to initialize object storage: %v", err)
	}

	conversionRepo := repository.NewConversionRepo(pool)
	cleanupSvc := service.NewCleanupService(conversionRepo, store, time.Duration(cfg.RetentionHours)*time.Hour, logger)

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		removed, err := cleanupSvc.Sweep(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Retention sweep failed")
			return
		}
		logger.Info().Int("removed", removed).Msg("Retention sweep finished")
	}

	if *once {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.CleanupScheduleSpec, sweep); err != nil {
		logger.Fatal().Msgf("Invalid cleanup schedule %q: %v", cfg.CleanupScheduleSpec, err)
	}
	c.Start()
	logger.Info().Str("schedule", cfg.CleanupScheduleSpec).Msg("Cleanup daemon started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")
	<-c.Stop().Done()
}
