package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidiooh/internal/api/v1/router"
	"vidiooh/internal/config"
	"vidiooh/internal/hardware"
	"vidiooh/internal/logger"

	"github.com/joho/godotenv"
)

// @title Vidiooh API
// @version 1.0
// @description Video conversion API for DOOH LED screens
// @host localhost:8080
// @BasePath /v1
// @Schemes http https

func main() {
	logger := logger.New()

	// 1. Load configuration
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

	// 2. Build router and long-lived resources
	r, deps, err := router.New(cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}
	defer deps.DB.Close()
	defer deps.Pool.Close()

	// 3. Startup checks: codec runtime is required, core count is advisory
	if err := deps.Transcode.Verify(); err != nil {
		logger.Fatal().Msgf("Codec runtime check failed: %v", err)
	}
	if hw := hardware.Probe(); hw.LowSpec {
		logger.Warn().Int("cores", hw.CoreCount).Msg("Low-spec host: encodes may be slow")
	}

	// 4. Background loops: account listener and artifact TTL sweeper
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go deps.Watcher.Run(bgCtx)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-ticker.C:
				if n := deps.Artifacts.Sweep(); n > 0 {
					logger.Info().Int("removed", n).Msg("Expired local artifacts swept")
				}
			}
		}
	}()

	// 5. Create HTTP server. WriteTimeout stays unset: conversion
	// responses wait on the encode and the entitlement event stream is
	// long-lived.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// 6. Start server in a goroutine
	go func() {
		logger.Info().Msgf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s\n", err)
		}
	}()

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Msgf("Server forced to shutdown: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}
