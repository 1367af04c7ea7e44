package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Constitosh/verifyDN/internal/app"
	"github.com/Constitosh/verifyDN/internal/config"
	"github.com/Constitosh/verifyDN/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("prod", "info")
		logger.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}

	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", map[string]any{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("verifydn started", map[string]any{
		"port":          cfg.AppPort,
		"session_store": cfg.SessionStore,
		"profile_store": cfg.ProfileStore,
	})

	<-ctx.Done() // wait for Ctrl+C

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("verifydn stopped cleanly", nil)
}
