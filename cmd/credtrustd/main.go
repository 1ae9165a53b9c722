package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credtrust/internal/app"
	"credtrust/internal/platform/config"
	"credtrust/internal/platform/logger"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Health(ctx); err != nil {
		log.Error("backend health check failed", "error", err)
		os.Exit(1)
	}

	log.Info("credtrust started",
		"postgres", cfg.PostgresURL != "",
		"redis", cfg.RedisAddr != "",
		"kafka", cfg.KafkaBrokers != "")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
}
