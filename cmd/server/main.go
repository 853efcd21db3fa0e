package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ngo-portal-backend/internal/audit"
	"ngo-portal-backend/internal/config"
	"ngo-portal-backend/internal/database"
	"ngo-portal-backend/internal/logging"
	"ngo-portal-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "info", "json").Error("loading config", "error", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if err := database.Init(cfg.DatabaseDSN, log); err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	rec := audit.NewRecorder(audit.Mode(cfg.AuditMode), log)
	app := server.New(cfg, log, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("listening", "port", cfg.HTTPPort, "audit_mode", rec.Mode())
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
