package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dualbase/internal/config"
	"dualbase/internal/dbtarget"
	"dualbase/internal/entity"
	httpserver "dualbase/internal/http"
	"dualbase/internal/logging"
	"dualbase/internal/migration"
	"dualbase/internal/registry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	reg := registry.New(cfg, logger)
	if err := reg.Initialize(ctx); err != nil {
		logger.Error("connection initialization failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Migrations.Timeout)
		defer cancel()
		reg.Shutdown(shutdownCtx)
	}()

	runner := migration.NewRunner(reg, cfg, logger)
	if cfg.Migrations.AutoRun {
		for _, target := range dbtarget.All() {
			applied, err := runner.Run(ctx, target)
			if err != nil {
				logger.Error("startup migrations failed", "target", target, "error", err)
				os.Exit(1)
			}
			if applied > 0 {
				logger.Info("startup migrations applied", "target", target, "count", applied)
			}
		}
	}

	facade := entity.New(reg, logger)
	server := httpserver.New(cfg, logger, reg, facade, runner)

	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
