package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/service-fabric/config"
	"github.com/angeloszaimis/service-fabric/internal/httpserver"
	"github.com/angeloszaimis/service-fabric/internal/registry"
	"github.com/angeloszaimis/service-fabric/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, "registry")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	maxAge, err := time.ParseDuration(cfg.Registry.HeartbeatMaxAge)
	if err != nil {
		log.Error("Invalid heartbeat max age", slog.Any("err", err))
		os.Exit(1)
	}

	reg := registry.NewServer(log, maxAge)
	reg.StartSweeper(ctx, maxAge/3)

	srv, err := httpserver.New(cfg.Server.Address, reg.Handler())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Registry listening", slog.String("address", cfg.Server.Address))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting registry", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
