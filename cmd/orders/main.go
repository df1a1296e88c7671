package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
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

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, cfg.Service.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registryClient, err := initializeRegistryClient(cfg, log)
	if err != nil {
		log.Error("Failed to initialize registry client", slog.Any("err", err))
		os.Exit(1)
	}
	registryClient.Start(ctx)

	ordersHandler := NewOrdersHandler(log)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(ordersHandler))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")

		deregCtx, deregCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := registryClient.Deregister(deregCtx); err != nil {
			log.Warn("Failed to deregister", slog.Any("err", err))
		}
		deregCancel()

		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting orders service", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func initializeRegistryClient(cfg *config.Config, log *slog.Logger) (*registry.Client, error) {
	host, portStr, err := net.SplitHostPort(cfg.Service.Advertise)
	if err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	heartbeatInterval, err := time.ParseDuration(cfg.Registry.HeartbeatInterval)
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(cfg.Registry.RefreshInterval)
	if err != nil {
		return nil, err
	}

	maxAge, err := time.ParseDuration(cfg.Registry.HeartbeatMaxAge)
	if err != nil {
		return nil, err
	}

	self := registry.ServiceInstance{
		ServiceName: cfg.Service.Name,
		Host:        host,
		Port:        port,
	}

	return registry.NewClient(log, cfg.Registry.Address, self, heartbeatInterval, refreshInterval, maxAge), nil
}
