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
	"github.com/angeloszaimis/service-fabric/internal/circuitbreaker"
	"github.com/angeloszaimis/service-fabric/internal/client"
	"github.com/angeloszaimis/service-fabric/internal/fallback"
	"github.com/angeloszaimis/service-fabric/internal/httpserver"
	"github.com/angeloszaimis/service-fabric/internal/invoker"
	"github.com/angeloszaimis/service-fabric/internal/metrics"
	"github.com/angeloszaimis/service-fabric/internal/registry"
	"github.com/angeloszaimis/service-fabric/internal/selector"
	"github.com/angeloszaimis/service-fabric/pkg/logger"
)

const ordersService = "orders"

const opConfirmOrder = "confirm-order"

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
	registryClient.Watch(ordersService)
	registryClient.Start(ctx)

	fabricClient, collector, err := initializeFabric(cfg, log, registryClient)
	if err != nil {
		log.Error("Failed to initialize fabric client", slog.Any("err", err))
		os.Exit(1)
	}
	collector.Start(ctx)

	paymentsHandler := NewPaymentsHandler(log, fabricClient)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(paymentsHandler, collector, cfg.Selector.Type))
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
			log.Error("Error starting payments service", slog.Any("err", err))
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

func initializeFabric(cfg *config.Config, log *slog.Logger, instances client.InstanceSource) (*client.Client, *metrics.Collector, error) {
	openCooldown, err := time.ParseDuration(cfg.Breaker.OpenCooldown)
	if err != nil {
		return nil, nil, err
	}

	callTimeout, err := time.ParseDuration(cfg.Invoker.CallTimeout)
	if err != nil {
		return nil, nil, err
	}

	breakers := circuitbreaker.NewRegistry(cfg.Breaker.FailureThreshold, openCooldown)
	httpInvoker := invoker.NewHTTPInvoker(callTimeout)
	sel := createSelector(log, cfg.Selector.Type)
	collector := metrics.NewCollector(1000, log)

	fallbacks := fallback.NewPolicy()
	fallbacks.Register(opConfirmOrder, fallback.Result{
		Status:  "PENDING_RETRY",
		Message: "payment confirmation pending retry",
	})

	fabricClient := client.New(log, instances, sel, breakers, httpInvoker, fallbacks, collector)

	return fabricClient, collector, nil
}

func createSelector(logger *slog.Logger, selectorType string) selector.Selector {
	switch selectorType {
	case config.SelectorRoundRobin:
		return selector.NewRoundRobinSelector()
	case config.SelectorRandom:
		return selector.NewRandomSelector()
	default:
		logger.Warn("Unkown selector, defaulting to round-robin", slog.String("requested", selectorType))
		return selector.NewRoundRobinSelector()
	}
}
