package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/service-fabric/internal/circuitbreaker"
	"github.com/angeloszaimis/service-fabric/internal/fallback"
	"github.com/angeloszaimis/service-fabric/internal/invoker"
	"github.com/angeloszaimis/service-fabric/internal/metrics"
	"github.com/angeloszaimis/service-fabric/internal/registry"
	"github.com/angeloszaimis/service-fabric/internal/selector"
)

// Reason says why a call was served from the fallback table.
type Reason string

const (
	ReasonBreakerOpen Reason = "breaker_open"
	ReasonUnreachable Reason = "unreachable"
	ReasonTimeout     Reason = "timeout"
	ReasonTransport   Reason = "transport_failure"
)

// InstanceSource is the registry view the client resolves logical service
// names against.
type InstanceSource interface {
	ListInstances(service string) []registry.ServiceInstance
}

// Result is what a fabric call always terminates in: either the remote's
// response or a configured fallback. Never an unhandled fault.
type Result struct {
	FromFallback bool
	Reason       Reason
	StatusCode   int
	Body         []byte
	Fallback     fallback.Result
	Latency      time.Duration
}

// Client is the resilient call path: circuit breaker gate, registry-backed
// instance selection, timeout-bounded invocation, fallback on every
// denial or failure.
type Client struct {
	logger           *slog.Logger
	instances        InstanceSource
	selector         selector.Selector
	breakers         *circuitbreaker.Registry
	invoker          invoker.Invoker
	fallbacks        *fallback.Policy
	metricsCollector *metrics.Collector
}

func New(
	logger *slog.Logger,
	instances InstanceSource,
	sel selector.Selector,
	breakers *circuitbreaker.Registry,
	inv invoker.Invoker,
	fallbacks *fallback.Policy,
	collector *metrics.Collector,
) *Client {
	return &Client{
		logger:           logger,
		instances:        instances,
		selector:         sel,
		breakers:         breakers,
		invoker:          inv,
		fallbacks:        fallbacks,
		metricsCollector: collector,
	}
}

// Call resolves the logical service name to a live instance and performs one
// synchronous request against it. The breaker is the sole authority on
// whether the network is attempted at all.
func (c *Client) Call(ctx context.Context, service string, operation string, req invoker.Request) Result {
	c.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventCallStarted,
		Timestamp: time.Now(),
		Service:   service,
	})

	breaker := c.breakers.GetBreaker(service)

	if !breaker.Allow() {
		c.logger.Warn("Call short-circuited",
			slog.String("target", service),
			slog.String("operation", operation))
		return c.degrade(service, operation, ReasonBreakerOpen, 0)
	}

	instances := c.instances.ListInstances(service)

	instance, ok := c.selector.Select(instances)
	if !ok {
		// Admitted but nothing to call: give the probe slot back without
		// counting a failure, no network attempt happened.
		breaker.CancelProbe()
		c.logger.Warn("No healthy instance available",
			slog.String("target", service),
			slog.String("operation", operation))
		return c.degrade(service, operation, ReasonUnreachable, 0)
	}

	c.logger.Debug("Invoking instance",
		slog.String("target", service),
		slog.String("operation", operation),
		slog.String("instance", instance.ID),
		slog.String("addr", instance.Addr()))

	outcome := c.invoker.Invoke(ctx, instance, req)

	c.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventCallCompleted,
		Timestamp: time.Now(),
		Service:   service,
		Duration:  outcome.Latency,
		Succeeded: outcome.Succeeded,
		TimedOut:  outcome.TimedOut,
	})

	if !outcome.Succeeded {
		breaker.RecordFailure()
		c.observeBreaker(service, breaker)

		reason := ReasonTransport
		if outcome.TimedOut {
			reason = ReasonTimeout
		}

		c.logger.Warn("Call failed",
			slog.String("target", service),
			slog.String("operation", operation),
			slog.String("instance", instance.ID),
			slog.String("reason", string(reason)),
			slog.Duration("latency", outcome.Latency))

		return c.degrade(service, operation, reason, outcome.Latency)
	}

	breaker.RecordSuccess()
	c.observeBreaker(service, breaker)

	return Result{
		StatusCode: outcome.StatusCode,
		Body:       outcome.Body,
		Latency:    outcome.Latency,
	}
}

func (c *Client) degrade(service string, operation string, reason Reason, latency time.Duration) Result {
	c.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventFallbackServed,
		Timestamp: time.Now(),
		Service:   service,
		Reason:    string(reason),
	})

	return Result{
		FromFallback: true,
		Reason:       reason,
		Fallback:     c.fallbacks.For(operation),
		Latency:      latency,
	}
}

func (c *Client) observeBreaker(service string, breaker *circuitbreaker.CircuitBreaker) {
	c.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventBreakerState,
		Timestamp: time.Now(),
		Service:   service,
		State:     breaker.State().String(),
	})
}

func (c *Client) emitEvent(event metrics.MetricEvent) {
	if c.metricsCollector == nil {
		return
	}

	select {
	case c.metricsCollector.EventChannel() <- event:
	default:
	}
}
