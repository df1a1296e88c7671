package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventCallStarted    EventType = "call_started"
	EventCallCompleted  EventType = "call_completed"
	EventFallbackServed EventType = "fallback_served"
	EventBreakerState   EventType = "breaker_state"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Service   string
	Duration  time.Duration
	Succeeded bool
	TimedOut  bool
	Reason    string
	State     string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) Snapshot(selector string) Snapshot {
	return c.metrics.Snapshot(selector)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventCallStarted:
		c.metrics.IncrementCalls(event.Service)

	case EventCallCompleted:
		c.metrics.RecordOutcome(event.Service, event.Duration, event.Succeeded, event.TimedOut)

	case EventFallbackServed:
		c.metrics.RecordFallback(event.Service, event.Reason)

	case EventBreakerState:
		c.metrics.UpdateBreakerState(event.Service, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}
