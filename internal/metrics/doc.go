// Package metrics provides real-time metrics collection for the call fabric.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Call counts per remote service
//   - Success / failure / timeout outcomes
//   - Fallback counts by degradation reason
//   - Call latencies with percentile calculations (P50, P95, P99)
//   - Observed circuit breaker states
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the call path. Events are sent via buffered channels with
// non-blocking semantics to prevent performance degradation under load.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	// Emit events while serving calls
//	collector.EventChannel() <- metrics.MetricEvent{
//		Type:      metrics.EventCallCompleted,
//		Service:   "orders",
//		Duration:  150 * time.Millisecond,
//		Succeeded: true,
//	}
//
//	// Get a metrics snapshot
//	snapshot := collector.Snapshot("round-robin")
//
// The package provides thread-safe metrics storage using sync.RWMutex and
// supports graceful shutdown with event draining to prevent data loss.
package metrics
