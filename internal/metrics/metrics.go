package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex         sync.RWMutex
	calls         map[string]int64
	successes     map[string]int64
	failures      map[string]int64
	timeouts      map[string]int64
	fallbacks     map[string]map[string]int64
	latencies     map[string][]time.Duration
	breakerStates map[string]string
	startTime     time.Time
}

type Snapshot struct {
	TotalCalls int64                     `json:"total_calls"`
	Uptime     time.Duration             `json:"uptime"`
	Services   map[string]ServiceMetrics `json:"services"`
	Selector   string                    `json:"selector"`
}

type ServiceMetrics struct {
	Calls        int64            `json:"calls"`
	Successes    int64            `json:"successes"`
	Failures     int64            `json:"failures"`
	Timeouts     int64            `json:"timeouts"`
	Fallbacks    map[string]int64 `json:"fallbacks"`
	BreakerState string           `json:"breaker_state"`
	AvgLatency   time.Duration    `json:"avg_latency"`
	P50Latency   time.Duration    `json:"p50_latency"`
	P95Latency   time.Duration    `json:"p95_latency"`
	P99Latency   time.Duration    `json:"p99_latency"`
}

func (m *Metrics) IncrementCalls(service string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.calls[service]++
}

func (m *Metrics) RecordOutcome(service string, duration time.Duration, succeeded bool, timedOut bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if succeeded {
		m.successes[service]++
	} else {
		m.failures[service]++
	}
	if timedOut {
		m.timeouts[service]++
	}

	m.latencies[service] = append(m.latencies[service], duration)

	if len(m.latencies[service]) > 1000 {
		m.latencies[service] = m.latencies[service][1:]
	}
}

func (m *Metrics) RecordFallback(service string, reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fallbacks[service] == nil {
		m.fallbacks[service] = make(map[string]int64)
	}
	m.fallbacks[service][reason]++
}

func (m *Metrics) UpdateBreakerState(service string, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerStates[service] = state
}

func (m *Metrics) Snapshot(selector string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Services: make(map[string]ServiceMetrics),
		Selector: selector,
	}

	// Collect all service names seen by any counter
	allServices := make(map[string]bool)
	for service := range m.calls {
		allServices[service] = true
	}
	for service := range m.fallbacks {
		allServices[service] = true
	}
	for service := range m.latencies {
		allServices[service] = true
	}
	for service := range m.breakerStates {
		allServices[service] = true
	}

	for service := range allServices {
		snap.TotalCalls += m.calls[service]

		// Copy the fallback counts: the snapshot is JSON-encoded outside
		// the lock while RecordFallback keeps mutating the live map.
		var fallbacks map[string]int64
		if len(m.fallbacks[service]) > 0 {
			fallbacks = make(map[string]int64, len(m.fallbacks[service]))
			for reason, count := range m.fallbacks[service] {
				fallbacks[reason] = count
			}
		}

		sm := ServiceMetrics{
			Calls:        m.calls[service],
			Successes:    m.successes[service],
			Failures:     m.failures[service],
			Timeouts:     m.timeouts[service],
			Fallbacks:    fallbacks,
			BreakerState: m.breakerStates[service],
		}

		durations := m.latencies[service]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			sm.AvgLatency = average(sorted)
			sm.P50Latency = percentile(sorted, 0.50)
			sm.P95Latency = percentile(sorted, 0.95)
			sm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Services[service] = sm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		calls:         make(map[string]int64),
		successes:     make(map[string]int64),
		failures:      make(map[string]int64),
		timeouts:      make(map[string]int64),
		fallbacks:     make(map[string]map[string]int64),
		latencies:     make(map[string][]time.Duration),
		breakerStates: make(map[string]string),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
