package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-fabric/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should create a new metrics instance", func() {
			Expect(m).NotTo(BeNil())
		})
	})

	Describe("IncrementCalls", func() {
		It("should increment call count for a service", func() {
			m.IncrementCalls("orders")
			m.IncrementCalls("orders")

			snap := m.Snapshot("round-robin")
			Expect(snap.TotalCalls).To(Equal(int64(2)))
			Expect(snap.Services["orders"].Calls).To(Equal(int64(2)))
		})

		It("should track multiple services separately", func() {
			m.IncrementCalls("orders")
			m.IncrementCalls("inventory")
			m.IncrementCalls("orders")

			snap := m.Snapshot("round-robin")
			Expect(snap.TotalCalls).To(Equal(int64(3)))
			Expect(snap.Services["orders"].Calls).To(Equal(int64(2)))
			Expect(snap.Services["inventory"].Calls).To(Equal(int64(1)))
		})
	})

	Describe("RecordOutcome", func() {
		It("should record successes with their latency", func() {
			m.RecordOutcome("orders", 100*time.Millisecond, true, false)
			m.RecordOutcome("orders", 200*time.Millisecond, true, false)

			snap := m.Snapshot("round-robin")
			service := snap.Services["orders"]

			Expect(service.Successes).To(Equal(int64(2)))
			Expect(service.Failures).To(Equal(int64(0)))
			Expect(service.AvgLatency).To(Equal(150 * time.Millisecond))
		})

		It("should count failures and timeouts separately", func() {
			m.RecordOutcome("orders", 10*time.Millisecond, false, false)
			m.RecordOutcome("orders", 2*time.Second, false, true)

			snap := m.Snapshot("round-robin")
			service := snap.Services["orders"]

			Expect(service.Failures).To(Equal(int64(2)))
			Expect(service.Timeouts).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordOutcome("orders", time.Duration(i)*time.Millisecond, true, false)
			}

			snap := m.Snapshot("round-robin")
			service := snap.Services["orders"]

			Expect(service.P50Latency).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(service.P95Latency).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(service.P99Latency).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored latencies to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordOutcome("orders", time.Duration(i)*time.Millisecond, true, false)
			}

			snap := m.Snapshot("round-robin")
			Expect(snap.Services["orders"].AvgLatency).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("RecordFallback", func() {
		It("should count fallbacks by reason", func() {
			m.RecordFallback("orders", "breaker_open")
			m.RecordFallback("orders", "breaker_open")
			m.RecordFallback("orders", "timeout")

			snap := m.Snapshot("round-robin")
			service := snap.Services["orders"]

			Expect(service.Fallbacks["breaker_open"]).To(Equal(int64(2)))
			Expect(service.Fallbacks["timeout"]).To(Equal(int64(1)))
		})
	})

	Describe("UpdateBreakerState", func() {
		It("should track the current breaker state", func() {
			m.UpdateBreakerState("orders", "OPEN")

			snap := m.Snapshot("round-robin")
			Expect(snap.Services["orders"].BreakerState).To(Equal("OPEN"))
		})

		It("should track state changes", func() {
			m.UpdateBreakerState("orders", "OPEN")
			snap1 := m.Snapshot("round-robin")
			Expect(snap1.Services["orders"].BreakerState).To(Equal("OPEN"))

			m.UpdateBreakerState("orders", "CLOSED")
			snap2 := m.Snapshot("round-robin")
			Expect(snap2.Services["orders"].BreakerState).To(Equal("CLOSED"))
		})
	})

	Describe("Snapshot", func() {
		It("should return a snapshot with the selector name", func() {
			m.IncrementCalls("orders")

			snap := m.Snapshot("random")
			Expect(snap.Selector).To(Equal("random"))
		})

		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)

			snap := m.Snapshot("round-robin")
			Expect(snap.Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot("round-robin")

			Expect(snap.TotalCalls).To(Equal(int64(0)))
			Expect(snap.Services).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.IncrementCalls("orders")

			snap1 := m.Snapshot("round-robin")
			m.IncrementCalls("orders")
			snap2 := m.Snapshot("round-robin")

			Expect(snap1.TotalCalls).To(Equal(int64(1)))
			Expect(snap2.TotalCalls).To(Equal(int64(2)))
		})

		It("should not share fallback counts with later recordings", func() {
			m.RecordFallback("orders", "timeout")

			snap := m.Snapshot("round-robin")
			m.RecordFallback("orders", "timeout")
			m.RecordFallback("orders", "breaker_open")

			Expect(snap.Services["orders"].Fallbacks["timeout"]).To(Equal(int64(1)))
			Expect(snap.Services["orders"].Fallbacks).NotTo(HaveKey("breaker_open"))
		})
	})
})
