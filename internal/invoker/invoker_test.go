package invoker_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-fabric/internal/invoker"
	"github.com/angeloszaimis/service-fabric/internal/registry"
)

// instanceFor maps an httptest server onto a registry instance.
func instanceFor(server *httptest.Server) registry.ServiceInstance {
	u, err := url.Parse(server.URL)
	Expect(err).NotTo(HaveOccurred())

	host, portStr, err := net.SplitHostPort(u.Host)
	Expect(err).NotTo(HaveOccurred())

	port, err := strconv.Atoi(portStr)
	Expect(err).NotTo(HaveOccurred())

	return registry.ServiceInstance{
		ID:          "test-instance",
		ServiceName: "orders",
		Host:        host,
		Port:        port,
		Healthy:     true,
	}
}

var _ = Describe("HTTPInvoker", func() {
	var (
		iv  *invoker.HTTPInvoker
		ctx context.Context
	)

	BeforeEach(func() {
		iv = invoker.NewHTTPInvoker(200 * time.Millisecond)
		ctx = context.Background()
	})

	Context("successful responses", func() {
		It("should classify a 200 response as success and return the body", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"status": "CONFIRMED"})
			}))
			defer server.Close()

			outcome := iv.Invoke(ctx, instanceFor(server), invoker.Request{
				Method: http.MethodGet,
				Path:   "/orders/confirm",
			})

			Expect(outcome.Succeeded).To(BeTrue())
			Expect(outcome.TimedOut).To(BeFalse())
			Expect(outcome.StatusCode).To(Equal(http.StatusOK))
			Expect(string(outcome.Body)).To(ContainSubstring("CONFIRMED"))
			Expect(outcome.Latency).To(BeNumerically(">", 0))
		})

		It("should treat any 2xx as success", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			}))
			defer server.Close()

			outcome := iv.Invoke(ctx, instanceFor(server), invoker.Request{Method: http.MethodGet, Path: "/"})

			Expect(outcome.Succeeded).To(BeTrue())
			Expect(outcome.StatusCode).To(Equal(http.StatusAccepted))
		})

		It("should pass business-level errors inside a 2xx through as success", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"status": "REJECTED", "reason": "insufficient funds"})
			}))
			defer server.Close()

			outcome := iv.Invoke(ctx, instanceFor(server), invoker.Request{Method: http.MethodPost, Path: "/", Body: []byte(`{}`)})

			Expect(outcome.Succeeded).To(BeTrue())
			Expect(string(outcome.Body)).To(ContainSubstring("REJECTED"))
		})

		It("should send the request body and content type", func() {
			var receivedBody []byte
			var receivedType string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				receivedType = r.Header.Get("Content-Type")
				receivedBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			iv.Invoke(ctx, instanceFor(server), invoker.Request{
				Method: http.MethodPost,
				Path:   "/orders/confirm",
				Body:   []byte(`{"order_id":"o-1"}`),
			})

			Expect(receivedType).To(Equal("application/json"))
			Expect(string(receivedBody)).To(Equal(`{"order_id":"o-1"}`))
		})
	})

	Context("failure classification", func() {
		It("should classify non-2xx statuses as failure", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			outcome := iv.Invoke(ctx, instanceFor(server), invoker.Request{Method: http.MethodGet, Path: "/"})

			Expect(outcome.Succeeded).To(BeFalse())
			Expect(outcome.TimedOut).To(BeFalse())
			Expect(outcome.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("should classify connection refused as transport failure, not timeout", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			instance := instanceFor(server)
			server.Close()

			outcome := iv.Invoke(ctx, instance, invoker.Request{Method: http.MethodGet, Path: "/"})

			Expect(outcome.Succeeded).To(BeFalse())
			Expect(outcome.TimedOut).To(BeFalse())
			Expect(outcome.Err).To(HaveOccurred())
		})
	})

	Context("timeouts", func() {
		It("should never block longer than the call timeout", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(2 * time.Second)
			}))
			defer server.Close()

			start := time.Now()
			outcome := iv.Invoke(ctx, instanceFor(server), invoker.Request{Method: http.MethodGet, Path: "/"})
			elapsed := time.Since(start)

			Expect(outcome.Succeeded).To(BeFalse())
			Expect(outcome.TimedOut).To(BeTrue())
			Expect(elapsed).To(BeNumerically("<", 1*time.Second))
		})

		It("should discard a response arriving after the deadline", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(400 * time.Millisecond)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("too late"))
			}))
			defer server.Close()

			outcome := iv.Invoke(ctx, instanceFor(server), invoker.Request{Method: http.MethodGet, Path: "/"})

			Expect(outcome.Succeeded).To(BeFalse())
			Expect(outcome.TimedOut).To(BeTrue())
			Expect(outcome.Body).To(BeEmpty())
		})
	})

	Context("caller cancellation", func() {
		It("should stop waiting when the caller aborts, without counting a timeout", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(2 * time.Second)
			}))
			defer server.Close()

			callerCtx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(50 * time.Millisecond)
				cancel()
			}()

			start := time.Now()
			outcome := iv.Invoke(callerCtx, instanceFor(server), invoker.Request{Method: http.MethodGet, Path: "/"})
			elapsed := time.Since(start)

			Expect(outcome.Succeeded).To(BeFalse())
			Expect(outcome.TimedOut).To(BeFalse())
			Expect(outcome.Err).To(HaveOccurred())
			Expect(elapsed).To(BeNumerically("<", 1*time.Second))
		})
	})
})
