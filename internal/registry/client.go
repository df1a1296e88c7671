package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// view is the locally cached instance set, replaced wholesale on refresh.
type view struct {
	fetchedAt time.Time
	instances map[string][]ServiceInstance
}

// Client registers the owning process with the registry, heartbeats the
// registration, and keeps a cached view of the instances of watched services.
type Client struct {
	logger            *slog.Logger
	baseURL           string
	httpClient        *http.Client
	self              ServiceInstance
	heartbeatInterval time.Duration
	refreshInterval   time.Duration
	maxAge            time.Duration

	mutex   sync.Mutex
	watched map[string]struct{}

	current    atomic.Pointer[view]
	registered atomic.Bool
}

func NewClient(
	logger *slog.Logger,
	baseURL string,
	self ServiceInstance,
	heartbeatInterval time.Duration,
	refreshInterval time.Duration,
	maxAge time.Duration,
) *Client {
	return &Client{
		logger:            logger,
		baseURL:           baseURL,
		httpClient:        &http.Client{Timeout: 5 * time.Second},
		self:              self,
		heartbeatInterval: heartbeatInterval,
		refreshInterval:   refreshInterval,
		maxAge:            maxAge,
		watched:           make(map[string]struct{}),
	}
}

// Watch adds logical service names to the set refreshed in the background.
func (c *Client) Watch(services ...string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, s := range services {
		c.watched[s] = struct{}{}
	}
}

// Start launches the registration/heartbeat loop and the view refresh loop.
// Registration failures are retried in the background; startup never blocks
// on the registry being reachable.
func (c *Client) Start(ctx context.Context) {
	go c.registrationLoop(ctx)
	go c.refreshLoop(ctx)
}

// ListInstances returns the most recently cached instances of a service.
// An empty or stale cache yields an empty set rather than blocking.
func (c *Client) ListInstances(service string) []ServiceInstance {
	v := c.current.Load()
	if v == nil {
		return nil
	}

	if time.Since(v.fetchedAt) > c.maxAge {
		return nil
	}

	return v.instances[service]
}

// Self returns the instance identity this client advertises.
func (c *Client) Self() ServiceInstance {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.self
}

// Deregister removes this instance from the registry. Called on graceful
// shutdown.
func (c *Client) Deregister(ctx context.Context) error {
	self := c.Self()

	body, err := json.Marshal(map[string]string{
		"service_name": self.ServiceName,
		"id":           self.ID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deregister", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return fmt.Errorf("deregister: unexpected status %d", res.StatusCode)
	}

	c.registered.Store(false)
	return nil
}

func (c *Client) registrationLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	c.tryRegister(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Registration loop stopped",
				slog.String("service", c.Self().ServiceName))
			return

		case <-ticker.C:
			if !c.registered.Load() {
				c.tryRegister(ctx)
				continue
			}

			if err := c.heartbeat(ctx); err != nil {
				c.logger.Warn("Heartbeat failed",
					slog.String("service", c.Self().ServiceName),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (c *Client) tryRegister(ctx context.Context) {
	if err := c.register(ctx); err != nil {
		c.logger.Warn("Registration failed, will retry",
			slog.String("registry", c.baseURL),
			slog.String("error", err.Error()))
		return
	}

	self := c.Self()
	c.registered.Store(true)
	c.logger.Info("Registered with registry",
		slog.String("service", self.ServiceName),
		slog.String("instance", self.ID),
		slog.String("addr", self.Addr()))
}

func (c *Client) register(ctx context.Context) error {
	body, err := json.Marshal(c.Self())
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, res.Body)
		return fmt.Errorf("register: unexpected status %d", res.StatusCode)
	}

	var registered ServiceInstance
	if err := json.NewDecoder(res.Body).Decode(&registered); err != nil {
		return err
	}

	c.mutex.Lock()
	c.self.ID = registered.ID
	c.mutex.Unlock()
	return nil
}

func (c *Client) heartbeat(ctx context.Context) error {
	self := c.Self()

	body, err := json.Marshal(map[string]string{
		"service_name": self.ServiceName,
		"id":           self.ID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/heartbeat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	// The registry evicted us while we were away; re-register next tick.
	if res.StatusCode == http.StatusNotFound {
		c.registered.Store(false)
		return fmt.Errorf("heartbeat: instance unknown to registry")
	}

	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat: unexpected status %d", res.StatusCode)
	}

	return nil
}

func (c *Client) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	c.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Instance refresh stopped")
			return

		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

// refresh pulls the instance sets of all watched services and swaps the
// whole cached view in one atomic store.
func (c *Client) refresh(ctx context.Context) {
	c.mutex.Lock()
	services := make([]string, 0, len(c.watched))
	for s := range c.watched {
		services = append(services, s)
	}
	c.mutex.Unlock()

	if len(services) == 0 {
		return
	}

	next := &view{
		fetchedAt: time.Now(),
		instances: make(map[string][]ServiceInstance, len(services)),
	}

	for _, service := range services {
		instances, err := c.fetchInstances(ctx, service)
		if err != nil {
			c.logger.Warn("Failed to refresh instances",
				slog.String("target", service),
				slog.String("error", err.Error()))
			// Keep the cache honest: a failed pull yields no entry, and the
			// whole view expires via maxAge rather than serving stale data.
			continue
		}

		next.instances[service] = instances
	}

	c.current.Store(next)
}

func (c *Client) fetchInstances(ctx context.Context, service string) ([]ServiceInstance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/instances/"+service, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("query instances: unexpected status %d", res.StatusCode)
	}

	var payload struct {
		Instances []ServiceInstance `json:"instances"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return payload.Instances, nil
}
