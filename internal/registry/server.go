package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Server is the registry process: an in-memory instance store behind a small
// REST surface. Instances go unhealthy once their heartbeat is older than
// maxAge and are evicted after twice that.
type Server struct {
	logger *slog.Logger
	maxAge time.Duration

	mutex    sync.RWMutex
	services map[string]map[string]*ServiceInstance
}

func NewServer(logger *slog.Logger, maxAge time.Duration) *Server {
	return &Server{
		logger:   logger,
		maxAge:   maxAge,
		services: make(map[string]map[string]*ServiceInstance),
	}
}

// Register stores an instance under its logical service name, assigning an
// ID if the caller did not bring one. Re-registering an existing ID renews it.
func (s *Server) Register(inst ServiceInstance) ServiceInstance {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.LastHeartbeat = time.Now()
	inst.Healthy = true

	byID, ok := s.services[inst.ServiceName]
	if !ok {
		byID = make(map[string]*ServiceInstance)
		s.services[inst.ServiceName] = byID
	}
	byID[inst.ID] = &inst

	return inst
}

// Heartbeat renews an instance. Returns false for unknown instances.
func (s *Server) Heartbeat(service, id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	inst, ok := s.services[service][id]
	if !ok {
		return false
	}

	inst.LastHeartbeat = time.Now()
	inst.Healthy = true
	return true
}

// Deregister removes an instance. Returns false for unknown instances.
func (s *Server) Deregister(service, id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	byID, ok := s.services[service]
	if !ok {
		return false
	}

	if _, ok := byID[id]; !ok {
		return false
	}

	delete(byID, id)
	if len(byID) == 0 {
		delete(s.services, service)
	}
	return true
}

// Instances returns the current instances of a service, ordered by ID.
func (s *Server) Instances(service string) []ServiceInstance {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	byID := s.services[service]
	instances := make([]ServiceInstance, 0, len(byID))
	for _, inst := range byID {
		instances = append(instances, *inst)
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].ID < instances[j].ID
	})

	return instances
}

// StartSweeper launches the background loop that ages out instances whose
// heartbeats stopped arriving.
func (s *Server) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Registry sweeper stopped")
				return

			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Server) sweep() {
	now := time.Now()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for service, byID := range s.services {
		for id, inst := range byID {
			age := now.Sub(inst.LastHeartbeat)

			if age > 2*s.maxAge {
				delete(byID, id)
				s.logger.Warn("Evicted instance",
					slog.String("target", service),
					slog.String("instance", id))
				continue
			}

			if age > s.maxAge && inst.Healthy {
				inst.Healthy = false
				s.logger.Warn("Instance went unhealthy",
					slog.String("target", service),
					slog.String("instance", id),
					slog.Duration("heartbeat_age", age))
			}
		}

		if len(byID) == 0 {
			delete(s.services, service)
		}
	}
}

// Handler returns the REST surface of the registry.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /deregister", s.handleDeregister)
	mux.HandleFunc("GET /instances/{service}", s.handleInstances)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var inst ServiceInstance
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		http.Error(w, "invalid instance payload", http.StatusBadRequest)
		return
	}

	if inst.ServiceName == "" || inst.Host == "" || inst.Port <= 0 {
		http.Error(w, "service_name, host and port are required", http.StatusBadRequest)
		return
	}

	registered := s.Register(inst)

	s.logger.Info("Registered instance",
		slog.String("target", registered.ServiceName),
		slog.String("instance", registered.ID),
		slog.String("addr", registered.Addr()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registered)
}

type instanceRef struct {
	ServiceName string `json:"service_name"`
	ID          string `json:"id"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var ref instanceRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		http.Error(w, "invalid heartbeat payload", http.StatusBadRequest)
		return
	}

	if !s.Heartbeat(ref.ServiceName, ref.ID) {
		http.Error(w, "unknown instance", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeregister(w http.ResponseWriter, r *http.Request) {
	var ref instanceRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		http.Error(w, "invalid deregister payload", http.StatusBadRequest)
		return
	}

	if !s.Deregister(ref.ServiceName, ref.ID) {
		http.Error(w, "unknown instance", http.StatusNotFound)
		return
	}

	s.logger.Info("Deregistered instance",
		slog.String("target", ref.ServiceName),
		slog.String("instance", ref.ID))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	payload := struct {
		Instances []ServiceInstance `json:"instances"`
	}{Instances: s.Instances(service)}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
