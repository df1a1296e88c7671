package circuitbreaker

import (
	"sync"
	"time"
)

// Registry holds one breaker per logical remote service name.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	cooldown  time.Duration
}

func NewRegistry(threshold int, cooldown time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		cooldown:  cooldown,
	}
}

func (r *Registry) GetBreaker(service string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[service]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[service]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.cooldown)
	r.breakers[service] = cb
	return cb
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for service, cb := range r.breakers {
		stats[service] = cb.State()
	}
	return stats
}
