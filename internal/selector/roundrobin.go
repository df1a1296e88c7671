package selector

import (
	"sync/atomic"

	"github.com/angeloszaimis/service-fabric/internal/registry"
)

type roundRobinSelector struct {
	current uint64
}

func (rb *roundRobinSelector) Select(instances []registry.ServiceInstance) (registry.ServiceInstance, bool) {
	healthy := healthyOrdered(instances)
	if len(healthy) == 0 {
		return registry.ServiceInstance{}, false
	}

	n := atomic.AddUint64(&rb.current, 1)

	index := (n - 1) % uint64(len(healthy))

	return healthy[index], true
}

func NewRoundRobinSelector() Selector {
	return &roundRobinSelector{
		current: 0,
	}
}
