package selector

import (
	"math/rand/v2"

	"github.com/angeloszaimis/service-fabric/internal/registry"
)

type randomSelector struct{}

func (r *randomSelector) Select(instances []registry.ServiceInstance) (registry.ServiceInstance, bool) {
	healthy := healthyOrdered(instances)
	if len(healthy) == 0 {
		return registry.ServiceInstance{}, false
	}

	index := rand.IntN(len(healthy))
	return healthy[index], true
}

func NewRandomSelector() Selector {
	return &randomSelector{}
}
