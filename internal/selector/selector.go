package selector

import (
	"sort"

	"github.com/angeloszaimis/service-fabric/internal/registry"
)

type Selector interface {
	Select(instances []registry.ServiceInstance) (registry.ServiceInstance, bool)
}

// healthyOrdered filters out unhealthy instances and orders the survivors by
// instance ID so rotation position is deterministic per selector.
func healthyOrdered(instances []registry.ServiceInstance) []registry.ServiceInstance {
	healthy := make([]registry.ServiceInstance, 0, len(instances))

	for _, inst := range instances {
		if inst.Healthy {
			healthy = append(healthy, inst)
		}
	}

	sort.Slice(healthy, func(i, j int) bool {
		return healthy[i].ID < healthy[j].ID
	})

	return healthy
}
