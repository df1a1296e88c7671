package registry

import (
	"net"
	"strconv"
	"time"
)

// ServiceInstance is one running, network-addressable copy of a logical
// service, as tracked by the registry.
type ServiceInstance struct {
	ID            string    `json:"id"`
	ServiceName   string    `json:"service_name"`
	Host          string    `json:"host"`
	Port          int       `json:"port"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Healthy       bool      `json:"healthy"`
}

// Addr returns the host:port address of the instance.
func (i ServiceInstance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// BaseURL returns the http base URL of the instance.
func (i ServiceInstance) BaseURL() string {
	return "http://" + i.Addr()
}
