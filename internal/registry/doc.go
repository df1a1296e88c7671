// Package registry implements service registration and discovery.
//
// The Client advertises the owning process under a logical service name,
// keeps the registration alive with periodic heartbeats, and maintains a
// locally cached view of other registered instances refreshed by a
// background pull. The cached view is replaced wholesale on every refresh,
// so concurrent readers never observe a half-updated instance set.
//
// The Server is the registry process itself: an in-memory store speaking a
// small REST protocol (register/heartbeat/query/deregister) that marks
// instances unhealthy once their heartbeat goes stale and evicts them soon
// after.
package registry
