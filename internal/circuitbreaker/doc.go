// Package circuitbreaker implements the circuit breaker pattern for outbound
// remote-service calls.
//
// A circuit breaker prevents cascading failures by temporarily blocking calls
// to a failing remote. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Remote failing, calls blocked
//   - HALF-OPEN: Testing recovery with a single probe call
//
// One breaker exists per logical service name, held in a Registry.
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 10*time.Second)
//	cb := registry.GetBreaker("orders")
//	if cb.Allow() {
//	    // Make the call...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
