package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking calls
	StateHalfOpen              // Testing with one probe call
)

type CircuitBreaker struct {
	mutex               sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	probeInFlight       bool
	failureThreshold    int
	openCooldown        time.Duration
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		openCooldown:     cooldown,
	}
}

// Allow reports whether a call may go out. While OPEN, the first caller after
// the cooldown is admitted as the single half-open probe; everyone else is
// short-circuited until the probe resolves.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.openCooldown {
			cb.state = StateHalfOpen
			cb.probeInFlight = true
			return true
		}

		return false
	case StateHalfOpen:
		if cb.probeInFlight {
			return false
		}

		cb.probeInFlight = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateHalfOpen:
		// Probe failed: reopen and restart the cooldown clock.
		cb.consecutiveFailures++
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.probeInFlight = false

	case StateClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	}
	// A failure reported while OPEN comes from a call admitted before the
	// trip; the cooldown clock is already running and stays untouched.
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.consecutiveFailures = 0
		cb.probeInFlight = false
		cb.state = StateClosed

	case StateClosed:
		cb.consecutiveFailures = 0
	}
	// A success reported while OPEN is a call that was admitted before the
	// trip and finished late. Recovery only goes through the probe, so the
	// state is left alone.
}

// CancelProbe releases an admitted probe slot without counting a failure.
// Used when the call was denied before any network attempt (no healthy
// instance); the cooldown clock keeps its original origin so the next caller
// probes again immediately.
func (cb *CircuitBreaker) CancelProbe() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateHalfOpen && cb.probeInFlight {
		cb.probeInFlight = false
		cb.state = StateOpen
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.consecutiveFailures
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}
