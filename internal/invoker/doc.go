// Package invoker issues the actual network call to a resolved service
// instance. It applies a hard timeout, honors caller cancellation, and
// classifies every invocation as success, failure or timeout for the
// circuit breaker.
package invoker
