// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the fabric configuration structure
// including service identity, registry connection settings, circuit breaker
// thresholds, call timeouts and selector policy.
package config
