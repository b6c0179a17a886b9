package metrics

import "time"

// Collector is the interface for recording client observability data.
// Implementations can export to Prometheus or keep counts in memory for tests.
type Collector interface {
	// RecordRequest records one HTTP call against a banking service.
	RecordRequest(service, operation string, success bool, duration time.Duration)

	// RecordTokenRefresh records one login attempt by the auth manager.
	RecordTokenRefresh(success bool, duration time.Duration)

	// RecordSourceGet records one transaction-history read against a source.
	RecordSourceGet(source string, success bool, duration time.Duration)

	// RecordFallback records that the chain fell through past the named source.
	RecordFallback(source string)

	// RecordCircuitState records a circuit breaker state change for a source.
	RecordCircuitState(source string, state CircuitState)
}

// CircuitState is the state of a source's circuit breaker.
type CircuitState int

const (
	// CircuitClosed means requests are flowing normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen means requests are being rejected.
	CircuitOpen
	// CircuitHalfOpen means the breaker is probing for recovery.
	CircuitHalfOpen
)

// String returns the state label used in metrics and logs.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards all metrics. It is the default collector so
// instrumentation calls never need a nil check.
type NoOpCollector struct{}

// RecordRequest does nothing.
func (NoOpCollector) RecordRequest(service, operation string, success bool, duration time.Duration) {
}

// RecordTokenRefresh does nothing.
func (NoOpCollector) RecordTokenRefresh(success bool, duration time.Duration) {}

// RecordSourceGet does nothing.
func (NoOpCollector) RecordSourceGet(source string, success bool, duration time.Duration) {}

// RecordFallback does nothing.
func (NoOpCollector) RecordFallback(source string) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(source string, state CircuitState) {}
