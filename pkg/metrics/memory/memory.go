package memory

import (
	"sync"
	"time"

	"vigil-bank/pkg/metrics"
)

// Collector is an in-memory metrics.Collector. It keeps simple counters
// guarded by a mutex and is intended for tests and local inspection.
type Collector struct {
	mu sync.RWMutex

	requests      map[string]int64
	requestErrors map[string]int64

	tokenRefreshSuccesses int64
	tokenRefreshFailures  int64

	sourceGets   map[string]int64
	sourceErrors map[string]int64
	fallbacks    map[string]int64

	circuitStates map[string]metrics.CircuitState
}

// NewCollector creates an empty in-memory collector.
func NewCollector() *Collector {
	return &Collector{
		requests:      make(map[string]int64),
		requestErrors: make(map[string]int64),
		sourceGets:    make(map[string]int64),
		sourceErrors:  make(map[string]int64),
		fallbacks:     make(map[string]int64),
		circuitStates: make(map[string]metrics.CircuitState),
	}
}

// RecordRequest implements metrics.Collector.
func (c *Collector) RecordRequest(service, operation string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := service + "/" + operation
	c.requests[key]++
	if !success {
		c.requestErrors[key]++
	}
}

// RecordTokenRefresh implements metrics.Collector.
func (c *Collector) RecordTokenRefresh(success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.tokenRefreshSuccesses++
	} else {
		c.tokenRefreshFailures++
	}
}

// RecordSourceGet implements metrics.Collector.
func (c *Collector) RecordSourceGet(source string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceGets[source]++
	if !success {
		c.sourceErrors[source]++
	}
}

// RecordFallback implements metrics.Collector.
func (c *Collector) RecordFallback(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks[source]++
}

// RecordCircuitState implements metrics.Collector.
func (c *Collector) RecordCircuitState(source string, state metrics.CircuitState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circuitStates[source] = state
}

// Requests returns the request count for a service/operation pair.
func (c *Collector) Requests(service, operation string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests[service+"/"+operation]
}

// RequestErrors returns the error count for a service/operation pair.
func (c *Collector) RequestErrors(service, operation string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requestErrors[service+"/"+operation]
}

// TokenRefreshes returns successful and failed login counts.
func (c *Collector) TokenRefreshes() (successes, failures int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenRefreshSuccesses, c.tokenRefreshFailures
}

// SourceGets returns the read count for a source.
func (c *Collector) SourceGets(source string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sourceGets[source]
}

// SourceErrors returns the failed read count for a source.
func (c *Collector) SourceErrors(source string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sourceErrors[source]
}

// Fallbacks returns the fall-through count past a source.
func (c *Collector) Fallbacks(source string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallbacks[source]
}

// CircuitState returns the last recorded breaker state for a source.
func (c *Collector) CircuitState(source string) metrics.CircuitState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.circuitStates[source]
}
