package resilience

import "time"

// Config configures resilience protection for a transaction source.
type Config struct {
	// Timeout bounds each read against the source.
	Timeout time.Duration

	// CircuitBreaker configures breaker behavior.
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the closed-state period after which counts reset.
	// Zero means counts never reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker once reached. Zero uses the
	// default of 5.
	ConsecutiveFailures uint32
}

// DefaultConfig returns defaults suited to an in-cluster HTTP dependency:
// a 30-second call timeout and a breaker that trips after 5 consecutive
// failures, staying open for 30 seconds.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
	}
}

// WithTimeout returns a copy of the config with the given call timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}
