package prometheus

import (
	"time"

	"vigil-bank/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector backed by Prometheus.
type Collector struct {
	namespace string

	requests       *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	tokenRefreshes      *prometheus.CounterVec
	tokenRefreshLatency prometheus.Histogram

	sourceGets    *prometheus.CounterVec
	sourceErrors  *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec

	fallbacks    *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
	circuitOpens *prometheus.CounterVec
}

// NewCollector creates a Prometheus collector under the given namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		namespace: namespace,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total requests per banking service and operation",
			},
			[]string{"service", "operation"},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_errors_total",
				Help:      "Total failed requests per banking service and operation",
			},
			[]string{"service", "operation"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request latency per banking service and operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),
		tokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Total login attempts by result",
			},
			[]string{"result"},
		),
		tokenRefreshLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_refresh_duration_seconds",
				Help:      "Login request latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		sourceGets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_gets_total",
				Help:      "Total transaction-history reads per source",
			},
			[]string{"source"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Total failed transaction-history reads per source",
			},
			[]string{"source"},
		),
		sourceLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_get_duration_seconds",
				Help:      "Transaction-history read latency per source",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total fall-throughs past a source in the chain",
			},
			[]string{"source"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state per source (0=closed, 1=open, 2=half-open)",
			},
			[]string{"source"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total circuit breaker opens per source",
			},
			[]string{"source"},
		),
	}
}

// Register registers all metrics with the given registry.
func (c *Collector) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.requests, c.requestErrors, c.requestLatency,
		c.tokenRefreshes, c.tokenRefreshLatency,
		c.sourceGets, c.sourceErrors, c.sourceLatency,
		c.fallbacks, c.circuitState, c.circuitOpens,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers all metrics and panics on error.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	if err := c.Register(reg); err != nil {
		panic(err)
	}
}

// RecordRequest implements metrics.Collector.
func (c *Collector) RecordRequest(service, operation string, success bool, duration time.Duration) {
	c.requests.WithLabelValues(service, operation).Inc()
	if !success {
		c.requestErrors.WithLabelValues(service, operation).Inc()
	}
	c.requestLatency.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordTokenRefresh implements metrics.Collector.
func (c *Collector) RecordTokenRefresh(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.tokenRefreshes.WithLabelValues(result).Inc()
	c.tokenRefreshLatency.Observe(duration.Seconds())
}

// RecordSourceGet implements metrics.Collector.
func (c *Collector) RecordSourceGet(source string, success bool, duration time.Duration) {
	c.sourceGets.WithLabelValues(source).Inc()
	if !success {
		c.sourceErrors.WithLabelValues(source).Inc()
	}
	c.sourceLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFallback implements metrics.Collector.
func (c *Collector) RecordFallback(source string) {
	c.fallbacks.WithLabelValues(source).Inc()
}

// RecordCircuitState implements metrics.Collector.
func (c *Collector) RecordCircuitState(source string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(source).Set(float64(state))
	if state == metrics.CircuitOpen {
		c.circuitOpens.WithLabelValues(source).Inc()
	}
}
