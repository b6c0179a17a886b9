package resilience

import (
	"context"
	"errors"
	"time"

	"vigil-bank/pkg/bank"
	"vigil-bank/pkg/logging"
	"vigil-bank/pkg/metrics"
	"vigil-bank/pkg/source"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the breaker rejects a read outright.
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

// ResilientSource wraps a transaction source with a circuit breaker and a
// per-call timeout. A tripped breaker fails fast so the chain can move to
// the next source without waiting out a full request timeout.
type ResilientSource struct {
	inner   source.Source
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// Option configures a ResilientSource.
type Option func(*ResilientSource)

// WithLogger sets the logger. Defaults to no-op.
func WithLogger(l *logging.Logger) Option {
	return func(rs *ResilientSource) { rs.logger = l.Named("resilience") }
}

// WithMetrics sets the metrics collector. Defaults to no-op.
func WithMetrics(m metrics.Collector) Option {
	return func(rs *ResilientSource) { rs.metrics = m }
}

// Wrap adds resilience protection to a source.
func Wrap(inner source.Source, cfg Config, opts ...Option) *ResilientSource {
	rs := &ResilientSource{
		inner:   inner,
		timeout: cfg.Timeout,
		metrics: metrics.NoOpCollector{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	rs.logger = rs.logger.Named(inner.Name())

	trip := cfg.CircuitBreaker.ConsecutiveFailures
	if trip == 0 {
		trip = 5
	}

	rs.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			rs.logger.Warn("circuit breaker state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			var state metrics.CircuitState
			switch to {
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			default:
				state = metrics.CircuitClosed
			}
			rs.metrics.RecordCircuitState(name, state)
		},
	})

	return rs
}

// Transactions implements source.Source with breaker and timeout protection.
func (rs *ResilientSource) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	start := time.Now()

	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	result, err := rs.cb.Execute(func() (interface{}, error) {
		return rs.inner.Transactions(ctx, accountID)
	})

	duration := time.Since(start)
	rs.metrics.RecordSourceGet(rs.inner.Name(), err == nil, duration)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			rs.logger.Warn("read rejected by circuit breaker",
				zap.String("account_id", accountID),
			)
			return nil, ErrCircuitOpen
		}
		if ctx.Err() == context.DeadlineExceeded {
			rs.logger.Warn("read timed out",
				zap.String("account_id", accountID),
				zap.Duration("timeout", rs.timeout),
				zap.Duration("elapsed", duration),
			)
			return nil, &bank.RequestError{Cause: context.DeadlineExceeded}
		}
		rs.logger.Error("read failed",
			zap.String("account_id", accountID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	return result.(*bank.History), nil
}

// Name implements source.Source.
func (rs *ResilientSource) Name() string { return rs.inner.Name() }

// Close implements source.Source.
func (rs *ResilientSource) Close() error { return rs.inner.Close() }
