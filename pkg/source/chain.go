package source

import (
	"context"
	"errors"

	"vigil-bank/pkg/bank"
	"vigil-bank/pkg/logging"
	"vigil-bank/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Chain reads from an ordered list of sources, falling through on failure.
// The first source is the primary; later sources are degrade paths. A
// failure of the final source is reported as a fallback failure, never
// masked as a primary-path error.
type Chain struct {
	sources []Source
	sf      singleflight.Group
	logger  *logging.Logger
	metrics metrics.Collector
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger sets the chain logger. Defaults to no-op.
func WithLogger(l *logging.Logger) ChainOption {
	return func(c *Chain) { c.logger = l.Named("source-chain") }
}

// WithMetrics sets the metrics collector. Defaults to no-op.
func WithMetrics(m metrics.Collector) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// NewChain creates a chain over the given sources, primary first.
func NewChain(sources []Source, opts ...ChainOption) (*Chain, error) {
	if len(sources) == 0 {
		return nil, errors.New("source: at least one source required")
	}
	c := &Chain{
		sources: sources,
		logger:  logging.NewNop(),
		metrics: metrics.NoOpCollector{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transactions implements Source. Concurrent reads for the same account are
// collapsed into a single traversal.
func (c *Chain) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err, _ := c.sf.Do(accountID, func() (interface{}, error) {
		return c.traverse(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*bank.History), nil
}

func (c *Chain) traverse(ctx context.Context, accountID string) (*bank.History, error) {
	var lastErr error

	for i, src := range c.sources {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		h, err := src.Transactions(ctx, accountID)
		if err == nil {
			if i > 0 {
				c.logger.Info("history served by fallback source",
					zap.String("source", src.Name()),
					zap.String("account_id", accountID),
				)
			}
			return h, nil
		}

		lastErr = err
		if i < len(c.sources)-1 {
			c.metrics.RecordFallback(src.Name())
			c.logger.Warn("source failed, falling back",
				zap.String("source", src.Name()),
				zap.String("account_id", accountID),
				zap.String("error_kind", bank.Classify(err)),
				zap.Error(err),
			)
			continue
		}

		// Final source failed: the operation has no further recourse.
		if i > 0 {
			lastErr = &bank.FallbackError{Source: src.Name(), Cause: err}
		}
		c.logger.Error("all history sources failed",
			zap.String("account_id", accountID),
			zap.Error(lastErr),
		)
	}

	return nil, lastErr
}

// Name implements Source.
func (c *Chain) Name() string { return "chain" }

// Len returns the number of sources in the chain.
func (c *Chain) Len() int { return len(c.sources) }

// Close closes every source, returning the first error encountered.
func (c *Chain) Close() error {
	var firstErr error
	for _, src := range c.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
