package source

import (
	"context"
	"encoding/json"
	"time"

	"vigil-bank/pkg/bank"
	"vigil-bank/pkg/logging"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// RedisSource caches history results from an inner source in Redis, shared
// across client instances. Cache errors degrade to the inner source; a
// broken cache never fails a read.
type RedisSource struct {
	inner  Source
	client rueidis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// RedisConfig holds Redis cache settings.
type RedisConfig struct {
	// Address is the Redis host:port.
	Address string
	// TTL is how long cached histories stay fresh (default 1m).
	TTL time.Duration
	// Logger is optional.
	Logger *logging.Logger
}

// NewRedisSource wraps inner with a Redis-backed cache.
func NewRedisSource(inner Source, cfg RedisConfig) (*RedisSource, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.Address},
	})
	if err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisSource{
		inner:  inner,
		client: client,
		ttl:    cfg.TTL,
		logger: logger.Named("redis-source"),
	}, nil
}

func historyKey(accountID string) string {
	return "history:" + accountID
}

// Transactions implements Source.
func (s *RedisSource) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}

	key := historyKey(accountID)
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if err == nil {
		var h bank.History
		if err := json.Unmarshal(data, &h); err == nil {
			return &h, nil
		}
		// Corrupt entry: fall through to the inner source and overwrite.
	} else if !rueidis.IsRedisNil(err) {
		s.logger.Warn("redis read failed, using inner source", zap.Error(err))
	}

	h, err := s.inner.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(h); err == nil {
		setErr := s.client.Do(ctx,
			s.client.B().Set().Key(key).Value(string(encoded)).Ex(s.ttl).Build(),
		).Error()
		if setErr != nil {
			s.logger.Warn("redis write failed", zap.Error(setErr))
		}
	}
	return h, nil
}

// Invalidate drops the cached history for an account, used after a write.
func (s *RedisSource) Invalidate(ctx context.Context, accountID string) {
	if err := s.client.Do(ctx, s.client.B().Del().Key(historyKey(accountID)).Build()).Error(); err != nil {
		s.logger.Warn("redis invalidate failed", zap.Error(err))
	}
}

// Name implements Source.
func (s *RedisSource) Name() string { return s.inner.Name() + "+redis" }

// Close implements Source.
func (s *RedisSource) Close() error {
	s.client.Close()
	return s.inner.Close()
}
