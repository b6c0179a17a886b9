package source

import (
	"context"
	"time"

	"vigil-bank/pkg/bank"

	gocache "github.com/patrickmn/go-cache"
)

// MemorySource caches history results from an inner source in process
// memory. Reads served from cache avoid hitting the inner source entirely;
// the cache never fails a read, it only short-circuits successful ones.
type MemorySource struct {
	inner Source
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemorySource wraps inner with a TTL cache. Entries expire after ttl
// and are swept at twice that interval.
func NewMemorySource(inner Source, ttl time.Duration) *MemorySource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemorySource{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Transactions implements Source.
func (s *MemorySource) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}

	if v, ok := s.cache.Get(accountID); ok {
		if h, ok := v.(*bank.History); ok {
			return h, nil
		}
	}

	h, err := s.inner.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(accountID, h, s.ttl)
	return h, nil
}

// Invalidate drops the cached history for an account, used after a write.
func (s *MemorySource) Invalidate(accountID string) {
	s.cache.Delete(accountID)
}

// Name implements Source.
func (s *MemorySource) Name() string { return s.inner.Name() + "+memcache" }

// Close implements Source.
func (s *MemorySource) Close() error {
	s.cache.Flush()
	return s.inner.Close()
}
