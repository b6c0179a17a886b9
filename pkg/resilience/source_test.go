package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"vigil-bank/pkg/bank"
	"vigil-bank/pkg/metrics"
	memcollector "vigil-bank/pkg/metrics/memory"
	"vigil-bank/pkg/source/mock"
)

func TestResilientSource_PassThrough(t *testing.T) {
	inner := mock.NewMockSource("rest")
	inner.TransactionsFunc = func(ctx context.Context, accountID string) (*bank.History, error) {
		return &bank.History{AccountID: accountID, TotalCount: 0, Transactions: []bank.Transaction{}}, nil
	}

	rs := Wrap(inner, DefaultConfig())
	defer rs.Close()

	h, err := rs.Transactions(context.Background(), "acct-9")
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if h.AccountID != "acct-9" {
		t.Errorf("unexpected history: %+v", h)
	}
	if rs.Name() != "rest" {
		t.Errorf("Name() = %q, want the inner source's name", rs.Name())
	}
}

func TestResilientSource_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := mock.NewMockSource("rest")
	innerErr := &bank.HTTPError{Status: 500, Body: "boom"}
	inner.TransactionsFunc = func(ctx context.Context, accountID string) (*bank.History, error) {
		return nil, innerErr
	}

	cfg := DefaultConfig()
	cfg.CircuitBreaker.ConsecutiveFailures = 3
	collector := memcollector.NewCollector()
	rs := Wrap(inner, cfg, WithMetrics(collector))
	defer rs.Close()

	ctx := context.Background()

	// First three failures pass through to the inner source.
	for i := 0; i < 3; i++ {
		_, err := rs.Transactions(ctx, "acct-9")
		if !errors.Is(err, error(innerErr)) && !bank.IsBackendError(err) {
			t.Fatalf("call %d: expected the inner error, got %v", i, err)
		}
	}
	if calls := inner.TransactionsCalls(); calls != 3 {
		t.Fatalf("inner called %d times, want 3", calls)
	}

	// The breaker is now open: calls fail fast without touching the source.
	_, err := rs.Transactions(ctx, "acct-9")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls := inner.TransactionsCalls(); calls != 3 {
		t.Errorf("open breaker must not call the source; got %d calls", calls)
	}
	if collector.CircuitState("rest") != metrics.CircuitOpen {
		t.Errorf("circuit state metric = %v, want open", collector.CircuitState("rest"))
	}
}

func TestResilientSource_TimeoutBecomesRequestError(t *testing.T) {
	inner := mock.NewMockSource("rest")
	inner.TransactionsFunc = func(ctx context.Context, accountID string) (*bank.History, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	cfg := DefaultConfig().WithTimeout(20 * time.Millisecond)
	rs := Wrap(inner, cfg)
	defer rs.Close()

	_, err := rs.Transactions(context.Background(), "acct-9")
	var re *bank.RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *bank.RequestError for a timeout, got %T: %v", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("timeout error should wrap context.DeadlineExceeded")
	}
}

func TestResilientSource_RecordsSourceMetrics(t *testing.T) {
	inner := mock.NewMockSource("rest")
	inner.TransactionsFunc = func(ctx context.Context, accountID string) (*bank.History, error) {
		return &bank.History{AccountID: accountID, Transactions: []bank.Transaction{}}, nil
	}

	collector := memcollector.NewCollector()
	rs := Wrap(inner, DefaultConfig(), WithMetrics(collector))
	defer rs.Close()

	if _, err := rs.Transactions(context.Background(), "acct-9"); err != nil {
		t.Fatal(err)
	}
	if collector.SourceGets("rest") != 1 {
		t.Errorf("source gets = %d, want 1", collector.SourceGets("rest"))
	}
	if collector.SourceErrors("rest") != 0 {
		t.Errorf("source errors = %d, want 0", collector.SourceErrors("rest"))
	}
}
