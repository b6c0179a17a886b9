package mock

import (
	"context"
	"sync/atomic"

	"vigil-bank/pkg/bank"
)

// MockSource is a Source implementation for tests. Behavior is injected via
// function hooks; call counts are tracked atomically.
type MockSource struct {
	TransactionsFunc func(ctx context.Context, accountID string) (*bank.History, error)
	NameFunc         func() string
	CloseFunc        func() error

	transactionsCalls int64
	closeCalls        int64
}

// NewMockSource creates a mock with the given name.
func NewMockSource(name string) *MockSource {
	return &MockSource{
		NameFunc: func() string { return name },
	}
}

// Transactions implements Source with optional custom behavior.
func (m *MockSource) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	atomic.AddInt64(&m.transactionsCalls, 1)
	if m.TransactionsFunc != nil {
		return m.TransactionsFunc(ctx, accountID)
	}
	return &bank.History{AccountID: accountID, Transactions: []bank.Transaction{}}, nil
}

// Name implements Source.
func (m *MockSource) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Close implements Source.
func (m *MockSource) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// TransactionsCalls returns the number of Transactions calls (thread-safe).
func (m *MockSource) TransactionsCalls() int {
	return int(atomic.LoadInt64(&m.transactionsCalls))
}

// CloseCalls returns the number of Close calls (thread-safe).
func (m *MockSource) CloseCalls() int {
	return int(atomic.LoadInt64(&m.closeCalls))
}
