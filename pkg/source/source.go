package source

import (
	"context"

	"vigil-bank/pkg/bank"
)

// Source is a strategy for reading an account's transaction history.
// The REST history service and the direct ledger-database query both
// implement it, so callers can treat the paths interchangeably.
type Source interface {
	// Transactions returns the most recent transactions for the account.
	Transactions(ctx context.Context, accountID string) (*bank.History, error)

	// Name identifies the source in logs and metrics.
	Name() string

	// Close releases any resources held by the source.
	Close() error
}

// TokenProvider supplies a bearer token for authenticated sources.
// A nil provider means requests go out unauthenticated.
type TokenProvider func(ctx context.Context) (string, error)
