package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vigil-bank/pkg/bank"

	_ "github.com/lib/pq"
)

// historyLimit bounds the fallback query to the most recent rows.
const historyLimit = 50

// DBSource reads transaction history directly from the ledger database.
// It is the degrade path for when the history service is unreachable, and
// replaces the original operational practice of shelling into the database
// pod with an administrative client.
type DBSource struct {
	db *sql.DB
}

// DBConfig holds ledger database connection settings.
type DBConfig struct {
	// DSN is the lib/pq connection string.
	DSN string
	// MaxOpenConns bounds the pool (default 10).
	MaxOpenConns int
	// MaxIdleConns bounds idle connections (default 2).
	MaxIdleConns int
	// ConnMaxLifetime recycles connections (default 5m).
	ConnMaxLifetime time.Duration
}

// NewDBSource opens a connection pool against the ledger database and
// verifies connectivity.
func NewDBSource(ctx context.Context, cfg DBConfig) (*DBSource, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("source: open ledger db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("source: ping ledger db: %w", err)
	}

	return &DBSource{db: db}, nil
}

// NewDBSourceFromDB wraps an existing pool, used by tests.
func NewDBSourceFromDB(db *sql.DB) *DBSource {
	return &DBSource{db: db}
}

// Transactions implements Source. The query is read-only and parameterized;
// amounts in the ledger are already integer cents.
func (s *DBSource) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}

	const query = `
		SELECT transaction_id, from_acct, to_acct, amount, timestamp
		FROM transactions
		WHERE from_acct = $1 OR to_acct = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("source: ledger query: %w", err)
	}
	defer rows.Close()

	h := &bank.History{AccountID: accountID, Transactions: []bank.Transaction{}}
	for rows.Next() {
		var tx bank.Transaction
		if err := rows.Scan(&tx.ID, &tx.FromAccount, &tx.ToAccount, &tx.AmountCents, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("source: scan ledger row: %w", err)
		}
		tx.Status = "COMPLETED"
		h.Transactions = append(h.Transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: ledger rows: %w", err)
	}
	h.TotalCount = len(h.Transactions)
	return h, nil
}

// Name implements Source.
func (s *DBSource) Name() string { return "ledger-db" }

// Close implements Source.
func (s *DBSource) Close() error { return s.db.Close() }
