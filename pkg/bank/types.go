package bank

import "time"

// Transaction is the canonical transaction record exposed by every data path.
// Amounts are integer minor units (cents); conversion from decimal currency
// happens once, at the decode boundary.
type Transaction struct {
	ID          string    `json:"transaction_id"`
	FromAccount string    `json:"from_account"`
	ToAccount   string    `json:"to_account"`
	AmountCents int64     `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
}

// History is the transaction history for a single account.
// Both the REST path and the database path produce this shape, so callers
// can treat the two interchangeably.
type History struct {
	AccountID    string        `json:"account_id"`
	Transactions []Transaction `json:"transactions"`
	TotalCount   int           `json:"total_count"`
}

// TransactionRequest is the payload for a ledger write.
type TransactionRequest struct {
	RequestID   string `json:"request_id,omitempty"`
	FromAccount string `json:"fromAccountNum"`
	FromRouting string `json:"fromRoutingNum,omitempty"`
	ToAccount   string `json:"toAccountNum"`
	ToRouting   string `json:"toRoutingNum,omitempty"`
	AmountCents int64  `json:"amount"`
	UUID        string `json:"uuid,omitempty"`
}

// TransactionResult is returned by the ledger writer after a submit.
type TransactionResult struct {
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
}

// UserDetails holds the user-service view of an account holder.
type UserDetails struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AccountID     string `json:"account_id"`
	AccountStatus string `json:"account_status"`
}

// Balance is the balance-reader view of an account, in minor units.
type Balance struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"balance"`
}

// Contact is an entry in a user's saved-recipient list.
type Contact struct {
	Label      string `json:"label"`
	AccountID  string `json:"account_num"`
	RoutingNum string `json:"routing_num,omitempty"`
	IsExternal bool   `json:"is_external"`
}

// LockResult is returned by the account-lock endpoint.
type LockResult struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// AuthResult is returned by Authenticate.
type AuthResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Status   string `json:"status"`
}
