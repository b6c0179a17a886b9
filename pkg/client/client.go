package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vigil-bank/pkg/auth"
	"vigil-bank/pkg/bank"
	"vigil-bank/pkg/config"
	"vigil-bank/pkg/logging"
	"vigil-bank/pkg/metrics"
	"vigil-bank/pkg/source"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is a typed wrapper over the banking microservices. It validates
// inputs before any request goes out, attaches bearer tokens when supplied,
// and translates failures into the error taxonomy in pkg/bank. It never
// retries; retry policy belongs to the caller.
//
// Transaction history reads go through the injected source chain, which is
// where the degrade-not-fail policy lives. Every other operation propagates
// errors directly.
type Client struct {
	cfg     config.Config
	httpc   *http.Client
	auth    *auth.Manager
	history source.Source
	logger  *logging.Logger
	metrics metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to no-op.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l.Named("bank-client") }
}

// WithMetrics sets the metrics collector. Defaults to no-op.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithAuthManager injects a pre-built auth manager, used by tests.
func WithAuthManager(m *auth.Manager) Option {
	return func(c *Client) { c.auth = m }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// New creates a client. history is the transaction source (typically a
// source.Chain of REST plus database fallback); it must not be nil.
func New(cfg config.Config, history source.Source, opts ...Option) (*Client, error) {
	if history == nil {
		return nil, fmt.Errorf("client: history source is required")
	}
	c := &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		history: history,
		logger:  logging.NewNop(),
		metrics: metrics.NoOpCollector{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth == nil {
		c.auth = auth.NewManager(cfg.BankBaseURL+"/login", cfg.RequestTimeout)
	}
	return c, nil
}

// Authenticate obtains a bearer token for the given credentials.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*bank.AuthResult, error) {
	token, err := c.auth.Token(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &bank.AuthResult{
		Token:    token,
		Username: username,
		Status:   "authenticated",
	}, nil
}

// GetTransactions returns the account's recent transaction history via the
// source chain. Primary-path failures degrade to the fallback source rather
// than propagating; only a failed fallback surfaces an error.
func (c *Client) GetTransactions(ctx context.Context, accountID string) (*bank.History, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}
	return c.history.Transactions(ctx, accountID)
}

// SubmitTransaction posts a new transaction to the ledger writer. There is
// no fallback; errors propagate. A request UUID is assigned when absent so
// the write is identifiable end to end.
func (c *Client) SubmitTransaction(ctx context.Context, tx *bank.TransactionRequest, token string) (*bank.TransactionResult, error) {
	if tx == nil {
		return nil, bank.ErrNilTransaction
	}
	if tx.FromAccount == "" || tx.ToAccount == "" {
		return nil, bank.ErrEmptyAccountID
	}
	if tx.UUID == "" {
		tx.UUID = uuid.New().String()
	}

	url := c.cfg.LedgerWriterURL + "/transactions"
	var result bank.TransactionResult
	if err := c.doJSON(ctx, "ledgerwriter", "submit_transaction", http.MethodPost, url, token, tx, &result); err != nil {
		return nil, err
	}
	if result.Status == "" {
		result.Status = "ACCEPTED"
	}
	return &result, nil
}

// GetUserDetails fetches a user record from the user service.
func (c *Client) GetUserDetails(ctx context.Context, userID, token string) (*bank.UserDetails, error) {
	if userID == "" {
		return nil, bank.ErrEmptyUserID
	}

	url := fmt.Sprintf("%s/users/%s", c.cfg.BankBaseURL, userID)
	var details bank.UserDetails
	if err := c.doJSON(ctx, "userservice", "get_user_details", http.MethodGet, url, token, nil, &details); err != nil {
		return nil, err
	}
	if details.UserID == "" {
		details.UserID = userID
	}
	return &details, nil
}

// LockAccount locks a user account for security reasons. This is the one
// side-effecting security action; it is idempotent from the caller's view,
// so a conflict response for an already-locked account is reported as
// success rather than an error.
func (c *Client) LockAccount(ctx context.Context, userID, reason, token string) (*bank.LockResult, error) {
	if userID == "" {
		return nil, bank.ErrEmptyUserID
	}
	if reason == "" {
		return nil, bank.ErrEmptyReason
	}

	url := fmt.Sprintf("%s/users/%s/lock", c.cfg.BankBaseURL, userID)
	body := map[string]string{"reason": reason}

	var result bank.LockResult
	err := c.doJSON(ctx, "userservice", "lock_account", http.MethodPost, url, token, body, &result)
	if err != nil {
		var httpErr *bank.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusConflict {
			c.logger.Info("account already locked",
				zap.String("user_id", userID),
				zap.String("reason", reason),
			)
			return &bank.LockResult{UserID: userID, Status: "locked", Reason: reason}, nil
		}
		return nil, err
	}
	if result.UserID == "" {
		result.UserID = userID
	}
	if result.Reason == "" {
		result.Reason = reason
	}
	c.logger.Info("account locked",
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
	return &result, nil
}

// GetBalance fetches the current balance for an account from the balance
// reader. The service may answer with a bare number (minor units) or an
// object; both are accepted.
func (c *Client) GetBalance(ctx context.Context, accountID, token string) (*bank.Balance, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}

	url := fmt.Sprintf("%s/balances/%s", c.cfg.BalancesURL, accountID)
	raw, err := c.doRaw(ctx, "balancereader", "get_balance", http.MethodGet, url, token, nil)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if cents, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return &bank.Balance{AccountID: accountID, AmountCents: cents}, nil
	}

	var balance bank.Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return nil, fmt.Errorf("client: decode balance: %w", err)
	}
	balance.AccountID = accountID
	return &balance, nil
}

// GetContacts fetches a user's saved recipients from the contacts service.
func (c *Client) GetContacts(ctx context.Context, userID, token string) ([]bank.Contact, error) {
	if userID == "" {
		return nil, bank.ErrEmptyUserID
	}

	url := fmt.Sprintf("%s/contacts/%s", c.cfg.ContactsURL, userID)
	var contacts []bank.Contact
	if err := c.doJSON(ctx, "contacts", "get_contacts", http.MethodGet, url, token, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// AddContact adds a saved recipient for a user.
func (c *Client) AddContact(ctx context.Context, userID string, contact bank.Contact, token string) error {
	if userID == "" {
		return bank.ErrEmptyUserID
	}
	if contact.AccountID == "" {
		return bank.ErrEmptyAccountID
	}

	url := fmt.Sprintf("%s/contacts/%s", c.cfg.ContactsURL, userID)
	return c.doJSON(ctx, "contacts", "add_contact", http.MethodPost, url, token, contact, nil)
}

// Close releases the source chain, the auth manager, and idle connections.
// Safe to call on every exit path.
func (c *Client) Close() error {
	var firstErr error
	if err := c.history.Close(); err != nil {
		firstErr = err
	}
	if err := c.auth.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	c.httpc.CloseIdleConnections()
	return firstErr
}

// doJSON performs a request and decodes a JSON response into out (skipped
// when out is nil or the body is empty).
func (c *Client) doJSON(ctx context.Context, service, operation, method, url, token string, body, out interface{}) error {
	raw, err := c.doRaw(ctx, service, operation, method, url, token, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s response: %w", operation, err)
	}
	return nil
}

// doRaw performs a request and returns the response body. Non-2xx responses
// become *bank.HTTPError with status and body preserved; transport failures
// become *bank.RequestError.
func (c *Client) doRaw(ctx context.Context, service, operation, method, url, token string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &bank.RequestError{Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.metrics.RecordRequest(service, operation, false, duration)
		c.logger.Warn("request failed",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return nil, &bank.RequestError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordRequest(service, operation, false, duration)
		return nil, &bank.RequestError{Cause: err}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode <= 299
	c.metrics.RecordRequest(service, operation, success, duration)

	if !success {
		c.logger.Warn("backend error",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &bank.HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}
