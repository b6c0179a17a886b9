package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil-bank/pkg/bank"
)

// RESTSource reads transaction history from the transaction-history service.
type RESTSource struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenProvider
}

// NewRESTSource creates a REST history source. tokens may be nil for
// unauthenticated access.
func NewRESTSource(baseURL string, timeout time.Duration, tokens TokenProvider) *RESTSource {
	return &RESTSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// Transactions implements Source.
func (s *RESTSource) Transactions(ctx context.Context, accountID string) (*bank.History, error) {
	if accountID == "" {
		return nil, bank.ErrEmptyAccountID
	}

	url := fmt.Sprintf("%s/transactions/%s", s.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &bank.RequestError{Cause: err}
	}

	if s.tokens != nil {
		token, err := s.tokens(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, &bank.RequestError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bank.RequestError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &bank.HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return bank.DecodeHistory(accountID, body)
}

// Name implements Source.
func (s *RESTSource) Name() string { return "rest" }

// Close implements Source.
func (s *RESTSource) Close() error {
	s.httpc.CloseIdleConnections()
	return nil
}
