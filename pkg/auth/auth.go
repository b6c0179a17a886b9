package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vigil-bank/pkg/bank"
	"vigil-bank/pkg/logging"
	"vigil-bank/pkg/metrics"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// tokenTTL is the conservative buffer under the backend's assumed
// 60-minute token lifetime.
const tokenTTL = 45 * time.Minute

// expiryMargin is subtracted from a token's own exp claim so we never hand
// out a token that expires mid-request.
const expiryMargin = time.Minute

// Manager obtains and caches one bearer token for authenticated requests.
// A non-expired cached token is always reused; concurrent refreshes are
// collapsed into a single login request.
type Manager struct {
	loginURL string
	httpc    *http.Client
	logger   *logging.Logger
	metrics  metrics.Collector
	now      func() time.Time

	sf singleflight.Group

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l.Named("auth") }
}

// WithMetrics sets the metrics collector. Defaults to no-op.
func WithMetrics(c metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithClock overrides the time source, used by tests to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithHTTPClient overrides the HTTP client. The client must not follow
// redirects; NewManager's default already disables them.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpc = c }
}

// NewManager creates a Manager that logs in against loginURL.
func NewManager(loginURL string, timeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		loginURL: loginURL,
		httpc: &http.Client{
			Timeout: timeout,
			// The form login signals success with a 302 carrying the token
			// cookie, so redirects must not be followed.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logging.NewNop(),
		metrics: metrics.NoOpCollector{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a valid bearer token, refreshing if the cached one is
// absent or expired. Authentication failures are returned as
// *bank.AuthError and are never retried internally.
func (m *Manager) Token(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", bank.ErrEmptyCredentials
	}

	if token, ok := m.cached(); ok {
		return token, nil
	}

	result, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		// Another caller may have refreshed while we waited on the flight.
		if token, ok := m.cached(); ok {
			return token, nil
		}
		return m.refresh(ctx, username, password)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// cached returns the token if present and not expired.
func (m *Manager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && m.now().Before(m.expiry) {
		return m.token, true
	}
	return "", false
}

// refresh performs a login and stores the new token. The form-encoded
// protocol is tried first (success is a 302 with a token cookie); if that
// yields no token, a JSON login is attempted.
func (m *Manager) refresh(ctx context.Context, username, password string) (string, error) {
	start := time.Now()

	token, err := m.loginForm(ctx, username, password)
	if err == nil && token == "" {
		token, err = m.loginJSON(ctx, username, password)
	}

	m.metrics.RecordTokenRefresh(err == nil && token != "", time.Since(start))

	if err != nil {
		m.logger.Error("token refresh failed", zap.Error(err))
		return "", &bank.AuthError{Cause: err}
	}
	if token == "" {
		err = fmt.Errorf("no token received from login response")
		m.logger.Error("token refresh failed", zap.Error(err))
		return "", &bank.AuthError{Cause: err}
	}

	expiry := m.expiryFor(token)

	m.mu.Lock()
	m.token = token
	m.expiry = expiry
	m.mu.Unlock()

	m.logger.Info("bearer token refreshed", zap.Time("expiry", expiry))
	return token, nil
}

// loginForm posts form-encoded credentials. A 302 response carries the token
// as a cookie. A non-redirect response is not an error by itself; it just
// means the backend wants the JSON protocol.
func (m *Manager) loginForm(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusFound {
		for _, cookie := range resp.Cookies() {
			if cookie.Name == "token" && cookie.Value != "" {
				return cookie.Value, nil
			}
		}
	}
	return "", nil
}

// loginJSON posts JSON credentials and reads the token field from a 200
// response.
func (m *Manager) loginJSON(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return payload.Token, nil
}

// expiryFor computes the cache expiry: now plus the conservative TTL, capped
// by the token's own exp claim when it carries one. The claim is read without
// signature verification; we only use it to expire the cache earlier, never
// to trust the token longer.
func (m *Manager) expiryFor(token string) time.Time {
	expiry := m.now().Add(tokenTTL)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return expiry
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}
	if capped := exp.Add(-expiryMargin); capped.Before(expiry) {
		return capped
	}
	return expiry
}

// Invalidate drops the cached token so the next call logs in again.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiry = time.Time{}
	m.mu.Unlock()
}

// Close releases held connection resources.
func (m *Manager) Close() error {
	m.httpc.CloseIdleConnections()
	return nil
}
