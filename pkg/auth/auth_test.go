package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vigil-bank/pkg/bank"

	"github.com/golang-jwt/jwt/v5"
)

// jsonLoginServer answers the JSON login protocol only; form logins fall
// through with a 200 and no cookie, which the manager treats as "try JSON".
// It counts JSON logins, i.e. completed refreshes.
func jsonLoginServer(t *testing.T, token string, logins *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if strings.Contains(r.Header.Get("Content-Type"), "json") {
			atomic.AddInt64(logins, 1)
			json.NewEncoder(w).Encode(map[string]string{"token": token})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestToken_CachesUntilExpiry(t *testing.T) {
	var logins int64
	srv := jsonLoginServer(t, "tok-1", &logins)
	defer srv.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	m := NewManager(srv.URL, 5*time.Second, WithClock(clock))
	defer m.Close()
	ctx := context.Background()

	// t=0: no cached token, refresh happens.
	token, err := m.Token(ctx, "user", "pass")
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q", token)
	}
	if n := atomic.LoadInt64(&logins); n != 1 {
		t.Fatalf("expected 1 login, got %d", n)
	}

	// t=44m: still inside the 45-minute buffer, no refresh.
	advance(44 * time.Minute)
	if _, err := m.Token(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(&logins); n != 1 {
		t.Errorf("expected no second login at t=44m, got %d logins", n)
	}

	// t=46m: expired, refresh exactly once.
	advance(2 * time.Minute)
	if _, err := m.Token(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(&logins); n != 2 {
		t.Errorf("expected 2 logins at t=46m, got %d", n)
	}
}

func TestToken_ExpiryCappedByClaim(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	// The backend issues a token that expires in 10 minutes, well under the
	// 45-minute buffer.
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute))}
	shortToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	var logins int64
	srv := jsonLoginServer(t, shortToken, &logins)
	defer srv.Close()

	m := NewManager(srv.URL, 5*time.Second, WithClock(clock))
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Token(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}

	// 15 minutes later the claim has long expired; the cache must not serve
	// the stale token even though 45 minutes have not passed.
	mu.Lock()
	now = now.Add(15 * time.Minute)
	mu.Unlock()

	if _, err := m.Token(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(&logins); n != 2 {
		t.Errorf("expected refresh after claim expiry, got %d logins", n)
	}
}

func TestToken_FormLoginCookie(t *testing.T) {
	var formLogins int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Type"), "x-www-form-urlencoded") {
			atomic.AddInt64(&formLogins, 1)
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			if r.PostFormValue("username") != "user" || r.PostFormValue("password") != "pass" {
				http.Error(w, "bad credentials", http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "cookie-token"})
			w.Header().Set("Location", "/home")
			w.WriteHeader(http.StatusFound)
			return
		}
		t.Error("JSON login should not be attempted when the cookie path succeeds")
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager(srv.URL, 5*time.Second)
	defer m.Close()

	token, err := m.Token(context.Background(), "user", "pass")
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "cookie-token" {
		t.Errorf("token = %q, want cookie-token", token)
	}
	if n := atomic.LoadInt64(&formLogins); n != 1 {
		t.Errorf("form logins = %d, want 1", n)
	}
}

func TestToken_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewManager(srv.URL, 5*time.Second)
	defer m.Close()

	_, err := m.Token(context.Background(), "user", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if !bank.IsAuthFailure(err) {
		t.Errorf("expected *bank.AuthError, got %T: %v", err, err)
	}

	// A failed refresh must not poison the cache: the next attempt logs in
	// again instead of serving a partial token.
	if _, err := m.Token(context.Background(), "user", "wrong"); err == nil {
		t.Error("second attempt should also fail, not serve a cached token")
	}
}

func TestToken_MissingTokenField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Type"), "json") {
			json.NewEncoder(w).Encode(map[string]string{"message": "ok but no token"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(srv.URL, 5*time.Second)
	defer m.Close()

	_, err := m.Token(context.Background(), "user", "pass")
	if !bank.IsAuthFailure(err) {
		t.Errorf("expected auth failure for missing token field, got %v", err)
	}
}

func TestToken_EmptyCredentials(t *testing.T) {
	m := NewManager("http://localhost:1", 5*time.Second)
	defer m.Close()

	if _, err := m.Token(context.Background(), "", "pass"); err != bank.ErrEmptyCredentials {
		t.Errorf("expected ErrEmptyCredentials, got %v", err)
	}
	if _, err := m.Token(context.Background(), "user", ""); err != bank.ErrEmptyCredentials {
		t.Errorf("expected ErrEmptyCredentials, got %v", err)
	}
}

func TestToken_ConcurrentRefreshCollapses(t *testing.T) {
	var logins int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Type"), "json") {
			atomic.AddInt64(&logins, 1)
			time.Sleep(50 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-shared"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(srv.URL, 5*time.Second)
	defer m.Close()

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Token(context.Background(), "user", "pass")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Token failed: %v", err)
		}
	}
	if n := atomic.LoadInt64(&logins); n != 1 {
		t.Errorf("expected a single collapsed login, got %d", n)
	}
}

func TestInvalidate(t *testing.T) {
	var logins int64
	srv := jsonLoginServer(t, "tok-1", &logins)
	defer srv.Close()

	m := NewManager(srv.URL, 5*time.Second)
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Token(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}
	m.Invalidate()
	if _, err := m.Token(ctx, "user", "pass"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt64(&logins); n != 2 {
		t.Errorf("expected refresh after Invalidate, got %d logins", n)
	}
}
