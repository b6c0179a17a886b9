package bank

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "none",
		},
		{
			name: "auth failure",
			err:  &AuthError{Cause: errors.New("login rejected")},
			want: "auth_failed",
		},
		{
			name: "wrapped auth failure",
			err:  fmt.Errorf("outer: %w", &AuthError{Cause: errors.New("x")}),
			want: "auth_failed",
		},
		{
			name: "server error",
			err:  &HTTPError{Status: 503, Body: "unavailable"},
			want: "backend_5xx",
		},
		{
			name: "client error",
			err:  &HTTPError{Status: 404, Body: "no such account"},
			want: "backend_4xx",
		},
		{
			name: "transport failure",
			err:  &RequestError{Cause: errors.New("connection refused")},
			want: "transport",
		},
		{
			name: "fallback failure",
			err:  &FallbackError{Source: "ledger-db", Cause: errors.New("query failed")},
			want: "fallback_failed",
		},
		{
			name: "fallback wrapping http error still counts as fallback",
			err:  &FallbackError{Source: "ledger-db", Cause: &HTTPError{Status: 500}},
			want: "fallback_failed",
		},
		{
			name: "validation error",
			err:  ErrEmptyAccountID,
			want: "invalid_input",
		},
		{
			name: "unknown error",
			err:  errors.New("something else"),
			want: "other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	authErr := fmt.Errorf("wrapped: %w", &AuthError{Cause: errors.New("nope")})
	if !IsAuthFailure(authErr) {
		t.Error("IsAuthFailure should see through wrapping")
	}
	if IsAuthFailure(errors.New("other")) {
		t.Error("IsAuthFailure matched an unrelated error")
	}

	httpErr := &HTTPError{Status: 500, Body: "boom"}
	if !IsBackendError(httpErr) {
		t.Error("IsBackendError should match HTTPError")
	}

	fbErr := &FallbackError{Source: "ledger-db", Cause: httpErr}
	if !IsFallbackFailure(fbErr) {
		t.Error("IsFallbackFailure should match FallbackError")
	}
	// The fallback error must still expose its cause for errors.As.
	var inner *HTTPError
	if !errors.As(fbErr, &inner) || inner.Status != 500 {
		t.Error("FallbackError should unwrap to its cause")
	}
}

func TestHTTPErrorPreservesStatusAndBody(t *testing.T) {
	err := &HTTPError{Status: 403, Body: "forbidden"}
	var he *HTTPError
	if !errors.As(error(err), &he) {
		t.Fatal("errors.As failed")
	}
	if he.Status != 403 || he.Body != "forbidden" {
		t.Errorf("got status=%d body=%q", he.Status, he.Body)
	}
}
