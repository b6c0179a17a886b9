package bank

import (
	"errors"
	"fmt"
)

// Input validation errors. Operations fail fast on these without issuing
// any network request.
var (
	// ErrEmptyAccountID is returned when an account identifier is missing.
	ErrEmptyAccountID = errors.New("bank: account id is empty")

	// ErrEmptyUserID is returned when a user identifier is missing.
	ErrEmptyUserID = errors.New("bank: user id is empty")

	// ErrEmptyCredentials is returned when username or password is missing.
	ErrEmptyCredentials = errors.New("bank: username or password is empty")

	// ErrEmptyReason is returned when an account lock is requested without a reason.
	ErrEmptyReason = errors.New("bank: lock reason is empty")

	// ErrNilTransaction is returned when a ledger write is attempted with no payload.
	ErrNilTransaction = errors.New("bank: transaction payload is nil")
)

// AuthError indicates that no valid token could be obtained.
// It is never retried internally; each authentication attempt is independent.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bank: authentication failed: %v", e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// HTTPError is a non-2xx response from a banking service. The status code
// and response body are preserved so callers can decide whether to retry,
// degrade, or abort.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bank: backend error (%d): %s", e.Status, e.Body)
}

// RequestError is a transport-level failure: the request never produced a
// response (connection refused, timeout, DNS failure).
type RequestError struct {
	Cause error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("bank: request failed: %v", e.Cause)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// FallbackError indicates the degrade path itself failed, meaning the
// operation has no further recourse. It always wraps the fallback's own
// error, never the primary one.
type FallbackError struct {
	Source string
	Cause  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("bank: fallback source %s failed: %v", e.Source, e.Cause)
}

func (e *FallbackError) Unwrap() error { return e.Cause }

// IsAuthFailure reports whether err is an authentication failure.
func IsAuthFailure(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsBackendError reports whether err carries a non-2xx backend response.
func IsBackendError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// IsFallbackFailure reports whether err came from a failed degrade path.
func IsFallbackFailure(err error) bool {
	var fe *FallbackError
	return errors.As(err, &fe)
}

// Classify returns a label for the error type, used for metrics.
func Classify(err error) string {
	if err == nil {
		return "none"
	}

	var (
		ae *AuthError
		he *HTTPError
		re *RequestError
		fe *FallbackError
	)
	switch {
	case errors.As(err, &fe):
		return "fallback_failed"
	case errors.As(err, &ae):
		return "auth_failed"
	case errors.As(err, &he):
		if he.Status >= 500 {
			return "backend_5xx"
		}
		return "backend_4xx"
	case errors.As(err, &re):
		return "transport"
	case errors.Is(err, ErrEmptyAccountID),
		errors.Is(err, ErrEmptyUserID),
		errors.Is(err, ErrEmptyCredentials),
		errors.Is(err, ErrEmptyReason),
		errors.Is(err, ErrNilTransaction):
		return "invalid_input"
	default:
		return "other"
	}
}
