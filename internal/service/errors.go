package service

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoCredentials is returned when no credential slots are configured.
// It is fatal for the request and never retried.
var ErrNoCredentials = errors.New("no credentials configured")

// RefreshError reports a rejected refresh_token exchange at the identity
// provider. The upstream error body is preserved for operators.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: status %d, body: %s", e.StatusCode, e.Body)
}

// AuthenticationError wraps any failure during token acquisition. There is no
// silent fallback to an unauthenticated state.
type AuthenticationError struct {
	cause error
}

func NewAuthenticationError(cause error) *AuthenticationError {
	return &AuthenticationError{cause: cause}
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.cause)
}

func (e *AuthenticationError) Unwrap() error { return e.cause }

// UpstreamError is a non-2xx response from the protected API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d, body: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports a 401, which triggers the credential-refresh retry
// class instead of the backoff class.
func (e *UpstreamError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsQuotaExhausted reports a 429, which feeds the exhaustion-marking path.
func (e *UpstreamError) IsQuotaExhausted() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// AsUpstreamError unwraps err into an *UpstreamError when it is one.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstreamErr *UpstreamError
	ok := errors.As(err, &upstreamErr)
	return upstreamErr, ok
}
