package service

import (
	"context"
	"net/http"
)

// UpstreamResult is a single upstream response. Non-2xx statuses are carried
// as results, not errors; the retry engine decides what each status means.
type UpstreamResult struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Success reports a 2xx status.
func (r *UpstreamResult) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// UpstreamClient issues one authenticated POST to <endpoint>/<version>:<method>.
// Errors are network-level only.
type UpstreamClient interface {
	CallMethod(ctx context.Context, method, accessToken string, body []byte) (*UpstreamResult, error)
}
