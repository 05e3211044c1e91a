// Package ctxkey defines type-safe keys for context.Value.
package ctxkey

// Key avoids the builtin string type for context keys (staticcheck SA1029).
type Key string

const (
	// RequestID is the server-generated or propagated request ID.
	RequestID Key = "ctx_request_id"

	// Method is the upstream method a request targeted, set by the gateway
	// handler for access-log correlation.
	Method Key = "ctx_method"
)
