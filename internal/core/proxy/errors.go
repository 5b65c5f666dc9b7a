// Package proxy classifies failures on the submission path into the HTTP
// responses clients see. It is pure: callers decide which failure occurred,
// this package decides how it is reported.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProxyErrorType defines the type of proxy error.
type ProxyErrorType int

const (
	ErrorBadRequest ProxyErrorType = iota
	ErrorStoreUnavailable
	ErrorUpstreamUnavailable
	ErrorUpstreamTimeout
	ErrorInternal
)

// String returns a stable label for logs and metrics.
func (t ProxyErrorType) String() string {
	switch t {
	case ErrorBadRequest:
		return "bad_request"
	case ErrorStoreUnavailable:
		return "store_unavailable"
	case ErrorUpstreamUnavailable:
		return "upstream_unavailable"
	case ErrorUpstreamTimeout:
		return "upstream_timeout"
	default:
		return "internal"
	}
}

// ProxyError represents a failure that ends a request before an upstream
// response or a rejection can be returned. It is never a validation outcome.
type ProxyError struct {
	Type       ProxyErrorType
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e ProxyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e ProxyError) Unwrap() error {
	return e.Cause
}

// Body renders the client-facing JSON body. The cause is not exposed.
func (e ProxyError) Body() []byte {
	data, _ := json.Marshal(map[string]string{"error": e.Message})
	return data
}

// NewBadRequestError creates an error for a request the service cannot read.
func NewBadRequestError(message string) ProxyError {
	return ProxyError{
		Type:       ErrorBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewStoreUnavailableError creates an error for a failed reference lookup.
// Validation is never reported as partial; the whole request fails.
func NewStoreUnavailableError(cause error) ProxyError {
	return ProxyError{
		Type:       ErrorStoreUnavailable,
		Message:    "reference store unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewUpstreamUnavailableError creates an error for an unreachable upstream.
func NewUpstreamUnavailableError(cause error) ProxyError {
	return ProxyError{
		Type:       ErrorUpstreamUnavailable,
		Message:    "upstream unavailable",
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewUpstreamTimeoutError creates an error for an upstream that did not
// answer in time.
func NewUpstreamTimeoutError(cause error) ProxyError {
	return ProxyError{
		Type:       ErrorUpstreamTimeout,
		Message:    "upstream unavailable",
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewInternalError creates an error for an unexpected local failure.
func NewInternalError(cause error) ProxyError {
	return ProxyError{
		Type:       ErrorInternal,
		Message:    "internal error",
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewRelayError picks the timeout or unavailable classification.
func NewRelayError(timeout bool, cause error) ProxyError {
	if timeout {
		return NewUpstreamTimeoutError(cause)
	}
	return NewUpstreamUnavailableError(cause)
}
