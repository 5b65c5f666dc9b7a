package proxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyError_Error(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name    string
		err     ProxyError
		wantMsg string
	}{
		{
			name:    "bad request error",
			err:     NewBadRequestError("invalid JSON body"),
			wantMsg: "invalid JSON body",
		},
		{
			name:    "store error with cause",
			err:     NewStoreUnavailableError(cause),
			wantMsg: "reference store unavailable: dial tcp: connection refused",
		},
		{
			name:    "upstream error without cause",
			err:     NewUpstreamUnavailableError(nil),
			wantMsg: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestProxyError_StatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      ProxyError
		wantCode int
		wantType ProxyErrorType
	}{
		{
			name:     "bad request returns 400",
			err:      NewBadRequestError("x"),
			wantCode: 400,
			wantType: ErrorBadRequest,
		},
		{
			name:     "store unavailable returns 503",
			err:      NewStoreUnavailableError(nil),
			wantCode: 503,
			wantType: ErrorStoreUnavailable,
		},
		{
			name:     "upstream unavailable returns 502",
			err:      NewRelayError(false, nil),
			wantCode: 502,
			wantType: ErrorUpstreamUnavailable,
		},
		{
			name:     "upstream timeout returns 504",
			err:      NewRelayError(true, nil),
			wantCode: 504,
			wantType: ErrorUpstreamTimeout,
		},
		{
			name:     "internal returns 500",
			err:      NewInternalError(nil),
			wantCode: 500,
			wantType: ErrorInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.StatusCode)
			assert.Equal(t, tt.wantType, tt.err.Type)
		})
	}
}

func TestProxyError_Body(t *testing.T) {
	err := NewStoreUnavailableError(errors.New("secret dsn detail"))
	assert.JSONEq(t, `{"error":"reference store unavailable"}`, string(err.Body()))

	timeout := NewUpstreamTimeoutError(nil)
	assert.JSONEq(t, `{"error":"upstream unavailable"}`, string(timeout.Body()))
}

func TestProxyError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	var err error = NewStoreUnavailableError(cause)
	assert.ErrorIs(t, err, cause)

	var pe ProxyError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrorStoreUnavailable, pe.Type)
}

func TestProxyErrorType_String(t *testing.T) {
	assert.Equal(t, "store_unavailable", ErrorStoreUnavailable.String())
	assert.Equal(t, "upstream_timeout", ErrorUpstreamTimeout.String())
	assert.Equal(t, "internal", ProxyErrorType(99).String())
}
