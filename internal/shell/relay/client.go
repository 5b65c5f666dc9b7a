// Package relay forwards tracker submissions to the upstream DHIS2 instance
// and returns its response unmodified.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/villagelookup/internal/shell/metrics"
)

// TrackerPath is the upstream tracker import endpoint.
const TrackerPath = "/api/tracker"

const defaultContentType = "application/json"

// =============================================================================
// Errors
// =============================================================================

// ErrorKind classifies a relay failure.
type ErrorKind int

const (
	KindUnreachable ErrorKind = iota
	KindTimeout
)

func (k ErrorKind) String() string {
	if k == KindTimeout {
		return "timeout"
	}
	return "unreachable"
}

// Error is returned when no upstream response could be obtained.
// An upstream error status is not an Error; it is relayed as-is.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("relay %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a relay timeout.
func IsTimeout(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindTimeout
}

// =============================================================================
// Client
// =============================================================================

// Response is the upstream answer, byte-for-byte.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Config holds configuration for the relay client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default relay configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 60 * time.Second,
	}
}

// Client posts submissions to the upstream tracker endpoint. It never
// retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewClient creates a relay client. m may be nil.
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + TrackerPath,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// Ask for no encoding so the body comes back exactly as served.
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DisableCompression:  true,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		metrics: m,
	}
}

// Relay posts body to the tracker endpoint with the caller's raw query
// string. cookie is forwarded verbatim and omitted when empty. The only
// other header sent is Content-Type.
func (c *Client) Relay(ctx context.Context, body []byte, rawQuery, cookie string) (*Response, error) {
	url := c.endpoint
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	// An explicitly empty User-Agent suppresses Go's default.
	req.Header.Set("User-Agent", "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRelayLatency(time.Since(start))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read response: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        respBody,
	}, nil
}

func classify(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindUnreachable, Err: err}
}
