package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// defaultUserAgent mimics pip so mirrors that gate on client identity
// serve us the same content they serve installers.
const defaultUserAgent = "pip/24.0 (pypi-downloader)"

// StatusError reports a non-2xx HTTP response. Any status error is
// retryable against another mirror: a 404 from one mirror often just
// means that mirror has not synced the file yet.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// Options configures the client.
type Options struct {
	// ConnectTimeout bounds dialing. Default: 60s.
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for response headers. There is no
	// overall request deadline. Default: 60s.
	ReadTimeout time.Duration

	// UserAgent overrides the pip-style default.
	UserAgent string
}

// DefaultOptions returns options matching the mirror timeout policy.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 60 * time.Second,
		ReadTimeout:    60 * time.Second,
	}
}

// Client is an HTTP client for metadata and artifact requests.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client with the given options.
func NewClient(opts Options) *Client {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 60 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		userAgent:  ua,
	}
}

// Get performs a GET request and returns the full response body.
// Non-2xx responses yield a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// IsTransient reports whether err warrants retrying against another
// mirror. Connection failures, timeouts, truncated bodies, and HTTP
// status errors all rotate; context cancellation never does.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
