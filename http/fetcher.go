// Package http provides an HTTP-based implementation of rustdoc.Fetcher
// for retrieving rendered rustdoc pages from docs.rs.
package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/rustdoc"
	"golang.org/x/time/rate"
)

// DefaultFetchTimeout is the default timeout for a single HTTP request.
const DefaultFetchTimeout = 20 * time.Second

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "rustdoc-mcp"

// AcceptHeader is sent with every request.
const AcceptHeader = "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8"

// DefaultRetryDelays returns the backoff delays used after a 429 or 5xx
// response: 500ms, then 1s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{500 * time.Millisecond, 1 * time.Second}
}

// Ensure Fetcher implements rustdoc.Fetcher at compile time.
var _ rustdoc.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML content from URLs using HTTP GET requests.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	limiter   *rate.Limiter
	delays    []time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (20s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRateLimit limits outgoing requests to rps per second with no
// bursting. A non-positive rps disables limiting.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryDelays sets the delays between attempts after a retryable
// response. An empty slice disables retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(f *Fetcher) {
		f.delays = delays
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
		delays:    DefaultRetryDelays(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the body of the given URL as text. Responses with status
// 429 or 5xx are retried with backoff. Failures carry rustdoc.EFETCH, or
// rustdoc.ENOTFOUND for a 404.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	maxAttempts := len(f.delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, retry, err := f.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retry || attempt >= maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", rustdoc.Errorf(rustdoc.EFETCH, "failed to reach %s: %v", url, ctx.Err())
		case <-time.After(f.delays[attempt]):
		}
	}

	return "", lastErr
}

// fetch performs a single request and reports whether a failure is worth
// retrying.
func (f *Fetcher) fetch(ctx context.Context, url string) (string, bool, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", false, rustdoc.Errorf(rustdoc.EFETCH, "failed to reach %s: %v", url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, rustdoc.Errorf(rustdoc.EFETCH, "invalid url %s: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", AcceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", false, rustdoc.Errorf(rustdoc.EFETCH, "failed to reach %s: %v", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", false, rustdoc.Errorf(rustdoc.ENOTFOUND, "HTTP %d for %s", resp.StatusCode, url)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return "", true, rustdoc.Errorf(rustdoc.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
	case resp.StatusCode != http.StatusOK:
		return "", false, rustdoc.Errorf(rustdoc.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, rustdoc.Errorf(rustdoc.EFETCH, "failed to read %s: %v", url, err)
	}

	return strings.ToValidUTF8(string(body), "\uFFFD"), false, nil
}

// Close releases resources. For HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}
