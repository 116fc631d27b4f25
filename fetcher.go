package rustdoc

import "context"

// Fetcher retrieves raw page text from URLs.
type Fetcher interface {
	// Fetch performs a GET request and returns the response body.
	// Failures to reach the host or non-200 responses return EFETCH.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (body string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}
