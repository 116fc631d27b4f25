// Package cache provides an in-memory TTL cache in front of a rustdoc.Fetcher.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/rustdoc"
)

// DefaultTTL is how long a fetched page is served from memory.
const DefaultTTL = 300 * time.Second

var _ rustdoc.Fetcher = (*Fetcher)(nil)

// Fetcher serves repeated fetches of the same URL from memory until the
// entry is older than the TTL. Failed fetches are never cached.
type Fetcher struct {
	next rustdoc.Fetcher
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[uint64]entry
}

type entry struct {
	url       string
	body      string
	fetchedAt time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTTL sets the cache lifetime. A non-positive TTL disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.ttl = ttl
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// NewFetcher wraps next with a TTL cache.
func NewFetcher(next rustdoc.Fetcher, opts ...Option) *Fetcher {
	f := &Fetcher{
		next:    next,
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[uint64]entry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the cached body for url if it is fresh, otherwise fetches
// it from the wrapped fetcher and remembers the result.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.ttl <= 0 {
		return f.next.Fetch(ctx, url)
	}

	key := xxhash.Sum64String(url)
	if body, ok := f.lookup(key, url); ok {
		return body, nil
	}

	fetchedAt := f.now()
	body, err := f.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prune(fetchedAt)
	f.entries[key] = entry{url: url, body: body, fetchedAt: fetchedAt}
	return body, nil
}

func (f *Fetcher) lookup(key uint64, url string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[key]
	if !ok || e.url != url || f.now().Sub(e.fetchedAt) >= f.ttl {
		return "", false
	}
	return e.body, true
}

// prune drops expired entries. The caller must hold mu.
func (f *Fetcher) prune(now time.Time) {
	for key, e := range f.entries {
		if now.Sub(e.fetchedAt) >= f.ttl {
			delete(f.entries, key)
		}
	}
}

// Len returns the number of entries currently held, fresh or not.
func (f *Fetcher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Close drops all entries and closes the wrapped fetcher.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	clear(f.entries)
	f.mu.Unlock()
	return f.next.Close()
}
