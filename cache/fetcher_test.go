package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/rustdoc/cache"
	"github.com/fwojciec/rustdoc/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func countingFetcher(calls *int) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string) (string, error) {
			*calls++
			return "body of " + url, nil
		},
		CloseFn: func() error { return nil },
	}
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("serves repeated fetches from memory", func(t *testing.T) {
		t.Parallel()

		var calls int
		c := &clock{now: time.Unix(1000, 0)}
		f := cache.NewFetcher(countingFetcher(&calls), cache.WithClock(c.Now))

		for range 3 {
			body, err := f.Fetch(context.Background(), "https://docs.rs/a")
			require.NoError(t, err)
			assert.Equal(t, "body of https://docs.rs/a", body)
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("keeps urls apart", func(t *testing.T) {
		t.Parallel()

		var calls int
		f := cache.NewFetcher(countingFetcher(&calls))

		a, err := f.Fetch(context.Background(), "https://docs.rs/a")
		require.NoError(t, err)
		b, err := f.Fetch(context.Background(), "https://docs.rs/b")
		require.NoError(t, err)

		assert.Equal(t, "body of https://docs.rs/a", a)
		assert.Equal(t, "body of https://docs.rs/b", b)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 2, f.Len())
	})

	t.Run("refetches once the ttl has passed", func(t *testing.T) {
		t.Parallel()

		var calls int
		c := &clock{now: time.Unix(1000, 0)}
		f := cache.NewFetcher(countingFetcher(&calls), cache.WithClock(c.Now), cache.WithTTL(time.Minute))

		_, err := f.Fetch(context.Background(), "https://docs.rs/a")
		require.NoError(t, err)

		c.Advance(59 * time.Second)
		_, err = f.Fetch(context.Background(), "https://docs.rs/a")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		c.Advance(time.Second)
		_, err = f.Fetch(context.Background(), "https://docs.rs/a")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("prunes expired entries on store", func(t *testing.T) {
		t.Parallel()

		var calls int
		c := &clock{now: time.Unix(1000, 0)}
		f := cache.NewFetcher(countingFetcher(&calls), cache.WithClock(c.Now), cache.WithTTL(time.Minute))

		_, err := f.Fetch(context.Background(), "https://docs.rs/a")
		require.NoError(t, err)
		c.Advance(2 * time.Minute)
		_, err = f.Fetch(context.Background(), "https://docs.rs/b")
		require.NoError(t, err)

		assert.Equal(t, 1, f.Len())
	})

	t.Run("does not cache failures", func(t *testing.T) {
		t.Parallel()

		var calls int
		inner := &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (string, error) {
				calls++
				return "", errors.New("network error")
			},
		}
		f := cache.NewFetcher(inner)

		for range 2 {
			_, err := f.Fetch(context.Background(), "https://docs.rs/a")
			require.Error(t, err)
		}
		assert.Equal(t, 2, calls)
		assert.Equal(t, 0, f.Len())
	})

	t.Run("disabled with a zero ttl", func(t *testing.T) {
		t.Parallel()

		var calls int
		f := cache.NewFetcher(countingFetcher(&calls), cache.WithTTL(0))

		for range 2 {
			_, err := f.Fetch(context.Background(), "https://docs.rs/a")
			require.NoError(t, err)
		}
		assert.Equal(t, 2, calls)
	})
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	var calls int
	closed := false
	inner := countingFetcher(&calls)
	inner.CloseFn = func() error {
		closed = true
		return nil
	}
	f := cache.NewFetcher(inner)

	_, err := f.Fetch(context.Background(), "https://docs.rs/a")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.True(t, closed)
	assert.Equal(t, 0, f.Len())
}
