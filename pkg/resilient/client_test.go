package resilient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c := NewClient(opts...)
	t.Cleanup(c.Close)
	return c
}

func TestFetchSuccessStoresSnapshot(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	result := Fetch(context.Background(), c, func(context.Context) (string, error) {
		return "dashboard", nil
	}, Options[string]{CacheKey: "dash"})

	assert.NoError(result.Err)
	assert.Equal("dashboard", result.Data)
	assert.False(result.IsUsingFallback)
	assert.Zero(result.RetryCount)

	cached, ok := lookup[string](c, "dash")
	assert.True(ok)
	assert.Equal("dashboard", cached)
}

func TestFetchFallsBackToSuppliedValue(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	fallback := []string{"cached", "items"}
	result := Fetch(context.Background(), c, func(context.Context) ([]string, error) {
		return nil, errRefused
	}, Options[[]string]{
		CacheKey:   "items",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Fallback:   &fallback,
	})

	assert.True(result.IsUsingFallback)
	assert.True(result.IsDatabaseError)
	assert.Equal(fallback, result.Data)
	assert.Equal(1, result.RetryCount)
	assert.NoError(result.Err, "a served fallback is a success, not an error")
}

func TestFetchSurfacesErrorWithoutFallback(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	result := Fetch(context.Background(), c, func(context.Context) (int, error) {
		return 0, errRefused
	}, Options[int]{MaxRetries: 2, RetryDelay: time.Millisecond})

	assert.Error(result.Err)
	assert.True(result.IsDatabaseError)
	assert.False(result.IsUsingFallback)
	assert.Equal(2, result.RetryCount)
}

func TestFetchRecoversOnRetry(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	var calls int32
	result := Fetch(context.Background(), c, func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errRefused
		}
		return "recovered", nil
	}, Options[string]{MaxRetries: 3, RetryDelay: time.Millisecond})

	assert.NoError(result.Err)
	assert.Equal("recovered", result.Data)
	assert.Equal(1, result.RetryCount)
}

func TestFetchNeverRetriesNonTransientErrors(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	var calls int32
	validationErr := errors.New("title is required")
	result := Fetch(context.Background(), c, func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", validationErr
	}, Options[string]{MaxRetries: 5, RetryDelay: time.Millisecond})

	assert.ErrorIs(result.Err, validationErr)
	assert.False(result.IsDatabaseError)
	assert.EqualValues(1, atomic.LoadInt32(&calls))
}

func TestFetchServesStaleSnapshotWhileDegraded(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	// Prime the snapshot, then degrade the store.
	healthy := Fetch(context.Background(), c, func(context.Context) (string, error) {
		return "fresh", nil
	}, Options[string]{CacheKey: "feed"})
	assert.NoError(healthy.Err)

	degraded := Fetch(context.Background(), c, func(context.Context) (string, error) {
		return "", errRefused
	}, Options[string]{CacheKey: "feed", MaxRetries: 1, RetryDelay: time.Minute})

	assert.NoError(degraded.Err)
	assert.Equal("fresh", degraded.Data)
	assert.True(degraded.IsUsingFallback)
	assert.True(degraded.IsDatabaseError)
	assert.Zero(degraded.RetryCount, "a served snapshot defers retries to the background")
}

func TestBackgroundRefreshWarmsCache(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	healthy := Fetch(context.Background(), c, func(context.Context) (string, error) {
		return "v1", nil
	}, Options[string]{CacheKey: "feed"})
	assert.NoError(healthy.Err)

	var calls int32
	degraded := Fetch(context.Background(), c, func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errRefused
		}
		return "v2", nil
	}, Options[string]{CacheKey: "feed", MaxRetries: 2, RetryDelay: time.Millisecond})
	assert.Equal("v1", degraded.Data)

	assert.Eventually(func() bool {
		cached, ok := lookup[string](c, "feed")
		return ok && cached == "v2"
	}, time.Second, 5*time.Millisecond, "background retry should refresh the snapshot")
}

func TestCacheFreshnessBoundary(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.store("key", 7)

	c.now = func() time.Time { return base.Add(FreshnessWindow - time.Millisecond) }
	value, ok := lookup[int](c, "key")
	assert.True(ok, "entry just inside the window is served")
	assert.Equal(7, value)

	c.now = func() time.Time { return base.Add(FreshnessWindow + time.Millisecond) }
	_, ok = lookup[int](c, "key")
	assert.False(ok, "entry just past the window is discarded")

	// The expired entry was dropped on read.
	c.now = func() time.Time { return base }
	_, ok = lookup[int](c, "key")
	assert.False(ok)
}

func TestConcurrentFetchesShareOneRequest(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	var calls int32
	fetcher := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return "shared", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := Fetch(context.Background(), c, fetcher, Options[string]{CacheKey: "shared"})
			assert.Equal("shared", result.Data)
		}()
	}
	wg.Wait()

	assert.EqualValues(1, atomic.LoadInt32(&calls), "in-flight fetches for one key coalesce")
}

func TestWithClassifierRecognizesTypedErrors(t *testing.T) {
	assert := assert.New(t)

	errDown := errors.New("replica set lagging")
	c := newTestClient(t, WithClassifier(func(err error) bool {
		return errors.Is(err, errDown)
	}))

	fallback := "stale"
	result := Fetch(context.Background(), c, func(context.Context) (string, error) {
		return "", fmt.Errorf("list feed: %w", errDown)
	}, Options[string]{Fallback: &fallback})

	assert.True(result.IsDatabaseError)
	assert.Equal("stale", result.Data)
}

func TestIsUnavailableClassification(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsUnavailable(errRefused))
	assert.True(IsUnavailable(context.DeadlineExceeded))
	assert.True(IsUnavailable(fmt.Errorf("query: %w", ErrUnavailable)))
	assert.True(IsUnavailable(errors.New("server selection error: context deadline exceeded")))
	assert.False(IsUnavailable(errors.New("duplicate key value violates unique constraint")))
	assert.False(IsUnavailable(nil))
}

func TestCloseStopsPendingRefresh(t *testing.T) {
	assert := assert.New(t)
	c := NewClient()

	healthy := Fetch(context.Background(), c, func(context.Context) (string, error) {
		return "v1", nil
	}, Options[string]{CacheKey: "feed"})
	assert.NoError(healthy.Err)

	var calls int32
	Fetch(context.Background(), c, func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errRefused
	}, Options[string]{CacheKey: "feed", MaxRetries: 3, RetryDelay: time.Hour})

	// The refresh is waiting on an hour-long timer; Close must not hang.
	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close should cancel the pending retry timer")
	}
}
