// Package resilient wraps idempotent read operations with bounded retries,
// unavailability classification, and a snapshot cache, so that dashboards
// stay usable while the backing store is degraded.
package resilient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FreshnessWindow is how long a cached snapshot stays servable. Expired
// entries are discarded on read, not proactively swept.
const FreshnessWindow = 10 * time.Minute

type cacheEntry struct {
	payload  any
	storedAt time.Time
}

// Client coordinates resilient fetches. Concurrent fetches that share a
// cache key are coalesced into one underlying request. Close cancels any
// pending background refreshes.
type Client struct {
	mu         sync.Mutex
	cache      map[string]cacheEntry
	refreshing map[string]bool

	group    singleflight.Group
	classify Classifier

	lifetime context.Context
	teardown context.CancelFunc
	wg       sync.WaitGroup

	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithClassifier adds an extra unavailability check ahead of the built-in
// classification, letting storage layers contribute their typed error kinds.
func WithClassifier(classify Classifier) Option {
	return func(c *Client) {
		base := c.classify
		c.classify = func(err error) bool {
			return classify(err) || base(err)
		}
	}
}

// NewClient creates a resilient fetch client.
func NewClient(opts ...Option) *Client {
	lifetime, teardown := context.WithCancel(context.Background())
	c := &Client{
		cache:      make(map[string]cacheEntry),
		refreshing: make(map[string]bool),
		classify:   IsUnavailable,
		lifetime:   lifetime,
		teardown:   teardown,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels pending background refreshes and waits for them to stop.
// In-flight fetches are not aborted; wrapped operations are idempotent reads.
func (c *Client) Close() {
	c.teardown()
	c.wg.Wait()
}

// Options tunes a single fetch.
type Options[T any] struct {
	// CacheKey identifies the snapshot cache slot. Empty disables caching
	// and coalescing for this fetch.
	CacheKey string
	// MaxRetries bounds retry attempts after the initial request.
	MaxRetries int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// Fallback is served when the store is unavailable and no fresh
	// snapshot exists.
	Fallback *T
}

// Result is the outcome of a resilient fetch.
type Result[T any] struct {
	Data T
	Err  error
	// IsDatabaseError marks that the final failure was classified as store
	// unavailability, so callers can render a degraded-mode indicator.
	IsDatabaseError bool
	// IsUsingFallback marks that Data came from the snapshot cache or the
	// supplied fallback rather than the store.
	IsUsingFallback bool
	RetryCount      int
}

// Fetch runs fn with retry, classification, and fallback semantics.
//
// A classified unavailability first tries the snapshot cache: a fresh hit is
// served immediately as fallback data while a bounded background refresh
// warms the cache. With no snapshot, bounded synchronous retries run, then
// the supplied fallback, then the error itself with IsDatabaseError set.
// Errors that do not classify as unavailability (validation, authorization)
// surface unchanged and are never retried.
func Fetch[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error), opts Options[T]) Result[T] {
	value, err := fetchOnce(ctx, c, opts.CacheKey, fn)
	if err == nil {
		c.store(opts.CacheKey, value)
		return Result[T]{Data: value}
	}
	if !c.classify(err) {
		return Result[T]{Err: err}
	}

	if cached, ok := lookup[T](c, opts.CacheKey); ok {
		scheduleRefresh(c, opts.CacheKey, opts.MaxRetries, opts.RetryDelay, fn)
		return Result[T]{Data: cached, IsDatabaseError: true, IsUsingFallback: true}
	}

	retries := 0
	for retries < opts.MaxRetries {
		retries++
		if waitErr := wait(ctx, opts.RetryDelay); waitErr != nil {
			break
		}
		value, err = fetchOnce(ctx, c, opts.CacheKey, fn)
		if err == nil {
			c.store(opts.CacheKey, value)
			return Result[T]{Data: value, RetryCount: retries}
		}
		if !c.classify(err) {
			return Result[T]{Err: err, RetryCount: retries}
		}
	}

	if opts.Fallback != nil {
		return Result[T]{
			Data:            *opts.Fallback,
			IsDatabaseError: true,
			IsUsingFallback: true,
			RetryCount:      retries,
		}
	}
	return Result[T]{Err: err, IsDatabaseError: true, RetryCount: retries}
}

// fetchOnce runs fn, coalescing concurrent calls that share a cache key
// into one underlying request.
func fetchOnce[T any](ctx context.Context, c *Client, key string, fn func(context.Context) (T, error)) (T, error) {
	if key == "" {
		return fn(ctx)
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// scheduleRefresh retries fn in the background until it succeeds or the
// retry budget runs out, warming the cache for subsequent reads. At most one
// refresh runs per key; teardown cancels pending waits.
func scheduleRefresh[T any](c *Client, key string, maxRetries int, delay time.Duration, fn func(context.Context) (T, error)) {
	if key == "" || maxRetries <= 0 {
		return
	}

	c.mu.Lock()
	if c.refreshing[key] {
		c.mu.Unlock()
		return
	}
	c.refreshing[key] = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.refreshing, key)
			c.mu.Unlock()
		}()

		for attempt := 0; attempt < maxRetries; attempt++ {
			if wait(c.lifetime, delay) != nil {
				return
			}
			if value, err := fn(c.lifetime); err == nil {
				c.store(key, value)
				return
			}
		}
	}()
}

func (c *Client) store(key string, payload any) {
	if key == "" {
		return
	}
	c.mu.Lock()
	c.cache[key] = cacheEntry{payload: payload, storedAt: c.now()}
	c.mu.Unlock()
}

// lookup returns a cached snapshot if one exists inside the freshness
// window. Expired entries are deleted on the spot.
func lookup[T any](c *Client, key string) (T, bool) {
	var zero T
	if key == "" {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(entry.storedAt) >= FreshnessWindow {
		delete(c.cache, key)
		return zero, false
	}
	value, ok := entry.payload.(T)
	return value, ok
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
