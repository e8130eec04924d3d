package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher is the opaque remote read operation for a key.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Mutator is the opaque remote write operation; it returns the server's
// authoritative value for the mutated key.
type Mutator[V any] func(ctx context.Context, updates any) (V, error)

// Cache is a client-side query cache: it deduplicates concurrent fetches per
// key, serves stale data while revalidating in the background, supports
// optimistic mutations with rollback, prefix invalidation, and retention-
// based garbage collection. All methods are safe for concurrent use.
//
// Instances are constructed explicitly with New and passed around; there is
// no package-level singleton, so tests can run isolated caches side by side.
type Cache[V any] struct {
	s store[V]

	closed    atomic.Bool
	stop      chan struct{}
	closeOnce sync.Once
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics         -> NoopMetrics
//   - DefaultCacheTime 0  -> 5 minutes
//   - GCInterval 0        -> 1 minute (negative disables the sweep timer)
func New[V any](opt Options[V]) *Cache[V] {
	opt = opt.withDefaults()
	c := &Cache[V]{
		s:    store[V]{m: make(map[string]*entry[V]), opt: opt},
		stop: make(chan struct{}),
	}
	if opt.GCInterval > 0 {
		go c.gcLoop(opt.GCInterval)
	}
	return c
}

// Close stops the background sweeper and marks the cache closed. Future
// operations return ErrClosed or no-op; entries already handed out as
// snapshots stay valid.
func (c *Cache[V]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
	})
	return nil
}

// Len returns the number of resident entries.
func (c *Cache[V]) Len() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return len(c.s.m)
}

// Peek returns the current snapshot for k without fetching, touching
// freshness, or affecting retention.
func (c *Cache[V]) Peek(k Key) (Snapshot[V], bool) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	e, ok := c.s.getLocked(k)
	if !ok {
		return Snapshot[V]{}, false
	}
	return e.snapshot(), true
}

// staleTimeFor resolves the effective freshness window for one call.
func (c *Cache[V]) staleTimeFor(opt ReadOptions) time.Duration {
	if opt.StaleTime > 0 {
		return opt.StaleTime
	}
	return c.s.opt.DefaultStaleTime
}

// cacheTimeFor resolves the effective retention window for one call.
func (c *Cache[V]) cacheTimeFor(opt ReadOptions) time.Duration {
	if opt.CacheTime > 0 {
		return opt.CacheTime
	}
	return c.s.opt.DefaultCacheTime
}
