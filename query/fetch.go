package query

import (
	"context"

	"github.com/avoronkov/querycache/retry"
)

// Read is the primary query primitive.
//
// Behavior by entry state:
//   - fresh Success         -> returned immediately, fetcher not invoked.
//   - stale data present    -> stale snapshot returned immediately; a
//     background revalidation is started (or joined) for the key.
//   - no usable data        -> the caller blocks until the fetch resolves,
//     joining an existing flight if one is airborne (N concurrent readers
//     cost exactly one fetcher call).
//
// The returned error is non-nil only when the caller had to block and the
// fetch failed terminally; background-refresh failures surface through
// StatusError on later snapshots instead. Cancelling ctx abandons the wait
// but never the shared fetch.
func (c *Cache[V]) Read(ctx context.Context, k Key, fetch Fetcher[V], opt ReadOptions) (Snapshot[V], error) {
	if c.closed.Load() {
		return Snapshot[V]{Key: k}, ErrClosed
	}

	s := &c.s
	s.mu.Lock()
	now := s.now()
	e := s.getOrCreateLocked(k, now)
	c.touchLocked(e, now, fetch, opt)

	if opt.Disabled {
		snap := e.snapshot()
		s.mu.Unlock()
		return snap, nil
	}

	if e.fresh(now) {
		s.opt.Metrics.Hit()
		snap := e.snapshot()
		s.mu.Unlock()
		return snap, nil
	}

	// Stale or missing. Join the in-flight fetch if one exists.
	if f := e.flight; f != nil {
		s.opt.Metrics.FetchJoin()
		if e.hasData {
			s.opt.Metrics.Stale()
			snap := e.snapshot()
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()
		return f.wait(ctx)
	}

	if fetch == nil {
		snap := e.snapshot()
		s.mu.Unlock()
		if snap.HasData {
			return snap, nil
		}
		return snap, ErrNoFetcher
	}

	f := c.dispatchLocked(e)

	if e.hasData {
		// Stale-while-revalidate: serve the old value now, refresh behind it.
		s.opt.Metrics.Stale()
		snap := e.snapshot()
		s.mu.Unlock()
		go c.runFlight(context.WithoutCancel(ctx), k, f, fetch, opt)
		return snap, nil
	}

	s.opt.Metrics.Miss()
	s.mu.Unlock()
	// Detach the flight from the caller's cancellation: other readers may
	// join it, so one impatient caller must not kill the shared fetch.
	go c.runFlight(context.WithoutCancel(ctx), k, f, fetch, opt)
	return f.wait(ctx)
}

// Prefetch warms the cache for k with the same dedup and staleness rules as
// Read, without attaching a subscriber or waiting for the result.
func (c *Cache[V]) Prefetch(ctx context.Context, k Key, fetch Fetcher[V], opt ReadOptions) {
	if c.closed.Load() || opt.Disabled || fetch == nil {
		return
	}

	s := &c.s
	s.mu.Lock()
	now := s.now()
	e := s.getOrCreateLocked(k, now)
	c.touchLocked(e, now, fetch, opt)

	if e.fresh(now) || e.flight != nil {
		s.mu.Unlock()
		return
	}

	f := c.dispatchLocked(e)
	s.mu.Unlock()
	go c.runFlight(context.WithoutCancel(ctx), k, f, fetch, opt)
}

// touchLocked records per-call configuration on the entry and refreshes the
// retention deadline of unsubscribed entries on every access.
func (c *Cache[V]) touchLocked(e *entry[V], now int64, fetch Fetcher[V], opt ReadOptions) {
	e.cacheTime = c.cacheTimeFor(opt)
	if fetch != nil {
		e.refetch = fetch
		e.refetchOpt = opt
	}
	if !e.subscribed() {
		e.evictAfter = now + int64(e.cacheTime)
	}
}

// dispatchLocked installs a new flight on the entry and publishes the
// transition. The entry keeps serving previous data while fetching; only a
// first-ever fetch shows StatusLoading.
func (c *Cache[V]) dispatchLocked(e *entry[V]) *flight[V] {
	f := newFlight[V](e.gen)
	e.flight = f
	if !e.hasData {
		e.status = StatusLoading
		e.err = nil
	}
	c.s.opt.Metrics.FetchStart()
	c.s.publishLocked(e)
	return f
}

// runFlight executes the fetcher (optionally under the caller's retry
// policy) and settles the flight. Runs on its own goroutine.
func (c *Cache[V]) runFlight(ctx context.Context, k Key, f *flight[V], fetch Fetcher[V], opt ReadOptions) {
	var (
		v        V
		err      error
		attempts = 1
	)
	if opt.Retry != nil {
		v, attempts, err = retry.Do(ctx, *opt.Retry, fetch)
	} else {
		v, err = fetch(ctx)
	}
	c.settleFlight(k, f, v, err, attempts, opt)
}

// settleFlight applies a completed fetch to the store, unless the flight was
// superseded while airborne, and resolves the flight for any waiters.
func (c *Cache[V]) settleFlight(k Key, f *flight[V], v V, err error, attempts int, opt ReadOptions) {
	s := &c.s
	s.mu.Lock()

	e, ok := s.getLocked(k)
	if !ok || e.flight != f {
		// The entry was explicitly evicted (or replaced) while the fetch was
		// airborne. Hand waiters the raw outcome without caching it.
		s.opt.Metrics.FetchDiscard()
		s.mu.Unlock()
		if err != nil {
			f.resolve(Snapshot[V]{Key: k}, &FetchError{Key: k, Attempts: attempts, Err: err})
			return
		}
		f.resolve(Snapshot[V]{Key: k, Data: v, HasData: true, Status: StatusSuccess}, nil)
		return
	}

	e.flight = nil

	if e.gen != f.gen {
		// A mutation touched the key after this fetch started. Its result
		// may be older than the optimistic/authoritative value now in the
		// entry, so it is discarded; waiters get the current state.
		s.opt.Metrics.FetchDiscard()
		if e.status == StatusLoading {
			e.status = StatusIdle
		}
		snap := s.publishLocked(e)
		s.mu.Unlock()
		f.resolve(snap, nil)
		return
	}

	now := s.now()

	if err != nil {
		ferr := &FetchError{Key: k, Attempts: attempts, Err: err}
		// Keep last-good data: stale data plus an error banner beats a
		// blank screen.
		e.status = StatusError
		e.err = ferr
		s.opt.Metrics.FetchError()
		snap := s.publishLocked(e)
		s.mu.Unlock()
		f.resolve(snap, ferr)
		return
	}

	e.data, e.hasData = v, true
	e.status = StatusSuccess
	e.err = nil
	e.fetchedAt = now
	e.staleAfter = now + int64(c.staleTimeFor(opt))
	if !e.subscribed() {
		e.evictAfter = now + int64(e.cacheTime)
	}
	snap := s.publishLocked(e)
	s.mu.Unlock()
	f.resolve(snap, nil)
}
