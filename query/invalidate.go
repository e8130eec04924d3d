package query

import (
	"context"
)

// refetchJob is an immediate-invalidation revalidation dispatched under the
// store lock and run after it is released.
type refetchJob[V any] struct {
	key   Key
	f     *flight[V]
	fetch Fetcher[V]
	opt   ReadOptions
}

// Invalidate marks every entry whose key has prefix as a leading subsequence
// stale, regardless of status. Data is never deleted — freshness is demoted,
// so the next access revalidates (use Evict or Clear to drop entries).
//
// With opt.Immediate, matched entries that have active subscribers and a
// known fetcher are refetched right away; others stay lazily stale. Returns
// the number of entries touched.
func (c *Cache[V]) Invalidate(prefix Key, opt InvalidateOptions) int {
	if c.closed.Load() {
		return 0
	}

	s := &c.s
	var jobs []refetchJob[V]

	s.mu.Lock()
	now := s.now()
	n := 0
	s.forEachMatchingPrefixLocked(prefix, func(e *entry[V]) {
		e.staleAfter = now
		n++
		s.publishLocked(e)
		if opt.Immediate && e.subscribed() && e.refetch != nil && e.flight == nil {
			f := c.dispatchLocked(e)
			jobs = append(jobs, refetchJob[V]{key: e.key, f: f, fetch: e.refetch, opt: e.refetchOpt})
		}
	})
	if n > 0 {
		s.opt.Metrics.Invalidate(n)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		go c.runFlight(context.Background(), j.key, j.f, j.fetch, j.opt)
	}
	return n
}

// Evict removes every entry matching the prefix outright, subscribers or
// not. Results of fetches still airborne for removed entries are discarded
// when they land. Returns the number of entries removed.
//
// This is invalidation-with-eviction: reach for it on hard resets such as
// sign-out, where serving the previous user's data even once is wrong.
func (c *Cache[V]) Evict(prefix Key) int {
	if c.closed.Load() {
		return 0
	}

	s := &c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []*entry[V]
	s.forEachMatchingPrefixLocked(prefix, func(e *entry[V]) {
		victims = append(victims, e)
	})
	for _, e := range victims {
		s.removeLocked(e, EvictExplicit)
	}
	return len(victims)
}

// Clear removes all entries. Equivalent to Evict with the zero-key prefix.
func (c *Cache[V]) Clear() {
	c.Evict(Key{})
}
