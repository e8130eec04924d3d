package query

import (
	"sync"
	"time"
)

// store owns the key → entry map. It is the only mutable shared state in the
// cache and is guarded by a single mutex so that entry transitions (and the
// notifications they publish) are linearizable: subscribers observe every
// key's states in the exact order they were committed.
//
// Executors (fetch/mutate/invalidate/gc) lock mu directly for compound
// check-then-act sections; simple transitions go through upsert.
type store[V any] struct {
	mu  sync.Mutex
	m   map[string]*entry[V]
	opt Options[V] // defaults applied by New
}

// now returns the current UnixNano from the configured clock.
func (s *store[V]) now() int64 {
	if s.opt.Clock != nil {
		return s.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// getOrCreateLocked returns the entry for k, creating an Idle one lazily.
// Entries created without a subscriber start with an eviction deadline so
// one-shot reads cannot pin memory forever.
func (s *store[V]) getOrCreateLocked(k Key, now int64) *entry[V] {
	if e, ok := s.m[k.id]; ok {
		return e
	}
	e := &entry[V]{
		key:        k,
		status:     StatusIdle,
		cacheTime:  s.opt.DefaultCacheTime,
		evictAfter: now + int64(s.opt.DefaultCacheTime),
	}
	s.m[k.id] = e
	s.opt.Metrics.Size(len(s.m))
	return e
}

// get returns the entry for k without creating one.
func (s *store[V]) getLocked(k Key) (*entry[V], bool) {
	e, ok := s.m[k.id]
	return e, ok
}

// upsert applies a transition function to the entry for k (creating it if
// absent) and publishes the resulting snapshot to subscribers.
func (s *store[V]) upsert(k Key, fn func(e *entry[V])) Snapshot[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.getOrCreateLocked(k, s.now())
	fn(e)
	return s.publishLocked(e)
}

// publishLocked snapshots the entry and delivers the snapshot to all current
// subscribers in subscription order.
//
// Delivery happens under the store lock so per-key ordering matches commit
// order exactly; callbacks must be lightweight and must not call back into
// the cache.
func (s *store[V]) publishLocked(e *entry[V]) Snapshot[V] {
	snap := e.snapshot()
	for _, sub := range e.subs {
		sub.fn(snap)
	}
	return snap
}

// removeLocked evicts the entry, firing metrics and the OnEvict callback.
func (s *store[V]) removeLocked(e *entry[V], reason EvictReason) {
	delete(s.m, e.key.id)
	s.opt.Metrics.Evict(reason)
	s.opt.Metrics.Size(len(s.m))
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the lock, like publish; keep it lightweight.
		cb(e.key, reason)
	}
}

// forEachMatchingPrefixLocked visits every entry whose key has prefix as a
// leading subsequence, exactly once each, in no particular order.
func (s *store[V]) forEachMatchingPrefixLocked(prefix Key, fn func(e *entry[V])) {
	for _, e := range s.m {
		if e.key.HasPrefix(prefix) {
			fn(e)
		}
	}
}
