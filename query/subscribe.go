package query

import (
	"sync"
)

// Subscribe registers onChange to observe every state transition of k's
// entry, in subscription order, synchronously after each store commit.
// Subscribing creates the entry (Idle) if it does not exist and pins it
// against eviction for as long as at least one subscriber remains.
//
// onChange runs under the store lock: it must be fast and must not call back
// into the cache (hand work off to a channel or goroutine instead).
//
// The returned function removes the subscription; it is idempotent. When the
// last subscriber leaves, the retention countdown (cacheTime) starts.
func (c *Cache[V]) Subscribe(k Key, onChange func(Snapshot[V])) (unsubscribe func()) {
	if c.closed.Load() || onChange == nil {
		return func() {}
	}

	s := &c.s
	sub := &subscriber[V]{fn: onChange}

	s.mu.Lock()
	e := s.getOrCreateLocked(k, s.now())
	e.subs = append(e.subs, sub)
	e.evictAfter = 0 // pinned while observed
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			e, ok := s.getLocked(k)
			if !ok {
				s.mu.Unlock()
				return
			}
			for i, cur := range e.subs {
				if cur == sub {
					e.subs = append(e.subs[:i], e.subs[i+1:]...)
					break
				}
			}
			if !e.subscribed() {
				e.evictAfter = s.now() + int64(e.cacheTime)
			}
			s.mu.Unlock()

			// Opportunistic sweep so retention works even with the timer
			// disabled.
			c.sweep()
		})
	}
}
