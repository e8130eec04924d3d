package query

import (
	"context"
)

// prevState is the Begin-phase snapshot used to roll an entry back when the
// remote write fails.
type prevState[V any] struct {
	data       V
	hasData    bool
	status     Status
	err        error
	fetchedAt  int64
	staleAfter int64
}

// Mutate runs a remote write for k with the optimistic-update protocol:
//
//  1. Begin: the entry's generation is bumped so any airborne read fetch for
//     k is discarded on completion instead of clobbering the write, and the
//     current state is snapshotted for rollback.
//  2. Optimistic apply: if opt.Apply is set and the entry has data, the
//     presumed result is stored and published immediately, before the
//     network call resolves.
//  3. The mutator runs.
//  4. On success the server's authoritative response replaces the optimistic
//     guess (server-side transformations win).
//  5. On failure the entry is rolled back to the Begin snapshot and a
//     MutationError is returned.
//  6. Settle (always): k and opt.Invalidates are invalidated so the next
//     read re-synchronizes with the source of truth; entries with active
//     subscribers refetch immediately.
func (c *Cache[V]) Mutate(ctx context.Context, k Key, updates any, opt MutateOptions[V]) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	if opt.Mutator == nil {
		return zero, ErrNoMutator
	}

	s := &c.s

	// Begin + optimistic apply.
	s.mu.Lock()
	now := s.now()
	e := s.getOrCreateLocked(k, now)
	e.gen++
	e.pending++
	gen := e.gen
	prev := prevState[V]{
		data:       e.data,
		hasData:    e.hasData,
		status:     e.status,
		err:        e.err,
		fetchedAt:  e.fetchedAt,
		staleAfter: e.staleAfter,
	}
	if opt.Apply != nil && e.hasData {
		e.data = opt.Apply(e.data, updates)
		e.status = StatusSuccess
		e.err = nil
		s.publishLocked(e)
	}
	s.mu.Unlock()

	// Network call.
	result, mutErr := opt.Mutator(ctx, updates)

	// Commit or roll back.
	s.mu.Lock()
	cur, ok := s.getLocked(k)
	if ok && cur == e {
		e.pending--
		if e.gen == gen {
			// No later mutation superseded this one.
			if mutErr != nil {
				e.data = prev.data
				e.hasData = prev.hasData
				e.status = prev.status
				e.err = prev.err
				e.fetchedAt = prev.fetchedAt
				e.staleAfter = prev.staleAfter
				s.opt.Metrics.MutationRollback()
			} else {
				e.data, e.hasData = result, true
				e.status = StatusSuccess
				e.err = nil
				e.fetchedAt = s.now()
				e.staleAfter = e.fetchedAt + int64(c.staleTimeFor(e.refetchOpt))
				s.opt.Metrics.MutationCommit()
			}
			s.publishLocked(e)
		}
	}
	s.mu.Unlock()

	// Settle: unconditional invalidation of the key and its dependents.
	c.Invalidate(k, InvalidateOptions{Immediate: true})
	for _, dep := range opt.Invalidates {
		c.Invalidate(dep, InvalidateOptions{Immediate: true})
	}

	if mutErr != nil {
		return zero, &MutationError{Key: k, Err: mutErr}
	}
	return result, nil
}
