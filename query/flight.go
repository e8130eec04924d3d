package query

import (
	"context"
)

// flight is the handle for one in-flight fetch. The goroutine that created
// it (the leader) runs the fetcher and resolves the flight exactly once;
// concurrent callers for the same key join it and wait for the shared
// outcome instead of starting a second fetch.
//
// Concurrency notes:
//   - Publishing (snap, err) happens-before close(done), so reads after
//     <-done observe the final values.
//   - Cancelling ctx in a waiter unblocks only that waiter; it does NOT
//     cancel the leader's fetch. The leader threads its own ctx into the
//     fetcher.
//   - gen records the entry generation at dispatch. If a mutation bumps the
//     generation while the fetch is airborne, the result is discarded on
//     completion rather than applied (the flight still resolves, with the
//     entry's post-mutation snapshot, so waiters are never stranded).
type flight[V any] struct {
	done chan struct{} // closed when snap/err are published
	gen  uint64
	snap Snapshot[V]
	err  error
}

func newFlight[V any](gen uint64) *flight[V] {
	return &flight[V]{done: make(chan struct{}), gen: gen}
}

// resolve publishes the outcome and wakes all waiters. Must be called
// exactly once, by the leader.
func (f *flight[V]) resolve(snap Snapshot[V], err error) {
	f.snap, f.err = snap, err
	close(f.done)
}

// wait blocks until the flight resolves or ctx is cancelled.
func (f *flight[V]) wait(ctx context.Context) (Snapshot[V], error) {
	select {
	case <-f.done:
		return f.snap, f.err
	case <-ctx.Done():
		var zero Snapshot[V]
		return zero, ctx.Err()
	}
}
