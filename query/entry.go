package query

import (
	"time"
)

// Status describes the fetch lifecycle of an entry.
// Staleness is a separate dimension: a StatusSuccess entry may be past its
// staleAfter deadline and due for a background refresh while still servable.
type Status int

const (
	// StatusIdle — entry exists but no fetch has ever been started
	// (created by Subscribe or a Disabled read).
	StatusIdle Status = iota
	// StatusLoading — first fetch in flight, no previous data to serve.
	StatusLoading
	// StatusSuccess — last fetch succeeded; Data is present.
	StatusSuccess
	// StatusError — last fetch failed; Err is present. Data from an earlier
	// successful fetch is preserved so consumers can keep rendering it.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of one entry, returned by Read/Peek and
// delivered to subscribers. Data is only meaningful when HasData is true.
type Snapshot[V any] struct {
	Key        Key
	Data       V
	HasData    bool
	Status     Status
	Err        error
	IsFetching bool
	FetchedAt  time.Time
	StaleAt    time.Time
}

// Stale reports whether the snapshot's data was already past its freshness
// window at the time the snapshot was taken.
func (s Snapshot[V]) Stale(now time.Time) bool {
	return s.HasData && !s.StaleAt.After(now)
}

// subscriber is one registered onChange callback. Pointer identity is used
// to remove it on unsubscribe, so the same function may be subscribed twice.
type subscriber[V any] struct {
	fn func(Snapshot[V])
}

// entry is the store-owned record for one key. All fields are guarded by the
// store mutex; nothing outside store.go and the executors may touch them
// without holding it.
type entry[V any] struct {
	key     Key
	data    V
	hasData bool
	status  Status
	err     error

	fetchedAt  int64 // UnixNano of last successful fetch; 0 = never
	staleAfter int64 // fetchedAt + staleTime; 0 = immediately stale
	evictAfter int64 // eviction deadline while unsubscribed; 0 = none set

	// cacheTime is the retention window from the most recent Read/Prefetch,
	// applied when the last subscriber leaves.
	cacheTime time.Duration

	// gen is bumped by every mutation Begin phase. A completing fetch whose
	// captured generation differs is discarded instead of applied, so an old
	// read can never clobber a newer optimistic or authoritative value.
	gen uint64

	// flight is the single in-flight fetch for this key, if any.
	// Invariant: never more than one per entry; late callers join it.
	flight *flight[V]

	// pending counts mutations between their Begin and settle phases.
	// Like an in-flight fetch, a pending mutation pins the entry against
	// garbage collection so the settle phase always finds it.
	pending int

	// subs in subscription order; notifications are delivered in this order.
	subs []*subscriber[V]

	// Last fetcher and options seen for this key, kept so immediate
	// invalidation can refetch entries that still have subscribers.
	refetch    Fetcher[V]
	refetchOpt ReadOptions
}

// snapshot materializes the caller-visible view. Store mutex must be held.
func (e *entry[V]) snapshot() Snapshot[V] {
	s := Snapshot[V]{
		Key:        e.key,
		Data:       e.data,
		HasData:    e.hasData,
		Status:     e.status,
		Err:        e.err,
		IsFetching: e.flight != nil,
	}
	if e.fetchedAt != 0 {
		s.FetchedAt = time.Unix(0, e.fetchedAt)
	}
	if e.staleAfter != 0 {
		s.StaleAt = time.Unix(0, e.staleAfter)
	}
	return s
}

// fresh reports whether the entry can be served without a fetch.
// Only successful data inside its freshness window counts; an Error status
// is always due for a refetch even when stale data is preserved.
func (e *entry[V]) fresh(now int64) bool {
	return e.status == StatusSuccess && e.hasData && now < e.staleAfter
}

// subscribed reports whether anyone is observing the entry.
func (e *entry[V]) subscribed() bool { return len(e.subs) > 0 }
