package query

import (
	"time"

	"github.com/avoronkov/querycache/retry"
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - nil Metrics          => NoopMetrics
//   - DefaultCacheTime 0   => 5 minutes
//   - GCInterval 0         => 1 minute
type Options[V any] struct {
	// DefaultStaleTime is the freshness window applied when ReadOptions does
	// not provide one. Zero means entries are stale as soon as they land and
	// every read past the first triggers a background revalidation.
	DefaultStaleTime time.Duration

	// DefaultCacheTime is the retention window after the last subscriber
	// leaves (and after unsubscribed reads), before the entry becomes
	// eligible for eviction.
	DefaultCacheTime time.Duration

	// GCInterval is the period of the background sweep. Negative disables
	// the timer entirely; sweeps then only happen opportunistically on
	// unsubscribe.
	GCInterval time.Duration

	// MaxEntries caps the number of idle (zero-subscriber, not in-flight)
	// entries. When exceeded, the sweeper evicts idle entries earliest
	// eviction deadline first, before their retention elapses. 0 = unbounded.
	MaxEntries int

	// Observability.
	// OnEvict is called on eviction under the store lock; keep callbacks
	// lightweight and never call back into the cache from them.
	OnEvict func(k Key, reason EvictReason)
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}

// ReadOptions tunes a single Read/Prefetch call. The zero value means:
// enabled, cache defaults for both windows, single fetch attempt.
type ReadOptions struct {
	// StaleTime overrides Options.DefaultStaleTime for this key (0 = use the
	// default). Volatile aggregates want seconds; slow-moving profile data
	// can take minutes.
	StaleTime time.Duration

	// CacheTime overrides Options.DefaultCacheTime for this key.
	CacheTime time.Duration

	// Disabled skips fetching entirely (the current snapshot, possibly Idle,
	// is returned as-is). Used while the key is not fully known yet.
	Disabled bool

	// Retry, when non-nil, re-runs the fetcher under the given bounded
	// backoff policy. The cache itself never retries: the policy is the
	// caller's, and the attempt count is surfaced in FetchError.
	Retry *retry.Policy
}

// MutateOptions configures one Mutate call.
type MutateOptions[V any] struct {
	// Mutator performs the remote write and returns the server's
	// authoritative value. Required.
	Mutator Mutator[V]

	// Apply produces the optimistic value shown to subscribers before the
	// mutator resolves. It is only called when the entry currently has data;
	// nil means no optimistic phase.
	Apply func(current V, updates any) V

	// Invalidates lists dependent keys (aggregates embedding the mutated
	// field) marked stale during the settle phase. The mutated key itself is
	// always settled; it does not need to be listed.
	Invalidates []Key
}

// InvalidateOptions configures Invalidate.
type InvalidateOptions struct {
	// Immediate triggers a refetch right away for matched entries that have
	// active subscribers and a known fetcher. Without it, staleness is
	// resolved lazily on next access.
	Immediate bool
}

const (
	defaultCacheTime  = 5 * time.Minute
	defaultGCInterval = time.Minute
)

// withDefaults fills in unset fields.
func (o Options[V]) withDefaults() Options[V] {
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.DefaultCacheTime <= 0 {
		o.DefaultCacheTime = defaultCacheTime
	}
	if o.GCInterval == 0 {
		o.GCInterval = defaultGCInterval
	}
	return o
}
