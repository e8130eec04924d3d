// Package query provides a generic client-side data cache and
// synchronization layer: hierarchical structured keys, per-key request
// coalescing, stale-while-revalidate reads, prefix invalidation, optimistic
// mutations with rollback, subscriptions, and retention-based garbage
// collection.
//
// # Design
//
//   - Keys: a Key is an ordered sequence of tagged segments (S/I/B/P) with
//     structural equality. Prefix relationships drive bulk invalidation:
//     invalidating ["student", 42] also marks ["student", 42, "profile"]
//     and ["student", 42, "results"] stale, but not ["student", 7, ...].
//
//   - Store: a single-mutex map from key to entry. Every entry transition is
//     committed under the lock and published to subscribers in subscription
//     order, so observers see each key's states in commit order.
//
//   - Fetching: Read serves fresh entries without touching the network,
//     serves stale entries immediately while revalidating in the background,
//     and blocks only when there is nothing to serve. Concurrent readers of
//     the same key join a single in-flight fetch (at most one per key).
//     The cache never retries by itself; pass ReadOptions.Retry for a
//     bounded-backoff policy.
//
//   - Staleness vs. eviction: staleTime bounds how long a fetch result is
//     served without revalidation; cacheTime bounds how long an entry
//     without subscribers is retained at all. Invalidation only demotes
//     freshness — data is deleted solely by Evict/Clear or the collector.
//
//   - Mutations: Mutate applies an optimistic value synchronously, replaces
//     it with the server's authoritative response on success, rolls back to
//     the pre-mutation snapshot on failure, and always invalidates the key
//     plus declared dependents on settle. In-flight read fetches for the key
//     are superseded so an older result can never overwrite a newer value.
//
//   - Collection: entries with zero subscribers are evicted once their
//     retention window elapses, by a timer sweep and opportunistically on
//     unsubscribe. Subscribed entries and entries with an in-flight fetch or
//     pending mutation are never evicted.
//
//   - Metrics: Options.Metrics receives hit/stale/miss, fetch lifecycle,
//     mutation, invalidation, and eviction signals. NoopMetrics is the
//     default; Prometheus and OpenTelemetry adapters live under metrics/.
//
// # Basic usage
//
//	c := query.New[Profile](query.Options[Profile]{
//	    DefaultStaleTime: time.Minute,
//	    DefaultCacheTime: 5 * time.Minute,
//	})
//	defer c.Close()
//
//	key := query.NewKey(query.S("student"), query.I(42), query.S("profile"))
//	snap, err := c.Read(ctx, key, fetchProfile, query.ReadOptions{})
//
// # Subscriptions
//
//	unsub := c.Subscribe(key, func(s query.Snapshot[Profile]) {
//	    // deliver to the view layer; do not call back into the cache here
//	})
//	defer unsub()
//
// # Optimistic mutation
//
//	_, err := c.Mutate(ctx, key, newName, query.MutateOptions[Profile]{
//	    Mutator: renameProfile,
//	    Apply: func(cur Profile, updates any) Profile {
//	        cur.Name = updates.(string)
//	        return cur
//	    },
//	    Invalidates: []query.Key{query.NewKey(query.S("leaderboard"))},
//	})
//
// All methods on Cache are safe for concurrent use. Read/Mutate suspend the
// caller only while their own network operation resolves; the store itself
// never blocks on the network.
package query
