package query

// EvictReason explains why an entry was removed from the store.
type EvictReason int

const (
	// EvictIdle — retention window elapsed with zero subscribers (GC sweep).
	EvictIdle EvictReason = iota
	// EvictPressure — removed early to satisfy Options.MaxEntries.
	EvictPressure
	// EvictExplicit — removed by Evict or Clear.
	EvictExplicit
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default; adapters for
// Prometheus and OpenTelemetry live under metrics/.
type Metrics interface {
	// Read outcomes.
	Hit()   // fresh entry served without a fetch
	Stale() // stale entry served while a revalidation runs in the background
	Miss()  // no usable data; caller blocked on a fetch

	// Fetch executor.
	FetchStart()   // a new flight was dispatched
	FetchJoin()    // a caller attached to an existing flight
	FetchError()   // a flight resolved with a terminal error
	FetchDiscard() // a flight result was discarded (superseded by a mutation)

	// Mutation executor.
	MutationCommit()
	MutationRollback()

	// Invalidation and lifecycle.
	Invalidate(entries int)
	Evict(reason EvictReason)
	Size(entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when no
// observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                {}
func (NoopMetrics) Stale()              {}
func (NoopMetrics) Miss()               {}
func (NoopMetrics) FetchStart()         {}
func (NoopMetrics) FetchJoin()          {}
func (NoopMetrics) FetchError()         {}
func (NoopMetrics) FetchDiscard()       {}
func (NoopMetrics) MutationCommit()     {}
func (NoopMetrics) MutationRollback()   {}
func (NoopMetrics) Invalidate(int)      {}
func (NoopMetrics) Evict(EvictReason)   {}
func (NoopMetrics) Size(int)            {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
