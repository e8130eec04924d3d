// Package prom exports query.Metrics signals as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avoronkov/querycache/query"
)

// Adapter implements query.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	reads     *prometheus.CounterVec
	fetches   *prometheus.CounterVec
	mutations *prometheus.CounterVec
	invalid   prometheus.Counter
	evicts    *prometheus.CounterVec
	sizeEnt   prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "reads_total",
				Help:        "Read outcomes by kind (hit, stale, miss)",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "fetches_total",
				Help:        "Fetch lifecycle events (start, join, error, discard)",
				ConstLabels: constLabels,
			},
			[]string{"event"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "mutations_total",
				Help:        "Mutations by result (commit, rollback)",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "invalidated_entries_total",
			Help:        "Entries marked stale by invalidation",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.reads, a.fetches, a.mutations, a.invalid, a.evicts, a.sizeEnt)
	return a
}

func (a *Adapter) Hit()   { a.reads.WithLabelValues("hit").Inc() }
func (a *Adapter) Stale() { a.reads.WithLabelValues("stale").Inc() }
func (a *Adapter) Miss()  { a.reads.WithLabelValues("miss").Inc() }

func (a *Adapter) FetchStart()   { a.fetches.WithLabelValues("start").Inc() }
func (a *Adapter) FetchJoin()    { a.fetches.WithLabelValues("join").Inc() }
func (a *Adapter) FetchError()   { a.fetches.WithLabelValues("error").Inc() }
func (a *Adapter) FetchDiscard() { a.fetches.WithLabelValues("discard").Inc() }

func (a *Adapter) MutationCommit()   { a.mutations.WithLabelValues("commit").Inc() }
func (a *Adapter) MutationRollback() { a.mutations.WithLabelValues("rollback").Inc() }

// Invalidate adds the number of entries touched by one invalidation.
func (a *Adapter) Invalidate(entries int) { a.invalid.Add(float64(entries)) }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r query.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates the resident-entry gauge.
func (a *Adapter) Size(entries int) { a.sizeEnt.Set(float64(entries)) }

// reason maps EvictReason to a stable label value.
func reason(r query.EvictReason) string {
	switch r {
	case query.EvictPressure:
		return "pressure"
	case query.EvictExplicit:
		return "explicit"
	default:
		return "idle"
	}
}

// Compile-time check: ensure Adapter implements query.Metrics.
var _ query.Metrics = (*Adapter)(nil)
