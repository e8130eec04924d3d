// Package otel exports query.Metrics signals through an OpenTelemetry meter.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/avoronkov/querycache/query"
)

// Adapter implements query.Metrics on top of an OpenTelemetry meter.
// Instrument types are goroutine-safe; the adapter holds no mutable state.
type Adapter struct {
	reads     metric.Int64Counter
	fetches   metric.Int64Counter
	mutations metric.Int64Counter
	invalid   metric.Int64Counter
	evicts    metric.Int64Counter
	size      metric.Int64Gauge
}

// New constructs an adapter registering its instruments on meter.
// Metric names are prefixed with "querycache.".
func New(meter metric.Meter) (*Adapter, error) {
	a := &Adapter{}
	var err error

	if a.reads, err = meter.Int64Counter(
		"querycache.reads",
		metric.WithDescription("Read outcomes by kind (hit, stale, miss)"),
		metric.WithUnit("{read}"),
	); err != nil {
		return nil, fmt.Errorf("otel: reads counter: %w", err)
	}
	if a.fetches, err = meter.Int64Counter(
		"querycache.fetches",
		metric.WithDescription("Fetch lifecycle events (start, join, error, discard)"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("otel: fetches counter: %w", err)
	}
	if a.mutations, err = meter.Int64Counter(
		"querycache.mutations",
		metric.WithDescription("Mutations by result (commit, rollback)"),
		metric.WithUnit("{mutation}"),
	); err != nil {
		return nil, fmt.Errorf("otel: mutations counter: %w", err)
	}
	if a.invalid, err = meter.Int64Counter(
		"querycache.invalidated_entries",
		metric.WithDescription("Entries marked stale by invalidation"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, fmt.Errorf("otel: invalidation counter: %w", err)
	}
	if a.evicts, err = meter.Int64Counter(
		"querycache.evictions",
		metric.WithDescription("Cache evictions by reason"),
		metric.WithUnit("{eviction}"),
	); err != nil {
		return nil, fmt.Errorf("otel: evictions counter: %w", err)
	}
	if a.size, err = meter.Int64Gauge(
		"querycache.size_entries",
		metric.WithDescription("Number of resident entries"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, fmt.Errorf("otel: size gauge: %w", err)
	}
	return a, nil
}

func (a *Adapter) add(c metric.Int64Counter, label, value string) {
	c.Add(context.Background(), 1, metric.WithAttributes(attribute.String(label, value)))
}

func (a *Adapter) Hit()   { a.add(a.reads, "outcome", "hit") }
func (a *Adapter) Stale() { a.add(a.reads, "outcome", "stale") }
func (a *Adapter) Miss()  { a.add(a.reads, "outcome", "miss") }

func (a *Adapter) FetchStart()   { a.add(a.fetches, "event", "start") }
func (a *Adapter) FetchJoin()    { a.add(a.fetches, "event", "join") }
func (a *Adapter) FetchError()   { a.add(a.fetches, "event", "error") }
func (a *Adapter) FetchDiscard() { a.add(a.fetches, "event", "discard") }

func (a *Adapter) MutationCommit()   { a.add(a.mutations, "result", "commit") }
func (a *Adapter) MutationRollback() { a.add(a.mutations, "result", "rollback") }

func (a *Adapter) Invalidate(entries int) {
	a.invalid.Add(context.Background(), int64(entries))
}

func (a *Adapter) Evict(r query.EvictReason) {
	a.add(a.evicts, "reason", reason(r))
}

func (a *Adapter) Size(entries int) {
	a.size.Record(context.Background(), int64(entries))
}

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
