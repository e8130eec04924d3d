package query

import (
	"sort"
	"time"
)

// gcLoop periodically sweeps unreferenced entries until Close.
func (c *Cache[V]) gcLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.sweep()
		}
	}
}

// sweep evicts entries that have had zero subscribers past their retention
// deadline, then enforces Options.MaxEntries on whatever idle entries remain.
//
// Entries with subscribers are never scanned for eviction, and entries with
// an in-flight fetch or a pending mutation are skipped so their completion
// always finds the entry to apply to.
func (c *Cache[V]) sweep() {
	s := &c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var idle []*entry[V]
	for _, e := range s.m {
		if e.subscribed() || e.flight != nil || e.pending > 0 {
			continue
		}
		if e.evictAfter != 0 && now >= e.evictAfter {
			s.removeLocked(e, EvictIdle)
			continue
		}
		idle = append(idle, e)
	}

	// Pressure eviction: trim the idle population to MaxEntries, earliest
	// retention deadline first.
	limit := s.opt.MaxEntries
	if limit <= 0 || len(idle) <= limit {
		return
	}
	sort.Slice(idle, func(i, j int) bool {
		return idle[i].evictAfter < idle[j].evictAfter
	})
	for _, e := range idle[:len(idle)-limit] {
		s.removeLocked(e, EvictPressure)
	}
}
