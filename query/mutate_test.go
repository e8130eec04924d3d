package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type profile struct {
	A int
	B bool
}

// The optimistic value is visible to subscribers before the mutator
// resolves, and the server's authoritative shape wins on success.
func TestMutate_OptimisticThenAuthoritative(t *testing.T) {
	c := newTestCache[profile](nil)
	t.Cleanup(func() { _ = c.Close() })

	k := NewKey(S("student"), I(9), S("profile"))
	seed(t, c, k, profile{A: 1})

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Mutate(context.Background(), k, 2, MutateOptions[profile]{
			Mutator: func(context.Context, any) (profile, error) {
				<-release
				return profile{A: 2, B: true}, nil
			},
			Apply: func(cur profile, updates any) profile {
				cur.A = updates.(int)
				return cur
			},
		})
		done <- err
	}()

	// The optimistic guess lands synchronously in the Begin phase, before
	// the network call resolves.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if snap, ok := c.Peek(k); ok && snap.Data.A == 2 {
			if snap.Data.B {
				t.Fatal("optimistic guess must not invent server fields")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("optimistic value never appeared")
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	snap, _ := c.Peek(k)
	if snap.Data != (profile{A: 2, B: true}) {
		t.Fatalf("server shape must win, got %+v", snap.Data)
	}
}

// A failing mutator rolls the entry back to the Begin-phase snapshot.
func TestMutate_Rollback(t *testing.T) {
	c := newTestCache[profile](nil)
	t.Cleanup(func() { _ = c.Close() })

	k := NewKey(S("student"), I(3), S("profile"))
	seed(t, c, k, profile{A: 1})

	boom := errors.New("rejected")
	_, err := c.Mutate(context.Background(), k, 2, MutateOptions[profile]{
		Mutator: func(context.Context, any) (profile, error) {
			return profile{}, boom
		},
		Apply: func(cur profile, updates any) profile {
			cur.A = updates.(int)
			return cur
		},
	})

	var merr *MutationError
	if !errors.As(err, &merr) || !errors.Is(merr, boom) {
		t.Fatalf("want MutationError wrapping cause, got %v", err)
	}
	snap, _ := c.Peek(k)
	if snap.Data != (profile{A: 1}) {
		t.Fatalf("rollback must restore {A:1}, got %+v", snap.Data)
	}
	if snap.Status != StatusSuccess {
		t.Fatalf("rollback must restore status, got %v", snap.Status)
	}
}

// Settle always invalidates the key and its declared dependents, success or
// failure, so the next read re-synchronizes.
func TestMutate_SettleInvalidates(t *testing.T) {
	c := newTestCache[int](nil)
	t.Cleanup(func() { _ = c.Close() })

	k := NewKey(S("score"), I(5))
	agg := NewKey(S("leaderboard"))
	kCalls := seed(t, c, k, 10)
	aggCalls := seed(t, c, agg, 100)

	if _, err := c.Mutate(context.Background(), k, 11, MutateOptions[int]{
		Mutator:     func(context.Context, any) (int, error) { return 11, nil },
		Invalidates: []Key{agg},
	}); err != nil {
		t.Fatal(err)
	}

	for _, kk := range []struct {
		key   Key
		calls *int64
	}{{k, kCalls}, {agg, aggCalls}} {
		if _, err := c.Read(context.Background(), kk.key, func(context.Context) (int, error) {
			atomic.AddInt64(kk.calls, 1)
			return 0, nil
		}, ReadOptions{}); err != nil {
			t.Fatal(err)
		}
		waitIdle(t, c, kk.key)
		if got := atomic.LoadInt64(kk.calls); got != 2 {
			t.Fatalf("%s: settle must demote freshness, calls=%d", kk.key, got)
		}
	}
}

// A read fetch airborne when a mutation begins must not clobber the
// mutation's newer value when it finally lands.
func TestMutate_SupersedesInFlightRead(t *testing.T) {
	clk := &fakeClock{}
	c := newTestCache[int](clk)
	t.Cleanup(func() { _ = c.Close() })

	k := NewKey(S("counter"))
	seed(t, c, k, 1)
	clk.add(2 * time.Second) // entry now stale

	gate := make(chan struct{})
	var calls int64
	slow := func(context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		<-gate
		return 1, nil // stale backend view
	}

	// Stale serve; the revalidation is now stuck in flight.
	snap, err := c.Read(context.Background(), k, slow, ReadOptions{})
	if err != nil || snap.Data != 1 || !snap.IsFetching {
		t.Fatalf("stale read: %+v err=%v", snap, err)
	}

	// Mutation begins (bumps the generation) and commits 5.
	if _, err := c.Mutate(context.Background(), k, 5, MutateOptions[int]{
		Mutator: func(context.Context, any) (int, error) { return 5, nil },
	}); err != nil {
		t.Fatal(err)
	}

	// The old fetch lands and must be discarded.
	close(gate)
	waitIdle(t, c, k)

	snap, _ = c.Peek(k)
	if snap.Data != 5 {
		t.Fatalf("superseded fetch overwrote newer value: got %d", snap.Data)
	}
}

// Mutating a key with no cached data skips the optimistic phase but still
// commits the authoritative response.
func TestMutate_NoPriorData(t *testing.T) {
	c := newTestCache[int](nil)
	t.Cleanup(func() { _ = c.Close() })

	k := NewKey(S("fresh"))
	applied := false
	v, err := c.Mutate(context.Background(), k, nil, MutateOptions[int]{
		Mutator: func(context.Context, any) (int, error) { return 7, nil },
		Apply: func(cur int, _ any) int {
			applied = true
			return cur
		},
	})
	if err != nil || v != 7 {
		t.Fatalf("v=%d err=%v", v, err)
	}
	if applied {
		t.Fatal("Apply must not run without current data")
	}
	if snap, ok := c.Peek(k); !ok || snap.Data != 7 {
		t.Fatalf("authoritative value not cached: %+v", snap)
	}
}

func TestMutate_NoMutator(t *testing.T) {
	c := newTestCache[int](nil)
	t.Cleanup(func() { _ = c.Close() })
	if _, err := c.Mutate(context.Background(), NewKey(S("x")), nil, MutateOptions[int]{}); !errors.Is(err, ErrNoMutator) {
		t.Fatalf("want ErrNoMutator, got %v", err)
	}
}
