package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	v, attempts, err := Do(context.Background(), fastPolicy(5), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("v=%q err=%v", v, err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("attempts=%d calls=%d", attempts, calls)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	boom := errors.New("down")
	_, attempts, err := Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want terminal error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts, got %d", attempts)
	}
}

func TestDo_RetryIfStopsEarly(t *testing.T) {
	t.Parallel()

	fatal := errors.New("401 unauthorized")
	p := fastPolicy(5)
	p.RetryIf = func(err error) bool { return !errors.Is(err, fatal) }

	_, attempts, err := Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-retryable error must stop after 1 attempt, got %d", attempts)
	}
}

func TestDo_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 100, InitialDelay: 50 * time.Millisecond}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, _, err := Do(ctx, p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if calls < 1 {
		t.Fatal("operation never ran")
	}
}

func TestDo_Defaults(t *testing.T) {
	t.Parallel()

	p := Policy{}.withDefaults()
	if p.MaxAttempts != 3 || p.InitialDelay != 100*time.Millisecond || p.Multiplier != 2.0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}
