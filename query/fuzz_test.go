package query

import (
	"strings"
	"testing"
)

// Fuzz the canonical key encoding: segment boundaries must never collapse
// or shift, whatever bytes the payloads contain (including the separator
// byte itself and quote characters).
func FuzzKey_Encoding(f *testing.F) {
	f.Add("", "")
	f.Add("a", "b")
	f.Add("a\x1fb", "c")
	f.Add(`quo"ted`, `\x1f`)
	f.Add("αβγ", "emoji🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, a, b string) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12
		if len(a) > limit {
			a = a[:limit]
		}
		if len(b) > limit {
			b = b[:limit]
		}

		two := NewKey(S(a), S(b))
		one := NewKey(S(a + b))

		// A two-segment key can never equal a one-segment key, even when
		// the payloads concatenate to the same bytes.
		if two.Equal(one) {
			t.Fatalf("boundary collapse: (%q,%q) == %q", a, b, a+b)
		}

		// Encoding must be deterministic.
		if !two.Equal(NewKey(S(a), S(b))) {
			t.Fatalf("non-deterministic encoding for (%q,%q)", a, b)
		}

		// Prefix semantics hold for arbitrary payloads.
		if !two.HasPrefix(NewKey(S(a))) {
			t.Fatalf("(%q,%q) must have prefix (%q)", a, b, a)
		}
		if a != b && two.HasPrefix(NewKey(S(b))) {
			t.Fatalf("(%q,%q) must not have prefix (%q)", a, b, b)
		}

		// Kind tags keep string and params segments apart.
		if NewKey(S(a)).Equal(NewKey(P(a))) {
			t.Fatalf("kind confusion for %q", a)
		}
	})
}
