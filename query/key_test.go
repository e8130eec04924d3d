package query

import (
	"testing"
)

func TestKey_StructuralEquality(t *testing.T) {
	t.Parallel()

	if !NewKey(S("student"), I(42)).Equal(NewKey(S("student"), I(42))) {
		t.Fatal("identical keys must be equal")
	}
	if NewKey(S("1")).Equal(NewKey(I(1))) {
		t.Fatal("segment kinds must be distinct")
	}
	if NewKey(B(true)).Equal(NewKey(S("true"))) {
		t.Fatal("bool and string segments must differ")
	}
	if NewKey(S("a"), S("b")).Equal(NewKey(S("ab"))) {
		t.Fatal("segment boundaries must not collapse")
	}
	if !NewKey().Equal(Key{}) {
		t.Fatal("empty NewKey must equal the zero key")
	}
}

func TestKey_ParamsOrderIndependence(t *testing.T) {
	t.Parallel()

	a := NewKey(S("leaderboard"), P(map[string]any{"grade": 9, "window": "week"}))
	b := NewKey(S("leaderboard"), P(map[string]any{"window": "week", "grade": 9}))
	if !a.Equal(b) {
		t.Fatal("param maps with equal contents must produce equal keys")
	}

	c := NewKey(S("leaderboard"), P(map[string]any{"grade": 10, "window": "week"}))
	if a.Equal(c) {
		t.Fatal("different params must produce different keys")
	}
}

func TestKey_HasPrefix(t *testing.T) {
	t.Parallel()

	parent := NewKey(S("parent"), I(1))
	profile := parent.Append(S("profile"))
	children := parent.Append(S("children"), P(map[string]any{"active": true}))
	other := NewKey(S("parent"), I(2), S("profile"))

	if !profile.HasPrefix(parent) || !children.HasPrefix(parent) {
		t.Fatal("subtree keys must match their parent prefix")
	}
	if other.HasPrefix(parent) {
		t.Fatal("sibling must not match")
	}
	if !parent.HasPrefix(parent) {
		t.Fatal("every key is a prefix of itself")
	}
	if parent.HasPrefix(profile) {
		t.Fatal("a longer key is never a prefix of a shorter one")
	}
	if !profile.HasPrefix(Key{}) {
		t.Fatal("the zero key is a prefix of everything")
	}
}

func TestKey_String(t *testing.T) {
	t.Parallel()

	k := NewKey(S("student"), I(42), S("profile"))
	if got := k.String(); got != "/student/42/profile" {
		t.Fatalf("got %q", got)
	}
}
