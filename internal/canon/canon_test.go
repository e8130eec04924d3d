package canon

import "testing"

func TestMarshal_MapOrderIndependent(t *testing.T) {
	a := map[string]any{"grade": 9, "window": "week", "tags": []any{"a", "b"}}
	b := map[string]any{"tags": []any{"a", "b"}, "window": "week", "grade": 9}

	ea, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal(a): %v", err)
	}
	eb, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal(b): %v", err)
	}
	if string(ea) != string(eb) {
		t.Fatalf("encodings differ:\n a=%s\n b=%s", ea, eb)
	}
	if want := `{"grade":9,"tags":["a","b"],"window":"week"}`; string(ea) != want {
		t.Fatalf("got %s, want %s", ea, want)
	}
}

func TestMarshal_NormalizesTypedValues(t *testing.T) {
	type filter struct {
		Grade  int            `json:"grade"`
		Nested map[string]int `json:"nested"`
	}
	// Struct fields encode in declaration order, but nested maps must still
	// come out sorted.
	got, err := Marshal(filter{Grade: 9, Nested: map[string]int{"b": 2, "a": 1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"grade":9,"nested":{"a":1,"b":2}}`; string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMarshal_Nil(t *testing.T) {
	got, err := Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil): %v", err)
	}
	if string(got) != "null" {
		t.Fatalf("got %s, want null", got)
	}
}

func TestMarshal_RejectsUnencodable(t *testing.T) {
	if _, err := Marshal(make(chan int)); err == nil {
		t.Fatal("expected error for channel value")
	}
}
