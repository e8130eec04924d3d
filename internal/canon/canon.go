// Package canon produces deterministic JSON encodings for parameter values
// used inside cache keys. Two structurally equal values must encode to the
// same bytes regardless of map iteration order.
package canon

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal returns a canonical JSON encoding of v.
// Maps are emitted with keys in sorted order; everything else follows
// encoding/json. Values that encoding/json rejects (channels, funcs, cycles)
// yield an error.
func Marshal(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	switch val := v.(type) {
	case map[string]any:
		return marshalMap(val)
	case []any:
		return marshalSlice(val)
	default:
		// Round-trip through encoding/json once so nested maps inside
		// structs and typed containers are normalized too.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("canon: marshal %T: %w", v, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("canon: normalize %T: %w", v, err)
		}
		switch g := generic.(type) {
		case map[string]any:
			return marshalMap(g)
		case []any:
			return marshalSlice(g)
		default:
			return raw, nil
		}
	}
}

func marshalMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		vb, err := Marshal(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func marshalSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}
