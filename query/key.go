package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avoronkov/querycache/internal/canon"
)

// segKind tags the variant stored in a Segment.
type segKind uint8

const (
	segString segKind = iota
	segInt
	segBool
	segParams
)

// Segment is one element of a hierarchical cache key. Segments are built
// with S/I/B/P and compared structurally; two segments of different kinds
// are never equal even if they render the same.
type Segment struct {
	kind segKind
	str  string // payload for segString; canonical JSON for segParams
	num  int64  // payload for segInt; 0/1 for segBool
}

// S builds a string segment (entity kinds, sub-resource names, ids).
func S(s string) Segment { return Segment{kind: segString, str: s} }

// I builds an integer segment (numeric entity ids).
func I(n int64) Segment { return Segment{kind: segInt, num: n} }

// B builds a boolean segment (binary filter flags).
func B(b bool) Segment {
	var n int64
	if b {
		n = 1
	}
	return Segment{kind: segBool, num: n}
}

// P builds a parameters segment from an arbitrary JSON-encodable value
// (filter structs, map[string]any, slices). Structural equality holds
// regardless of map iteration order.
//
// Panicking on unencodable values is deliberate: a key that cannot be
// canonicalized would silently break dedup and invalidation.
func P(params any) Segment {
	b, err := canon.Marshal(params)
	if err != nil {
		panic(fmt.Sprintf("query.P: %v", err))
	}
	return Segment{kind: segParams, str: string(b)}
}

// Equal reports structural equality of two segments.
func (s Segment) Equal(o Segment) bool {
	return s.kind == o.kind && s.str == o.str && s.num == o.num
}

// String renders the segment for logs and error messages.
func (s Segment) String() string {
	switch s.kind {
	case segString:
		return s.str
	case segInt:
		return strconv.FormatInt(s.num, 10)
	case segBool:
		if s.num != 0 {
			return "true"
		}
		return "false"
	default:
		return s.str
	}
}

// encode appends an unambiguous canonical form of the segment.
// The kind tag prevents S("1") from colliding with I(1); payloads are
// control-character free (strconv.Quote and JSON both escape them), so the
// 0x1f separator used between segments cannot occur inside a payload.
func (s Segment) encode(b []byte) []byte {
	switch s.kind {
	case segString:
		b = append(b, 's')
		b = append(b, strconv.Quote(s.str)...)
	case segInt:
		b = append(b, 'i')
		b = strconv.AppendInt(b, s.num, 10)
	case segBool:
		b = append(b, 'b')
		if s.num != 0 {
			b = append(b, 't')
		} else {
			b = append(b, 'f')
		}
	case segParams:
		b = append(b, 'p')
		b = append(b, s.str...)
	}
	return b
}

// Key is an ordered sequence of segments identifying one cache entry.
// Keys are immutable value types; equality is structural (deep) and a key
// is a prefix of another iff its segments are a leading subsequence.
//
// The zero Key has no segments. As a prefix it matches every entry, which
// makes Invalidate(Key{}, ...) a whole-cache stale marker.
type Key struct {
	segs []Segment
	id   string
}

// NewKey builds a key from the given segments.
//
//	NewKey(S("student"), I(42), S("profile"))
//	NewKey(S("leaderboard"), P(map[string]any{"grade": 9, "window": "week"}))
func NewKey(segs ...Segment) Key {
	k := Key{segs: append([]Segment(nil), segs...)}
	buf := make([]byte, 0, 16*len(segs))
	for i, s := range segs {
		if i > 0 {
			buf = append(buf, 0x1f)
		}
		buf = s.encode(buf)
	}
	k.id = string(buf)
	return k
}

// Append returns a new key with extra segments added; the receiver is not
// modified.
func (k Key) Append(segs ...Segment) Key {
	all := make([]Segment, 0, len(k.segs)+len(segs))
	all = append(all, k.segs...)
	all = append(all, segs...)
	return NewKey(all...)
}

// Len returns the number of segments.
func (k Key) Len() int { return len(k.segs) }

// Equal reports whether two keys have deep-equal segment sequences.
func (k Key) Equal(o Key) bool { return k.id == o.id }

// HasPrefix reports whether p's segments are a leading subsequence of k's.
// Every key is a prefix of itself; the zero key is a prefix of every key.
func (k Key) HasPrefix(p Key) bool {
	if len(p.segs) > len(k.segs) {
		return false
	}
	for i, s := range p.segs {
		if !k.segs[i].Equal(s) {
			return false
		}
	}
	return true
}

// String renders the key as a /-joined path for logs.
func (k Key) String() string {
	parts := make([]string, len(k.segs))
	for i, s := range k.segs {
		parts[i] = s.String()
	}
	return "/" + strings.Join(parts, "/")
}
