package semgraph

import (
	"math/bits"
	"sort"
)

// AxisSet is a bitset of axes keyed by an AxisRegistry. Sets built from the
// same registry share a width; operations tolerate mismatched widths.
type AxisSet []uint64

// AxisRegistry assigns a stable bit to every axis name seen in a graph.
// It is built once and never modified.
type AxisRegistry struct {
	names []string
	bits  map[string]int
	words int
}

// NewAxisRegistry builds a registry over the given names. Duplicates and
// empty names are ignored; bits follow lexical order.
func NewAxisRegistry(names []string) *AxisRegistry {
	seen := make(map[string]struct{}, len(names))
	uniq := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)

	r := &AxisRegistry{
		names: uniq,
		bits:  make(map[string]int, len(uniq)),
		words: (len(uniq) + 63) / 64,
	}
	for i, n := range uniq {
		r.bits[n] = i
	}
	return r
}

// Len returns the number of registered axes
func (r *AxisRegistry) Len() int {
	return len(r.names)
}

// Lookup returns the bit assigned to an axis
func (r *AxisRegistry) Lookup(name string) (int, bool) {
	b, ok := r.bits[name]
	return b, ok
}

// Set builds an AxisSet from names. Unknown names are skipped.
func (r *AxisRegistry) Set(names ...string) AxisSet {
	s := make(AxisSet, r.words)
	for _, n := range names {
		if b, ok := r.bits[n]; ok {
			s[b/64] |= 1 << uint(b%64)
		}
	}
	return s
}

// Names returns the axis names present in s, sorted
func (r *AxisRegistry) Names(s AxisSet) []string {
	out := make([]string, 0, s.Count())
	for w, word := range s {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			idx := w*64 + tz
			if idx < len(r.names) {
				out = append(out, r.names[idx])
			}
			word &= word - 1
		}
	}
	return out
}

// IsEmpty reports whether no bit is set
func (s AxisSet) IsEmpty() bool {
	for _, w := range s {
		if w != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of axes in s
func (s AxisSet) Count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Has reports whether bit b is set
func (s AxisSet) Has(b int) bool {
	w := b / 64
	if b < 0 || w >= len(s) {
		return false
	}
	return s[w]&(1<<uint(b%64)) != 0
}

// Intersects reports whether s and o share at least one axis
func (s AxisSet) Intersects(o AxisSet) bool {
	n := min(len(s), len(o))
	for i := 0; i < n; i++ {
		if s[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

// And returns the intersection of s and o
func (s AxisSet) And(o AxisSet) AxisSet {
	n := min(len(s), len(o))
	out := make(AxisSet, max(len(s), len(o)))
	for i := 0; i < n; i++ {
		out[i] = s[i] & o[i]
	}
	return out
}

// Or returns the union of s and o
func (s AxisSet) Or(o AxisSet) AxisSet {
	out := make(AxisSet, max(len(s), len(o)))
	copy(out, s)
	for i, w := range o {
		out[i] |= w
	}
	return out
}

// Equal reports whether both sets hold the same axes
func (s AxisSet) Equal(o AxisSet) bool {
	n := max(len(s), len(o))
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(s) {
			a = s[i]
		}
		if i < len(o) {
			b = o[i]
		}
		if a != b {
			return false
		}
	}
	return true
}
