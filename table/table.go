// Package table implements the insertion-ordered, case-insensitive
// multimap ("Table") shared by every reqdata component: the header-value
// tokenizer's attribute bag, the parameter tables produced by the
// URL-encoded and multipart parsers, and the façade's overlay view.
//
// A Table never reorders on lookup and is safe to clone into a derived
// table whose mutations do not affect the source, per spec section 3.
package table

import (
	"github.com/duke-git/lancet/v2/slice"

	"github.com/curol/reqdata/internal/ascii"
)

// Entry is one (name, value) pair in insertion order.
type Entry[V any] struct {
	Name  string
	Value V
}

// Table is an insertion-ordered sequence of Entry values plus an
// auxiliary index keyed by the ASCII-case-folded name, giving O(1)
// first-match and O(k) all-match lookups.
type Table[V any] struct {
	entries []Entry[V]
	index   map[string][]int
}

// New returns an empty Table.
func New[V any]() *Table[V] {
	return &Table[V]{index: make(map[string][]int)}
}

// Insert appends (name, value) to the table, preserving name's original
// casing, and updates the case-folded index.
func (t *Table[V]) Insert(name string, value V) {
	if t.index == nil {
		t.index = make(map[string][]int)
	}
	i := len(t.entries)
	t.entries = append(t.entries, Entry[V]{Name: name, Value: value})
	k := ascii.Lower(name)
	t.index[k] = append(t.index[k], i)
}

// Len returns the number of entries, including duplicate names.
func (t *Table[V]) Len() int {
	return len(t.entries)
}

// First returns the value of the first entry whose case-folded name
// matches name, in insertion order.
func (t *Table[V]) First(name string) (V, bool) {
	var zero V
	idx, ok := t.index[ascii.Lower(name)]
	if !ok || len(idx) == 0 {
		return zero, false
	}
	return t.entries[idx[0]].Value, true
}

// All returns the values of every entry whose case-folded name matches
// name, in insertion order.
func (t *Table[V]) All(name string) []V {
	idx, ok := t.index[ascii.Lower(name)]
	if !ok {
		return nil
	}
	out := make([]V, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.entries[i].Value)
	}
	return out
}

// Has reports whether any entry's case-folded name matches name.
func (t *Table[V]) Has(name string) bool {
	idx, ok := t.index[ascii.Lower(name)]
	return ok && len(idx) > 0
}

// Iter returns every entry in insertion order. The returned slice is a
// copy; mutating it does not affect the table.
func (t *Table[V]) Iter() []Entry[V] {
	out := make([]Entry[V], len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns one name per distinct case-folded key, spelled as its
// first entry was inserted, in the order those first entries were
// inserted.
func (t *Table[V]) Names() []string {
	seen := make(map[string]bool, len(t.index))
	out := make([]string, 0, len(t.index))
	for _, e := range t.entries {
		k := ascii.Lower(e.Name)
		if !seen[k] {
			seen[k] = true
			out = append(out, e.Name)
		}
	}
	return out
}

// Clone returns a new Table with the same entries. The returned table's
// modifications never affect the source, satisfying spec invariant 3;
// the clone is shallow over V itself (if V is a pointer type, the
// pointed-to data is still shared).
func (t *Table[V]) Clone() *Table[V] {
	nt := New[V]()
	nt.entries = append(nt.entries, t.entries...)
	nt.index = make(map[string][]int, len(t.index))
	for k, v := range t.index {
		cp := make([]int, len(v))
		copy(cp, v)
		nt.index[k] = cp
	}
	return nt
}

// MergeOverlay returns a new Table whose entries are the concatenation of
// self then other, with no deduplication. Neither self nor other is
// mutated. This computes the "params = args + body" union view of spec
// section 4.9 without promoting either source table's lifetime.
func (t *Table[V]) MergeOverlay(other *Table[V]) *Table[V] {
	var a, b []Entry[V]
	if t != nil {
		a = t.entries
	}
	if other != nil {
		b = other.entries
	}
	// slice.Concat preserves order and never deduplicates, matching the
	// "args then body, as-is" overlay semantics; the case-folded index is
	// then rebuilt fresh over the concatenated sequence.
	merged := slice.Concat(a, b)
	nt := New[V]()
	for _, e := range merged {
		nt.Insert(e.Name, e.Value)
	}
	return nt
}
