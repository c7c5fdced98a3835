// Package ordered provides a small generic map with deterministic,
// sorted-key iteration. Every sum, scan, and tie-break in the engine
// walks accounts/markets in key order; Go's native map iteration order
// is deliberately randomized, so every place State would otherwise
// reach for map[K]V goes through Map[K, V] instead.
package ordered

import "sort"

// Map is a map keyed by an (underlying-)string type K, iterated in
// ascending key order.
type Map[K ~string, V any] struct {
	values map[K]V
	keys   []K // invariant: always sorted, no duplicates
}

// New returns an empty ordered map.
func New[K ~string, V any]() *Map[K, V] {
	return &Map[K, V]{values: make(map[K]V)}
}

// Get returns the value for k and whether it was present.
func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Set inserts or overwrites the value for k.
func (m *Map[K, V]) Set(k K, v V) {
	if _, exists := m.values[k]; !exists {
		idx := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
		m.keys = append(m.keys, "")
		copy(m.keys[idx+1:], m.keys[idx:])
		m.keys[idx] = k
	}
	m.values[k] = v
}

// Delete removes k if present; a no-op otherwise.
func (m *Map[K, V]) Delete(k K) {
	if _, exists := m.values[k]; !exists {
		return
	}
	delete(m.values, k)
	idx := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= k })
	m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.values[k]
	return ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.keys) }

// Keys returns a copy of the keys in ascending order.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for every entry in ascending key order, stopping early
// if fn returns false.
func (m *Map[K, V]) Range(fn func(k K, v V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep-enough copy: a new map and key slice, with each
// value passed through cloneValue (pass nil to keep a shallow copy of V,
// which is correct whenever V is an immutable value type).
func (m *Map[K, V]) Clone(cloneValue func(V) V) *Map[K, V] {
	out := New[K, V]()
	out.keys = append([]K(nil), m.keys...)
	out.values = make(map[K]V, len(m.values))
	for k, v := range m.values {
		if cloneValue != nil {
			v = cloneValue(v)
		}
		out.values[k] = v
	}
	return out
}
