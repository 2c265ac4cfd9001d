package container

import "github.com/estokes/poolshark/discriminant"

// Map is a hash-table adapter (Go's analogue of Rust's HashMap<K, V, R>,
// minus the hasher type parameter R — Go maps don't expose a pluggable
// hasher, so the discriminant composition collapses pooled.rs's new_p3 to
// a two-element NewP2 over K and V only).
//
// Go's map type exposes no capacity accessor, unlike Rust's
// HashMap::capacity(), so Map tracks its own high-water mark explicitly:
// every call to Grow records the largest size this map has ever been
// asked to hold, and Capacity reports the larger of that mark and
// len(Items). This is an approximation (Go may have allocated more or less
// than what was requested) but it is the only signal available, and it is
// sufficient to drive the registry's accept/reject policy the same way a
// real capacity query would.
type Map[K comparable, V any] struct {
	Items    map[K]V
	capacity int
}

func (m *Map[K, V]) Empty() *Map[K, V] { return &Map[K, V]{} }

func (m *Map[K, V]) Reset() {
	clear(m.Items)
}

func (m *Map[K, V]) Capacity() int {
	if m.capacity > len(m.Items) {
		return m.capacity
	}
	return len(m.Items)
}

func (m *Map[K, V]) ReallyDropped() bool { return true }

func (m *Map[K, V]) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.NewP2[K, V](MapContainerID)
}

// Grow reserves room for at least n entries, allocating the backing map on
// first use and recording n as this map's capacity high-water mark.
func (m *Map[K, V]) Grow(n int) {
	if m.Items == nil {
		m.Items = make(map[K]V, n)
	}
	if n > m.capacity {
		m.capacity = n
	}
}
