// Package poolshark is a general-purpose object recycling facility for
// reusable, heap-backed container allocations: growable arrays, hash
// tables, strings, deques, reference-counted cells. Rather than returning
// a container's backing memory to the allocator on destruction, clients
// reset the container to an empty state and hand it back to a bounded
// pool, to be reused on the next allocation request.
//
// The package itself holds only the two client-facing contracts the rest
// of this module builds on:
//
//   - Poolable: the minimum a type must support to be recyclable at all.
//   - IsoPoolable: Poolable plus an optional compile-time-ish discriminant,
//     letting layout-compatible instantiations of a generic container
//     share one pool (package registry).
//
// Package pool defines the third, lower-level contract (RawPoolable),
// which threads a weak pool reference through construction and is used
// only by the cross-thread global pool.
//
// See discriminant, siteid, pool, registry, and handle for the rest of the
// facility, and container for reference Poolable/IsoPoolable adapters over
// the standard growable container shapes.
package poolshark

import "github.com/estokes/poolshark/discriminant"

// Poolable is the contract any recyclable item type must satisfy. The type
// parameter is the implementing type itself (Self), so Empty can return a
// concrete T rather than an interface.
type Poolable[T any] interface {
	// Empty constructs a new, zero-capacity instance.
	Empty() T

	// Reset empties the item in place, preserving its backing allocation.
	Reset()

	// Capacity reports the size the allocator considers this item to
	// hold. An item with Capacity() == 0 is not worth pooling.
	Capacity() int

	// ReallyDropped returns false only for shared-ownership items whose
	// destruction has not yet reached the last holder. Types with no
	// shared ownership should always return true.
	ReallyDropped() bool
}

// IsoPoolable extends Poolable with an optional compile-time discriminant.
// Items sharing a discriminant declare their empty backing allocations
// interchangeable, letting the registry (package registry) hand instances
// of one generic instantiation back out as another.
type IsoPoolable[T any] interface {
	Poolable[T]

	// Discriminant returns this type's layout key, or false if the type
	// has none (e.g. its element layout could not be packed — see
	// package discriminant). A type with no discriminant is never pooled
	// by the registry; it is synthesized fresh on every take.
	Discriminant() (discriminant.Discriminant, bool)
}
