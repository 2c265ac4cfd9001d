// Package discriminant implements the compact runtime key that decides
// whether two generic container instantiations may share one pool.
//
// A Discriminant never describes *what* a type is; it only describes
// whether the empty, reset backing allocation of one type is bit-compatible
// with another's. Equality is the only operation the rest of this module
// performs on a Discriminant — the bits themselves are never dereferenced.
package discriminant

import "unsafe"

// maxLayoutSize is the largest element size a Layout can encode (12 bits).
const maxLayoutSize = 0x0FFF

// maxLayoutAlign is the largest alignment a Layout can encode (4 bits).
const maxLayoutAlign = 0x10

// noConstSize is the sentinel ConstSize value meaning "no const-size
// parameter was supplied".
const noConstSize = 0xFFFF

// Layout packs an element's size and alignment into 16 bits: the upper 12
// bits hold the byte size, the lower 4 hold the alignment. A Layout is
// meaningful only as half of a Discriminant; two Layouts are interchangeable
// exactly when they are equal.
type Layout uint16

// NewLayout packs size and align into a Layout. It reports false if size
// exceeds 4,095 bytes or align exceeds 16 — such a type can never
// participate in a Discriminant.
func NewLayout(size, align uintptr) (Layout, bool) {
	if size > maxLayoutSize || align > maxLayoutAlign {
		return 0, false
	}
	return Layout((uint16(size) << 4) | (uint16(align) & 0x0F)), true
}

func layoutOf[T any]() (Layout, bool) {
	var zero T
	return NewLayout(unsafe.Sizeof(zero), unsafe.Alignof(zero))
}

// Discriminant is the 8-byte key described in spec §4.1: a 16-bit site id,
// up to two compressed element Layouts, and a 16-bit const-size parameter
// (ConstSize == 0xFFFF means "no const size").
type Discriminant struct {
	SiteID    uint16
	Elements  [2]Layout
	ConstSize uint16
}

// ReservedSiteIDs are claimed by this module's own built-in container
// adapters (see package container) and must never be handed out by the
// site-id allocator. Id 0 is additionally reserved as "invalid / no
// discriminant" — the zero value of Discriminant never compares equal to
// any discriminant produced by a constructor below.
const ReservedSiteIDs = 16

// Invalid is the sentinel returned by a site-id allocator to mean "could
// not assign" or used by callers as an explicit non-participant marker. It
// is never equal to any Discriminant produced by New/NewP1/NewP2 and
// friends, because those reject SiteID == 0.
var Invalid = Discriminant{}

func validSiteID(id uint16) bool { return id != 0 }

// New builds a Discriminant for a container with no type parameters that
// affect layout (e.g. a fixed-shape record). Returns false if id is 0.
func New(id uint16) (Discriminant, bool) {
	if !validSiteID(id) {
		return Invalid, false
	}
	return Discriminant{SiteID: id, ConstSize: noConstSize}, true
}

// NewSize builds a Discriminant for a container parameterized only by a
// const-size value (e.g. a fixed-capacity inline buffer of N bytes).
// Returns false if id is 0 or constSize >= 0xFFFF.
func NewSize(id uint16, constSize uint16) (Discriminant, bool) {
	if !validSiteID(id) || constSize >= noConstSize {
		return Invalid, false
	}
	return Discriminant{SiteID: id, ConstSize: constSize}, true
}

// NewP1 builds a Discriminant for a container with one element type
// parameter (e.g. Vec<T>). Returns false if id is 0 or T's layout cannot be
// packed (size > 4095 or align > 16).
func NewP1[T any](id uint16) (Discriminant, bool) {
	if !validSiteID(id) {
		return Invalid, false
	}
	l0, ok := layoutOf[T]()
	if !ok {
		return Invalid, false
	}
	return Discriminant{SiteID: id, Elements: [2]Layout{l0, 0}, ConstSize: noConstSize}, true
}

// NewP1Size is NewP1 combined with a const-size parameter.
func NewP1Size[T any](id uint16, constSize uint16) (Discriminant, bool) {
	if constSize >= noConstSize {
		return Invalid, false
	}
	d, ok := NewP1[T](id)
	if !ok {
		return Invalid, false
	}
	d.ConstSize = constSize
	return d, true
}

// NewP2 builds a Discriminant for a container with two element type
// parameters (e.g. HashMap<K, V>).
func NewP2[T, U any](id uint16) (Discriminant, bool) {
	if !validSiteID(id) {
		return Invalid, false
	}
	l0, ok := layoutOf[T]()
	if !ok {
		return Invalid, false
	}
	l1, ok := layoutOf[U]()
	if !ok {
		return Invalid, false
	}
	return Discriminant{SiteID: id, Elements: [2]Layout{l0, l1}, ConstSize: noConstSize}, true
}

// NewP2Size is NewP2 combined with a const-size parameter.
func NewP2Size[T, U any](id uint16, constSize uint16) (Discriminant, bool) {
	if constSize >= noConstSize {
		return Invalid, false
	}
	d, ok := NewP2[T, U](id)
	if !ok {
		return Invalid, false
	}
	d.ConstSize = constSize
	return d, true
}

// Rewrap reuses inner's element layouts and const-size under a different
// site id — the composition rule an Option-shaped container needs: its
// discriminant must vary exactly when its payload's element layouts vary,
// while still being distinguishable from the payload's own discriminant
// (see _examples/original_source/src/pooled.rs's Option<T> impl, which
// keeps T's `elements` but swaps in Option's own container id). Returns
// false if id is 0.
func Rewrap(inner Discriminant, id uint16) (Discriminant, bool) {
	if !validSiteID(id) {
		return Invalid, false
	}
	return Discriminant{SiteID: id, Elements: inner.Elements, ConstSize: inner.ConstSize}, true
}
