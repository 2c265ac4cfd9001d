// Package container supplies a reference set of Poolable/IsoPoolable
// adapters over the standard growable container shapes, grounded on
// _examples/original_source/src/pooled.rs's built-in trait impls (Vec,
// HashMap, HashSet, VecDeque, String, Option). Spec §1 places "adapter
// implementations for concrete container types" out of scope as thin
// surrounding work for external collaborators; these are kept as a small,
// load-bearing reference set that exercises the discriminant/registry
// machinery in tests, not as part of the core API.
package container

import (
	"github.com/estokes/poolshark/discriminant"
)

// Reserved site ids claimed by this package's built-in adapters (spec's
// ContainerId 0-7 in original_source/src/pooled.rs, restated here under
// discriminant.ReservedSiteIDs' 1-15 reservation). Id 0 stays
// discriminant.Invalid's exclusive territory.
const (
	SliceContainerID  = 1
	MapContainerID    = 2
	BufferContainerID = 3
	DequeContainerID  = 4
	OptionContainerID = 5
)

// Slice is a growable-array adapter (Go's analogue of Rust's Vec<T>).
type Slice[E any] struct {
	Items []E
}

func (s *Slice[E]) Empty() *Slice[E]     { return &Slice[E]{} }
func (s *Slice[E]) Reset()               { s.Items = s.Items[:0] }
func (s *Slice[E]) Capacity() int        { return cap(s.Items) }
func (s *Slice[E]) ReallyDropped() bool  { return true }

// Discriminant groups every Slice[E] sharing E's layout into one pool
// bucket, regardless of how deeply nested or aliased E's named type is —
// only E's size and alignment matter (spec §4.1's reuse rule).
func (s *Slice[E]) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.NewP1[E](SliceContainerID)
}
