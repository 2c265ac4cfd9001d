package container

import (
	"github.com/estokes/poolshark"
	"github.com/estokes/poolshark/discriminant"
)

// Optional composes really_dropped and the discriminant over an inner
// Poolable payload the way original_source/src/pooled.rs's Option<T> impl
// does: an absent Optional is always ReallyDropped, a present one defers to
// its payload, and its discriminant reuses the payload's element layouts
// under Optional's own container id rather than the payload's — so an
// Optional[*Slice[E]] never shares a pool bucket with the *Slice[E] it
// wraps, while two Optionals whose payload discriminants carry the same
// element layouts and const size share one.
type Optional[T poolshark.IsoPoolable[T]] struct {
	value T
	some  bool
}

func (o *Optional[T]) Empty() *Optional[T] { return &Optional[T]{} }

func (o *Optional[T]) Reset() {
	if o.some {
		o.value.Reset()
	}
	o.some = false
}

func (o *Optional[T]) Capacity() int {
	if !o.some {
		return 0
	}
	return o.value.Capacity()
}

func (o *Optional[T]) ReallyDropped() bool {
	if !o.some {
		return true
	}
	return o.value.ReallyDropped()
}

// Discriminant is computed from T's zero value. Every concrete adapter in
// this package computes its Discriminant purely from its type parameters,
// never its receiver's fields, so calling it through a T that happens to
// be a nil pointer (as the zero value of a pointer-shaped T is) is safe.
func (o *Optional[T]) Discriminant() (discriminant.Discriminant, bool) {
	var zero T
	inner, ok := zero.Discriminant()
	if !ok {
		return discriminant.Invalid, false
	}
	return discriminant.Rewrap(inner, OptionContainerID)
}

// IsSome reports whether a value is present.
func (o *Optional[T]) IsSome() bool { return o.some }

// Get returns the held value and true, or the zero value and false.
func (o *Optional[T]) Get() (T, bool) {
	if !o.some {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Set installs v as the held value.
func (o *Optional[T]) Set(v T) { o.value, o.some = v, true }

// Clear empties the Optional without returning its payload to any pool —
// callers that pool their payload separately should take it out first via
// Get/Set rather than relying on Clear to recycle it.
func (o *Optional[T]) Clear() { var zero T; o.value, o.some = zero, false }
