package handle

import (
	"github.com/estokes/poolshark"
	"github.com/estokes/poolshark/registry"
)

// LHandle is a scoped wrapper around an item recycled through the
// per-goroutine registry (package registry). It carries no pool reference
// at all — Release reinserts into whichever goroutine's registry calls
// it, not the one the item was originally taken from. This is intentional
// (spec §4.4 "cross-thread drop"); for strict origin affinity use GHandle
// over a pool.GlobalPool instead.
type LHandle[T poolshark.IsoPoolable[T]] struct {
	item     T
	released bool
}

// Take pulls an item of type T from the calling goroutine's registry
// shard, synthesizing one if none is pooled.
func Take[T poolshark.IsoPoolable[T]]() *LHandle[T] {
	return &LHandle[T]{item: registry.Take[T]()}
}

// TakeSized is Take, but also installs maxPoolSize/maxItemCapacity as this
// shard's sizes for T if no pool for it exists yet.
func TakeSized[T poolshark.IsoPoolable[T]](maxPoolSize, maxItemCapacity int) *LHandle[T] {
	return &LHandle[T]{item: registry.TakeSized[T](maxPoolSize, maxItemCapacity)}
}

// FromItem wraps an already-constructed item in an LHandle, without
// consulting the registry. Useful for adapting a freshly-Empty()'d value.
func FromItem[T poolshark.IsoPoolable[T]](item T) *LHandle[T] {
	return &LHandle[T]{item: item}
}

// Get returns the wrapped item. It panics if called after Release/Detach.
func (h *LHandle[T]) Get() T {
	if h.released {
		panic("poolshark: use of LHandle after Release/Detach")
	}
	return h.item
}

// Detach consumes the handle and returns the naked item with no further
// registry interaction.
func (h *LHandle[T]) Detach() T {
	h.released = true
	return h.item
}

// Release implements LHandle's half of the handle state machine (spec
// §4.5): if ReallyDropped() is true, the item is pushed back into the
// calling goroutine's registry shard (which may differ from the shard it
// was taken from); otherwise it is left alone in place. Idempotent.
func (h *LHandle[T]) Release() {
	if h.released {
		return
	}
	h.released = true

	if !h.item.ReallyDropped() {
		return
	}
	registry.Insert[T](h.item)
}
