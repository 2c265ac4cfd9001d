// Package handle implements the three scoped-acquisition wrappers of spec
// §4.5. Go has no destructors, so where spec.md says "on drop" these types
// instead require an explicit Release() call — idiomatic Go resource
// management (defer h.Release(), the same shape as defer resp.Body.Close()
// or defer pool.Put(buf)) rather than a language-enforced Drop. A handle
// that is never released is simply collected by the GC like any other
// value; it never panics and never corrupts a pool, it just misses a
// reuse opportunity (spec §7).
package handle

import "github.com/estokes/poolshark/pool"

// GHandle is a scoped wrapper around an item recycled through a
// cross-goroutine pool.GlobalPool. It carries only a weak reference to its
// origin pool, so the pool may be Closed while handles are outstanding —
// each simply falls through to final release on its next Release.
type GHandle[T pool.RawPoolable[T]] struct {
	item     T
	weak     pool.WeakPool[T]
	released bool
}

// FromPool takes an item from p (synthesizing one via empty if p is
// empty) and wraps it in a GHandle bound to p.
func FromPool[T pool.RawPoolable[T]](p *pool.GlobalPool[T], empty func(pool.WeakPool[T]) T) *GHandle[T] {
	return &GHandle[T]{item: p.Take(empty), weak: p.Downgrade()}
}

// Orphan constructs a handle with no pool: Release always finally releases
// v, with no upgrade attempt observable, ever.
func Orphan[T pool.RawPoolable[T]](v T) *GHandle[T] {
	return &GHandle[T]{item: v}
}

// Get returns the wrapped item for direct access. It panics if called
// after Release or Detach, the same contract as using a value after it has
// been returned to a sync.Pool.
func (h *GHandle[T]) Get() T {
	if h.released {
		panic("poolshark: use of GHandle after Release/Detach")
	}
	return h.item
}

// Reassign swaps h's origin pool: on the next Release, h's item is offered
// to p instead of whatever pool it came from.
func (h *GHandle[T]) Reassign(p *pool.GlobalPool[T]) {
	h.weak = p.Downgrade()
}

// Detach consumes the handle and returns the naked item, with no further
// pool interaction — neither a reinsertion attempt nor a final release
// happens for it. The caller now owns item's lifecycle.
func (h *GHandle[T]) Detach() T {
	h.released = true
	return h.item
}

// Release implements the handle state machine of spec §4.5: if the item's
// ReallyDropped is false (a shared-ownership item whose destruction
// hasn't reached the last holder) it is dropped in place. Otherwise
// Release tries to upgrade the weak pool reference: on success the item is
// inserted, on failure (pool already closed, or h is an orphan) it is
// finally released. Release is idempotent — calling it twice is a no-op.
func (h *GHandle[T]) Release() {
	if h.released {
		return
	}
	h.released = true

	if !h.item.ReallyDropped() {
		// Still shared: some other holder keeps item alive. There is
		// nothing to do here — no reinsertion, no final release. Go's
		// GC (not an explicit destructor) reclaims item once every
		// holder has let go.
		return
	}
	p, ok := h.weak.Upgrade()
	if !ok {
		h.item.ReallyDrop()
		return
	}
	p.Insert(h.item)
}
