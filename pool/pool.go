// Package pool implements the cross-goroutine shared pool described in
// spec §4.3: a lock-free bounded queue of ready-to-reuse items, plus the
// weak-reference plumbing that lets a handle find its way back to its
// origin pool from any goroutine without keeping that pool alive.
package pool

import (
	"sync/atomic"
)

// RawPoolable is the low-level contract the global pool requires. Unlike
// poolshark.Poolable, it has no Empty method: the constructor is a function
// passed to GlobalPool.Take, which hands it a WeakPool so the resulting
// item can carry a reference back to the pool that made it (see
// handle.GHandle). ReallyDrop is the final-release path: it must release
// the item without any attempt at reinsertion.
//
// This is an unsafe contract in the sense spec §6 describes RawPoolable:
// implementing it incorrectly (e.g. ignoring the supplied WeakPool, or
// doing real work in ReallyDrop beyond releasing resources) is a
// correctness bug the type system cannot catch.
type RawPoolable[T any] interface {
	Reset()
	Capacity() int
	ReallyDropped() bool

	// ReallyDrop performs final release: bypasses the pool entirely.
	ReallyDrop()
}

// coreState tracks whether a GlobalPool's backing ring is still reachable
// through a WeakPool. It is the Go stand-in for Rust's Arc/Weak pair
// described in spec §9 ("cyclic ownership between pool and handle") —
// closed flips to true exactly once, when the last strong owner calls
// Close, and every WeakPool.Upgrade after that observes it and fails.
type coreState[T RawPoolable[T]] struct {
	maxItemCapacity int
	items           *ring[T]
	closed          atomic.Bool
}

// GlobalPool is a shared-ownership, lock-free bounded pool of items of
// type T. Handles created by Take/TryTake carry only a WeakPool, never a
// strong reference, so a GlobalPool can be closed out from under
// outstanding handles: each of them simply falls through to final release
// on its next Upgrade attempt.
type GlobalPool[T RawPoolable[T]] struct {
	core *coreState[T]
}

// New constructs a GlobalPool holding at most maxPoolSize items, each of
// which must report Capacity() <= maxItemCapacity to be accepted by
// Insert.
func New[T RawPoolable[T]](maxPoolSize, maxItemCapacity int) *GlobalPool[T] {
	return &GlobalPool[T]{
		core: &coreState[T]{
			maxItemCapacity: maxItemCapacity,
			items:           newRing[T](maxPoolSize),
		},
	}
}

// Take dequeues an item, synthesizing one via empty if the pool has
// nothing ready. Take always succeeds (spec §7: runtime operations never
// fail visibly).
func (p *GlobalPool[T]) Take(empty func(WeakPool[T]) T) T {
	if v, ok := p.core.items.pop(); ok {
		return v
	}
	return empty(p.Downgrade())
}

// TryTake dequeues an item if one is ready, never synthesizing.
func (p *GlobalPool[T]) TryTake() (T, bool) {
	return p.core.items.pop()
}

// Insert attempts to return item to the pool. It is accepted iff its
// capacity is in (0, maxItemCapacity] and the pool is not already at
// maxPoolSize; otherwise item is finally released. Insert never blocks.
func (p *GlobalPool[T]) Insert(item T) {
	cap := item.Capacity()
	if cap <= 0 || cap > p.core.maxItemCapacity {
		item.ReallyDrop()
		return
	}
	item.Reset()
	if !p.core.items.push(item) {
		item.ReallyDrop()
	}
}

// Prune discards a fraction of pooled items to shed memory (spec §4.3): if
// occupancy exceeds 10% of capacity it discards ~10% of the current
// occupancy; else if it exceeds 1% of capacity it discards ~1% of the
// current occupancy (at least one); otherwise, if nonempty, it discards
// exactly one.
// Repeated calls monotonically drain the pool toward empty.
func (p *GlobalPool[T]) Prune() {
	n := p.core.items.Len()
	if n == 0 {
		return
	}
	tenPct := p.core.items.Cap() / 10
	if tenPct < 1 {
		tenPct = 1
	}
	onePct := tenPct / 10
	if onePct < 1 {
		onePct = 1
	}

	var discard int
	switch {
	case n > tenPct:
		discard = n / 10
	case n > onePct:
		discard = n / 100
	default:
		discard = 1
	}
	if discard < 1 {
		discard = 1
	}
	for i := 0; i < discard; i++ {
		v, ok := p.core.items.pop()
		if !ok {
			return
		}
		v.ReallyDrop()
	}
}

// Len reports the pool's current (approximate) occupancy.
func (p *GlobalPool[T]) Len() int { return p.core.items.Len() }

// Close marks the pool unreachable, then drains it and releases every
// remaining item via final release: outstanding WeakPool handles observe
// Upgrade failing from this point on and fall through to final release
// themselves. Close is idempotent.
func (p *GlobalPool[T]) Close() {
	if !p.core.closed.CompareAndSwap(false, true) {
		return
	}
	for {
		v, ok := p.core.items.pop()
		if !ok {
			return
		}
		v.ReallyDrop()
	}
}

// Downgrade returns a non-owning WeakPool referring to p, for handles that
// must locate their origin pool without keeping it alive.
func (p *GlobalPool[T]) Downgrade() WeakPool[T] {
	return WeakPool[T]{core: p.core}
}

// WeakPool is a non-owning reference to a GlobalPool. It is safe to hold
// across goroutines and across the origin pool's lifetime; Upgrade reports
// whether the pool is still reachable.
type WeakPool[T RawPoolable[T]] struct {
	core *coreState[T]
}

// Upgrade returns the live GlobalPool, or false if it has been Closed (or
// w is the zero value, as produced by an orphan handle).
func (w WeakPool[T]) Upgrade() (*GlobalPool[T], bool) {
	if w.core == nil || w.core.closed.Load() {
		return nil, false
	}
	return &GlobalPool[T]{core: w.core}, true
}
