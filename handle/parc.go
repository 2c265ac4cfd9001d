package handle

import (
	"sync/atomic"
	"unsafe"

	"github.com/estokes/poolshark"
	"github.com/estokes/poolshark/pool"
)

// parcCell is the shared, pool-recyclable allocation behind a PArc: it is
// sized to hold both the payload and a weak reference back to the pool it
// came from, mirroring _examples/original_source/src/global/arc.rs's
// Arc<(WeakPool<Self>, T)>. Its capacity is always 1 — per spec §4.1, a
// reference-counted cell can never be truly empty, so it must never be
// declared IsoPoolable; it only ever lives in an explicit
// pool.GlobalPool[PArc[T]] keyed by concrete type.
type parcCell[T poolshark.Poolable[T]] struct {
	strong atomic.Int32
	value  T
	pool   pool.WeakPool[PArc[T]]
}

// PArc is a pooled, reference-counted cell. Cloning bumps a strong count;
// the underlying allocation returns to its pool only when the last clone
// is Released, and is reset (not destroyed) at that point, satisfying
// spec §1's requirement that single-slot containers be emptied in place
// rather than deallocated.
type PArc[T poolshark.Poolable[T]] struct {
	cell *parcCell[T]
}

// New takes a cell from p — pooled cells are always returned at strong
// count 1 (see Reset below), so the result is guaranteed unique — and
// installs v as its payload.
func New[T poolshark.Poolable[T]](p *pool.GlobalPool[PArc[T]], v T) PArc[T] {
	a := p.Take(emptyPArc[T])
	mut, _ := a.GetMut()
	*mut = v
	return a
}

func emptyPArc[T poolshark.Poolable[T]](weak pool.WeakPool[PArc[T]]) PArc[T] {
	var zero T
	cell := &parcCell[T]{value: zero.Empty(), pool: weak}
	cell.strong.Store(1)
	return PArc[T]{cell: cell}
}

// Clone increments the strong count and returns a new PArc sharing the
// same underlying cell.
func (a PArc[T]) Clone() PArc[T] {
	a.cell.strong.Add(1)
	return PArc[T]{cell: a.cell}
}

// GetMut returns a mutable pointer to the payload iff the strong count is
// exactly 1 (this is the sole reference).
func (a PArc[T]) GetMut() (*T, bool) {
	if a.cell.strong.Load() != 1 {
		return nil, false
	}
	return &a.cell.value, true
}

// MakeMut implements clone-on-write: if a is unique, it is mutated in
// place; if shared and a's origin pool is still reachable, a fresh cell is
// taken from the pool and the payload copied into it (a now refers to the
// new, unique cell); if shared and the pool is gone, the payload is
// copied via copy, the same escape hatch Rust's Arc::make_mut takes when
// it must clone rather than reallocate from a (now-unreachable) allocator.
// In both shared cases a's reference to the old cell is Released.
func (a *PArc[T]) MakeMut(copy func(T) T) *T {
	if mut, ok := a.GetMut(); ok {
		return mut
	}
	old := *a
	p, ok := a.cell.pool.Upgrade()
	if ok {
		v := copy(a.cell.value)
		*a = New[T](p, v)
		old.Release()
		mut, _ := a.GetMut()
		return mut
	}
	v := copy(a.cell.value)
	cell := &parcCell[T]{value: v, pool: a.cell.pool}
	cell.strong.Store(1)
	*a = PArc[T]{cell: cell}
	old.Release()
	mut, _ := a.GetMut()
	return mut
}

// StrongCount returns the number of live PArc values sharing this cell.
func (a PArc[T]) StrongCount() int32 { return a.cell.strong.Load() }

// AsPtr returns the cell's identity, stable across Clone/Release cycles
// and usable to assert that a pool round-trip reused the same allocation.
func (a PArc[T]) AsPtr() unsafe.Pointer { return unsafe.Pointer(a.cell) }

// Get returns the payload for read access.
func (a PArc[T]) Get() T { return a.cell.value }

// Reset empties the cell's payload and resets its strong count to 1 ready
// for reuse by New. Called exactly once, by the pool, when a cell is
// accepted back in (see pool.GlobalPool.Insert).
func (a PArc[T]) Reset() {
	a.cell.value.Reset()
	a.cell.strong.Store(1)
}

// Capacity is always 1: a parcCell is a single-slot allocation and is
// never "empty" in the sense a slice or map can be — only its payload is
// reset. See spec §1's Non-goals.
func (a PArc[T]) Capacity() int { return 1 }

// ReallyDropped reports whether this PArc is the cell's last reference at
// the moment it is asked — used only for interoperability with GHandle;
// PArc's own Release below does not use it, since the correct check must
// be a single atomic compare-and-swap, not a separate load followed by a
// separate decrement (which would race against a concurrent Clone).
func (a PArc[T]) ReallyDropped() bool { return a.cell.strong.Load() == 1 }

// ReallyDrop is the final-release path: it drops the cell without any
// pool interaction. The Go GC reclaims the cell once this PArc is the last
// reference to it.
func (a PArc[T]) ReallyDrop() {}

// Release decrements the strong count. If this PArc was the sole
// remaining reference, the cell is reset in place and offered back to its
// pool (or, if the pool is gone, simply left for the GC); otherwise the
// count is just decremented and the cell continues to live for its other
// holders. The two cases are told apart with a single CompareAndSwap
// rather than a load-then-branch, so a concurrent Clone can never race
// this PArc into believing it's unique when it no longer is — a
// correctness strengthening over the Rust original's get_mut().is_some()
// check, which relies on the borrow checker rather than the runtime for
// that guarantee (see DESIGN.md).
func (a PArc[T]) Release() {
	if a.cell.strong.CompareAndSwap(1, 0) {
		// a.cell.strong is 0 for the instant between the CAS above and
		// whichever of Reset (via p.Insert) or the fallback branch below
		// restores it to 1; no other PArc can observe this window because
		// the CAS only ever succeeds for the single, final holder.
		if p, ok := a.cell.pool.Upgrade(); ok {
			p.Insert(a) // Insert resets the cell (strong -> 1) before pushing it.
			return
		}
		a.cell.strong.Store(1)
		return
	}
	a.cell.strong.Add(-1)
}
