package pool

import "sync/atomic"

// ring is a bounded, lock-free, multi-producer/multi-consumer queue. It is
// the Go analogue of the crate's ArrayQueue<T> (see
// _examples/original_source/src/global/mod.rs, PoolInner.pool) and borrows
// its slot-reservation technique from the sequence-counter trick used by
// Go's own runtime poolDequeue (_examples/erlangtui-go1.17.13/src/sync/poolqueue.go),
// generalized from single-producer/single-consumer to multi/multi since a
// GlobalPool is shared across arbitrarily many goroutines.
//
// Each slot carries a monotonically advancing sequence number instead of a
// head/tail pair packed into one word: a producer may only write a slot
// whose sequence equals its reservation, and a consumer may only read a
// slot whose sequence equals its reservation plus one. This is the
// classic Vyukov bounded MPMC queue shape.
type ring[T any] struct {
	capacity uint64
	mask     uint64
	enqueue  atomic.Uint64
	dequeue  atomic.Uint64
	slots    []ringSlot[T]
}

type ringSlot[T any] struct {
	sequence atomic.Uint64
	value    T
}

// newRing builds a ring able to hold at most capacity items. capacity is
// rounded up to the next power of two for mask-based indexing; callers
// observe only the logical capacity via Cap().
func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPow2(uint64(capacity))
	r := &ring[T]{
		capacity: uint64(capacity),
		mask:     size - 1,
		slots:    make([]ringSlot[T], size),
	}
	for i := range r.slots {
		r.slots[i].sequence.Store(uint64(i))
	}
	return r
}

func nextPow2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// Cap reports the logical (non-rounded) capacity this ring was built with.
func (r *ring[T]) Cap() int { return int(r.capacity) }

// Len is an approximate, racy occupancy count — fine for the prune policy
// (spec §4.3) which only needs an order-of-magnitude estimate.
func (r *ring[T]) Len() int {
	enq := r.enqueue.Load()
	deq := r.dequeue.Load()
	if enq < deq {
		return 0
	}
	n := int(enq - deq)
	if n > int(r.capacity) {
		n = int(r.capacity)
	}
	return n
}

// push attempts to enqueue v, returning false if the ring is at its
// logical (not rounded) capacity.
func (r *ring[T]) push(v T) bool {
	pos := r.enqueue.Load()
	for {
		// Enforce the logical capacity even though the backing array's
		// power-of-two size may be larger than it.
		if pos-r.dequeue.Load() >= r.capacity {
			return false
		}
		slot := &r.slots[pos&r.mask]
		seq := slot.sequence.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.enqueue.CompareAndSwap(pos, pos+1) {
				slot.value = v
				slot.sequence.Store(pos + 1)
				return true
			}
			pos = r.enqueue.Load()
		case diff < 0:
			// Slot not yet vacated by a consumer, or ring full.
			return false
		default:
			pos = r.enqueue.Load()
		}
	}
}

// pop attempts to dequeue a value, returning false if the ring is empty.
func (r *ring[T]) pop() (T, bool) {
	pos := r.dequeue.Load()
	for {
		slot := &r.slots[pos&r.mask]
		seq := slot.sequence.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if r.dequeue.CompareAndSwap(pos, pos+1) {
				v := slot.value
				var zero T
				slot.value = zero
				slot.sequence.Store(pos + r.mask + 1)
				return v, true
			}
			pos = r.dequeue.Load()
		case diff < 0:
			var zero T
			return zero, false
		default:
			pos = r.dequeue.Load()
		}
	}
}
