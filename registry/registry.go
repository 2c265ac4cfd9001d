// Package registry implements the per-goroutine pool registry described in
// spec §4.4: a keyed collection of pools, keyed by discriminant rather
// than by type, so that layout-isomorphic instantiations of a generic
// container can share one bucket.
//
// Spec §4.4 calls this "thread-affine"; Go exposes no user-level thread
// identity, so this package shards by goroutine identity instead (via
// github.com/jtolds/gls) — see SPEC_FULL.md's "Go-native restatement".
// Goroutines are far more numerous and shorter-lived than OS threads, so
// the registry does not key directly by goroutine id (that map would grow
// without bound); instead goroutine ids are hashed into a fixed number of
// shards, each independently guarded by a try-lock. A goroutine is
// "affine" to whichever shard its id maps to for its entire lifetime.
package registry

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/jtolds/gls"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/estokes/poolshark"
	"github.com/estokes/poolshark/discriminant"
)

const defaultMaxPoolSize = 1024
const defaultMaxItemCapacity = 1 << 20

// shardMultiplier oversizes the shard array relative to GOMAXPROCS so that
// goroutine-id collisions on a shard stay infrequent without needing a
// shard per goroutine.
const shardMultiplier = 4

// erasedPool is a type-erased handle to a concrete *typedPool[T]: a raw
// pointer plus a destructor closure invoked on Clear/ClearType. The map
// that stores these never dereferences ptr itself, only dispatches
// destroy — mirroring the Opaque wrapper in
// _examples/original_source/src/local/mod.rs.
type erasedPool struct {
	ptr     unsafe.Pointer
	destroy func(unsafe.Pointer)
}

type typedPool[T any] struct {
	maxPoolSize     int
	maxItemCapacity int
	data            []T
}

type shard struct {
	mu    sync.Mutex
	pools map[discriminant.Discriminant]*erasedPool
}

var shards = makeShards()

func makeShards() []shard {
	n := runtime.GOMAXPROCS(0) * shardMultiplier
	if n < 1 {
		n = 1
	}
	s := make([]shard, n)
	for i := range s {
		s[i].pools = make(map[discriminant.Discriminant]*erasedPool)
	}
	return s
}

var sizeTable = xsync.NewMapOf[discriminant.Discriminant, sizePair]()

type sizePair struct {
	maxPoolSize     int
	maxItemCapacity int
}

func currentShard() *shard {
	id := gls.GoID()
	return &shards[uint(id)%uint(len(shards))]
}

// withShard attempts to acquire the goroutine's shard and runs fn with it.
// If the shard is already held — by a concurrent call on the same
// goroutine class, or (more commonly) because a client-supplied Reset
// recursively dropped a pooled item and re-entered the registry mid-call —
// fn runs with nil instead of blocking or panicking. This is the Go
// analogue of RefCell::try_borrow_mut failing in
// _examples/original_source/src/local/mod.rs's with_pool: a failed borrow
// falls through to final release rather than deadlocking or re-entering
// broken state.
func withShard[R any](fn func(*shard) R) R {
	s := currentShard()
	if !s.mu.TryLock() {
		return fn(nil)
	}
	defer s.mu.Unlock()
	return fn(s)
}

func poolFor[T poolshark.IsoPoolable[T]](s *shard, d discriminant.Discriminant, createSize func() (int, int)) *typedPool[T] {
	if e, ok := s.pools[d]; ok {
		return (*typedPool[T])(e.ptr)
	}
	maxPool, maxItem := createSize()
	tp := &typedPool[T]{maxPoolSize: maxPool, maxItemCapacity: maxItem}
	s.pools[d] = &erasedPool{
		ptr: unsafe.Pointer(tp),
		destroy: func(p unsafe.Pointer) {
			(*typedPool[T])(p).data = nil
		},
	}
	return tp
}

func defaultSizesFor(d discriminant.Discriminant) func() (int, int) {
	return func() (int, int) {
		if sz, ok := sizeTable.Load(d); ok {
			return sz.maxPoolSize, sz.maxItemCapacity
		}
		return defaultMaxPoolSize, defaultMaxItemCapacity
	}
}

// Take locates the pool for T's discriminant (creating one with default
// sizes if it doesn't exist yet) and pops an item, synthesizing one via
// Empty if none are pooled. If T has no discriminant, Take always
// synthesizes — the type is simply never pooled.
func Take[T poolshark.IsoPoolable[T]]() T {
	var zero T
	d, ok := zero.Discriminant()
	if !ok {
		return zero.Empty()
	}
	v, found := withShard(func(s *shard) (T, bool) {
		if s == nil {
			var z T
			return z, false
		}
		p := poolFor[T](s, d, defaultSizesFor(d))
		if n := len(p.data); n > 0 {
			v := p.data[n-1]
			p.data = p.data[:n-1]
			return v, true
		}
		var z T
		return z, false
	})
	if found {
		return v
	}
	return zero.Empty()
}

// TakeSized is Take, but also installs maxPoolSize/maxItemCapacity as this
// shard's sizes for T's discriminant if no pool exists for it yet.
func TakeSized[T poolshark.IsoPoolable[T]](maxPoolSize, maxItemCapacity int) T {
	var zero T
	d, ok := zero.Discriminant()
	if !ok {
		return zero.Empty()
	}
	v, found := withShard(func(s *shard) (T, bool) {
		if s == nil {
			var z T
			return z, false
		}
		p := poolFor[T](s, d, func() (int, int) { return maxPoolSize, maxItemCapacity })
		if n := len(p.data); n > 0 {
			v := p.data[n-1]
			p.data = p.data[:n-1]
			return v, true
		}
		var z T
		return z, false
	})
	if found {
		return v
	}
	return zero.Empty()
}

// Insert resets t and pushes it onto T's pool if under the size and
// capacity thresholds. If the item is rejected — no discriminant, pool
// full, capacity out of range, or the shard is unavailable (see
// withShard) — Insert returns it back to the caller with ok == false, so
// the caller can finally release it.
func Insert[T poolshark.IsoPoolable[T]](t T) (rejected T, ok bool) {
	t.Reset()
	return InsertRaw(t)
}

// InsertRaw is Insert without the Reset call: the caller must have already
// reset t. Skipping Reset is an explicit caller obligation (spec §4.4) —
// getting it wrong reintroduces live data into a pool of "empty" items.
func InsertRaw[T poolshark.IsoPoolable[T]](t T) (rejected T, ok bool) {
	d, hasDisc := t.Discriminant()
	if !hasDisc {
		return t, false
	}
	cap := t.Capacity()
	if cap <= 0 {
		return t, false
	}

	accepted := withShard(func(s *shard) bool {
		if s == nil {
			return false
		}
		p := poolFor[T](s, d, defaultSizesFor(d))
		if cap > p.maxItemCapacity || len(p.data) >= p.maxPoolSize {
			return false
		}
		p.data = append(p.data, t)
		return true
	})
	if accepted {
		var zero T
		return zero, true
	}
	return t, false
}

// Clear removes every pool on the calling goroutine's shard.
func Clear() {
	withShard(func(s *shard) struct{} {
		if s == nil {
			return struct{}{}
		}
		for _, e := range s.pools {
			e.destroy(e.ptr)
		}
		s.pools = make(map[discriminant.Discriminant]*erasedPool)
		return struct{}{}
	})
}

// ClearType removes T's pool from the calling goroutine's shard, if any.
func ClearType[T poolshark.IsoPoolable[T]]() {
	var zero T
	d, ok := zero.Discriminant()
	if !ok {
		return
	}
	withShard(func(s *shard) struct{} {
		if s == nil {
			return struct{}{}
		}
		if e, ok := s.pools[d]; ok {
			e.destroy(e.ptr)
			delete(s.pools, d)
		}
		return struct{}{}
	})
}

// SetSize records the pool sizes to use for T the next time a shard
// creates a pool for its discriminant. Existing pools already created for
// T are not resized — per spec §9's documented Open Question, the escape
// hatch is ClearType followed by SetSize.
func SetSize[T poolshark.IsoPoolable[T]](maxPoolSize, maxItemCapacity int) {
	var zero T
	d, ok := zero.Discriminant()
	if !ok {
		return
	}
	sizeTable.Store(d, sizePair{maxPoolSize: maxPoolSize, maxItemCapacity: maxItemCapacity})
}

// GetSize reports the sizes registered for T via SetSize, if any.
func GetSize[T poolshark.IsoPoolable[T]]() (maxPoolSize, maxItemCapacity int, ok bool) {
	var zero T
	d, dok := zero.Discriminant()
	if !dok {
		return 0, 0, false
	}
	sz, found := sizeTable.Load(d)
	if !found {
		return 0, 0, false
	}
	return sz.maxPoolSize, sz.maxItemCapacity, true
}
