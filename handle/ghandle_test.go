package handle

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estokes/poolshark/pool"
)

type growArray struct {
	data    []int
	dropped bool
}

func (a *growArray) Reset()             { a.data = a.data[:0] }
func (a *growArray) Capacity() int       { return cap(a.data) }
func (a *growArray) ReallyDropped() bool { return true }
func (a *growArray) ReallyDrop()        { a.dropped = true }

func emptyGrowArray(pool.WeakPool[*growArray]) *growArray { return &growArray{} }

func addrOf(data []int) uintptr {
	if cap(data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(data)))
}

func TestGHandleRoundTripSameAllocation(t *testing.T) {
	p := pool.New[*growArray](1024, 1024)

	h0 := FromPool[*growArray](p, emptyGrowArray)
	h0.Get().data = make([]int, 0, 100)
	addr := addrOf(h0.Get().data)
	h0.Release()

	for i := 0; i < 100; i++ {
		h := FromPool[*growArray](p, emptyGrowArray)
		require.Equal(t, addr, addrOf(h.Get().data))
		for j := 0; j < 100; j++ {
			h.Get().data = append(h.Get().data, j)
		}
		h.Release()
	}
}

func TestGHandleOversizedNeverReturnsToPool(t *testing.T) {
	p := pool.New[*growArray](1024, 1024)
	for i := 0; i < 100; i++ {
		h := FromPool[*growArray](p, emptyGrowArray)
		h.Get().data = make([]int, 0, 1025)
		h.Release()
	}
	assert.Equal(t, 0, p.Len())
}

func TestGHandleOrphanAlwaysFinalReleases(t *testing.T) {
	v := &growArray{data: make([]int, 0, 4)}
	h := Orphan[*growArray](v)
	h.Release()
	assert.True(t, v.dropped)
}

func TestGHandleDetachSkipsPoolEntirely(t *testing.T) {
	p := pool.New[*growArray](4, 1024)
	h := FromPool[*growArray](p, emptyGrowArray)
	v := h.Detach()
	assert.False(t, v.dropped)
	assert.Equal(t, 0, p.Len())
}

func TestGHandleReleaseIdempotent(t *testing.T) {
	p := pool.New[*growArray](4, 1024)
	h := FromPool[*growArray](p, emptyGrowArray)
	h.Get().data = make([]int, 0, 4)
	h.Release()
	assert.Equal(t, 1, p.Len())
	h.Release()
	assert.Equal(t, 1, p.Len())
}

func TestGHandleCloseDrainsOutstandingHandles(t *testing.T) {
	p := pool.New[*growArray](4, 1024)
	h := FromPool[*growArray](p, emptyGrowArray)
	v := h.Get()
	v.data = make([]int, 0, 4)

	p.Close()
	h.Release()

	assert.True(t, v.dropped, "Release must final-release once the origin pool is closed")
}

func TestGHandlePanicsAfterRelease(t *testing.T) {
	p := pool.New[*growArray](4, 1024)
	h := FromPool[*growArray](p, emptyGrowArray)
	h.Release()
	assert.Panics(t, func() { h.Get() })
}
