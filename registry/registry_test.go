package registry

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estokes/poolshark/discriminant"
)

// intSlice and altIntSlice are two distinct Go types whose backing
// allocation (a []int32) is bit-compatible once empty — exactly the
// scenario spec §4.4's reuse rule exists for: a lookup by discriminant may
// hand out an allocation that was first installed under a different
// concrete type.
type intSlice struct{ data []int32 }

func (s *intSlice) Empty() *intSlice       { return &intSlice{} }
func (s *intSlice) Reset()                 { s.data = s.data[:0] }
func (s *intSlice) Capacity() int          { return cap(s.data) }
func (s *intSlice) ReallyDropped() bool    { return true }
func (s *intSlice) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.NewP1[int32](100)
}

type altIntSlice struct{ data []int32 }

func (s *altIntSlice) Empty() *altIntSlice    { return &altIntSlice{} }
func (s *altIntSlice) Reset()                 { s.data = s.data[:0] }
func (s *altIntSlice) Capacity() int          { return cap(s.data) }
func (s *altIntSlice) ReallyDropped() bool    { return true }
func (s *altIntSlice) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.NewP1[int32](100) // same site id -> same discriminant
}

// differentSite has its own discriminant and must never share a bucket
// with intSlice/altIntSlice.
type differentSite struct{ data []int32 }

func (s *differentSite) Empty() *differentSite    { return &differentSite{} }
func (s *differentSite) Reset()                   { s.data = s.data[:0] }
func (s *differentSite) Capacity() int             { return cap(s.data) }
func (s *differentSite) ReallyDropped() bool       { return true }
func (s *differentSite) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.NewP1[int32](101)
}

func dataAddr(data []int32) uintptr {
	if cap(data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(data)))
}

type noDiscSlice struct{ data []int32 }

func (s *noDiscSlice) Empty() *noDiscSlice { return &noDiscSlice{} }
func (s *noDiscSlice) Reset()              { s.data = s.data[:0] }
func (s *noDiscSlice) Capacity() int       { return cap(s.data) }
func (s *noDiscSlice) ReallyDropped() bool { return true }
func (s *noDiscSlice) Discriminant() (discriminant.Discriminant, bool) {
	return discriminant.Invalid, false
}

func TestTakeSynthesizesWithoutDiscriminant(t *testing.T) {
	a := &noDiscSlice{data: make([]int32, 0, 16)}
	_, ok := Insert[*noDiscSlice](a)
	assert.False(t, ok, "a type with no discriminant is never pooled")

	b := Take[*noDiscSlice]()
	assert.Equal(t, 0, b.Capacity(), "always synthesizes fresh")
}

func TestIsomorphicTypesShareBucket(t *testing.T) {
	ClearType[*intSlice]()
	ClearType[*altIntSlice]()

	a := Take[*intSlice]()
	a.data = make([]int32, 0, 8)
	addr := dataAddr(a.data)

	rejected, ok := Insert[*intSlice](a)
	require.True(t, ok)
	assert.Zero(t, rejected)

	b := Take[*altIntSlice]()
	require.Equal(t, addr, dataAddr(b.data), "altIntSlice should receive intSlice's recycled allocation")
}

func TestDistinctDiscriminantsNeverShareBucket(t *testing.T) {
	ClearType[*intSlice]()
	ClearType[*differentSite]()

	a := Take[*intSlice]()
	a.data = make([]int32, 0, 8)
	addr := dataAddr(a.data)
	Insert[*intSlice](a)

	c := Take[*differentSite]()
	assert.NotEqual(t, addr, dataAddr(c.data))
}

func TestSetSizeAffectsOnlyFreshPools(t *testing.T) {
	ClearType[*intSlice]()
	SetSize[*intSlice](2, 4)
	maxPool, maxItem, ok := GetSize[*intSlice]()
	require.True(t, ok)
	assert.Equal(t, 2, maxPool)
	assert.Equal(t, 4, maxItem)

	a := &intSlice{data: make([]int32, 0, 5)}
	_, accepted := Insert[*intSlice](a)
	assert.False(t, accepted, "capacity 5 exceeds the configured max of 4")

	b := &intSlice{data: make([]int32, 0, 4)}
	_, accepted = Insert[*intSlice](b)
	assert.True(t, accepted)
}

func TestInsertRejectsWhenPoolFull(t *testing.T) {
	ClearType[*intSlice]()
	SetSize[*intSlice](1, 1024)
	ClearType[*intSlice]() // re-create under the new size
	Insert[*intSlice](&intSlice{data: make([]int32, 0, 1)})
	rejected, ok := Insert[*intSlice](&intSlice{data: make([]int32, 0, 1)})
	assert.False(t, ok)
	assert.NotNil(t, rejected)
}

func TestClearRemovesAllPools(t *testing.T) {
	ClearType[*intSlice]()
	Insert[*intSlice](&intSlice{data: make([]int32, 0, 1)})
	Clear()
	a := Take[*intSlice]()
	assert.Equal(t, 0, a.Capacity())
}
