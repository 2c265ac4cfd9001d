package discriminant

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type small struct{ a int32 }       // 4 bytes, align 4
type wide struct{ a, b, c int64 }  // 24 bytes, align 8
type oversized [5000]byte          // exceeds 4095 byte cap

func TestNewRejectsZeroSiteID(t *testing.T) {
	_, ok := New(0)
	assert.False(t, ok)

	_, ok = NewP1[int32](0)
	assert.False(t, ok)
}

func TestNewP1SharesLayoutAcrossDistinctTypes(t *testing.T) {
	// int32 and any other 4-byte/4-align type must pack identically.
	d1, ok := NewP1[int32](42)
	require.True(t, ok)
	d2, ok := NewP1[small](42)
	require.True(t, ok)
	assert.Equal(t, d1, d2)
}

func TestNewP1RejectsOversizedType(t *testing.T) {
	_, ok := NewP1[oversized](1)
	assert.False(t, ok)
}

func TestNewP2DistinctWhenElementsDiffer(t *testing.T) {
	d1, ok := NewP2[int32, int32](7)
	require.True(t, ok)
	d2, ok := NewP2[int32, wide](7)
	require.True(t, ok)
	assert.NotEqual(t, d1, d2)
}

func TestConstSizeSentinel(t *testing.T) {
	d, ok := New(5)
	require.True(t, ok)
	assert.Equal(t, uint16(noConstSize), d.ConstSize)

	_, ok = NewSize(5, noConstSize)
	assert.False(t, ok, "const size must be strictly less than the sentinel")

	d2, ok := NewSize(5, 64)
	require.True(t, ok)
	assert.Equal(t, uint16(64), d2.ConstSize)
}

func TestDifferentSiteIDsNeverEqual(t *testing.T) {
	d1, ok := NewP1[int32](1)
	require.True(t, ok)
	d2, ok := NewP1[int32](2)
	require.True(t, ok)
	assert.NotEqual(t, d1, d2)
}

// Property: packing is a pure function of (size, align); two calls with the
// same in-range inputs always produce the same Layout, and any size above
// the 12-bit limit is always rejected.
func TestLayoutPackingProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	properties.Property("NewLayout is deterministic", prop.ForAll(
		func(size uint16, alignBit uint8) bool {
			align := uintptr(1) << (alignBit % 5) // 1,2,4,8,16
			l1, ok1 := NewLayout(uintptr(size%maxLayoutSize), align)
			l2, ok2 := NewLayout(uintptr(size%maxLayoutSize), align)
			return ok1 == ok2 && l1 == l2
		},
		gen.UInt16(),
		gen.UInt8(),
	))

	properties.Property("oversized inputs are always rejected", prop.ForAll(
		func(extra uint16) bool {
			_, ok := NewLayout(maxLayoutSize+1+uintptr(extra), 4)
			return !ok
		},
		gen.UInt16(),
	))

	properties.TestingRun(t)
}
