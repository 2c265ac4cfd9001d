package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingRejectsBeyondCapacity(t *testing.T) {
	r := newRing[int](2)
	require.True(t, r.push(1))
	require.True(t, r.push(2))
	assert.False(t, r.push(3))
	assert.Equal(t, 2, r.Len())
}

func TestRingFIFOOrder(t *testing.T) {
	r := newRing[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, r.push(i))
	}
	for i := 0; i < 4; i++ {
		v, ok := r.pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.pop()
	assert.False(t, ok)
}

func TestRingConcurrentProducersConsumers(t *testing.T) {
	const n = 10_000
	r := newRing[int](64)

	var produced, consumed sync.WaitGroup
	produced.Add(4)
	for g := 0; g < 4; g++ {
		go func() {
			defer produced.Done()
			for i := 0; i < n/4; i++ {
				for !r.push(i) {
					// backpressure: ring is bounded, retry until a
					// consumer makes room.
				}
			}
		}()
	}

	got := make(chan int, n)
	consumed.Add(4)
	for g := 0; g < 4; g++ {
		go func() {
			defer consumed.Done()
			for i := 0; i < n/4; i++ {
				for {
					if v, ok := r.pop(); ok {
						got <- v
						break
					}
				}
			}
		}()
	}

	produced.Wait()
	consumed.Wait()
	close(got)

	count := 0
	for range got {
		count++
	}
	assert.Equal(t, n, count)
}

func TestRingNonPowerOfTwoCapacityRoundsUpTransparently(t *testing.T) {
	r := newRing[int](3)
	assert.Equal(t, 3, r.Cap())
	require.True(t, r.push(1))
	require.True(t, r.push(2))
	require.True(t, r.push(3))
	assert.False(t, r.push(4))
}
