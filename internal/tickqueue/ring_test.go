package tickqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { New[int](3) })
	assert.Panics(t, func() { New[int](0) })
}

func TestCapacityIsOneLessThanBuffer(t *testing.T) {
	r := New[int](8)
	assert.Equal(t, uint64(7), r.Capacity())
}

func TestPushPopRoundTrip(t *testing.T) {
	r := New[int](4)
	ok := r.Push(42)
	require.True(t, ok)
	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = r.Pop()
	assert.False(t, ok, "pop on empty ring must fail")
}

func TestPushFailsWhenFull(t *testing.T) {
	r := New[int](4) // usable capacity 3
	for i := 0; i < 3; i++ {
		require.True(t, r.Push(i))
	}
	assert.False(t, r.Push(99), "fourth push must be rejected, one slot reserved")
	assert.Equal(t, uint64(3), r.Len())
}

func TestFIFOOrderPreserved(t *testing.T) {
	r := New[int](16)
	for i := 0; i < 15; i++ {
		require.True(t, r.Push(i))
	}
	for i := 0; i < 15; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestConcurrentSingleProducerSingleConsumer(t *testing.T) {
	r := New[int](1024)
	const n = 100_000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !r.Push(i) {
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			v, ok := r.Pop()
			if !ok {
				continue
			}
			received = append(received, v)
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, v := range received {
		assert.Equal(t, i, v)
	}
}
