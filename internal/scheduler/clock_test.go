package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const goroutines, calls = 20, 200

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := c.Next()
				mu.Lock()
				require.False(t, seen[v])
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*calls)
}

func TestStepBound(t *testing.T) {
	b := NewStepBound(2)
	require.NoError(t, b.Check())
	require.NoError(t, b.Check())
	err := b.Check()
	require.Error(t, err)
	assert.True(t, IsStepBound(err))
	assert.Contains(t, err.Error(), "limit 2")
	assert.Equal(t, 3, b.Current())

	unbounded := NewStepBound(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, unbounded.Check())
	}
}

func TestWorkQueue_FIFOAndClose(t *testing.T) {
	q := newWorkQueue("test")
	a, b := newFakeUnit(1, 0), newFakeUnit(2, 0)
	require.True(t, q.Enqueue(a))
	require.True(t, q.Enqueue(b))
	assert.Equal(t, 2, q.Len())

	u, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, a, u)
	u, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, b, u)
	_, ok = q.TryDequeue()
	assert.False(t, ok)

	q.Close()
	q.Close()
	assert.False(t, q.Enqueue(a))
	_, open := <-q.Wait()
	assert.False(t, open)
}
