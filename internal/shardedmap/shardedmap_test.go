package shardedmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrInsert_ComputesOnce(t *testing.T) {
	m := New[string, int]()

	calls := 0
	var mu sync.Mutex
	produce := func() int {
		mu.Lock()
		calls++
		mu.Unlock()
		return 42
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := m.GetOrInsert("k", produce)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "produce should run exactly once for a key that is never deleted")
}

func TestGetAbsentKey(t *testing.T) {
	m := New[string, int]()
	_, ok := m.Get("missing")
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 1)
	m.Set("k", 2)
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestDelete(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 1)
	m.Delete("k")
	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestLenAndRange(t *testing.T) {
	m := New[int, string]()
	for i := 0; i < 100; i++ {
		m.Set(i, "v")
	}
	assert.Equal(t, 100, m.Len())

	seen := make(map[int]bool)
	m.Range(func(k int, v string) bool {
		seen[k] = true
		return true
	})
	assert.Len(t, seen, 100)
}

func TestRangeStopsEarly(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 20; i++ {
		m.Set(i, i)
	}
	count := 0
	m.Range(func(k, v int) bool {
		count++
		return count < 1
	})
	assert.Equal(t, 1, count)
}

func TestCloneIsIndependent(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	clone := m.Clone()
	m.Set("a", 2)
	m.Set("b", 3)

	v, ok := clone.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = clone.Get("b")
	assert.False(t, ok)
}

// ConcurrentMixedOps exercises readers and writers racing on the same
// shard set; run with -race to catch any lock misuse.
func TestConcurrentMixedOps(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := (n*200 + j) % 16
				m.Set(key, j)
				m.Get(key)
				if j%7 == 0 {
					m.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
