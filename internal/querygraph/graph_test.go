package querygraph

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leafResolver resolves "leaf:*" queries to whatever value is
// currently in values, and "sum:*" queries to the sum of every leaf it
// names, recording each as a dependency via h.Query.
type leafResolver struct {
	mu      sync.Mutex
	values  map[string]*int
	sumDeps map[string][]string
	calls   map[string]int
}

func newLeafResolver() *leafResolver {
	return &leafResolver{
		values:  make(map[string]*int),
		sumDeps: make(map[string][]string),
		calls:   make(map[string]int),
	}
}

func (r *leafResolver) setLeaf(name string, v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = &v
}

func (r *leafResolver) Resolve(q string, h *Handle[string, *int]) *int {
	r.mu.Lock()
	r.calls[q]++
	r.mu.Unlock()

	if deps, ok := r.sumDeps[q]; ok {
		total := 0
		for _, d := range deps {
			total += *h.Query(d)
		}
		return &total
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[q]
}

func (r *leafResolver) callCount(q string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[q]
}

func TestRootQueryAlwaysReruns(t *testing.T) {
	r := newLeafResolver()
	r.setLeaf("leaf:a", 1)

	g := New[string, *int](r)
	v := g.Query("leaf:a")
	require.Equal(t, 1, *v)

	g2 := g.Increment(r)
	v2 := g2.Query("leaf:a")
	require.Equal(t, 1, *v2)

	assert.Equal(t, 2, r.callCount("leaf:a"), "a root query has no dependencies, so it must rerun every generation")
}

func TestUnchangedDependencyReusesResult(t *testing.T) {
	r := newLeafResolver()
	r.setLeaf("leaf:a", 1)
	r.sumDeps["sum:a"] = []string{"leaf:a"}

	g := New[string, *int](r)
	first := g.Node("sum:a")
	require.Equal(t, 1, *first.Result)

	// Nothing changed; resolving leaf:a again yields the exact same
	// pointer, so sum:a must be reused without rerunning its resolver.
	g2 := g.Increment(r)
	second := g2.Node("sum:a")

	assert.False(t, second.Changed)
	assert.Same(t, first.Result, second.Result)
	assert.Equal(t, 1, r.callCount("sum:a"), "sum:a's resolver should not rerun when its dependency is unchanged")
}

func TestChangedDependencyInvalidatesDependent(t *testing.T) {
	r := newLeafResolver()
	r.setLeaf("leaf:a", 1)
	r.sumDeps["sum:a"] = []string{"leaf:a"}

	g := New[string, *int](r)
	first := g.Node("sum:a")
	require.Equal(t, 1, *first.Result)

	r.setLeaf("leaf:a", 2)
	g2 := g.Increment(r)
	second := g2.Node("sum:a")

	assert.True(t, second.Changed)
	assert.Equal(t, 2, *second.Result)
	assert.Equal(t, 2, r.callCount("sum:a"))
}

func TestFirstGenerationReportsUnchanged(t *testing.T) {
	r := newLeafResolver()
	r.setLeaf("leaf:a", 5)

	g := New[string, *int](r)
	node := g.Node("leaf:a")
	assert.False(t, node.Changed, "a query with no previous generation to compare against reports changed=false")
}

func TestParallelQueriesAreSafe(t *testing.T) {
	r := newLeafResolver()
	for i := 0; i < 64; i++ {
		r.setLeaf(key(i), i)
	}

	g := New[string, *int](r)
	var wg sync.WaitGroup
	var mismatches atomic.Int64
	for round := 0; round < 4; round++ {
		for i := 0; i < 64; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				v := g.Query(key(i))
				if v == nil || *v != i {
					mismatches.Add(1)
				}
			}()
		}
	}
	wg.Wait()
	assert.Zero(t, mismatches.Load())
}

func TestGenerationalIsolation(t *testing.T) {
	r := newLeafResolver()
	r.setLeaf("leaf:a", 1)

	g1 := New[string, *int](r)
	v1 := g1.Query("leaf:a")
	require.Equal(t, 1, *v1)

	r.setLeaf("leaf:a", 2)
	g2 := g1.Increment(r)
	v2 := g2.Query("leaf:a")
	require.Equal(t, 2, *v2)

	// g1 is a snapshot of the prior generation; querying it again must
	// still return its own cached result, not be disturbed by g2.
	v1Again := g1.Query("leaf:a")
	assert.Same(t, v1, v1Again)
}

func key(i int) string {
	return "leaf:" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}
