// Package shardedmap implements a fixed-shard-count concurrent map.
//
// Keys are distributed across a power-of-two number of shards using a
// seeded hash, each guarded by its own RWMutex. This keeps lock
// contention local to a shard instead of serializing the whole map
// behind one lock, at the cost of no global ordering guarantees across
// shards.
package shardedmap

import (
	"hash/maphash"
	"runtime"
	"sync"
)

// Map is a concurrent map with a fixed shard count chosen at
// construction time. The zero value is not usable; use New.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	mask   uint64
	seed   maphash.Seed
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// New creates a Map sized to the next power of two at least 4x
// GOMAXPROCS, so that shard contention stays low under typical
// parallel query workloads without wasting memory on tiny maps.
func New[K comparable, V any]() *Map[K, V] {
	hint := runtime.GOMAXPROCS(0) * 4
	n := 1
	for n < hint {
		n <<= 1
	}
	shards := make([]shard[K, V], n)
	for i := range shards {
		shards[i].m = make(map[K]V)
	}
	return &Map[K, V]{
		shards: shards,
		mask:   uint64(n - 1),
		seed:   maphash.MakeSeed(),
	}
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	h := maphash.Comparable(m.seed, key)
	return &m.shards[h&m.mask]
}

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// GetOrInsert returns the existing value for key, or computes it with
// produce and stores it if absent. produce is invoked at most once per
// call while holding the shard's write lock; it is not guaranteed to
// run at most once across the lifetime of the Map, since an entry may
// be deleted and recreated. Callers that need a computation to run
// exactly once for a key's entire lifetime should store a value that
// itself carries one-shot semantics (see graph's cell type).
func (m *Map[K, V]) GetOrInsert(key K, produce func() V) V {
	s := m.shardFor(key)

	s.mu.RLock()
	if v, ok := s.m[key]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	v := produce()
	s.m[key] = v
	return v
}

// Set unconditionally stores value for key, overwriting any existing
// entry.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Delete removes key from the map, if present.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Len returns the total number of entries across all shards. It takes
// a read lock on every shard in turn, so the result is a snapshot that
// may already be stale by the time it's returned under concurrent
// writers.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		n += len(m.shards[i].m)
		m.shards[i].mu.RUnlock()
	}
	return n
}

// Range calls fn for every key/value pair currently in the map, one
// shard at a time. fn must not call back into the Map; doing so will
// deadlock if it targets a key in the shard currently being ranged.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for i := range m.shards {
		m.shards[i].mu.RLock()
		for k, v := range m.shards[i].m {
			if !fn(k, v) {
				m.shards[i].mu.RUnlock()
				return
			}
		}
		m.shards[i].mu.RUnlock()
	}
}

// Clone returns a new Map with the same shard count, populated with a
// snapshot copy of every entry. Values themselves are not deep copied.
func (m *Map[K, V]) Clone() *Map[K, V] {
	out := &Map[K, V]{
		shards: make([]shard[K, V], len(m.shards)),
		mask:   m.mask,
		seed:   m.seed,
	}
	for i := range m.shards {
		m.shards[i].mu.RLock()
		out.shards[i].m = make(map[K]V, len(m.shards[i].m))
		for k, v := range m.shards[i].m {
			out.shards[i].m[k] = v
		}
		m.shards[i].mu.RUnlock()
	}
	return out
}
