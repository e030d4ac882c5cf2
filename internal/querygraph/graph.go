// Package querygraph implements a generation-based, incrementally
// recomputed query cache. A Graph memoizes the result of resolving
// each distinct query exactly once per generation, and reuses a
// query's previous result without rerunning its resolver whenever
// every query it read along the way produced the same result as last
// time.
//
// Result equality is deliberately shallow: two results are considered
// unchanged only if they compare == to each other, which for the
// pointer- and interface-shaped results this package is meant to hold
// means "the same underlying object", not merely "an equal one".
// Resolvers are responsible for returning the very same value when
// nothing actually changed; the graph cannot infer that on its own.
package querygraph

import (
	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"github.com/oxide-lang/oxide/internal/shardedmap"
)

// Resolver computes the result for a query. Implementations call
// h.Query for any other query they read while computing their own
// result, so the graph can track the dependency and avoid rerunning
// the resolver on a later generation when nothing it depends on
// changed.
//
// A Resolver whose Resolve never calls h.Query is a root query: it
// depends only on state external to the graph, and is rerun on every
// generation unconditionally.
type Resolver[Q comparable, R comparable] interface {
	Resolve(q Q, h *Handle[Q, R]) R
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc[Q comparable, R comparable] func(q Q, h *Handle[Q, R]) R

func (f ResolverFunc[Q, R]) Resolve(q Q, h *Handle[Q, R]) R { return f(q, h) }

// Handle is passed to a Resolver's Resolve call so it can query other
// nodes in the same generation while recording the dependency edge.
// A Handle is only valid for the duration of a single Resolve call and
// must not be retained or used concurrently.
type Handle[Q comparable, R comparable] struct {
	g     *Graph[Q, R]
	edges map[Q]struct{}
}

// Query resolves q against the same generation the calling resolver
// is running in, and records q as a dependency of the caller's query.
func (h *Handle[Q, R]) Query(q Q) R {
	h.edges[q] = struct{}{}
	return h.g.Query(q)
}

// Node is the memoized outcome of resolving one query: its result,
// whether that result differs from the previous generation's, and the
// set of queries it read to produce the result.
type Node[R comparable] struct {
	Result  R
	Changed bool
	edges   *roaring.Bitmap
}

type nodeCell[R comparable] = cell[Node[R]]

// Graph is one generation of the query cache. Call Increment to
// produce the next generation, which starts empty but consults this
// generation (now "old") to decide whether each query can reuse its
// previous result.
type Graph[Q comparable, R comparable] struct {
	newMap   *shardedmap.Map[Q, *nodeCell[R]]
	oldMap   *shardedmap.Map[Q, *nodeCell[R]]
	interner *interner[Q]
	resolver Resolver[Q, R]
}

// New creates the first generation of a Graph. There is no previous
// generation to consult, so every query resolved against it lands in
// case A (absent from old) and reports Changed == false.
func New[Q comparable, R comparable](resolver Resolver[Q, R]) *Graph[Q, R] {
	return &Graph[Q, R]{
		newMap:   shardedmap.New[Q, *nodeCell[R]](),
		oldMap:   shardedmap.New[Q, *nodeCell[R]](),
		interner: newInterner[Q](),
		resolver: resolver,
	}
}

// Increment produces the next generation. The current generation's
// memo table becomes the next generation's "old" table; resolver
// should be bound to whatever new external state (e.g. edited file
// text) motivated the increment.
func (g *Graph[Q, R]) Increment(resolver Resolver[Q, R]) *Graph[Q, R] {
	return &Graph[Q, R]{
		newMap:   shardedmap.New[Q, *nodeCell[R]](),
		oldMap:   g.newMap,
		interner: g.interner,
		resolver: resolver,
	}
}

// Query resolves q against this generation, computing it via the
// resolver if it hasn't been asked for yet this generation.
func (g *Graph[Q, R]) Query(q Q) R {
	return g.resolveNode(q).Result
}

// Node exposes the full memoized node for q, including whether it
// changed relative to the previous generation. Most callers want
// Query; Node is useful for tests asserting on reuse.
func (g *Graph[Q, R]) Node(q Q) Node[R] {
	return g.resolveNode(q)
}

func (g *Graph[Q, R]) resolveNode(q Q) Node[R] {
	c := g.newMap.GetOrInsert(q, func() *nodeCell[R] { return newCell[Node[R]]() })
	return c.GetOrInit(func() Node[R] { return g.resolve(q) })
}

// resolve implements the three-case generational reuse rule:
//
//	A. q is absent from the previous generation entirely: first time
//	   seen, nothing to compare against, so Changed is reported false.
//	B. q is present in the previous generation but that generation's
//	   slot hasn't finished computing yet (a concurrent caller is still
//	   resolving it against the old graph): run the resolver now, and
//	   decide Changed by racing to see if the old slot finishes first.
//	C. q is present and finished: if it's a root (no recorded edges) it
//	   always reruns; otherwise reuse its result unless validating its
//	   recorded dependencies against this generation finds one changed.
func (g *Graph[Q, R]) resolve(q Q) Node[R] {
	oldCell, existed := g.oldMap.Get(q)
	if !existed {
		node := g.runResolver(q)
		node.Changed = false
		return node
	}

	oldNode, ready := oldCell.TryGet()
	if !ready {
		node := g.runResolver(q)
		if latest, ok := oldCell.TryGet(); ok {
			node.Changed = node.Result != latest.Result
		} else {
			node.Changed = true
		}
		return node
	}

	if oldNode.edges == nil || oldNode.edges.IsEmpty() {
		node := g.runResolver(q)
		node.Changed = node.Result != oldNode.Result
		return node
	}

	if g.anyParentChanged(oldNode.edges) {
		node := g.runResolver(q)
		node.Changed = node.Result != oldNode.Result
		return node
	}

	return Node[R]{Result: oldNode.Result, edges: oldNode.edges, Changed: false}
}

func (g *Graph[Q, R]) runResolver(q Q) Node[R] {
	h := &Handle[Q, R]{g: g, edges: make(map[Q]struct{})}
	result := g.resolver.Resolve(q, h)

	edges := roaring.New()
	for parent := range h.edges {
		edges.Add(g.interner.intern(parent))
	}
	return Node[R]{Result: result, edges: edges}
}

// anyParentChanged resolves every parent query in this generation in
// parallel and reports whether any of them changed. It waits for every
// parent to finish resolving before deciding; it does not return early
// when one parent is found to have changed.
func (g *Graph[Q, R]) anyParentChanged(edges *roaring.Bitmap) bool {
	ids := edges.ToArray()
	if len(ids) == 0 {
		return false
	}

	var grp errgroup.Group
	changed := make([]bool, len(ids))
	for i, id := range ids {
		i, id := i, id
		grp.Go(func() error {
			parent := g.interner.lookup(id)
			changed[i] = g.resolveNode(parent).Changed
			return nil
		})
	}
	_ = grp.Wait()

	for _, c := range changed {
		if c {
			return true
		}
	}
	return false
}
