package querygraph

import (
	"sync"

	"github.com/oxide-lang/oxide/internal/shardedmap"
)

// interner assigns a stable, monotonically increasing uint32 id to
// each distinct query value it sees. Ids survive across generations
// (the interner is shared by a Graph and every Graph produced from it
// by Increment), which is what lets a frozen generation's edge
// bitmaps stay meaningful when consulted by a later generation.
//
// Modeled on the nodeIntID/intToNodeID bitmap-indexing scheme used to
// keep per-file node sets cheap to scan and invalidate.
type interner[Q comparable] struct {
	ids *shardedmap.Map[Q, uint32]
	mu  sync.Mutex
	rev []Q
}

func newInterner[Q comparable]() *interner[Q] {
	return &interner[Q]{ids: shardedmap.New[Q, uint32]()}
}

func (in *interner[Q]) intern(q Q) uint32 {
	return in.ids.GetOrInsert(q, func() uint32 {
		in.mu.Lock()
		defer in.mu.Unlock()
		id := uint32(len(in.rev))
		in.rev = append(in.rev, q)
		return id
	})
}

func (in *interner[Q]) lookup(id uint32) Q {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.rev[id]
}
