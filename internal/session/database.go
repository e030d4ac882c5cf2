package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/oxide-lang/oxide/internal/docmodel"
	"github.com/oxide-lang/oxide/internal/parsefacade"
	"github.com/oxide-lang/oxide/internal/querygraph"
)

// generationState is one immutable generation of compiler inputs: the
// file registry and the text backing each entry, plus the query graph
// bound to exactly this generation's state. Once published to
// Database.current, a generationState's maps are never mutated again
// — the next mutation builds a new one instead — so a Snapshot that
// captured a generationState stays internally consistent forever,
// regardless of what the Database does afterward.
type generationState struct {
	id    uuid.UUID
	files map[string]*docmodel.FileHandle
	texts map[*docmodel.FileHandle]*docmodel.SourceText
	graph *querygraph.Graph[docmodel.Query, docmodel.Result]
}

// topResolver answers both query kinds for one generation: it reads
// DocumentText directly out of the generation's frozen text map, and
// delegates SyntaxTree to parsefacade.
type topResolver struct {
	gen *generationState
}

func (r *topResolver) Resolve(q docmodel.Query, h *querygraph.Handle[docmodel.Query, docmodel.Result]) docmodel.Result {
	switch q.Kind {
	case docmodel.KindDocumentText:
		fh, ok := r.gen.files[q.Path]
		if !ok {
			panic(fmt.Sprintf("session: DocumentText query for untracked file %q", q.Path))
		}
		return docmodel.Result{Kind: docmodel.KindDocumentText, Text: r.gen.texts[fh]}
	case docmodel.KindSyntaxTree:
		return parsefacade.Resolve(q, h)
	default:
		panic(fmt.Sprintf("session: unknown query kind %v", q.Kind))
	}
}

// Database is the single mutable backing store behind every Session:
// the current generation's file registry, text, and query graph,
// guarded by a read-write lock. Reads (Snapshot) take the read lock
// just long enough to copy out the current generation pointer; writes
// (mutate) take the write lock for the full copy-on-write update.
type Database struct {
	mu      sync.RWMutex
	current *generationState
}

func newDatabase() *Database {
	gen := &generationState{
		id:    uuid.New(),
		files: make(map[string]*docmodel.FileHandle),
		texts: make(map[*docmodel.FileHandle]*docmodel.SourceText),
	}
	gen.graph = querygraph.New[docmodel.Query, docmodel.Result](&topResolver{gen: gen})
	return &Database{current: gen}
}

func (db *Database) snapshotGen() *generationState {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.current
}

// mutate clones the current generation's files and texts maps,
// applies fn to the clones, and publishes a new generation built from
// the result with the query graph advanced to the next generation.
// Every mutating Session operation funnels through this single
// method, so "every mutation to compiler inputs produces a new
// generation" holds by construction.
func (db *Database) mutate(fn func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText)) {
	db.mu.Lock()
	defer db.mu.Unlock()

	prev := db.current
	files := make(map[string]*docmodel.FileHandle, len(prev.files))
	for k, v := range prev.files {
		files[k] = v
	}
	texts := make(map[*docmodel.FileHandle]*docmodel.SourceText, len(prev.texts))
	for k, v := range prev.texts {
		texts[k] = v
	}

	fn(files, texts)

	next := &generationState{id: uuid.New(), files: files, texts: texts}
	next.graph = prev.graph.Increment(&topResolver{gen: next})
	db.current = next
}
