// Package session implements the compiler façade: the entry point an
// LSP server or CLI driver uses to track a workspace's open files and
// filesystem state, and to pull immutable snapshots of compiled
// results off the query graph.
package session

import (
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"unicode/utf16"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"

	"github.com/oxide-lang/oxide/internal/docmodel"
	"github.com/oxide-lang/oxide/internal/querygraph"
	"github.com/oxide-lang/oxide/internal/shardedmap"
)

// Watch controls whether Initialize starts a filesystem watcher.
type Watch int

const (
	NoWatch Watch = iota
	WatchEnabled
)

// Block controls the stub inter-process locking contract: when
// enabled a Session declares its intent to be the workspace's sole
// writer, but no enforcement is implemented (no flock, no mmap
// region) — only the contract. Honoring it across processes is left
// to a future revision.
type Block int

const (
	NoBlock Block = iota
	BlockEnabled
)

// InitializeOptions configures Session.Initialize.
type InitializeOptions struct {
	Watch Watch
	Block Block
}

// Session owns a workspace's file registry and the query graph built
// on top of it. All exported methods are safe for concurrent use.
type Session struct {
	initialized atomic.Bool
	root        string
	fsys        billy.Filesystem
	db          *Database
	openFiles   *shardedmap.Map[string, struct{}]
	watcher     *watcher
	block       Block
}

// New constructs an uninitialized Session. Call Initialize before any
// other method.
func New() *Session {
	return &Session{
		db:        newDatabase(),
		openFiles: shardedmap.New[string, struct{}](),
	}
}

// Initialize scans root for .ox files, seeds the first generation
// with their contents, and optionally starts a recursive filesystem
// watcher. It must be called exactly once; calling it again is a
// contract violation.
func (s *Session) Initialize(root string, opts InitializeOptions) error {
	if !s.initialized.CompareAndSwap(false, true) {
		panic("session: Initialize called more than once")
	}

	s.root = root
	s.fsys = osfs.New(root)
	s.block = opts.Block

	paths, err := walkOxFiles(s.fsys, ".")
	if err != nil {
		return fmt.Errorf("session: scanning workspace: %w", err)
	}

	s.db.mutate(func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText) {
		for _, p := range paths {
			data, err := readFile(s.fsys, p)
			if err != nil {
				continue
			}
			fh := &docmodel.FileHandle{Path: p}
			files[p] = fh
			texts[fh] = docmodel.NewSourceText(string(data))
		}
	})

	if opts.Watch == WatchEnabled {
		w, err := newWatcher(root, s.handleFSEvent)
		if err != nil {
			return fmt.Errorf("session: starting filesystem watcher: %w", err)
		}
		s.watcher = w
	}

	return nil
}

// Close releases the filesystem watcher, if one is running.
func (s *Session) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// OpenFile registers path as editor-owned with the given initial
// text. While open, filesystem events for path are masked: only
// ChangeFile and CloseFile can move its text forward.
func (s *Session) OpenFile(path string, text string) {
	s.openFiles.Set(path, struct{}{})
	s.db.mutate(func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText) {
		fh, ok := files[path]
		if !ok {
			fh = &docmodel.FileHandle{Path: path}
			files[path] = fh
		}
		texts[fh] = docmodel.InternText(texts[fh], text)
	})
}

// ChangeFile splices replacement into path's current text between
// start and end, given as UTF-16 line/character positions. path must
// already be open; calling this on a file that isn't is a contract
// violation, since edits only make sense relative to an editor's own
// view of the document.
func (s *Session) ChangeFile(path string, start, end docmodel.Position, replacement string) {
	if _, open := s.openFiles.Get(path); !open {
		panic(fmt.Sprintf("session: ChangeFile on %q which is not open", path))
	}

	s.db.mutate(func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText) {
		fh, ok := files[path]
		if !ok {
			panic(fmt.Sprintf("session: ChangeFile on %q with no tracked text", path))
		}
		cur := texts[fh]
		var units []uint16
		if cur != nil {
			units = cur.Units
		}
		startOff := docmodel.OffsetForPosition(units, start)
		endOff := docmodel.OffsetForPosition(units, end)
		spliced := docmodel.SpliceUnits(units, startOff, endOff, utf16.Encode([]rune(replacement)))
		texts[fh] = docmodel.InternUnits(cur, spliced)
	})
}

// CloseFile unregisters path as editor-owned and resyncs its text
// from disk. If the file can no longer be read (deleted, or never
// existed on disk at all — e.g. an editor scratch buffer) its entry
// is dropped from the registry entirely rather than left stale.
func (s *Session) CloseFile(path string) {
	s.openFiles.Delete(path)

	data, readErr := readFile(s.fsys, path)
	s.db.mutate(func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText) {
		if readErr != nil {
			if fh, ok := files[path]; ok {
				delete(texts, fh)
				delete(files, path)
			}
			return
		}
		fh, ok := files[path]
		if !ok {
			fh = &docmodel.FileHandle{Path: path}
			files[path] = fh
		}
		texts[fh] = docmodel.InternText(texts[fh], string(data))
	})
}

// Snapshot returns an immutable view of the current generation. Every
// query resolved against it observes exactly the inputs that were
// current when Snapshot was called, regardless of what the Session
// does afterward.
func (s *Session) Snapshot() *Snapshot {
	gen := s.db.snapshotGen()
	return &Snapshot{id: gen.id, files: gen.files, graph: gen.graph}
}

// handleFSEvent is the watcher's callback. It drops events for
// non-.ox paths and for paths currently open in an editor, since an
// open file's in-memory text always takes precedence over the copy on
// disk.
func (s *Session) handleFSEvent(ev fsEvent) {
	if filepath.Ext(ev.path) != ".ox" {
		return
	}
	if _, open := s.openFiles.Get(ev.path); open {
		return
	}

	switch ev.kind {
	case fsEventWrite:
		data, err := readFile(s.fsys, ev.path)
		if err != nil {
			return
		}
		s.db.mutate(func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText) {
			fh, ok := files[ev.path]
			if !ok {
				fh = &docmodel.FileHandle{Path: ev.path}
				files[ev.path] = fh
			}
			texts[fh] = docmodel.InternText(texts[fh], string(data))
		})
	case fsEventRemove:
		s.db.mutate(func(files map[string]*docmodel.FileHandle, texts map[*docmodel.FileHandle]*docmodel.SourceText) {
			if fh, ok := files[ev.path]; ok {
				delete(texts, fh)
				delete(files, ev.path)
			}
		})
	}
}

// Snapshot is an immutable handle onto one generation of compiled
// state: the set of tracked files at that generation, and the query
// graph that answers queries about them.
type Snapshot struct {
	id    uuid.UUID
	files map[string]*docmodel.FileHandle
	graph *querygraph.Graph[docmodel.Query, docmodel.Result]
}

// ID returns this snapshot's generation identifier. Two snapshots
// share an ID iff they were issued from the same generation; it's a
// cheap, comparable stand-in for "are these the same generation" that
// doesn't require comparing file maps or graph pointers directly.
func (snap *Snapshot) ID() uuid.UUID {
	return snap.id
}

// DocumentText returns path's current text in this snapshot's
// generation. ok is false if path isn't tracked.
func (snap *Snapshot) DocumentText(path string) (text *docmodel.SourceText, ok bool) {
	if _, tracked := snap.files[path]; !tracked {
		return nil, false
	}
	res := snap.graph.Query(docmodel.Query{Kind: docmodel.KindDocumentText, Path: path})
	return res.Text, true
}

// SyntaxTree returns path's parsed syntax tree in this snapshot's
// generation, reusing the cached tree if neither path's text nor
// anything else it depends on changed since the last generation that
// computed it. ok is false if path isn't tracked.
func (snap *Snapshot) SyntaxTree(path string) (tree *docmodel.ParsedFile, ok bool) {
	if _, tracked := snap.files[path]; !tracked {
		return nil, false
	}
	res := snap.graph.Query(docmodel.Query{Kind: docmodel.KindSyntaxTree, Path: path})
	return res.Tree, true
}

func walkOxFiles(fsys billy.Filesystem, dir string) ([]string, error) {
	var paths []string
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := walkOxFiles(fsys, full)
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
			continue
		}
		if filepath.Ext(entry.Name()) == ".ox" {
			paths = append(paths, full)
		}
	}
	return paths, nil
}

func readFile(fsys billy.Filesystem, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
