package session

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

type fsEventKind int

const (
	fsEventWrite fsEventKind = iota
	fsEventRemove
)

type fsEvent struct {
	kind fsEventKind
	path string // workspace-relative, slash-separated
}

// watcher recursively watches a directory tree with fsnotify (which
// only watches the directories it's explicitly told about, not their
// descendants) and translates raw filesystem events into
// workspace-relative fsEvents delivered to a callback.
type watcher struct {
	root string
	fsw  *fsnotify.Watcher
	done chan struct{}
}

func newWatcher(root string, onEvent func(fsEvent)) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	w := &watcher{root: root, fsw: fsw, done: make(chan struct{})}
	go w.loop(onEvent)
	return w, nil
}

func (w *watcher) loop(onEvent func(fsEvent)) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev, onEvent)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("session: filesystem watcher error: %v", err)
		}
	}
}

func (w *watcher) dispatch(ev fsnotify.Event, onEvent func(fsEvent)) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		// A newly created directory needs to be watched too, so that
		// files written into it later are seen.
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
			return
		}
		onEvent(fsEvent{kind: fsEventWrite, path: rel})
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		onEvent(fsEvent{kind: fsEventRemove, path: rel})
	}
}

func (w *watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
