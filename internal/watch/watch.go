// Package watch reports edits made inside an extraction directory while the
// user works on it.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
)

// Event operations.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// DefaultSkipDirs are directory names not watched unless overridden.
var DefaultSkipDirs = []string{"node_modules", ".git"}

// Event is one change under the watched root.
type Event struct {
	// Path is slash-separated and relative to the root.
	Path string
	Op   string
	Time time.Time
}

// Watcher watches a directory tree with fsnotify.
type Watcher struct {
	root     string
	skipDirs map[string]bool
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// Option is a functional option for configuring Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithSkipDirs replaces DefaultSkipDirs.
func WithSkipDirs(names ...string) Option {
	return func(w *Watcher) {
		w.skipDirs = make(map[string]bool, len(names))
		for _, n := range names {
			w.skipDirs[n] = true
		}
	}
}

// New creates a Watcher on root and every directory below it.
func New(root string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot watch directory", goerr.V("path", root))
	}
	if !info.IsDir() {
		return nil, goerr.New("not a directory", goerr.V("path", root))
	}

	w := &Watcher{
		root:   root,
		logger: slog.Default(),
	}
	WithSkipDirs(DefaultSkipDirs...)(w)
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create file watcher")
	}
	w.fsw = fsw

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers dir and its subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish between the event and the walk
			if path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return goerr.Wrap(err, "failed to watch directory", goerr.V("path", path))
		}
		return nil
	})
}

// Run delivers events to fn until ctx is cancelled, then closes the watcher.
// Newly created directories are watched as they appear. Chmod-only events
// are dropped.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			op := opName(ev.Op)
			if op == "" {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.skipDirs[info.Name()] {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", slog.String("path", ev.Name), slog.Any("error", err))
					}
				}
			}
			if w.skipped(ev.Name) {
				continue
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				rel = ev.Name
			}
			fn(Event{Path: filepath.ToSlash(rel), Op: op, Time: time.Now()})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.Any("error", err))
		}
	}
}

// skipped reports whether path lies in a skipped directory.
func (w *Watcher) skipped(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if w.skipDirs[filepath.Base(dir)] {
			return true
		}
	}
	return false
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	}
	return ""
}
