// Package watch re-verifies a tree against its manifest whenever the tree
// changes.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/wharf/pkg/wharf/exclude"
	"github.com/jamesainslie/wharf/pkg/wharf/logging"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
	"github.com/jamesainslie/wharf/pkg/wharf/verify"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Watcher tracks every non-excluded directory under a root.
type Watcher struct {
	root    string
	matcher *exclude.Matcher
	fsw     *fsnotify.Watcher

	mu     sync.Mutex
	paths  map[string]bool
	closed bool
}

// New creates a Watcher for root. Call Watch to register directories.
func New(root string, excludes []string) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:    absRoot,
		matcher: exclude.Compile(excludes),
		fsw:     fsw,
		paths:   make(map[string]bool),
	}, nil
}

// Watch registers the root and every directory below it. Excluded
// directories and symlinks are skipped.
func (w *Watcher) Watch() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return types.NewIOError("stat", w.root, err)
	}
	if !info.IsDir() {
		return types.NewIOError("stat", w.root, errors.New("not a directory"))
	}
	return w.addTree(w.root)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return types.NewIOError("readdir", path, walkErr)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		logging.Get("watch").Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

func (w *Watcher) removeTree(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.fsw.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Watched returns the number of directories being watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// excluded reports whether an absolute path falls under an exclusion.
func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return w.matcher.Match(filepath.ToSlash(rel))
}

// Run delivers events for non-excluded paths to onChange until ctx ends or
// the watcher is closed. New directories are watched as they appear.
func (w *Watcher) Run(ctx context.Context, onChange func(path string, op fsnotify.Op)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.excluded(event.Name) {
				continue
			}
			w.track(event)
			if onChange != nil {
				onChange(event.Name, event.Op)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Get("watch").Error("watcher error", "error", err)
		}
	}
}

// track keeps the watch set in step with directory creation and removal.
func (w *Watcher) track(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(event.Name)
		if err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.removeTree(event.Name)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.fsw.Close()
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}

// Options configures Run.
type Options struct {
	// Root is the tree to watch.
	Root string

	// Manifest is the snapshot the tree is verified against. Its exclusion
	// patterns also decide which events are ignored.
	Manifest *manifest.Manifest

	// Debounce is the quiet period after the last event before verifying.
	Debounce time.Duration

	// Verify configures each verification pass.
	Verify verify.Options

	// OnResult receives every verification result, starting with an initial
	// pass made before any event arrives.
	OnResult func(*verify.Result)

	// OnError receives verification failures. Watching continues.
	OnError func(error)
}

// Run verifies the tree once, then again after each burst of changes,
// until ctx is done.
func Run(ctx context.Context, opts Options) error {
	if opts.Manifest == nil {
		return errors.New("watch: manifest is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := New(opts.Root, opts.Manifest.Excludes)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		return err
	}

	logger := logging.Get("watch")
	logger.Info("watching", "root", w.root, "dirs", w.Watched())

	check := func() {
		res, err := verify.Verify(ctx, w.root, opts.Manifest, opts.Verify)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("verify failed", "root", w.root, "error", err)
			if opts.OnError != nil {
				opts.OnError(err)
			}
			return
		}
		logger.Debug("verified", "root", w.root, "drift", res.DriftCount())
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
	}

	check()

	changes := make(chan struct{}, 1)
	go w.Run(ctx, func(string, fsnotify.Op) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			timer.Reset(opts.Debounce)
		case <-timer.C:
			check()
		}
	}
}
