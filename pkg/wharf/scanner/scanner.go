package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/wharf/pkg/wharf/cache"
	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/exclude"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// ErrNotDirectory is returned when the root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Stats summarizes a completed walk.
type Stats struct {
	DirsScanned  int64
	FilesScanned int64
	BytesHashed  int64
	CacheHits    int64
	CacheMisses  int64
	Elapsed      time.Duration

	// CacheErr is set when digests could not be written back to the cache.
	// The manifest is still valid.
	CacheErr error
}

// Scanner walks one tree. A Scanner is single use.
type Scanner struct {
	opts    Options
	matcher *exclude.Matcher
	alg     digest.Algorithm

	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	bytesHashed  atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64

	currentPath  atomic.Value
	lastProgress atomic.Int64
	walkComplete atomic.Bool

	// root is the resolved absolute path being scanned.
	root string

	mu    sync.Mutex
	files map[string]manifest.FileEntry
	dirs  []string

	cacheEntries   map[string]*cache.CachedEntry
	cacheEntriesMu sync.Mutex

	stats Stats
}

// New creates a Scanner. Invalid options are reported by Build and Collect.
func New(opts Options) *Scanner {
	s := &Scanner{
		opts:  opts,
		files: make(map[string]manifest.FileEntry),
	}
	s.currentPath.Store("")
	return s
}

// Build walks the tree and returns its manifest. Any directory that cannot
// be read, or file that cannot be hashed, aborts the build with a
// *types.IOError. Symbolic links and other non-regular files are skipped.
func (s *Scanner) Build(ctx context.Context) (*manifest.Manifest, error) {
	startTime := time.Now()

	if err := s.prepare(); err != nil {
		return nil, err
	}
	if s.opts.Cache != nil {
		s.cacheEntries = make(map[string]*cache.CachedEntry)
	}

	s.currentPath.Store(s.root)
	s.reportProgressForce()

	if err := s.walk(ctx, s.buildCallback(ctx)); err != nil {
		return nil, err
	}

	s.walkComplete.Store(true)
	s.reportProgressForce()

	if s.opts.Cache != nil {
		s.stats.CacheErr = s.opts.Cache.Update(s.root, s.cacheEntries)
	}

	m := manifest.New(s.opts.Root, s.opts.Exclude, s.alg)
	m.Files = s.files
	slices.Sort(s.dirs)
	m.Directories = append(m.Directories, s.dirs...)

	s.stats.DirsScanned = s.dirsScanned.Load()
	s.stats.FilesScanned = s.filesScanned.Load()
	s.stats.BytesHashed = s.bytesHashed.Load()
	s.stats.CacheHits = s.cacheHits.Load()
	s.stats.CacheMisses = s.cacheMisses.Load()
	s.stats.Elapsed = time.Since(startTime)

	return m, nil
}

// Collect walks the tree and returns the relative paths of every included
// regular file without hashing anything.
func (s *Scanner) Collect(ctx context.Context) (map[string]struct{}, error) {
	if err := s.prepare(); err != nil {
		return nil, err
	}

	found := make(map[string]struct{})
	err := s.walk(ctx, s.visitor(ctx, func(rel string, _ string, _ fs.DirEntry) error {
		s.mu.Lock()
		found[rel] = struct{}{}
		s.mu.Unlock()
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Stats returns counters for the last completed Build.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// prepare validates options and resolves the root.
func (s *Scanner) prepare() error {
	if err := s.opts.Validate(); err != nil {
		return err
	}
	s.alg = s.opts.Algorithm
	s.matcher = exclude.Compile(s.opts.Exclude)

	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return types.NewIOError("resolve", s.opts.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return types.NewIOError("stat", root, err)
	}
	if !info.IsDir() {
		return types.NewIOError("stat", root, ErrNotDirectory)
	}

	s.root = root
	return nil
}

// walk runs fastwalk over the root with the given callback.
func (s *Scanner) walk(ctx context.Context, fn fs.WalkDirFunc) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: s.opts.Workers,
	}

	err := fastwalk.Walk(&conf, s.root, fn)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// fileFunc handles one included regular file.
type fileFunc func(rel, path string, d fs.DirEntry) error

// visitor returns a WalkDirFunc that applies exclusions, records
// directories and hands included regular files to onFile.
func (s *Scanner) visitor(ctx context.Context, onFile fileFunc) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			return types.NewIOError("readdir", path, err)
		}

		if path == s.root {
			return nil
		}

		rel, err := s.relative(path)
		if err != nil {
			return err
		}

		if s.matcher.Match(rel) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.handleDirectory(path, rel)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		return onFile(rel, path, d)
	}
}

// buildCallback hashes each file and records its manifest entry.
func (s *Scanner) buildCallback(ctx context.Context) fs.WalkDirFunc {
	return s.visitor(ctx, func(rel, path string, d fs.DirEntry) error {
		entry, err := s.processFile(rel, path, d)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.files[rel] = entry
		s.mu.Unlock()
		return nil
	})
}

// relative returns path relative to the root with forward slashes.
func (s *Scanner) relative(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", types.NewIOError("resolve", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// handleDirectory records a directory entry during walk.
func (s *Scanner) handleDirectory(path, rel string) {
	s.dirsScanned.Add(1)
	s.currentPath.Store(path)
	s.reportProgress()

	s.mu.Lock()
	s.dirs = append(s.dirs, rel)
	s.mu.Unlock()
}

// processFile stats and hashes a regular file, consulting the cache first.
func (s *Scanner) processFile(rel, path string, d fs.DirEntry) (manifest.FileEntry, error) {
	info, err := d.Info()
	if err != nil {
		return manifest.FileEntry{}, types.NewIOError("stat", path, err)
	}

	entry := manifest.FileEntry{
		Path:     rel,
		Size:     info.Size(),
		Modified: info.ModTime().Unix(),
		Mode:     fileMode(info),
	}

	s.filesScanned.Add(1)
	s.currentPath.Store(path)

	var stamp cache.Stamp
	if s.opts.Cache != nil {
		ctime, inode, err := fileIdentity(path)
		if err != nil {
			return manifest.FileEntry{}, types.NewIOError("stat", path, err)
		}
		stamp = cache.Stamp{
			Size:      entry.Size,
			Mtime:     info.ModTime().UnixNano(),
			Mode:      entry.Mode,
			Ctime:     ctime,
			Inode:     inode,
			Algorithm: string(s.alg),
		}

		if hash, ok := s.opts.Cache.Lookup(s.root, rel, stamp); ok {
			s.cacheHits.Add(1)
			entry.Hash = hash
			s.reportProgress()
			return entry, nil
		}
	}

	hash, err := digest.File(path, s.alg)
	if err != nil {
		return manifest.FileEntry{}, err
	}
	entry.Hash = hash

	s.cacheMisses.Add(1)
	s.bytesHashed.Add(entry.Size)
	s.addCacheEntry(rel, stamp, hash)
	s.reportProgress()

	return entry, nil
}

// addCacheEntry queues a freshly computed digest for the cache.
func (s *Scanner) addCacheEntry(rel string, stamp cache.Stamp, hash string) {
	if s.cacheEntries == nil {
		return
	}

	s.cacheEntriesMu.Lock()
	s.cacheEntries[rel] = &cache.CachedEntry{
		Size:      stamp.Size,
		Mtime:     stamp.Mtime,
		Mode:      stamp.Mode,
		Ctime:     stamp.Ctime,
		Inode:     stamp.Inode,
		Algorithm: stamp.Algorithm,
		Hash:      hash,
	}
	s.cacheEntriesMu.Unlock()
}

// fileMode returns the permission bits, or manifest.DefaultMode when the
// platform reports none.
func fileMode(info fs.FileInfo) uint32 {
	perm := uint32(info.Mode().Perm())
	if perm == 0 {
		return manifest.DefaultMode
	}
	return perm
}

// reportProgress calls the progress callback if configured.
// Throttles calls to avoid excessive overhead.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}

	s.sendProgress()
}

// reportProgressForce calls the progress callback immediately, bypassing throttle.
func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Scanner) sendProgress() {
	currentPath, _ := s.currentPath.Load().(string)

	s.opts.OnProgress(types.ScanProgress{
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		BytesHashed:  s.bytesHashed.Load(),
		CacheHits:    s.cacheHits.Load(),
		CurrentPath:  currentPath,
		WalkComplete: s.walkComplete.Load(),
	})
}

// Build is a convenience wrapper that builds a manifest for opts.
func Build(ctx context.Context, opts Options) (*manifest.Manifest, error) {
	return New(opts).Build(ctx)
}

// Collect is a convenience wrapper returning the included file set for opts.
func Collect(ctx context.Context, opts Options) (map[string]struct{}, error) {
	return New(opts).Collect(ctx)
}
