// Package verify compares a live directory tree against a manifest and
// reports drift.
//
// Two passes are made. The first walks the manifest and rehashes every
// recorded file, sorting it into passed, mismatched or missing. The second,
// skipped when unexpected files are allowed, walks the live tree with the
// manifest's own exclusion patterns and reports files the manifest does not
// know about. Drift is returned as data; only filesystem failures are
// returned as errors.
package verify

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/scanner"
	"github.com/jamesainslie/wharf/pkg/wharf/tuner"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// Options configures a verification pass.
type Options struct {
	// AllowUnexpected skips the live-tree pass so files absent from the
	// manifest are tolerated and never reported.
	AllowUnexpected bool

	// Workers bounds how many files are hashed concurrently.
	Workers int

	// OnProgress is called as files are checked. It must be safe to call
	// from multiple goroutines.
	OnProgress func(types.ScanProgress)
}

// Mismatch records a tracked file whose content changed.
type Mismatch struct {
	Path     string `json:"path" yaml:"path"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
}

// Result is the outcome of comparing a tree with a manifest. Every slice is
// sorted by path.
type Result struct {
	Passed     []string   `json:"passed" yaml:"passed"`
	Mismatched []Mismatch `json:"mismatched" yaml:"mismatched"`
	Missing    []string   `json:"missing" yaml:"missing"`
	Unexpected []string   `json:"unexpected" yaml:"unexpected"`
}

// OK reports whether no drift was found. An empty Passed list is still OK.
func (r *Result) OK() bool {
	return len(r.Mismatched) == 0 && len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// DriftCount returns the number of drift findings.
func (r *Result) DriftCount() int {
	return len(r.Mismatched) + len(r.Missing) + len(r.Unexpected)
}

// checkOutcome classifies a single manifest entry.
type checkOutcome int

const (
	outcomePassed checkOutcome = iota
	outcomeMismatched
	outcomeMissing
)

// Verify compares the tree at root with m.
func Verify(ctx context.Context, root string, m *manifest.Manifest, opts Options) (*Result, error) {
	if opts.Workers < 1 {
		opts.Workers = tuner.Auto(0).HashWorkers
	}

	alg := m.HashAlgorithm()
	if _, err := digest.ParseAlgorithm(string(alg)); err != nil {
		return nil, err
	}

	res := &Result{
		Passed:     []string{},
		Mismatched: []Mismatch{},
		Missing:    []string{},
		Unexpected: []string{},
	}

	if err := checkManifest(ctx, root, m, alg, opts, res); err != nil {
		return nil, err
	}

	if !opts.AllowUnexpected {
		if err := checkUnexpected(ctx, root, m, res); err != nil {
			return nil, err
		}
	}

	slices.Sort(res.Passed)
	slices.Sort(res.Missing)
	slices.Sort(res.Unexpected)
	slices.SortFunc(res.Mismatched, func(a, b Mismatch) int {
		return strings.Compare(a.Path, b.Path)
	})

	return res, nil
}

// checkManifest rehashes every manifest entry with bounded parallelism.
func checkManifest(ctx context.Context, root string, m *manifest.Manifest, alg digest.Algorithm, opts Options, res *Result) error {
	var mu sync.Mutex
	var checked, hashed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, rel := range m.Paths() {
		entry := m.Files[rel]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			outcome, actual, size, err := checkEntry(root, entry, alg)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			switch outcome {
			case outcomePassed:
				res.Passed = append(res.Passed, rel)
			case outcomeMismatched:
				res.Mismatched = append(res.Mismatched, Mismatch{
					Path:     rel,
					Expected: entry.Hash,
					Actual:   actual,
				})
			case outcomeMissing:
				res.Missing = append(res.Missing, rel)
			}

			checked++
			hashed += size
			if opts.OnProgress != nil {
				opts.OnProgress(types.ScanProgress{
					FilesScanned: checked,
					BytesHashed:  hashed,
					CurrentPath:  rel,
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// checkEntry hashes the live counterpart of entry. Absent paths, non-regular
// files and keys that escape the root are reported missing.
func checkEntry(root string, entry manifest.FileEntry, alg digest.Algorithm) (checkOutcome, string, int64, error) {
	if !filepath.IsLocal(filepath.FromSlash(entry.Path)) {
		return outcomeMissing, "", 0, nil
	}
	path := filepath.Join(root, filepath.FromSlash(entry.Path))

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return outcomeMissing, "", 0, nil
	}
	if err != nil {
		return 0, "", 0, types.NewIOError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return outcomeMissing, "", 0, nil
	}

	actual, err := digest.File(path, alg)
	if err != nil {
		return 0, "", 0, err
	}
	if actual == entry.Hash {
		return outcomePassed, actual, info.Size(), nil
	}
	return outcomeMismatched, actual, info.Size(), nil
}

// checkUnexpected walks the live tree with the manifest's exclusions and
// records every file the manifest does not track.
func checkUnexpected(ctx context.Context, root string, m *manifest.Manifest, res *Result) error {
	live, err := scanner.Collect(ctx, scanner.Options{
		Root:    root,
		Exclude: m.Excludes,
	})
	if err != nil {
		return err
	}

	for rel := range live {
		if _, ok := m.Files[rel]; !ok {
			res.Unexpected = append(res.Unexpected, rel)
		}
	}
	return nil
}
