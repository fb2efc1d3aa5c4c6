// Package scanner walks a directory tree in parallel and builds manifests
// from it. Directory reads are spread across fastwalk workers and counters
// are kept with atomics so progress can be observed while a build runs.
package scanner

import (
	"github.com/jamesainslie/wharf/pkg/wharf/cache"
	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/tuner"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// Options configures the scanner behavior.
type Options struct {
	// Root is the directory to walk.
	Root string

	// Exclude contains patterns for paths to skip. Patterns are matched
	// against root-relative, forward-slash paths.
	Exclude []string

	// Algorithm selects the content hash. Empty means digest.Default.
	Algorithm digest.Algorithm

	// Workers is the number of concurrent fastwalk workers. Files are
	// hashed on the worker that discovers them.
	Workers int

	// OnProgress is called periodically with scan progress updates.
	// It must be safe to call from multiple goroutines.
	OnProgress func(types.ScanProgress)

	// Cache is an optional digest cache. Entries are reused only when size,
	// modification time, mode and algorithm all match.
	Cache *cache.Cache
}

// Validate applies defaults for unset fields.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Algorithm == "" {
		o.Algorithm = digest.Default
	}
	if _, err := digest.ParseAlgorithm(string(o.Algorithm)); err != nil {
		return err
	}
	if o.Workers < 1 {
		o.Workers = tuner.Auto(0).WalkWorkers
	}
	return nil
}
