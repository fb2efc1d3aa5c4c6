// Package moor pushes a local tree to a yacht: it snapshots the tree into a
// manifest stored at the tree root, then syncs the tree to the remote host.
package moor

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	godigest "github.com/opencontainers/go-digest"

	"github.com/jamesainslie/wharf/pkg/wharf/cache"
	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/fleet"
	"github.com/jamesainslie/wharf/pkg/wharf/logging"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/rsync"
	"github.com/jamesainslie/wharf/pkg/wharf/scanner"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// Syncer is the transfer backend. *rsync.Client implements it.
type Syncer interface {
	CheckRsync() error
	CheckSSH(ctx context.Context, dest string, port int, identity string) error
	Sync(ctx context.Context, cfg rsync.Config) (*rsync.Result, error)
}

// Options configures Execute.
type Options struct {
	// SkipPreflight skips the rsync and ssh availability checks.
	SkipPreflight bool

	// DryRun builds and saves the manifest and runs rsync with --dry-run,
	// so FilesTransferred reports what would be copied.
	DryRun bool

	// Force deletes remote files that are absent locally.
	Force bool

	IdentityFile string
	Algorithm    digest.Algorithm
	Workers      int
	Cache        *cache.Cache
	OnProgress   func(types.ScanProgress)

	// Syncer defaults to rsync.New("", "").
	Syncer Syncer
}

// Result summarizes a mooring.
type Result struct {
	Yacht            string          `json:"yacht" yaml:"yacht"`
	Destination      string          `json:"destination" yaml:"destination"`
	FilesSynced      int             `json:"files_synced" yaml:"files_synced"`
	FilesTransferred int64           `json:"files_transferred" yaml:"files_transferred"`
	ManifestPath     string          `json:"manifest_path" yaml:"manifest_path"`
	ManifestDigest   godigest.Digest `json:"manifest_digest" yaml:"manifest_digest"`
	DryRun           bool            `json:"dry_run" yaml:"dry_run"`
	Duration         time.Duration   `json:"duration" yaml:"duration"`
}

// Excludes returns the pattern list used to snapshot a tree for f. The
// manifest filename is always included so the stored manifest never
// describes itself.
func Excludes(f *fleet.Fleet) []string {
	patterns := slices.Clone(f.SyncExcludes)
	if !slices.Contains(patterns, manifest.DefaultFilename) {
		patterns = append(patterns, manifest.DefaultFilename)
	}
	return patterns
}

// TransferExcludes returns the rsync exclusions for f. The manifest is
// always shipped so the remote side can verify against it.
func TransferExcludes(f *fleet.Fleet) []string {
	return slices.DeleteFunc(slices.Clone(f.SyncExcludes), func(p string) bool {
		return p == manifest.DefaultFilename
	})
}

// Execute moors sourceDir to the named yacht.
func Execute(ctx context.Context, f *fleet.Fleet, yachtName, sourceDir string, opts Options) (*Result, error) {
	start := time.Now()
	logger := logging.Get("moor")

	yacht, err := f.Get(yachtName)
	if err != nil {
		return nil, err
	}

	syncer := opts.Syncer
	if syncer == nil {
		syncer = rsync.New("", "")
	}

	logger.Info("mooring", "yacht", yacht.Name, "domain", yacht.Domain)

	if !opts.SkipPreflight {
		if err := preflight(ctx, syncer, yacht, opts.IdentityFile); err != nil {
			return nil, err
		}
	}

	excludes := Excludes(f)
	m, err := scanner.Build(ctx, scanner.Options{
		Root:       sourceDir,
		Exclude:    excludes,
		Algorithm:  opts.Algorithm,
		Workers:    opts.Workers,
		OnProgress: opts.OnProgress,
		Cache:      opts.Cache,
	})
	if err != nil {
		return nil, fmt.Errorf("generate manifest: %w", err)
	}
	logger.Info("manifest generated", "files", len(m.Files))

	manifestPath := filepath.Join(sourceDir, manifest.DefaultFilename)
	sum, err := manifest.Save(manifestPath, m)
	if err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	res := &Result{
		Yacht:          yacht.Name,
		Destination:    yacht.RsyncDestination(),
		FilesSynced:    len(m.Files),
		ManifestPath:   manifestPath,
		ManifestDigest: sum,
		DryRun:         opts.DryRun,
	}

	if opts.DryRun {
		logger.Info("dry run, previewing transfer", "files", res.FilesSynced, "destination", res.Destination)
	}

	out, err := syncer.Sync(ctx, rsync.Config{
		Source:       sourceDir,
		Destination:  res.Destination,
		SSHPort:      yacht.SSHPort,
		IdentityFile: opts.IdentityFile,
		Excludes:     TransferExcludes(f),
		DryRun:       opts.DryRun,
		Delete:       opts.Force,
	})
	if err != nil {
		return nil, err
	}
	res.FilesTransferred = out.FilesTransferred
	res.Duration = time.Since(start)

	logger.Info("transfer complete", "yacht", yacht.Name, "transferred", res.FilesTransferred)
	return res, nil
}

func preflight(ctx context.Context, s Syncer, y fleet.Yacht, identity string) error {
	logger := logging.Get("moor")

	if err := s.CheckRsync(); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	logger.Debug("rsync available")

	if err := s.CheckSSH(ctx, y.SSHDestination(), y.SSHPort, identity); err != nil {
		return fmt.Errorf("preflight: cannot reach %s: %w", y.Name, err)
	}
	logger.Debug("ssh reachable", "destination", y.SSHDestination())
	return nil
}
