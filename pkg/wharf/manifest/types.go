// Package manifest defines the wharf manifest: a snapshot of a directory
// tree's file contents and structure, and the codec that persists it.
package manifest

import (
	"slices"
	"time"

	"github.com/jamesainslie/wharf/pkg/wharf/digest"
)

// Version is the manifest format revision written by this package.
const Version = 1

// DefaultFilename is the well-known name of a manifest stored inside the
// tree it describes.
const DefaultFilename = ".wharf-manifest.json"

// DefaultMode is recorded when the platform exposes no permission bits.
const DefaultMode uint32 = 0o644

// FileEntry is one tracked file.
type FileEntry struct {
	// Path is root-relative with forward slashes. It equals the key the
	// entry is stored under in Manifest.Files.
	Path string `json:"path"`

	// Hash is the lowercase hex content fingerprint.
	Hash string `json:"hash"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Modified is the modification time in seconds since the epoch.
	Modified int64 `json:"modified"`

	// Mode holds the permission bits.
	Mode uint32 `json:"mode"`
}

// Manifest is a snapshot of a tree. It is built once by the scanner and not
// modified afterwards.
type Manifest struct {
	// Version is the format revision.
	Version int `json:"version"`

	// Root is the path that was walked, kept for provenance only.
	Root string `json:"root"`

	// Generated is the snapshot time in seconds since the epoch.
	Generated int64 `json:"generated"`

	// Algorithm is the hash used for every entry. Empty means digest.Default.
	Algorithm digest.Algorithm `json:"algorithm,omitempty"`

	// Files maps relative paths to entries.
	Files map[string]FileEntry `json:"files"`

	// Directories lists the relative directory paths seen during the walk.
	Directories []string `json:"directories"`

	// Excludes is the exact pattern list used to build the snapshot.
	Excludes []string `json:"excludes"`
}

// New returns an empty manifest stamped with the current time.
func New(root string, excludes []string, alg digest.Algorithm) *Manifest {
	m := &Manifest{
		Version:     Version,
		Root:        root,
		Generated:   time.Now().Unix(),
		Files:       make(map[string]FileEntry),
		Directories: []string{},
		Excludes:    slices.Clone(excludes),
	}
	if m.Excludes == nil {
		m.Excludes = []string{}
	}
	if alg != digest.Default {
		m.Algorithm = alg
	}
	return m
}

// HashAlgorithm returns the algorithm entries were hashed with.
func (m *Manifest) HashAlgorithm() digest.Algorithm {
	if m.Algorithm == "" {
		return digest.Default
	}
	return m.Algorithm
}

// Paths returns the tracked file paths in sorted order.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// TotalSize returns the sum of all tracked file sizes.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// GeneratedAt returns Generated as a time.Time.
func (m *Manifest) GeneratedAt() time.Time {
	return time.Unix(m.Generated, 0)
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Files = make(map[string]FileEntry, len(m.Files))
	for k, v := range m.Files {
		c.Files[k] = v
	}
	c.Directories = slices.Clone(m.Directories)
	c.Excludes = slices.Clone(m.Excludes)
	return &c
}
