// Package types provides the core data types shared across wharf packages:
// the error taxonomy used by the manifest engine, scan progress reporting,
// and size formatting helpers.
package types

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
)

// ErrIO is matched by every filesystem failure surfaced by the engine.
// Use errors.Is(err, types.ErrIO) to tell "cannot read" apart from
// "cannot make sense of".
var ErrIO = errors.New("i/o error")

// ErrParse is matched by every manifest decoding failure.
var ErrParse = errors.New("parse error")

// IOError records a filesystem operation that failed during a walk,
// a hash, or a manifest load/save.
type IOError struct {
	// Op is the operation that failed (e.g. "open", "read", "readdir").
	Op string

	// Path is the filesystem path the operation was applied to.
	Path string

	// Err is the underlying error, usually an *fs.PathError.
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NewIOError wraps err as an IOError. A nil err yields nil, and an error that
// already is an IOError is returned unchanged.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// ParseError records a manifest that could be read but not decoded.
type ParseError struct {
	// Source names what was being decoded (usually a file path).
	Source string

	// Err is the decoder's error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse manifest: %v", e.Err)
	}
	return fmt.Sprintf("parse manifest %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ScanProgress reports real-time walk progress.
type ScanProgress struct {
	// DirsScanned is the number of directories visited so far.
	DirsScanned int64 `json:"dirs_scanned"`

	// FilesScanned is the number of regular files recorded so far.
	FilesScanned int64 `json:"files_scanned"`

	// BytesHashed is the total size of files hashed so far.
	BytesHashed int64 `json:"bytes_hashed"`

	// CacheHits counts files whose hash was reused from the digest cache.
	CacheHits int64 `json:"cache_hits"`

	// CurrentPath is the path currently being processed.
	CurrentPath string `json:"current_path"`

	// WalkComplete indicates that traversal is finished.
	WalkComplete bool `json:"walk_complete,omitempty"`
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
//
// Examples:
//   - FormatSize(0) returns "0 B"
//   - FormatSize(1024) returns "1.0 KiB"
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}
