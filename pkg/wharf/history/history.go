// Package history keeps a journal of generate, verify and moor runs as one
// JSON document per run.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of run being recorded.
type Operation string

const (
	OpGenerate Operation = "generate"
	OpVerify   Operation = "verify"
	OpMoor     Operation = "moor"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Summary holds the counters of a run. Fields that do not apply to an
// operation stay zero.
type Summary struct {
	Files       int   `json:"files"`
	Directories int   `json:"directories"`
	Bytes       int64 `json:"bytes"`

	Passed     int `json:"passed,omitempty"`
	Mismatched int `json:"mismatched,omitempty"`
	Missing    int `json:"missing,omitempty"`
	Unexpected int `json:"unexpected,omitempty"`

	Transferred int `json:"transferred,omitempty"`
}

// Drift reports whether the summary records any drift.
func (s Summary) Drift() bool {
	return s.Mismatched+s.Missing+s.Unexpected > 0
}

// Entry is one recorded run.
type Entry struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Operation      Operation     `json:"operation"`
	Root           string        `json:"root"`
	Yacht          string        `json:"yacht,omitempty"`
	ManifestDigest string        `json:"manifest_digest,omitempty"`
	Duration       time.Duration `json:"duration"`
	Summary        Summary       `json:"summary"`

	// Drift lists the paths found drifting, capped at MaxDriftPaths.
	Drift []string `json:"drift,omitempty"`
}

// MaxDriftPaths caps the paths stored per entry.
const MaxDriftPaths = 200

// Journal stores entries in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// New creates a Journal rooted at dir. The directory is created on the
// first write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Journal{dir: dir}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// Record stamps e with an id and timestamp and persists it.
func (j *Journal) Record(e Entry) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Timestamp = time.Now().UTC()
	e.ID = newID(e.Operation, e.Timestamp)
	if len(e.Drift) > MaxDriftPaths {
		e.Drift = e.Drift[:MaxDriftPaths]
	}

	if err := j.write(&e); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}
	return &e, nil
}

func (j *Journal) write(e *Entry) error {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	path := j.path(e.ID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (j *Journal) path(id string) string {
	return filepath.Join(j.dir, id+".json")
}

// List returns entries newest first. A limit <= 0 returns all entries.
// Unreadable documents are skipped.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given id.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid history id %q", id)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	e, err := readEntry(j.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Cleanup removes entries recorded more than retentionDays ago and returns
// how many were removed.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(j.path(e.ID)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (j *Journal) readAll() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		e, err := readEntry(filepath.Join(j.dir, f.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry %s: %w", path, err)
	}
	return &e, nil
}

// newID creates ids like "verify-2026-06-15T10-30-00-1b4e28ba".
func newID(op Operation, ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", op, ts.Format("2006-01-02T15-04-05"), suffix)
}
