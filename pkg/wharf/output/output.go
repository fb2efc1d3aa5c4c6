// Package output renders manifest and verification reports in several
// formats (pretty, plain, json, yaml) selected at runtime from a registry.
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/verify"
)

// Kind identifies the operation a report describes.
type Kind string

// Report kinds.
const (
	KindGenerate Kind = "generate"
	KindVerify   Kind = "verify"
)

// Report is the formatter input: a manifest summary plus, for verify runs,
// the drift result.
type Report struct {
	// Kind is the operation that produced the report.
	Kind Kind

	// Root is the directory that was walked.
	Root string

	// ManifestPath is where the manifest was read or written.
	ManifestPath string

	// ManifestDigest is the content digest of the encoded manifest.
	ManifestDigest string

	// Algorithm is the file hash algorithm.
	Algorithm string

	// Generated is the manifest snapshot time.
	Generated time.Time

	// Files, Directories and TotalSize summarize the manifest.
	Files       int
	Directories int
	TotalSize   int64

	// Duration is how long the operation took.
	Duration time.Duration

	// Result is set for verify reports.
	Result *verify.Result
}

// NewReport summarizes m.
func NewReport(kind Kind, root, manifestPath string, m *manifest.Manifest) *Report {
	return &Report{
		Kind:         kind,
		Root:         root,
		ManifestPath: manifestPath,
		Algorithm:    string(m.HashAlgorithm()),
		Generated:    m.GeneratedAt(),
		Files:        len(m.Files),
		Directories:  len(m.Directories),
		TotalSize:    m.TotalSize(),
	}
}

// OK reports whether the report carries no drift.
func (r *Report) OK() bool {
	return r.Result == nil || r.Result.OK()
}

// Status returns a one-word summary.
func (r *Report) Status() string {
	switch {
	case r.Result == nil:
		return "generated"
	case r.Result.OK():
		return "ok"
	default:
		return "drift"
	}
}

// Formatter renders a report.
type Formatter interface {
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// shortHash truncates a hash for display.
func shortHash(h string) string {
	const width = 12
	if len(h) <= width {
		return h
	}
	return h[:width]
}
