package output

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/wharf/pkg/wharf/verify"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Status   string         `json:"status" yaml:"status"`
	Kind     Kind           `json:"kind" yaml:"kind"`
	Manifest documentMeta   `json:"manifest" yaml:"manifest"`
	Result   *verify.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Summary  *documentDrift `json:"summary,omitempty" yaml:"summary,omitempty"`
}

type documentMeta struct {
	Root        string `json:"root" yaml:"root"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Digest      string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Algorithm   string `json:"algorithm" yaml:"algorithm"`
	Generated   int64  `json:"generated" yaml:"generated"`
	Files       int    `json:"files" yaml:"files"`
	Directories int    `json:"directories" yaml:"directories"`
	TotalSize   int64  `json:"total_size" yaml:"total_size"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

type documentDrift struct {
	Passed     int `json:"passed" yaml:"passed"`
	Mismatched int `json:"mismatched" yaml:"mismatched"`
	Missing    int `json:"missing" yaml:"missing"`
	Unexpected int `json:"unexpected" yaml:"unexpected"`
}

func buildDocument(r *Report) document {
	doc := document{
		Status: r.Status(),
		Kind:   r.Kind,
		Manifest: documentMeta{
			Root:        r.Root,
			Path:        r.ManifestPath,
			Digest:      r.ManifestDigest,
			Algorithm:   r.Algorithm,
			Generated:   r.Generated.Unix(),
			Files:       r.Files,
			Directories: r.Directories,
			TotalSize:   r.TotalSize,
		},
		Result: r.Result,
	}
	if r.Duration > 0 {
		doc.Manifest.Duration = r.Duration.String()
	}
	if r.Result != nil {
		doc.Summary = &documentDrift{
			Passed:     len(r.Result.Passed),
			Mismatched: len(r.Result.Mismatched),
			Missing:    len(r.Result.Missing),
			Unexpected: len(r.Result.Unexpected),
		}
	}
	return doc
}

// JSONFormatter formats a report as a single indented JSON object.
// Hashes are never truncated.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

// YAMLFormatter formats a report as YAML with the same structure as
// JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(buildDocument(r)); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
)
