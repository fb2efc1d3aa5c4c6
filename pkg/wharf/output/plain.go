package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes one tab-aligned line per drift finding followed by a
// summary line. No colors or styling are applied, so output is suitable for
// scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	if r.Result == nil {
		fmt.Fprintf(w, "generated\t%d files\t%d dirs\t%d bytes\t%s\n",
			r.Files, r.Directories, r.TotalSize, r.ManifestDigest)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	for _, m := range r.Result.Mismatched {
		fmt.Fprintf(tw, "MISMATCH\t%s\t%s\t%s\n", m.Path, m.Expected, m.Actual)
	}
	for _, p := range r.Result.Missing {
		fmt.Fprintf(tw, "MISSING\t%s\n", p)
	}
	for _, p := range r.Result.Unexpected {
		fmt.Fprintf(tw, "UNEXPECTED\t%s\n", p)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s passed=%d mismatched=%d missing=%d unexpected=%d\n",
		r.Status(),
		len(r.Result.Passed),
		len(r.Result.Mismatched),
		len(r.Result.Missing),
		len(r.Result.Unexpected))
	return nil
}

func init() {
	Register("plain", func() Formatter { return &PlainFormatter{} })
}

var _ Formatter = (*PlainFormatter)(nil)
