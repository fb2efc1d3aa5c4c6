package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// PrettyFormatter renders a styled report for terminals. Hashes are
// shortened for display; use json or yaml for full values.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.header(r))
	w.WriteString("\n")

	if r.Result == nil {
		return nil
	}

	w.WriteString(f.findings(r))
	w.WriteString(f.footer(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) header(r *Report) string {
	field := func(label, value string) string {
		return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
	}

	lines := []string{
		TitleStyle.Render(strings.ToUpper(string(r.Kind))),
		field("Root:", r.Root),
	}
	if r.ManifestPath != "" {
		lines = append(lines, field("Manifest:", r.ManifestPath))
	}
	lines = append(lines, field("Contents:", fmt.Sprintf("%s files, %s dirs, %s",
		types.FormatCount(int64(r.Files)),
		types.FormatCount(int64(r.Directories)),
		types.FormatSize(r.TotalSize))))
	lines = append(lines, field("Snapshot:", fmt.Sprintf("%s (%s)",
		humanize.Time(r.Generated), r.Algorithm)))
	if r.ManifestDigest != "" {
		lines = append(lines, field("Digest:", r.ManifestDigest))
	}
	if r.Duration > 0 {
		lines = append(lines, field("Took:", r.Duration.Round(time.Millisecond).String()))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) findings(r *Report) string {
	res := r.Result
	if res.OK() {
		return SuccessStyle.Render("  No drift detected") + "\n"
	}

	var sb strings.Builder
	if len(res.Mismatched) > 0 {
		sb.WriteString(ErrorStyle.Bold(true).Render(fmt.Sprintf("Mismatched (%d)", len(res.Mismatched))))
		sb.WriteString("\n")
		for _, m := range res.Mismatched {
			fmt.Fprintf(&sb, "  %s %s %s %s\n",
				ErrorStyle.Render("~"),
				m.Path,
				HashStyle.Render(shortHash(m.Expected)),
				HashStyle.Render("-> "+shortHash(m.Actual)))
		}
	}
	if len(res.Missing) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("Missing (%d)", len(res.Missing))))
		sb.WriteString("\n")
		for _, p := range res.Missing {
			fmt.Fprintf(&sb, "  %s %s\n", WarningStyle.Render("-"), p)
		}
	}
	if len(res.Unexpected) > 0 {
		sb.WriteString(MutedStyle.Bold(true).Render(fmt.Sprintf("Unexpected (%d)", len(res.Unexpected))))
		sb.WriteString("\n")
		for _, p := range res.Unexpected {
			fmt.Fprintf(&sb, "  %s %s\n", MutedStyle.Render("+"), p)
		}
	}
	return sb.String()
}

func (f *PrettyFormatter) footer(r *Report) string {
	res := r.Result
	status := SuccessStyle.Bold(true).Render("OK")
	if !res.OK() {
		status = ErrorStyle.Bold(true).Render("DRIFT")
	}

	summary := fmt.Sprintf("%s  %d passed  %d mismatched  %d missing  %d unexpected",
		status, len(res.Passed), len(res.Mismatched), len(res.Missing), len(res.Unexpected))
	return FooterBox.Render(summary)
}

func init() {
	Register("pretty", func() Formatter { return &PrettyFormatter{} })
}

var _ Formatter = (*PrettyFormatter)(nil)
