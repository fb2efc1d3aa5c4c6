package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/history"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/output"
	"github.com/jamesainslie/wharf/pkg/wharf/verify"
)

var (
	verifyManifest        string
	verifyAllowUnexpected bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Check a directory tree against its manifest",
	Long: `Compare a live directory tree with a manifest and report drift:

  MISMATCH    a tracked file whose content changed
  MISSING     a tracked file that is gone or no longer a regular file
              (a symlink, even one to a regular file, counts as missing)
  UNEXPECTED  a file present in the tree but not in the manifest

The manifest's own exclusion patterns decide which live files count as
unexpected. Exits with status 1 when any drift is found or the run is
interrupted before every file was checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyManifest, "manifest", "m", "", "manifest to verify against (default: <path>/.wharf-manifest.json)")
	verifyCmd.Flags().BoolVar(&verifyAllowUnexpected, "allow-unexpected", false, "do not report files missing from the manifest")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	root, err := rootArg(args)
	if err != nil {
		return err
	}

	manifestPath := verifyManifest
	if manifestPath == "" {
		manifestPath = findManifest(root)
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	printVerbose("Loaded %s: %d files, algorithm %s", manifestPath, len(m.Files), m.HashAlgorithm())

	ctx, cancel := signalContext(cmd)
	defer cancel()

	start := time.Now()
	res, err := verify.Verify(ctx, root, m, verify.Options{
		AllowUnexpected: verifyAllowUnexpected,
		Workers:         cfg.Workers,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Never report an unchecked tree as clean.
			return fmt.Errorf("verify cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("verify failed: %w", err)
	}

	report := output.NewReport(output.KindVerify, root, manifestPath, m)
	report.Duration = time.Since(start)
	report.Result = res
	if sum, err := manifest.Digest(m); err == nil {
		report.ManifestDigest = sum.String()
	}

	recordHistory(history.Entry{
		Operation:      history.OpVerify,
		Root:           root,
		ManifestDigest: report.ManifestDigest,
		Duration:       report.Duration,
		Summary:        verifySummary(m, res),
		Drift:          driftPaths(res),
	})

	if !getQuiet() {
		if err := writeReport(cmd, report); err != nil {
			return err
		}
	}

	if !res.OK() {
		return errDrift
	}
	return nil
}

func verifySummary(m *manifest.Manifest, res *verify.Result) history.Summary {
	return history.Summary{
		Files:       len(m.Files),
		Directories: len(m.Directories),
		Bytes:       m.TotalSize(),
		Passed:      len(res.Passed),
		Mismatched:  len(res.Mismatched),
		Missing:     len(res.Missing),
		Unexpected:  len(res.Unexpected),
	}
}

// driftPaths lists every drifting path, mismatches first.
func driftPaths(res *verify.Result) []string {
	paths := make([]string, 0, res.DriftCount())
	for _, mm := range res.Mismatched {
		paths = append(paths, mm.Path)
	}
	paths = append(paths, res.Missing...)
	return append(paths, res.Unexpected...)
}
