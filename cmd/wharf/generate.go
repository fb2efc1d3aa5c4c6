package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/history"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/output"
	"github.com/jamesainslie/wharf/pkg/wharf/scanner"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

var generateManifest string

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Write a manifest of a directory tree",
	Long: `Walk a directory tree and record a content hash for every regular file
plus the list of directories. The manifest is written into the tree as
.wharf-manifest.json unless --manifest names another location; when
stored inside the tree it is excluded from its own snapshot.

Symbolic links are not followed and are not recorded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateManifest, "manifest", "m", "", "manifest output path (default: <path>/.wharf-manifest.json)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	root, err := rootArg(args)
	if err != nil {
		return err
	}
	alg, err := algorithm()
	if err != nil {
		return err
	}

	manifestPath := generateManifest
	if manifestPath == "" {
		manifestPath = defaultManifestPath(root)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	c := openCache()
	if c != nil {
		defer c.Close()
	}

	start := time.Now()
	s := scanner.New(scanner.Options{
		Root:      root,
		Exclude:   buildExcludes(root, manifestPath),
		Algorithm: alg,
		Workers:   cfg.Workers,
		Cache:     c,
	})

	printVerbose("Generating manifest for %s (%s)", root, alg)
	m, err := s.Build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			printInfo("Generate cancelled")
			return nil
		}
		return fmt.Errorf("generate failed: %w", err)
	}

	stats := s.Stats()
	printVerbose("Scanned %s dirs, %s files, hashed %s (cache hits %s) in %s",
		types.FormatCount(stats.DirsScanned), types.FormatCount(stats.FilesScanned),
		types.FormatSize(stats.BytesHashed), types.FormatCount(stats.CacheHits), stats.Elapsed)
	if stats.CacheErr != nil {
		printVerbose("cache update failed: %v", stats.CacheErr)
	}

	sum, err := manifest.Save(manifestPath, m)
	if err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	report := output.NewReport(output.KindGenerate, root, manifestPath, m)
	report.ManifestDigest = sum.String()
	report.Duration = time.Since(start)

	recordHistory(history.Entry{
		Operation:      history.OpGenerate,
		Root:           root,
		ManifestDigest: sum.String(),
		Duration:       report.Duration,
		Summary: history.Summary{
			Files:       len(m.Files),
			Directories: len(m.Directories),
			Bytes:       m.TotalSize(),
		},
	})

	if getQuiet() {
		return nil
	}
	return writeReport(cmd, report)
}
