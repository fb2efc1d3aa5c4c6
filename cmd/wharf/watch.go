package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/output"
	"github.com/jamesainslie/wharf/pkg/wharf/verify"
	"github.com/jamesainslie/wharf/pkg/wharf/watch"
)

var (
	watchManifest        string
	watchAllowUnexpected bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-verify a tree whenever it changes",
	Long: `Verify a tree against its manifest, then keep watching it and verify
again after every burst of filesystem changes. Runs until interrupted.

The quiet period before re-verifying is set by watch.debounce.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchManifest, "manifest", "m", "", "manifest to verify against (default: <path>/.wharf-manifest.json)")
	watchCmd.Flags().BoolVar(&watchAllowUnexpected, "allow-unexpected", false, "do not report files missing from the manifest")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := rootArg(args)
	if err != nil {
		return err
	}

	manifestPath := watchManifest
	if manifestPath == "" {
		manifestPath = findManifest(root)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	debounce, err := time.ParseDuration(cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("invalid watch.debounce %q: %w", cfg.Watch.Debounce, err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	printInfo("Watching %s (Ctrl-C to stop)", root)

	return watch.Run(ctx, watch.Options{
		Root:     root,
		Manifest: m,
		Debounce: debounce,
		Verify: verify.Options{
			AllowUnexpected: watchAllowUnexpected,
			Workers:         cfg.Workers,
		},
		OnResult: func(res *verify.Result) {
			report := output.NewReport(output.KindVerify, root, manifestPath, m)
			report.Result = res
			if err := writeReport(cmd, report); err != nil {
				printError("%v", err)
			}
		},
		OnError: func(err error) {
			printError("verify failed: %v", err)
		},
	})
}
