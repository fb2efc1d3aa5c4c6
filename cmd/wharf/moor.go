package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/history"
	"github.com/jamesainslie/wharf/pkg/wharf/moor"
	"github.com/jamesainslie/wharf/pkg/wharf/rsync"
)

var (
	moorDryRun        bool
	moorForce         bool
	moorSkipPreflight bool
	moorIdentity      string
)

var moorCmd = &cobra.Command{
	Use:   "moor <yacht> [path]",
	Short: "Snapshot a tree and push it to a yacht",
	Long: `Moor a local tree to a yacht from the fleet:

  1. check that rsync is installed and the yacht accepts ssh
  2. write a fresh manifest into the tree (.wharf-manifest.json)
  3. rsync the tree, manifest included, to the yacht's web root

The fleet's sync_excludes are skipped both when hashing and when
transferring. Use --force to delete remote files that are gone locally.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMoor,
}

func init() {
	moorCmd.Flags().BoolVarP(&moorDryRun, "dry-run", "d", false, "write the manifest and preview the transfer with rsync --dry-run")
	moorCmd.Flags().BoolVarP(&moorForce, "force", "f", false, "delete remote files absent locally")
	moorCmd.Flags().BoolVar(&moorSkipPreflight, "skip-preflight", false, "skip the rsync and ssh checks")
	moorCmd.Flags().StringVarP(&moorIdentity, "identity", "i", "", "ssh private key (default: sync.identity_file)")
	rootCmd.AddCommand(moorCmd)
}

func runMoor(cmd *cobra.Command, args []string) error {
	f, err := loadFleet()
	if err != nil {
		return err
	}

	root, err := rootArg(args[1:])
	if err != nil {
		return err
	}
	alg, err := algorithm()
	if err != nil {
		return err
	}

	identity := moorIdentity
	if identity == "" {
		identity = cfg.Sync.IdentityFile
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	c := openCache()
	if c != nil {
		defer c.Close()
	}

	res, err := moor.Execute(ctx, f, args[0], root, moor.Options{
		SkipPreflight: moorSkipPreflight,
		DryRun:        moorDryRun,
		Force:         moorForce,
		IdentityFile:  identity,
		Algorithm:     alg,
		Workers:       cfg.Workers,
		Cache:         c,
		Syncer:        rsync.New(cfg.Sync.RsyncPath, cfg.Sync.SSHPath),
	})
	if err != nil {
		return fmt.Errorf("moor failed: %w", err)
	}

	recordHistory(history.Entry{
		Operation:      history.OpMoor,
		Root:           root,
		Yacht:          res.Yacht,
		ManifestDigest: res.ManifestDigest.String(),
		Duration:       res.Duration,
		Summary: history.Summary{
			Files:       res.FilesSynced,
			Transferred: int(res.FilesTransferred),
		},
	})

	if res.DryRun {
		printInfo("[DRY RUN] Would transfer %d of %d tracked files to %s", res.FilesTransferred, res.FilesSynced, res.Destination)
		printInfo("Manifest: %s (%s)", res.ManifestPath, res.ManifestDigest)
		return nil
	}

	printInfo("Moored %s: %d files tracked, %d transferred to %s", res.Yacht, res.FilesSynced, res.FilesTransferred, res.Destination)
	printVerbose("Manifest: %s (%s) in %s", res.ManifestPath, res.ManifestDigest, res.Duration)
	return nil
}
