package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/wharf/pkg/wharf/cache"
	"github.com/jamesainslie/wharf/pkg/wharf/config"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the digest cache",
	Long: `Commands for managing the wharf digest cache.

The cache stores file digests keyed by size, modification time and mode so
repeat manifests of the same tree only rehash changed files. Cache data is
stored in the XDG cache directory (typically ~/.cache/wharf/digests).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [path]",
	Short: "Clear cached digests",
	Long:  `Removes cached digests for one tree, or for every tree when no path is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location, the number of cached digests and trees, and its size on disk.`,
	RunE:  runCacheStats,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cachePath())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cachePath() string {
	if cfg.Cache.Path == "" {
		return config.DefaultCachePath()
	}
	return cfg.Cache.Path
}

func runCacheClear(_ *cobra.Command, args []string) error {
	c, err := cache.Open(cachePath())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	if len(args) == 0 {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printInfo("Cache cleared.")
		return nil
	}

	root, err := rootArg(args)
	if err != nil {
		return err
	}
	if err := c.Clear(root); err != nil {
		return fmt.Errorf("failed to clear cache for %s: %w", root, err)
	}
	printInfo("Cache cleared for %s.", root)
	return nil
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	c, err := cache.Open(cachePath())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache location: %s\n", stats.Path)
	fmt.Fprintf(out, "Cached digests: %s\n", types.FormatCount(int64(stats.Entries)))
	fmt.Fprintf(out, "Trees:          %d\n", stats.Roots)
	fmt.Fprintf(out, "Size on disk:   %s\n", types.FormatSize(stats.Bytes))
	return nil
}
