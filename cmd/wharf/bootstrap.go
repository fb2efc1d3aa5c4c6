package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/wharf/pkg/wharf/cache"
	"github.com/jamesainslie/wharf/pkg/wharf/config"
	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/history"
	"github.com/jamesainslie/wharf/pkg/wharf/logging"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/output"
)

// initializeLogging sets up directories and the logging system from the
// loaded configuration. It runs before every command.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	if cfg == nil {
		loaded, err := config.LoadWith(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	consoleLevel := "warn"
	switch {
	case getQuiet():
		consoleLevel = ""
	case getVerbose():
		consoleLevel = "debug"
	}

	return logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         logPath,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	})
}

// parseRotationConfig converts the config file representation into the
// logging package's. Unparseable sizes fall back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	size, err := logging.ParseSize(rc.MaxSize)
	if err != nil || size <= 0 {
		size = logging.DefaultMaxSize
	}
	return logging.RotationConfig{
		MaxSize:    size,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

// signalContext returns the command's context, additionally cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// rootArg returns the tree path from args, defaulting to the current
// directory.
func rootArg(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	return abs, nil
}

// algorithm returns the configured hash algorithm.
func algorithm() (digest.Algorithm, error) {
	return digest.ParseAlgorithm(cfg.Manifest.Algorithm)
}

// manifestFilename returns the configured in-tree manifest name.
func manifestFilename() string {
	if cfg.Manifest.Filename == "" {
		return manifest.DefaultFilename
	}
	return cfg.Manifest.Filename
}

// defaultManifestPath returns where generate writes the manifest for root.
func defaultManifestPath(root string) string {
	path := filepath.Join(root, manifestFilename())
	if cfg.Manifest.Compress {
		path += manifest.CompressedSuffix
	}
	return path
}

// findManifest returns the manifest verify reads for root: the plain file
// if present, otherwise a compressed one.
func findManifest(root string) string {
	plain := filepath.Join(root, manifestFilename())
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	compressed := plain + manifest.CompressedSuffix
	if _, err := os.Stat(compressed); err == nil {
		return compressed
	}
	return plain
}

// buildExcludes returns the configured patterns plus the manifest itself
// when it is stored inside root.
func buildExcludes(root, manifestPath string) []string {
	patterns := slices.Clone(cfg.Exclude)
	rel, err := filepath.Rel(root, manifestPath)
	if err != nil || !filepath.IsLocal(rel) {
		return patterns
	}
	rel = filepath.ToSlash(rel)
	if !slices.Contains(patterns, rel) {
		patterns = append(patterns, rel)
	}
	return patterns
}

// openCache opens the digest cache unless it is disabled. Failures are
// reported and the run continues without a cache.
func openCache() *cache.Cache {
	if viper.GetBool("no_cache") || !cfg.Cache.Enabled {
		return nil
	}
	path := cfg.Cache.Path
	if path == "" {
		path = config.DefaultCachePath()
	}
	c, err := cache.Open(path)
	if err != nil {
		printVerbose("cache unavailable: %v", err)
		logging.Get("cache").Warn("cache unavailable", "path", path, "error", err)
		return nil
	}
	return c
}

// openJournal returns the history journal, or nil when history is disabled.
func openJournal() (*history.Journal, error) {
	path := cfg.History.Path
	if path == "" {
		path = config.DefaultHistoryPath()
	}
	return history.New(path)
}

// recordHistory stores e in the journal. Failures never fail the command.
func recordHistory(e history.Entry) {
	if !cfg.History.Enabled {
		return
	}
	j, err := openJournal()
	if err != nil {
		printVerbose("history unavailable: %v", err)
		return
	}
	if _, err := j.Record(e); err != nil {
		printVerbose("failed to record history: %v", err)
		logging.Get("history").Warn("failed to record history", "error", err)
	}
}

// writeReport renders r in the selected output format to stdout.
func writeReport(cmd *cobra.Command, r *output.Report) error {
	name := viper.GetString("output")
	if name == "" {
		name = "pretty"
	}
	formatter, err := output.Get(name)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
