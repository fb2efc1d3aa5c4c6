package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/wharf/pkg/wharf/config"
)

// errDrift is returned when verification finds drift. The report has
// already been printed, so main only sets the exit status.
var errDrift = errors.New("drift detected")

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error

	rootCmd = &cobra.Command{
		Use:   "wharf",
		Short: "Snapshot directory trees and detect drift",
		Long: `Wharf records a manifest of a directory tree (a content hash per file
plus the directory layout) and later verifies a live tree against it,
reporting modified, missing and unexpected files.

Examples:
  wharf generate /var/www/site          # Write /var/www/site/.wharf-manifest.json
  wharf verify /var/www/site            # Check the tree against its manifest
  wharf verify -o json --allow-unexpected .
  wharf watch /var/www/site             # Re-verify whenever the tree changes
  wharf fleet add alpha --ip 10.0.0.5 --domain alpha.example.com
  wharf moor alpha ./site               # Snapshot and push a tree to a yacht`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/wharf/config.yaml)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "override worker count (0=auto)")
	rootCmd.PersistentFlags().String("algorithm", "", "content hash: blake3 or sha256")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format: pretty, plain, json, yaml")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "hash every file instead of reusing cached digests")

	// Bind flags to viper
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("manifest.algorithm", rootCmd.PersistentFlags().Lookup("algorithm"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
}

// initConfig loads configuration from the config file, the environment and
// the bound flags. A failure is reported by initializeLogging.
func initConfig() {
	cfg, cfgErr = config.LoadWith(viper.GetViper(), cfgFile)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
