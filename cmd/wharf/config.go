package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/wharf/pkg/wharf/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage wharf configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/wharf/config.yaml (if set)
  2. ~/.config/wharf/config.yaml

Environment variables can override config file settings using the WHARF_ prefix:
  WHARF_WORKERS=8
  WHARF_MANIFEST_ALGORITHM=sha256
  WHARF_EXCLUDE=.git,vendor`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fmt.Fprintf(out, "Config file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
		}
	} else {
		fmt.Fprintf(out, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "exclude:                %v\n", cfg.Exclude)
	fmt.Fprintf(out, "workers:                %d\n", cfg.Workers)
	fmt.Fprintf(out, "manifest.filename:      %s\n", cfg.Manifest.Filename)
	fmt.Fprintf(out, "manifest.algorithm:     %s\n", cfg.Manifest.Algorithm)
	fmt.Fprintf(out, "manifest.compress:      %t\n", cfg.Manifest.Compress)
	fmt.Fprintf(out, "cache.enabled:          %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(out, "cache.path:             %s\n", cfg.Cache.Path)
	fmt.Fprintf(out, "fleet.path:             %s\n", cfg.Fleet.Path)
	fmt.Fprintf(out, "history.enabled:        %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:           %s\n", cfg.History.Path)
	fmt.Fprintf(out, "history.retention_days: %d\n", cfg.History.RetentionDays)
	fmt.Fprintf(out, "sync.rsync_path:        %s\n", cfg.Sync.RsyncPath)
	fmt.Fprintf(out, "sync.ssh_path:          %s\n", cfg.Sync.SSHPath)
	fmt.Fprintf(out, "sync.identity_file:     %s\n", cfg.Sync.IdentityFile)
	fmt.Fprintf(out, "watch.debounce:         %s\n", cfg.Watch.Debounce)
	fmt.Fprintf(out, "logging.level:          %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.path:           %s\n", cfg.Logging.Path)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	envVars := []string{
		"WHARF_EXCLUDE",
		"WHARF_WORKERS",
		"WHARF_MANIFEST_FILENAME",
		"WHARF_MANIFEST_ALGORITHM",
		"WHARF_MANIFEST_COMPRESS",
		"WHARF_CACHE_ENABLED",
		"WHARF_CACHE_PATH",
		"WHARF_FLEET_PATH",
		"WHARF_HISTORY_ENABLED",
		"WHARF_HISTORY_PATH",
		"WHARF_SYNC_IDENTITY_FILE",
		"WHARF_WATCH_DEBOUNCE",
		"WHARF_LOGGING_LEVEL",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
