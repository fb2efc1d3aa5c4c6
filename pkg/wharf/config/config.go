package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ManifestConfig configures manifest generation.
type ManifestConfig struct {
	Filename  string `mapstructure:"filename"`
	Algorithm string `mapstructure:"algorithm"`
	Compress  bool   `mapstructure:"compress"`
}

// CacheConfig configures the digest cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// FleetConfig locates the fleet registry.
type FleetConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig configures the run journal.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// SyncConfig configures the transfer tools.
type SyncConfig struct {
	RsyncPath    string `mapstructure:"rsync_path"`
	SSHPath      string `mapstructure:"ssh_path"`
	IdentityFile string `mapstructure:"identity_file"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `mapstructure:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	Exclude  []string       `mapstructure:"exclude"`
	Workers  int            `mapstructure:"workers"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Fleet    FleetConfig    `mapstructure:"fleet"`
	History  HistoryConfig  `mapstructure:"history"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load loads configuration from the default file locations and the
// environment.
//
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/wharf/config.yaml
//   - $HOME/.config/wharf/config.yaml
//
// Environment variables are prefixed with WHARF_ (e.g., WHARF_WORKERS).
func Load() (*Config, error) {
	return LoadWith(viper.New(), "")
}

// LoadWith loads configuration into v, which may already carry bound flags.
// A non-empty file replaces the default search path and must exist.
func LoadWith(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		configDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("WHARF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Cache.Path, &cfg.Fleet.Path, &cfg.History.Path, &cfg.Logging.Path, &cfg.Sync.IdentityFile} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers", DefaultWorkers)

	v.SetDefault("manifest.filename", DefaultManifestFilename)
	v.SetDefault("manifest.algorithm", DefaultAlgorithm)
	v.SetDefault("manifest.compress", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", DefaultCachePath())

	v.SetDefault("fleet.path", DefaultFleetPath())

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("sync.rsync_path", DefaultRsyncPath)
	v.SetDefault("sync.ssh_path", DefaultSSHPath)
	v.SetDefault("sync.identity_file", "")

	v.SetDefault("watch.debounce", DefaultDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"scanner": "info",
		"verify":  "info",
		"moor":    "info",
		"watch":   "warn",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Wharf Configuration

# Patterns excluded from every walk.
#   *suffix  matches the end of a path
#   prefix*  matches the start of a path
#   name     matches a whole path component
exclude:
  - .git
  - node_modules
  - "*.log"

# Concurrent workers (0 = tuned to this machine)
workers: %d

manifest:
  # Name of the manifest written into a moored tree
  filename: %s
  # Content hash: blake3 or sha256
  algorithm: %s
  # Write zstd-compressed manifests
  compress: false

# Digest cache reused by generate when file metadata is unchanged
cache:
  enabled: true
  path: %s

fleet:
  path: %s

# Journal of generate, verify and moor runs
history:
  enabled: true
  path: %s
  retention_days: %d

sync:
  rsync_path: %s
  ssh_path: %s
  # SSH private key passed to ssh -i (empty uses the agent)
  identity_file: ""

watch:
  debounce: %s

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/wharf/wharf.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    scanner: info
    verify: info
    moor: info
    watch: warn
`, DefaultWorkers, DefaultManifestFilename, DefaultAlgorithm,
		DefaultCachePath(), DefaultFleetPath(), DefaultHistoryPath(), DefaultRetentionDays,
		DefaultRsyncPath, DefaultSSHPath, DefaultDebounce)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/wharf/ for the fleet registry and history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/wharf/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// CacheDir returns $XDG_CACHE_HOME/wharf/.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// DefaultCachePath returns the default digest cache directory.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "digests")
}

// DefaultFleetPath returns the default fleet registry file.
func DefaultFleetPath() string {
	return filepath.Join(DataDir(), "fleet.yaml")
}

// DefaultHistoryPath returns the default history directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "wharf.log")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
