package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and XDG_CONFIG_HOME at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultExclusions, cfg.Exclude)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultManifestFilename, cfg.Manifest.Filename)
	assert.Equal(t, DefaultAlgorithm, cfg.Manifest.Algorithm)
	assert.False(t, cfg.Manifest.Compress)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultCachePath(), cfg.Cache.Path)
	assert.Equal(t, DefaultFleetPath(), cfg.Fleet.Path)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.Equal(t, DefaultRsyncPath, cfg.Sync.RsyncPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.Components["watch"])
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	configDir := filepath.Join(home, ".config", "wharf")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := `
exclude:
  - vendor
  - "*.tmp"
workers: 3
manifest:
  algorithm: sha256
  compress: true
history:
  enabled: false
  retention_days: 7
fleet:
  path: ~/fleet.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"vendor", "*.tmp"}, cfg.Exclude)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "sha256", cfg.Manifest.Algorithm)
	assert.True(t, cfg.Manifest.Compress)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 7, cfg.History.RetentionDays)
	assert.Equal(t, filepath.Join(home, "fleet.yaml"), cfg.Fleet.Path)
	assert.Equal(t, DefaultManifestFilename, cfg.Manifest.Filename, "unset keys keep defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("WHARF_WORKERS", "9")
	t.Setenv("WHARF_MANIFEST_ALGORITHM", "sha256")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, "sha256", cfg.Manifest.Algorithm)
}

func TestLoadWith_ExplicitFile(t *testing.T) {
	isolate(t)

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadWith(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("explicit file is read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))

		cfg, err := LoadWith(viper.New(), path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Workers)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: [\n"), 0o644))

		_, err := LoadWith(viper.New(), path)
		assert.Error(t, err)
	})
}

func TestLoadWith_BoundFlags(t *testing.T) {
	isolate(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("exclude", nil, "")
	require.NoError(t, flags.Parse([]string{"--exclude", "dist", "--exclude", "*.bak"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("exclude", flags.Lookup("exclude")))

	cfg, err := LoadWith(v, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"dist", "*.bak"}, cfg.Exclude)
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, err := WriteDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "wharf", "config.yaml"), path)

	cfg, err := LoadWith(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, DefaultExclusions, cfg.Exclude)
	assert.Equal(t, DefaultAlgorithm, cfg.Manifest.Algorithm)

	require.NoError(t, os.WriteFile(path, []byte("workers: 5\n"), 0o644))
	again, err := WriteDefault()
	require.NoError(t, err)
	assert.Equal(t, path, again)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "workers: 5\n", string(data), "existing config is preserved")
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := ExpandPath("~/x/y")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), got)

	got, err = ExpandPath("/abs")
	require.NoError(t, err)
	assert.Equal(t, "/abs", got)
}

func TestConfigDir_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wharf"), got)
}
