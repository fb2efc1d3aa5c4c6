// Package config provides configuration management for wharf.
package config

// Default configuration values for wharf.
const (
	// DefaultManifestFilename is the manifest name written into a moored tree.
	DefaultManifestFilename = ".wharf-manifest.json"

	// DefaultAlgorithm is the default content hash.
	DefaultAlgorithm = "blake3"

	// DefaultWorkers selects automatic worker tuning.
	DefaultWorkers = 0

	// DefaultRetentionDays is the default number of days to keep history.
	DefaultRetentionDays = 30

	// DefaultDebounce is the default watch debounce interval.
	DefaultDebounce = "500ms"

	// DefaultRsyncPath is the rsync binary looked up on PATH.
	DefaultRsyncPath = "rsync"

	// DefaultSSHPath is the ssh binary looked up on PATH.
	DefaultSSHPath = "ssh"

	// configFileName is the config file name without directory.
	configFileName = "config.yaml"

	// appName names every XDG directory wharf uses.
	appName = "wharf"
)

// DefaultExclusions contains patterns excluded from every walk by default.
var DefaultExclusions = []string{
	".git",
	"node_modules",
	"*.log",
}
