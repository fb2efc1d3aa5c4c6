// Package fleet manages the registry of yachts: the remote hosts a tree is
// moored to.
package fleet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// Registry errors.
var (
	ErrExists         = errors.New("yacht already exists")
	ErrNotFound       = errors.New("yacht not found")
	ErrUnknownAdapter = errors.New("unknown adapter type")
	ErrInvalidName    = errors.New("invalid yacht name")
)

// Yacht defaults.
const (
	DefaultSSHUser    = "root"
	DefaultSSHPort    = 22
	DefaultWebRoot    = "/var/www/html"
	DefaultDBVariant  = "mariadb"
	DefaultPublicPort = 3306
	DefaultShadowPort = 33060
)

// Adapter identifies the CMS running on a yacht.
type Adapter string

// Supported adapters.
const (
	WordPress Adapter = "wordpress"
	Drupal    Adapter = "drupal"
	Moodle    Adapter = "moodle"
	Joomla    Adapter = "joomla"
	Custom    Adapter = "custom"
)

// Adapters lists every supported adapter.
var Adapters = []Adapter{WordPress, Drupal, Moodle, Joomla, Custom}

// ParseAdapter maps a case-insensitive name to an Adapter.
func ParseAdapter(name string) (Adapter, error) {
	a := Adapter(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Adapters, a) {
		return a, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
}

// Database describes the database exposed by a yacht.
type Database struct {
	Variant    string `yaml:"variant" json:"variant"`
	PublicPort int    `yaml:"public_port" json:"public_port"`
	ShadowPort int    `yaml:"shadow_port" json:"shadow_port"`
}

// Yacht is one remote target.
type Yacht struct {
	Name     string   `yaml:"name" json:"name"`
	IP       string   `yaml:"ip" json:"ip"`
	Domain   string   `yaml:"domain" json:"domain"`
	SSHUser  string   `yaml:"ssh_user" json:"ssh_user"`
	SSHPort  int      `yaml:"ssh_port" json:"ssh_port"`
	WebRoot  string   `yaml:"web_root" json:"web_root"`
	Adapter  Adapter  `yaml:"adapter" json:"adapter"`
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Tags     []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Database Database `yaml:"database" json:"database"`
}

// NewYacht returns an enabled yacht with default connection settings.
func NewYacht(name, ip, domain string) Yacht {
	return Yacht{
		Name:    name,
		IP:      ip,
		Domain:  domain,
		SSHUser: DefaultSSHUser,
		SSHPort: DefaultSSHPort,
		WebRoot: DefaultWebRoot,
		Adapter: WordPress,
		Enabled: true,
		Database: Database{
			Variant:    DefaultDBVariant,
			PublicPort: DefaultPublicPort,
			ShadowPort: DefaultShadowPort,
		},
	}
}

// SSHDestination returns user@ip.
func (y Yacht) SSHDestination() string {
	return y.SSHUser + "@" + y.IP
}

// RsyncDestination returns user@ip:webroot/.
func (y Yacht) RsyncDestination() string {
	root := y.WebRoot
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return y.SSHDestination() + ":" + root
}

// Port returns the SSH port as a string, falling back to the default.
func (y Yacht) Port() string {
	if y.SSHPort <= 0 {
		return strconv.Itoa(DefaultSSHPort)
	}
	return strconv.Itoa(y.SSHPort)
}

// DefaultSyncExcludes are never pushed to a yacht.
var DefaultSyncExcludes = []string{".git", "*.log", "node_modules"}

// Fleet is the set of known yachts.
type Fleet struct {
	SyncExcludes []string         `yaml:"sync_excludes" json:"sync_excludes"`
	Yachts       map[string]Yacht `yaml:"yachts" json:"yachts"`
}

// Default returns an empty fleet with the default sync exclusions.
func Default() *Fleet {
	return &Fleet{
		SyncExcludes: slices.Clone(DefaultSyncExcludes),
		Yachts:       make(map[string]Yacht),
	}
}

// Load reads a fleet file. A missing file yields Default().
func Load(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, types.NewIOError("read", path, err)
	}

	f := Default()
	f.SyncExcludes = nil
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, &types.ParseError{Source: path, Err: err}
	}
	if f.SyncExcludes == nil {
		f.SyncExcludes = slices.Clone(DefaultSyncExcludes)
	}
	if f.Yachts == nil {
		f.Yachts = make(map[string]Yacht)
	}
	for name, y := range f.Yachts {
		if y.Name == "" {
			y.Name = name
			f.Yachts[name] = y
		}
	}
	return f, nil
}

// Save writes the fleet to path atomically.
func (f *Fleet) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fleet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.NewIOError("mkdir", filepath.Dir(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return types.NewIOError("write", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return types.NewIOError("rename", path, err)
	}
	return nil
}

// Add registers y. Names must be unique.
func (f *Fleet) Add(y Yacht) error {
	if y.Name == "" || strings.ContainsAny(y.Name, "/\\ ") {
		return fmt.Errorf("%w: %q", ErrInvalidName, y.Name)
	}
	if _, ok := f.Yachts[y.Name]; ok {
		return fmt.Errorf("%w: %s", ErrExists, y.Name)
	}
	if f.Yachts == nil {
		f.Yachts = make(map[string]Yacht)
	}
	f.Yachts[y.Name] = y
	return nil
}

// Remove deletes the named yacht.
func (f *Fleet) Remove(name string) error {
	if _, ok := f.Yachts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(f.Yachts, name)
	return nil
}

// Get returns the named yacht.
func (f *Fleet) Get(name string) (Yacht, error) {
	y, ok := f.Yachts[name]
	if !ok {
		return Yacht{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return y, nil
}

// List returns all yachts sorted by name.
func (f *Fleet) List() []Yacht {
	out := make([]Yacht, 0, len(f.Yachts))
	for _, y := range f.Yachts {
		out = append(out, y)
	}
	slices.SortFunc(out, func(a, b Yacht) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Enabled returns the enabled yachts sorted by name.
func (f *Fleet) Enabled() []Yacht {
	return slices.DeleteFunc(f.List(), func(y Yacht) bool { return !y.Enabled })
}
