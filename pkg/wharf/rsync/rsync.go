// Package rsync pushes a tree to a remote host by shelling out to rsync over
// ssh, and checks that both tools are usable beforehand.
package rsync

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Default tool names, resolved through PATH.
const (
	DefaultRsyncPath = "rsync"
	DefaultSSHPath   = "ssh"
)

// ConnectTimeout is the ssh connect timeout used by CheckSSH, in seconds.
const ConnectTimeout = 10

// ErrMissingTool is returned when rsync or ssh cannot be found.
var ErrMissingTool = errors.New("required tool not found")

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Config describes one transfer.
type Config struct {
	// Source is the local directory. Its contents, not the directory
	// itself, are copied.
	Source string

	// Destination is an rsync remote spec such as user@host:/var/www/html/.
	Destination string

	SSHPort      int
	IdentityFile string
	Excludes     []string

	// DryRun asks rsync to report without copying.
	DryRun bool

	// Delete removes remote files that are absent locally.
	Delete bool
}

// Result summarizes a completed transfer.
type Result struct {
	FilesTransferred int64
	Output           string
}

// Client runs rsync and ssh.
type Client struct {
	RsyncPath string
	SSHPath   string
	Runner    Runner

	lookPath func(string) (string, error)
}

// New returns a Client using the given tool paths. Empty paths select the
// defaults.
func New(rsyncPath, sshPath string) *Client {
	if rsyncPath == "" {
		rsyncPath = DefaultRsyncPath
	}
	if sshPath == "" {
		sshPath = DefaultSSHPath
	}
	return &Client{
		RsyncPath: rsyncPath,
		SSHPath:   sshPath,
		Runner:    ExecRunner{},
		lookPath:  exec.LookPath,
	}
}

// Args returns the rsync argument list for cfg.
func (c *Client) Args(cfg Config) []string {
	args := []string{"-az", "--stats", "-e", c.sshCommand(cfg.SSHPort, cfg.IdentityFile)}
	for _, pattern := range cfg.Excludes {
		args = append(args, "--exclude="+pattern)
	}
	if cfg.DryRun {
		args = append(args, "--dry-run")
	}
	if cfg.Delete {
		args = append(args, "--delete")
	}
	return append(args, withTrailingSlash(cfg.Source), cfg.Destination)
}

func (c *Client) sshCommand(port int, identity string) string {
	if port <= 0 {
		port = 22
	}
	cmd := fmt.Sprintf("%s -p %d", c.SSHPath, port)
	if identity != "" {
		cmd += " -i " + shellQuote(identity)
	}
	return cmd
}

// Sync runs rsync for cfg.
func (c *Client) Sync(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Source == "" || cfg.Destination == "" {
		return nil, errors.New("rsync: source and destination are required")
	}

	out, err := c.Runner.Run(ctx, c.RsyncPath, c.Args(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("rsync to %s failed: %w", cfg.Destination, err)
	}
	return &Result{
		FilesTransferred: parseTransferred(string(out)),
		Output:           string(out),
	}, nil
}

// CheckRsync verifies that rsync is installed.
func (c *Client) CheckRsync() error {
	if _, err := c.lookPath(c.RsyncPath); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingTool, c.RsyncPath)
	}
	return nil
}

// CheckSSH runs a no-op command on dest to confirm non-interactive access.
func (c *Client) CheckSSH(ctx context.Context, dest string, port int, identity string) error {
	if _, err := c.lookPath(c.SSHPath); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingTool, c.SSHPath)
	}
	if port <= 0 {
		port = 22
	}

	args := []string{
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=" + strconv.Itoa(ConnectTimeout),
		"-p", strconv.Itoa(port),
	}
	if identity != "" {
		args = append(args, "-i", identity)
	}
	args = append(args, dest, "true")

	if _, err := c.Runner.Run(ctx, c.SSHPath, args...); err != nil {
		return fmt.Errorf("ssh to %s failed: %w", dest, err)
	}
	return nil
}

var transferredRe = regexp.MustCompile(`Number of (?:regular )?files transferred:\s*([\d,.]+)`)

// parseTransferred extracts the transferred file count from rsync --stats
// output. Unknown formats yield zero.
func parseTransferred(out string) int64 {
	m := transferredRe.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	digits := strings.NewReplacer(",", "", ".", "").Replace(m[1])
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
