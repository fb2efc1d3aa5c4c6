package rsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	output string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	return []byte(f.output), f.err
}

func newTestClient(r Runner, found bool) *Client {
	c := New("", "")
	c.Runner = r
	c.lookPath = func(name string) (string, error) {
		if !found {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	return c
}

func TestArgs(t *testing.T) {
	t.Parallel()

	c := New("", "")

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "minimal",
			cfg:  Config{Source: "/src", Destination: "root@h:/var/www/html/"},
			want: []string{"-az", "--stats", "-e", "ssh -p 22", "/src/", "root@h:/var/www/html/"},
		},
		{
			name: "everything",
			cfg: Config{
				Source:       "/src/",
				Destination:  "u@h:/w/",
				SSHPort:      2222,
				IdentityFile: "/keys/it's",
				Excludes:     []string{".git", "*.log"},
				DryRun:       true,
				Delete:       true,
			},
			want: []string{
				"-az", "--stats", "-e", `ssh -p 2222 -i '/keys/it'\''s'`,
				"--exclude=.git", "--exclude=*.log",
				"--dry-run", "--delete",
				"/src/", "u@h:/w/",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.Args(tt.cfg))
		})
	}
}

func TestParseTransferred(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
		want int64
	}{
		{name: "modern", out: "Number of files: 10\nNumber of regular files transferred: 1,234\n", want: 1234},
		{name: "legacy", out: "Number of files transferred: 7\n", want: 7},
		{name: "missing", out: "sent 10 bytes", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseTransferred(tt.out))
		})
	}
}

func TestSync(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{output: "Number of regular files transferred: 3\n"}
	c := newTestClient(r, true)

	res, err := c.Sync(context.Background(), Config{Source: "/src", Destination: "u@h:/w/"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.FilesTransferred)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "rsync", r.calls[0].name)

	_, err = c.Sync(context.Background(), Config{Source: "/src"})
	assert.Error(t, err)
}

func TestSync_Failure(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{err: errors.New("exit status 23")}
	c := newTestClient(r, true)

	_, err := c.Sync(context.Background(), Config{Source: "/src", Destination: "u@h:/w/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u@h:/w/")
}

func TestCheckRsync(t *testing.T) {
	t.Parallel()

	assert.NoError(t, newTestClient(&fakeRunner{}, true).CheckRsync())
	assert.ErrorIs(t, newTestClient(&fakeRunner{}, false).CheckRsync(), ErrMissingTool)
}

func TestCheckSSH(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{}
	c := newTestClient(r, true)
	require.NoError(t, c.CheckSSH(context.Background(), "root@10.0.0.1", 0, "/k"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{
		"-o", "BatchMode=yes", "-o", "ConnectTimeout=10", "-p", "22", "-i", "/k", "root@10.0.0.1", "true",
	}, r.calls[0].args)

	r.err = errors.New("exit status 255")
	assert.Error(t, c.CheckSSH(context.Background(), "root@10.0.0.1", 22, ""))

	assert.ErrorIs(t, newTestClient(r, false).CheckSSH(context.Background(), "x", 22, ""), ErrMissingTool)
}
