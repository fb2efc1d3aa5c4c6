package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/scanner"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// scenarioTree builds the two-file tree used across these tests.
func scenarioTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "file1.txt", "content1")
	writeFile(t, root, "subdir/file2.txt", "content2")
	return root
}

func build(t *testing.T, root string, excludes ...string) *manifest.Manifest {
	t.Helper()
	m, err := scanner.Build(context.Background(), scanner.Options{Root: root, Exclude: excludes})
	require.NoError(t, err)
	return m
}

func run(t *testing.T, root string, m *manifest.Manifest, allowUnexpected bool) *Result {
	t.Helper()
	res, err := Verify(context.Background(), root, m, Options{AllowUnexpected: allowUnexpected, Workers: 4})
	require.NoError(t, err)
	return res
}

func TestVerify_EndToEnd(t *testing.T) {
	root := scenarioTree(t)

	m := build(t, root)
	assert.Len(t, m.Files, 2)
	assert.Len(t, m.Directories, 1)

	res := run(t, root, m, false)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"file1.txt", "subdir/file2.txt"}, res.Passed)
	assert.Empty(t, res.Mismatched)
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Unexpected)

	writeFile(t, root, "file1.txt", "modified")

	res = run(t, root, m, false)
	assert.False(t, res.OK())
	require.Len(t, res.Mismatched, 1)
	assert.Equal(t, []string{"subdir/file2.txt"}, res.Passed)

	mm := res.Mismatched[0]
	assert.Equal(t, "file1.txt", mm.Path)
	assert.Equal(t, m.Files["file1.txt"].Hash, mm.Expected)
	assert.Equal(t, digest.Bytes([]byte("modified"), digest.BLAKE3), mm.Actual)
	assert.NotEqual(t, mm.Expected, mm.Actual)
}

func TestVerify_FixedPointWithExclusions(t *testing.T) {
	root := scenarioTree(t)
	writeFile(t, root, "debug.log", "log")
	writeFile(t, root, ".git/config", "cfg")
	writeFile(t, root, "node_modules/pkg/index.js", "js")

	m := build(t, root, "*.log", ".git", "node_modules")

	res := run(t, root, m, false)
	assert.True(t, res.OK(), "unexpected drift: %+v", res)
	assert.Len(t, res.Passed, 2)
}

func TestVerify_Deletion(t *testing.T) {
	root := scenarioTree(t)
	m := build(t, root)

	require.NoError(t, os.Remove(filepath.Join(root, "subdir", "file2.txt")))

	res := run(t, root, m, false)
	assert.Equal(t, []string{"subdir/file2.txt"}, res.Missing)
	assert.Equal(t, []string{"file1.txt"}, res.Passed)
	assert.False(t, res.OK())
}

func TestVerify_Addition(t *testing.T) {
	root := scenarioTree(t)
	m := build(t, root, "*.log")

	writeFile(t, root, "new.txt", "new")
	writeFile(t, root, "subdir/nested/extra.txt", "extra")
	writeFile(t, root, "ignored.log", "log")

	res := run(t, root, m, false)
	assert.Equal(t, []string{"new.txt", "subdir/nested/extra.txt"}, res.Unexpected)
	assert.Len(t, res.Passed, 2)

	tolerant := run(t, root, m, true)
	assert.True(t, tolerant.OK())
	assert.Empty(t, tolerant.Unexpected)
	assert.Len(t, tolerant.Passed, 2)
}

func TestVerify_PathReplacedByDirectory(t *testing.T) {
	root := scenarioTree(t)
	m := build(t, root)

	require.NoError(t, os.Remove(filepath.Join(root, "file1.txt")))
	require.NoError(t, os.Mkdir(filepath.Join(root, "file1.txt"), 0o755))

	res := run(t, root, m, true)
	assert.Equal(t, []string{"file1.txt"}, res.Missing)
}

func TestVerify_PathReplacedBySymlink(t *testing.T) {
	root := scenarioTree(t)
	m := build(t, root)

	// The link target holds identical bytes; links are still never followed.
	target := filepath.Join(t.TempDir(), "file1.txt")
	require.NoError(t, os.WriteFile(target, []byte("content1"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "file1.txt")))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "file1.txt")))

	res := run(t, root, m, false)
	assert.Equal(t, []string{"file1.txt"}, res.Missing)
	assert.Equal(t, []string{"subdir/file2.txt"}, res.Passed)
	assert.Empty(t, res.Unexpected, "the walker skips the link too")
}

func TestVerify_ParentReplacedByFile(t *testing.T) {
	root := scenarioTree(t)
	m := build(t, root)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "subdir")))
	writeFile(t, root, "subdir", "now a file")

	res := run(t, root, m, true)
	assert.Equal(t, []string{"subdir/file2.txt"}, res.Missing)
}

func TestVerify_EscapingKeysAreMissing(t *testing.T) {
	root := t.TempDir()
	m := manifest.New(root, nil, digest.BLAKE3)
	for _, p := range []string{"../outside.txt", "/etc/passwd"} {
		m.Files[p] = manifest.FileEntry{Path: p, Hash: digest.Bytes(nil, digest.BLAKE3)}
	}

	res := run(t, root, m, true)
	assert.Equal(t, []string{"../outside.txt", "/etc/passwd"}, res.Missing)
}

func TestVerify_EmptyTreeEmptyManifest(t *testing.T) {
	root := t.TempDir()
	m := build(t, root)

	res := run(t, root, m, false)
	assert.True(t, res.OK())
	assert.Empty(t, res.Passed)
	assert.Zero(t, res.DriftCount())
}

func TestVerify_UsesManifestAlgorithm(t *testing.T) {
	root := scenarioTree(t)
	m, err := scanner.Build(context.Background(), scanner.Options{Root: root, Algorithm: digest.SHA256})
	require.NoError(t, err)

	res := run(t, root, m, false)
	assert.True(t, res.OK())
	assert.Len(t, res.Passed, 2)
}

func TestVerify_Errors(t *testing.T) {
	t.Run("missing root with unexpected pass", func(t *testing.T) {
		m := manifest.New("/nowhere", nil, digest.BLAKE3)
		_, err := Verify(context.Background(), filepath.Join(t.TempDir(), "absent"), m, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrIO))
	})

	t.Run("unreadable file", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permissions are not enforced for root")
		}
		root := scenarioTree(t)
		m := build(t, root)
		locked := filepath.Join(root, "file1.txt")
		require.NoError(t, os.Chmod(locked, 0o000))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

		_, err := Verify(context.Background(), root, m, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrIO))
	})

	t.Run("cancelled", func(t *testing.T) {
		root := scenarioTree(t)
		m := build(t, root)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Verify(ctx, root, m, Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestVerify_RoundTripThroughCodec(t *testing.T) {
	root := scenarioTree(t)
	path := filepath.Join(t.TempDir(), "m.json")

	_, err := manifest.Save(path, build(t, root))
	require.NoError(t, err)

	loaded, err := manifest.Load(path)
	require.NoError(t, err)

	res := run(t, root, loaded, false)
	assert.True(t, res.OK())
}
