package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/wharf/pkg/wharf/scanner"
	"github.com/jamesainslie/wharf/pkg/wharf/verify"
)

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "subdir"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file1.txt"), []byte("content1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "subdir", "file2.txt"), []byte("content2"), 0o644))
	return root
}

func TestWatcher_SkipsExcludedDirectories(t *testing.T) {
	root := makeTree(t)

	w, err := New(root, []string{"node_modules"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Watch())
	assert.Equal(t, 2, w.Watched(), "root and subdir only")

	assert.True(t, w.excluded(filepath.Join(root, "node_modules", "pkg")))
	assert.False(t, w.excluded(filepath.Join(root, "subdir", "file2.txt")))
	assert.False(t, w.excluded(root))
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	assert.Error(t, w.Watch())
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestRun_ReverifiesOnChange(t *testing.T) {
	root := makeTree(t)
	m, err := scanner.Build(context.Background(), scanner.Options{Root: root, Exclude: []string{"node_modules"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan *verify.Result, 16)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Root:     root,
			Manifest: m,
			Debounce: 50 * time.Millisecond,
			OnResult: func(r *verify.Result) { results <- r },
		})
	}()

	select {
	case r := <-results:
		assert.True(t, r.OK(), "initial pass is clean")
	case <-time.After(5 * time.Second):
		t.Fatal("no initial result")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "file1.txt"), []byte("modified"), 0o644))

	deadline := time.After(10 * time.Second)
	for {
		select {
		case r := <-results:
			if len(r.Mismatched) == 1 {
				assert.Equal(t, "file1.txt", r.Mismatched[0].Path)
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("change was not detected")
		}
	}
}

func TestRun_RequiresManifest(t *testing.T) {
	err := Run(context.Background(), Options{Root: t.TempDir()})
	assert.Error(t, err)
}
