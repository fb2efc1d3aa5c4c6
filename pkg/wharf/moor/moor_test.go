package moor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/wharf/pkg/wharf/fleet"
	"github.com/jamesainslie/wharf/pkg/wharf/manifest"
	"github.com/jamesainslie/wharf/pkg/wharf/rsync"
	"github.com/jamesainslie/wharf/pkg/wharf/verify"
)

type fakeSyncer struct {
	rsyncErr error
	sshErr   error
	syncErr  error
	synced   []rsync.Config
}

func (f *fakeSyncer) CheckRsync() error { return f.rsyncErr }

func (f *fakeSyncer) CheckSSH(context.Context, string, int, string) error { return f.sshErr }

func (f *fakeSyncer) Sync(_ context.Context, cfg rsync.Config) (*rsync.Result, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.synced = append(f.synced, cfg)
	return &rsync.Result{FilesTransferred: 2}, nil
}

func setup(t *testing.T) (*fleet.Fleet, string) {
	t.Helper()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "wp-content"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.php"), []byte("<?php"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "wp-content", "a.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "debug.log"), []byte("noise"), 0o644))

	f := fleet.Default()
	require.NoError(t, f.Add(fleet.NewYacht("alpha", "10.0.0.1", "a.example")))
	return f, src
}

func TestExecute(t *testing.T) {
	t.Parallel()

	f, src := setup(t)
	s := &fakeSyncer{}

	res, err := Execute(context.Background(), f, "alpha", src, Options{Syncer: s, Force: true})
	require.NoError(t, err)

	assert.Equal(t, "alpha", res.Yacht)
	assert.Equal(t, 2, res.FilesSynced, "log file is excluded")
	assert.Equal(t, int64(2), res.FilesTransferred)
	assert.NoError(t, res.ManifestDigest.Validate())

	require.Len(t, s.synced, 1)
	assert.Equal(t, "root@10.0.0.1:/var/www/html/", s.synced[0].Destination)
	assert.True(t, s.synced[0].Delete)
	assert.False(t, s.synced[0].DryRun)
	assert.Equal(t, f.SyncExcludes, s.synced[0].Excludes)
	assert.NotContains(t, s.synced[0].Excludes, manifest.DefaultFilename, "manifest ships with the tree")

	m, err := manifest.Load(filepath.Join(src, manifest.DefaultFilename))
	require.NoError(t, err)
	assert.Contains(t, m.Excludes, manifest.DefaultFilename)

	// The saved manifest describes the tree it sits in.
	vr, err := verify.Verify(context.Background(), src, m, verify.Options{})
	require.NoError(t, err)
	assert.True(t, vr.OK(), "unexpected drift: %+v", vr)
}

func TestExecute_DryRun(t *testing.T) {
	t.Parallel()

	f, src := setup(t)
	s := &fakeSyncer{}

	res, err := Execute(context.Background(), f, "alpha", src, Options{Syncer: s, DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, int64(2), res.FilesTransferred, "rsync preview count")
	require.Len(t, s.synced, 1)
	assert.True(t, s.synced[0].DryRun)
	assert.False(t, s.synced[0].Delete)
	assert.FileExists(t, res.ManifestPath)
}

func TestExecute_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown yacht", func(t *testing.T) {
		t.Parallel()
		f, src := setup(t)
		_, err := Execute(context.Background(), f, "ghost", src, Options{Syncer: &fakeSyncer{}})
		assert.ErrorIs(t, err, fleet.ErrNotFound)
	})

	t.Run("rsync missing", func(t *testing.T) {
		t.Parallel()
		f, src := setup(t)
		s := &fakeSyncer{rsyncErr: rsync.ErrMissingTool}
		_, err := Execute(context.Background(), f, "alpha", src, Options{Syncer: s})
		assert.ErrorIs(t, err, rsync.ErrMissingTool)
		assert.NoFileExists(t, filepath.Join(src, manifest.DefaultFilename))
	})

	t.Run("ssh unreachable", func(t *testing.T) {
		t.Parallel()
		f, src := setup(t)
		s := &fakeSyncer{sshErr: errors.New("exit status 255")}
		_, err := Execute(context.Background(), f, "alpha", src, Options{Syncer: s})
		assert.ErrorContains(t, err, "cannot reach alpha")
	})

	t.Run("preflight skipped", func(t *testing.T) {
		t.Parallel()
		f, src := setup(t)
		s := &fakeSyncer{sshErr: errors.New("exit status 255")}
		_, err := Execute(context.Background(), f, "alpha", src, Options{Syncer: s, SkipPreflight: true})
		assert.NoError(t, err)
	})

	t.Run("sync failure", func(t *testing.T) {
		t.Parallel()
		f, src := setup(t)
		s := &fakeSyncer{syncErr: errors.New("exit status 23")}
		_, err := Execute(context.Background(), f, "alpha", src, Options{Syncer: s})
		assert.Error(t, err)
	})
}

func TestExcludes(t *testing.T) {
	t.Parallel()

	f := fleet.Default()
	f.SyncExcludes = []string{".git"}
	assert.Equal(t, []string{".git", manifest.DefaultFilename}, Excludes(f))
	assert.Equal(t, []string{".git"}, f.SyncExcludes, "fleet list is not modified")

	// A fleet file that still lists the manifest is not duplicated.
	f.SyncExcludes = []string{".git", manifest.DefaultFilename}
	assert.Equal(t, []string{".git", manifest.DefaultFilename}, Excludes(f))
}

func TestTransferExcludes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fleet.DefaultSyncExcludes, TransferExcludes(fleet.Default()))

	f := fleet.Default()
	f.SyncExcludes = []string{".git", manifest.DefaultFilename, "*.log"}
	assert.Equal(t, []string{".git", "*.log"}, TransferExcludes(f))
	assert.Contains(t, f.SyncExcludes, manifest.DefaultFilename, "fleet list is not modified")
}
