package digest_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("produces 64 hex characters for blake3", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "test.txt")
		require.NoError(t, os.WriteFile(path, []byte("Hello, World!"), 0o644))

		sum, err := digest.File(path, digest.BLAKE3)
		require.NoError(t, err)
		assert.Len(t, sum, 64)
		assert.NoError(t, digest.BLAKE3.Validate(sum))
	})

	t.Run("empty file has the hash of zero bytes", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		sum, err := digest.File(path, digest.BLAKE3)
		require.NoError(t, err)
		assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", sum)
	})

	t.Run("sha256 matches the known vector", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "abc")
		require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

		sum, err := digest.File(path, digest.SHA256)
		require.NoError(t, err)
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
	})

	t.Run("content larger than the buffer streams correctly", func(t *testing.T) {
		t.Parallel()
		data := []byte(strings.Repeat("wharf", digest.BufferSize))
		path := filepath.Join(t.TempDir(), "large.bin")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		sum, err := digest.File(path, digest.BLAKE3)
		require.NoError(t, err)
		assert.Equal(t, digest.Bytes(data, digest.BLAKE3), sum)
	})

	t.Run("missing file is an io error", func(t *testing.T) {
		t.Parallel()
		_, err := digest.File(filepath.Join(t.TempDir(), "nope"), digest.BLAKE3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrIO))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("different content differs", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, digest.Bytes([]byte("content1"), digest.BLAKE3), digest.Bytes([]byte("modified"), digest.BLAKE3))
	})
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    digest.Algorithm
		wantErr bool
	}{
		{in: "", want: digest.BLAKE3},
		{in: "blake3", want: digest.BLAKE3},
		{in: "SHA256", want: digest.SHA256},
		{in: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := digest.ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, digest.ErrUnknownAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlgorithm_Validate(t *testing.T) {
	t.Parallel()

	good := digest.Bytes([]byte("x"), digest.SHA256)
	assert.NoError(t, digest.SHA256.Validate(good))
	assert.ErrorIs(t, digest.SHA256.Validate(good[:10]), digest.ErrInvalidHash)
	assert.ErrorIs(t, digest.SHA256.Validate(strings.ToUpper(good)), digest.ErrInvalidHash)
}

func TestContent(t *testing.T) {
	t.Parallel()

	d := digest.Content([]byte("abc"))
	assert.Equal(t, "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.String())
	assert.NoError(t, d.Validate())
}
