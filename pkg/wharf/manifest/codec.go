package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	godigest "github.com/opencontainers/go-digest"

	"github.com/jamesainslie/wharf/pkg/wharf/digest"
	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// CompressedSuffix selects zstd compression when saving.
const CompressedSuffix = ".zst"

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Marshal encodes m as indented JSON. Nil collections are written as empty
// ones so the document always carries every field.
func Marshal(m *Manifest) ([]byte, error) {
	out := *m
	if out.Files == nil {
		out.Files = map[string]FileEntry{}
	}
	if out.Directories == nil {
		out.Directories = []string{}
	}
	if out.Excludes == nil {
		out.Excludes = []string{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a JSON manifest. Unknown fields are ignored so documents
// written by newer versions still load. Malformed input yields a
// *types.ParseError.
func Unmarshal(data []byte) (*Manifest, error) {
	return unmarshal("", data)
}

func unmarshal(source string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &types.ParseError{Source: source, Err: err}
	}
	if err := m.check(); err != nil {
		return nil, &types.ParseError{Source: source, Err: err}
	}
	if m.Files == nil {
		m.Files = make(map[string]FileEntry)
	}
	if m.Directories == nil {
		m.Directories = []string{}
	}
	if m.Excludes == nil {
		m.Excludes = []string{}
	}
	return &m, nil
}

// check enforces the invariants a decoded manifest must satisfy.
func (m *Manifest) check() error {
	if m.Version < 1 {
		return fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	alg, err := digest.ParseAlgorithm(string(m.Algorithm))
	if err != nil {
		return err
	}
	for key, entry := range m.Files {
		if entry.Path != key {
			return fmt.Errorf("entry %q recorded under key %q", entry.Path, key)
		}
		if err := alg.Validate(entry.Hash); err != nil {
			return fmt.Errorf("entry %q: %w", key, err)
		}
	}
	return nil
}

// Encode writes m to w as JSON.
func Encode(w io.Writer, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a manifest from r. Both plain and zstd-compressed JSON are
// accepted; the format is detected from the content.
func Decode(r io.Reader) (*Manifest, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return unmarshal("", data)
}

// readAll reads r, transparently decompressing zstd input.
func readAll(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !bytes.Equal(head, zstdMagic) {
		return io.ReadAll(br)
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, &types.ParseError{Err: fmt.Errorf("zstd: %w", err)}
	}
	return data, nil
}

// Compress zstd-compresses an encoded manifest.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// Digest returns the content digest of m's canonical JSON encoding.
// Two manifests with equal digests describe the same snapshot.
func Digest(m *Manifest) (godigest.Digest, error) {
	data, err := Marshal(m)
	if err != nil {
		return "", err
	}
	return digest.Content(data), nil
}

// Save writes m to path atomically and returns the digest of the encoded
// JSON. Paths ending in CompressedSuffix are written zstd-compressed.
func Save(path string, m *Manifest) (godigest.Digest, error) {
	data, err := Marshal(m)
	if err != nil {
		return "", err
	}
	sum := digest.Content(data)

	if strings.HasSuffix(path, CompressedSuffix) {
		if data, err = Compress(data); err != nil {
			return "", fmt.Errorf("compress manifest: %w", err)
		}
	}

	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return sum, nil
}

// writeAtomic writes data through a temp file and rename.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.NewIOError("mkdir", filepath.Dir(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return types.NewIOError("write", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return types.NewIOError("rename", path, err)
	}
	return nil
}

// Load reads the manifest stored at path. Read failures are returned as
// *types.IOError and decoding failures as *types.ParseError.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewIOError("open", path, err)
	}
	defer f.Close()

	data, err := readAll(f)
	if err != nil {
		var parseErr *types.ParseError
		if errors.As(err, &parseErr) {
			parseErr.Source = path
			return nil, parseErr
		}
		return nil, types.NewIOError("read", path, err)
	}
	return unmarshal(path, data)
}
