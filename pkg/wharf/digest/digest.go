// Package digest computes content fingerprints of files for the wharf
// manifest engine. Files are streamed through the hash in fixed-size chunks,
// so memory use does not depend on file size.
package digest

import (
	_ "crypto/sha256" // registers SHA-256 for go-digest
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	godigest "github.com/opencontainers/go-digest"
	"github.com/zeebo/blake3"

	"github.com/jamesainslie/wharf/pkg/wharf/types"
)

// BufferSize is the chunk size used when streaming file content.
const BufferSize = 64 * 1024

// Algorithm names a supported content hash.
type Algorithm string

const (
	// BLAKE3 is the 256-bit BLAKE3 hash.
	BLAKE3 Algorithm = "blake3"
	// SHA256 is SHA-256.
	SHA256 Algorithm = "sha256"
)

// Default is the algorithm used when none is configured.
const Default = BLAKE3

// ErrUnknownAlgorithm is returned for algorithm names wharf does not support.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// ErrInvalidHash is returned when a hash string is not well-formed for its algorithm.
var ErrInvalidHash = errors.New("invalid hash")

// Algorithms lists the supported algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{BLAKE3, SHA256}
}

// ParseAlgorithm parses an algorithm name (case-insensitive).
// The empty string yields Default.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Default, nil
	case BLAKE3:
		return BLAKE3, nil
	case SHA256:
		return SHA256, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

// New returns a fresh hash.Hash for the algorithm.
// Unknown algorithms fall back to Default.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA256:
		return godigest.SHA256.Hash()
	default:
		return blake3.New()
	}
}

// Size returns the length of the algorithm's hex encoding.
func (a Algorithm) Size() int {
	return a.New().Size() * 2
}

// Validate checks that s is a lowercase hex string of the algorithm's length.
func (a Algorithm) Validate(s string) error {
	if len(s) != a.Size() {
		return fmt.Errorf("%w: %s hash must be %d hex characters, got %d", ErrInvalidHash, a, a.Size(), len(s))
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q is not lowercase hex", ErrInvalidHash, s)
		}
	}
	return nil
}

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, BufferSize)
		return &b
	},
}

// File returns the hex fingerprint of the file at path.
// Failures to open or read the file are returned as *types.IOError.
func File(path string, alg Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", types.NewIOError("open", path, err)
	}
	defer f.Close()

	sum, err := Reader(f, alg)
	if err != nil {
		return "", types.NewIOError("read", path, err)
	}
	return sum, nil
}

// Reader returns the hex fingerprint of everything read from r.
func Reader(r io.Reader, alg Algorithm) (string, error) {
	h := alg.New()

	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)

	// Hide any WriterTo so the copy goes through the bounded buffer.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, *bp); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes returns the hex fingerprint of data.
func Bytes(data []byte, alg Algorithm) string {
	h := alg.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Content returns the OCI-style digest ("sha256:<hex>") of data. It is used
// to fingerprint encoded manifests so two copies can be compared cheaply.
func Content(data []byte) godigest.Digest {
	return godigest.FromBytes(data)
}
