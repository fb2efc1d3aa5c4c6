package cache

import (
	"bytes"
	"encoding/gob"
)

// CacheVersion is incremented when the cache format changes.
const CacheVersion = 2

// KeySeparator separates root from relative path in cache keys.
const KeySeparator = '\x00'

// CachedEntry is a previously computed file digest together with the
// metadata it was computed under.
type CachedEntry struct {
	Size      int64  // File size in bytes
	Mtime     int64  // Modification time as UnixNano
	Mode      uint32 // Permission bits
	Ctime     int64  // Inode change time as UnixNano
	Inode     uint64 // Inode number
	Algorithm string // Hash algorithm name
	Hash      string // Lowercase hex digest
}

// Stamp is the metadata a cached digest must match to be reused.
//
// Size and mtime alone can be restored after a content change (touch -r,
// rsync -a, tar). Ctime cannot be set from userspace and Inode catches
// files replaced by rename, so both take part in the match.
type Stamp struct {
	Size      int64
	Mtime     int64
	Mode      uint32
	Ctime     int64
	Inode     uint64
	Algorithm string
}

// Fresh reports whether the entry was recorded under stamp.
func (e *CachedEntry) Fresh(s Stamp) bool {
	return e.Size == s.Size &&
		e.Mtime == s.Mtime &&
		e.Mode == s.Mode &&
		e.Ctime == s.Ctime &&
		e.Inode == s.Inode &&
		e.Algorithm == s.Algorithm &&
		e.Hash != ""
}

// Encode serializes the entry to bytes using gob.
func (e *CachedEntry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *CachedEntry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key from root and relative path.
// Format: <root>\x00<relative_path>
func MakeKey(root, relPath string) []byte {
	return []byte(root + string(KeySeparator) + relPath)
}

// ParseKey extracts root and relative path from a cache key.
func ParseKey(key []byte) (root, relPath string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix for all keys under a root.
func MakeKeyPrefix(root string) []byte {
	return []byte(root + string(KeySeparator))
}
