// Package chunkstore implements the content-addressed, two-character-shard
// blob store that backs a repository's chunk data.
package chunkstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	"snapvault/internal/logging"
	"snapvault/internal/vaulterrors"
)

// ChunkHash is the 32-byte BLAKE3 digest identifying a chunk's content.
type ChunkHash [32]byte

// String renders the hash as 64 lowercase hex characters.
func (h ChunkHash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseChunkHash parses a 64-character lowercase hex string into a ChunkHash.
func ParseChunkHash(s string) (ChunkHash, error) {
	if len(s) != 64 {
		return ChunkHash{}, fmt.Errorf("invalid chunk hash length: %d (want 64)", len(s))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return ChunkHash{}, fmt.Errorf("invalid chunk hash: %w", err)
	}
	var h ChunkHash
	copy(h[:], decoded)
	return h, nil
}

// Store is a content-addressed blob store rooted at a chunks directory
// (repository.ChunksDir()).
type Store struct {
	dir    string
	logger *slog.Logger
}

// New constructs a Store over chunksDir. It does not create the directory;
// Put creates each shard directory, and any missing parents, on demand.
func New(chunksDir string, logger *slog.Logger) *Store {
	logger = logging.Default(logger).With("component", "chunkstore")
	return &Store{dir: chunksDir, logger: logger}
}

// shardDir returns the two-character shard directory for hash h.
func (s *Store) shardDir(h ChunkHash) string {
	enc := h.String()
	return filepath.Join(s.dir, enc[:2])
}

// ChunkPath returns the on-disk path for hash h's blob.
func (s *Store) ChunkPath(h ChunkHash) string {
	return filepath.Join(s.shardDir(h), h.String())
}

// Has reports whether a chunk with hash h already exists on disk.
func (s *Store) Has(h ChunkHash) bool {
	_, err := os.Stat(s.ChunkPath(h))
	return err == nil
}

// Put computes H = BLAKE3(bytes) and ensures a chunk file exists at H's
// path. If one already exists, Put returns (H, reused=true) without
// writing. Otherwise it writes bytes to a temp sibling, fsyncs it, and
// places it atomically via a fail-if-exists link (os.Rename silently
// overwrites an existing destination on POSIX, so a link-then-remove is
// used instead to get winner-takes-all race semantics): the loser of a
// concurrent put notices the EEXIST and treats the chunk as reused.
func (s *Store) Put(data []byte) (ChunkHash, bool, error) {
	sum := blake3.Sum256(data)
	h := ChunkHash(sum)

	if s.Has(h) {
		return h, true, nil
	}

	shardDir := s.shardDir(h)
	if err := os.MkdirAll(shardDir, 0o700); err != nil {
		return ChunkHash{}, false, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}

	tmp, err := os.CreateTemp(shardDir, h.String()+".tmp-*")
	if err != nil {
		return ChunkHash{}, false, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ChunkHash{}, false, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ChunkHash{}, false, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}
	if err := tmp.Close(); err != nil {
		return ChunkHash{}, false, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}

	finalPath := s.ChunkPath(h)
	if err := os.Link(tmpName, finalPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return h, true, nil
		}
		return ChunkHash{}, false, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}
	return h, false, nil
}

// Get reads the full chunk file for h and re-verifies its hash. It fails
// with CHUNK_MISSING if absent, CHUNK_CORRUPT if the bytes no longer hash
// to h. The store never returns unverified bytes.
func (s *Store) Get(h ChunkHash) ([]byte, error) {
	data, err := os.ReadFile(s.ChunkPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.New(vaulterrors.KindChunkMissing, h.String(), nil)
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}
	if ChunkHash(blake3.Sum256(data)) != h {
		return nil, vaulterrors.New(vaulterrors.KindChunkCorrupt, h.String(), nil)
	}
	return data, nil
}

// Remove deletes the chunk file for h, treating "already absent" as
// success. After removal it best-effort-removes the shard directory if it
// is now empty; failure to do so is not an error.
func (s *Store) Remove(h ChunkHash) error {
	if err := os.Remove(s.ChunkPath(h)); err != nil && !os.IsNotExist(err) {
		return vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
	}
	os.Remove(s.shardDir(h)) // best-effort; non-empty dir errors are ignored
	return nil
}
