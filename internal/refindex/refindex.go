// Package refindex persists the chunk-hash-to-referrer-set mapping that
// drives safe deletion: a read-mutate-flush cycle for persistence, and a
// pure Apply-returns-removal-set shape for RemoveSnapshot.
package refindex

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"snapvault/internal/atomicfile"
	"snapvault/internal/chunkstore"
	"snapvault/internal/logging"
	"snapvault/internal/vaulterrors"
)

const maxIndexBytes = 512 << 20 // 512 MiB cap on index.json

// Index is the in-memory reference database: chunk hash -> set of
// referencing snapshot ids. The in-memory representation uses set
// semantics (map[string]struct{}) even though the wire format is a JSON
// object of arrays; Load/Save convert between the two.
type Index struct {
	path    string
	entries map[chunkstore.ChunkHash]map[string]struct{}
	logger  *slog.Logger
}

// Load reads and parses index.json at path. A missing file is treated the
// same as Init's freshly written "{}" would parse to: an empty index.
func Load(path string, logger *slog.Logger) (*Index, error) {
	logger = logging.Default(logger).With("component", "refindex")

	data, err := atomicfile.ReadFileLimit(path, maxIndexBytes)
	if err != nil {
		if os.IsNotExist(err) {
			entries := make(map[chunkstore.ChunkHash]map[string]struct{})
			return &Index{path: path, entries: entries, logger: logger}, nil
		}
		var tooLarge *atomicfile.ErrTooLarge
		if errors.As(err, &tooLarge) {
			return nil, vaulterrors.New(vaulterrors.KindCorruptIndex, path, err)
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, path, err)
	}

	var wire map[string][]string
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindCorruptIndex, path, err)
	}

	entries := make(map[chunkstore.ChunkHash]map[string]struct{}, len(wire))
	for hashStr, ids := range wire {
		h, err := chunkstore.ParseChunkHash(hashStr)
		if err != nil {
			return nil, vaulterrors.New(vaulterrors.KindCorruptIndex, path, err)
		}
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		entries[h] = set
	}

	return &Index{path: path, entries: entries, logger: logger}, nil
}

// Add inserts snapshotID into the referrer set of every hash in chunks,
// creating entries as needed. Idempotent per (hash, snapshotID).
func (idx *Index) Add(snapshotID string, chunks []chunkstore.ChunkHash) {
	for _, h := range chunks {
		set, ok := idx.entries[h]
		if !ok {
			set = make(map[string]struct{})
			idx.entries[h] = set
		}
		set[snapshotID] = struct{}{}
	}
}

// RemoveSnapshot deletes snapshotID from every referrer set and returns the
// set of chunk hashes whose referrer set became empty as a result ("orphans").
// Those keys are removed from the index. This is a pure in-memory
// computation; the caller is responsible for removing the corresponding
// chunk files, a separate fallible step that does not roll back the index.
func (idx *Index) RemoveSnapshot(snapshotID string) []chunkstore.ChunkHash {
	var orphans []chunkstore.ChunkHash
	for h, set := range idx.entries {
		if _, ok := set[snapshotID]; !ok {
			continue
		}
		delete(set, snapshotID)
		if len(set) == 0 {
			orphans = append(orphans, h)
			delete(idx.entries, h)
		}
	}
	return orphans
}

// Referrers returns the current referrer set for h (read-only; callers must
// not mutate the returned map).
func (idx *Index) Referrers(h chunkstore.ChunkHash) map[string]struct{} {
	return idx.entries[h]
}

// Len returns the number of distinct chunk hashes currently tracked.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Hashes returns every chunk hash currently present in the index.
func (idx *Index) Hashes() []chunkstore.ChunkHash {
	hashes := make([]chunkstore.ChunkHash, 0, len(idx.entries))
	for h := range idx.entries {
		hashes = append(hashes, h)
	}
	return hashes
}

// Save serializes the index and writes it atomically to its path:
// write-temp, fsync, rename. Failure leaves the prior file intact.
func (idx *Index) Save() error {
	wire := make(map[string][]string, len(idx.entries))
	for h, set := range idx.entries {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		wire[h.String()] = ids
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIOError, idx.path, err)
	}
	if err := atomicfile.WriteFile(idx.path, data, 0o600); err != nil {
		return vaulterrors.New(vaulterrors.KindIOError, idx.path, err)
	}
	idx.logger.Debug("index saved", "chunks", len(idx.entries))
	return nil
}
