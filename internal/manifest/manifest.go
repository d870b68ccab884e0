// Package manifest persists SnapshotManifest documents: one JSON file per
// snapshot under snapshots/<id>.json, one file per id, the same shape as
// any other Save/Load/List metadata store in this codebase.
package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"snapvault/internal/atomicfile"
	"snapvault/internal/repository"
	"snapvault/internal/vaulterrors"
)

const maxManifestBytes = 100 << 20 // 100 MiB cap on a single manifest

// FileRecord describes one regular file captured by a snapshot.
type FileRecord struct {
	Path   string   `json:"path"`
	Size   int64    `json:"size"`
	Chunks []string `json:"chunks"`
}

// Stats carries a manifest's precomputed aggregates so list doesn't need to
// recompute dedup statistics by re-reading every chunk.
type Stats struct {
	FileCount    int   `json:"file_count"`
	TotalSize    int64 `json:"total_size"`
	UniqueChunks int   `json:"unique_chunks"`
	StoredSize   int64 `json:"stored_size"`
}

// Manifest is a single, immutable snapshot record.
type Manifest struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	SourceRoot string       `json:"source_root"`
	Files      []FileRecord `json:"files"`
	Stats      Stats        `json:"stats"`
}

// Save writes m to snapshots/<id>.json atomically: write-temp, fsync,
// rename.
func Save(repo *repository.Repository, m *Manifest) error {
	path, err := repo.SnapshotPath(m.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIOError, m.ID, err)
	}
	if err := atomicfile.WriteFile(path, data, 0o600); err != nil {
		return vaulterrors.New(vaulterrors.KindIOError, path, err)
	}
	return nil
}

// Load reads and parses the manifest for id. Readers tolerate unknown
// top-level keys by default (Go's encoding/json does this automatically),
// which is a documented forward-compatibility invariant, not an accident.
func Load(repo *repository.Repository, id string) (*Manifest, error) {
	path, err := repo.SnapshotPath(id)
	if err != nil {
		return nil, err
	}
	return loadPath(path)
}

func loadPath(path string) (*Manifest, error) {
	data, err := atomicfile.ReadFileLimit(path, maxManifestBytes)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.New(vaulterrors.KindSnapshotNotFound, path, nil)
		}
		var tooLarge *atomicfile.ErrTooLarge
		if errors.As(err, &tooLarge) {
			return nil, vaulterrors.New(vaulterrors.KindCorruptManifest, path, err)
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindCorruptManifest, path, err)
	}
	return &m, nil
}

// List loads every manifest under snapshots/, sorted by creation timestamp
// descending (ties broken by id ascending).
func List(repo *repository.Repository) ([]*Manifest, error) {
	entries, err := os.ReadDir(repo.SnapshotsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, repo.SnapshotsDir(), err)
	}

	manifests := make([]*Manifest, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		m, err := loadPath(filepath.Join(repo.SnapshotsDir(), entry.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		if !manifests[i].CreatedAt.Equal(manifests[j].CreatedAt) {
			return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
		}
		return manifests[i].ID < manifests[j].ID
	})
	return manifests, nil
}

// Remove deletes the manifest file for id.
func Remove(repo *repository.Repository, id string) error {
	path, err := repo.SnapshotPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return vaulterrors.New(vaulterrors.KindIOError, path, err)
	}
	return nil
}
