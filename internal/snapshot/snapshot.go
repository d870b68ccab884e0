// Package snapshot implements the top-level operations that manipulate a
// repository's manifests and reference index: Backup, Restore, List,
// Delete, and Verify. They are organized as free functions over a
// *repository.Repository rather than a stateful "engine" object, since no
// in-memory state persists between top-level operations (each is a single
// process invocation). Backup does the I/O, accumulates aggregates, and
// commits at well-defined points; Delete computes the removal set purely,
// then applies it as a separate fallible step.
package snapshot

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"snapvault/internal/chunkstore"
	"snapvault/internal/logging"
	"snapvault/internal/manifest"
	"snapvault/internal/pathsafe"
	"snapvault/internal/refindex"
	"snapvault/internal/repository"
	"snapvault/internal/vaulterrors"
)

// BackupResult is the manifest produced by Backup together with the counts
// a caller typically wants to report.
type BackupResult struct {
	Manifest *manifest.Manifest
	NewChunks int
	ReusedChunks int
}

// Backup walks source, chunks every regular file it finds, and persists a
// new manifest plus the updated reference index.
func Backup(repo *repository.Repository, store *chunkstore.Store, idx *refindex.Index, source string, logger *slog.Logger) (*BackupResult, error) {
	logger = logging.Default(logger).With("component", "snapshot-engine")

	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.New(vaulterrors.KindSourceNotFound, source, nil)
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, source, err)
	}
	if !info.IsDir() {
		return nil, vaulterrors.New(vaulterrors.KindSourceNotDirectory, source, nil)
	}

	id, err := freshSnapshotID(repo)
	if err != nil {
		return nil, err
	}

	m := &manifest.Manifest{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		SourceRoot: source,
	}

	seenInSnapshot := make(map[string]struct{})
	var newChunks, reusedChunks int
	var allChunkHashes []chunkstore.ChunkHash

	walkErr := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return vaulterrors.New(vaulterrors.KindIOError, path, err)
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil // symlinks are skipped entirely
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil // devices, sockets, FIFOs are skipped
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return vaulterrors.New(vaulterrors.KindIOError, path, err)
		}
		rel = filepath.ToSlash(rel)
		if err := pathsafe.IsSafeRelativePath(rel); err != nil {
			return err
		}

		record, newC, reusedC, storedBytes, err := chunkFile(store, path, rel)
		if err != nil {
			return err
		}
		newChunks += newC
		reusedChunks += reusedC
		m.Files = append(m.Files, record)
		m.Stats.TotalSize += record.Size
		m.Stats.StoredSize += storedBytes

		for _, hashStr := range record.Chunks {
			if _, ok := seenInSnapshot[hashStr]; !ok {
				seenInSnapshot[hashStr] = struct{}{}
				h, err := chunkstore.ParseChunkHash(hashStr)
				if err != nil {
					return vaulterrors.New(vaulterrors.KindCorruptManifest, hashStr, err)
				}
				allChunkHashes = append(allChunkHashes, h)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	m.Stats.FileCount = len(m.Files)
	m.Stats.UniqueChunks = len(seenInSnapshot)

	idx.Add(id, allChunkHashes)

	if err := manifest.Save(repo, m); err != nil {
		return nil, err
	}
	if err := idx.Save(); err != nil {
		return nil, err
	}

	logger.Info("snapshot created", "id", id, "files", m.Stats.FileCount,
		"unique_chunks", m.Stats.UniqueChunks, "new_chunks", newChunks)

	return &BackupResult{Manifest: m, NewChunks: newChunks, ReusedChunks: reusedChunks}, nil
}

// chunkFile reads path in repository.ChunkSize windows, placing each window
// in store and appending its hash to a FileRecord. It returns counts of new
// vs. reused chunk placements for this file and the bytes actually written
// to new chunks (storedBytes), which Backup sums into Stats.StoredSize.
func chunkFile(store *chunkstore.Store, path, rel string) (record manifest.FileRecord, newCount, reusedCount int, storedBytes int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return manifest.FileRecord{}, 0, 0, 0, vaulterrors.New(vaulterrors.KindIOError, path, err)
	}
	defer f.Close()

	record = manifest.FileRecord{Path: rel}
	buf := make([]byte, repository.ChunkSize)

	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			h, reused, putErr := store.Put(buf[:n])
			if putErr != nil {
				return manifest.FileRecord{}, 0, 0, 0, putErr
			}
			record.Chunks = append(record.Chunks, h.String())
			record.Size += int64(n)
			if reused {
				reusedCount++
			} else {
				newCount++
				storedBytes += int64(n)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return manifest.FileRecord{}, 0, 0, 0, vaulterrors.New(vaulterrors.KindIOError, path, readErr)
		}
	}

	return record, newCount, reusedCount, storedBytes, nil
}

// freshSnapshotID generates a UUIDv7-derived identifier and re-rolls on the
// (astronomically unlikely) event that it already exists on disk.
func freshSnapshotID(repo *repository.Repository) (string, error) {
	for range 8 {
		id, err := uuid.NewV7()
		if err != nil {
			return "", vaulterrors.New(vaulterrors.KindIOError, "", err)
		}
		candidate := id.String()
		path, err := repo.SnapshotPath(candidate)
		if err != nil {
			return "", err
		}
		if _, statErr := os.Stat(path); statErr != nil {
			if os.IsNotExist(statErr) {
				return candidate, nil
			}
			return "", vaulterrors.New(vaulterrors.KindIOError, path, statErr)
		}
		// collision: re-roll
	}
	return "", vaulterrors.New(vaulterrors.KindDuplicateSnapshotID, "", nil)
}

// List returns every manifest in the repository, newest first.
func List(repo *repository.Repository) ([]*manifest.Manifest, error) {
	return manifest.List(repo)
}

// RepoStats summarizes dedup effectiveness across the whole repository, not
// just a single snapshot: how many distinct chunks the repository holds and
// how many bytes they occupy on disk.
type RepoStats struct {
	UniqueChunks int
	StoredBytes  int64
}

// Stats computes RepoStats from the current reference index and chunk
// store. It is read-only and adds no persistent state.
func Stats(store *chunkstore.Store, idx *refindex.Index) (RepoStats, error) {
	stats := RepoStats{UniqueChunks: idx.Len()}
	for _, h := range idx.Hashes() {
		info, err := os.Stat(store.ChunkPath(h))
		if err != nil {
			if os.IsNotExist(err) {
				continue // counted by Verify as a violation; Stats stays best-effort
			}
			return RepoStats{}, vaulterrors.New(vaulterrors.KindIOError, h.String(), err)
		}
		stats.StoredBytes += info.Size()
	}
	return stats, nil
}

// Restore materializes the files of a snapshot under dest. If snapshotID is
// empty, the most recent snapshot (by creation timestamp, ties broken by id
// ascending) is used. dest must be either nonexistent or an empty directory.
func Restore(repo *repository.Repository, store *chunkstore.Store, dest, snapshotID string, logger *slog.Logger) (*manifest.Manifest, error) {
	logger = logging.Default(logger).With("component", "snapshot-engine")

	m, err := resolveManifest(repo, snapshotID)
	if err != nil {
		return nil, err
	}

	if err := prepareDestination(dest); err != nil {
		return nil, err
	}

	for _, record := range m.Files {
		if err := pathsafe.IsSafeRelativePath(record.Path); err != nil {
			return nil, err
		}
		target := filepath.Join(dest, filepath.FromSlash(record.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, vaulterrors.New(vaulterrors.KindIOError, target, err)
		}

		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, vaulterrors.New(vaulterrors.KindIOError, target, err)
		}

		writeErr := writeChunks(store, out, record)
		closeErr := out.Close()
		if writeErr != nil {
			return nil, writeErr
		}
		if closeErr != nil {
			return nil, vaulterrors.New(vaulterrors.KindIOError, target, closeErr)
		}
	}

	logger.Info("snapshot restored", "id", m.ID, "dest", dest, "files", len(m.Files))
	return m, nil
}

func writeChunks(store *chunkstore.Store, out *os.File, record manifest.FileRecord) error {
	for _, hashStr := range record.Chunks {
		h, err := chunkstore.ParseChunkHash(hashStr)
		if err != nil {
			return vaulterrors.New(vaulterrors.KindCorruptManifest, hashStr, err)
		}
		data, err := store.Get(h)
		if err != nil {
			return fmt.Errorf("restore %s: %w", record.Path, err)
		}
		if _, err := out.Write(data); err != nil {
			return vaulterrors.New(vaulterrors.KindIOError, record.Path, err)
		}
	}
	return nil
}

func resolveManifest(repo *repository.Repository, snapshotID string) (*manifest.Manifest, error) {
	if snapshotID != "" {
		if err := pathsafe.ValidateSnapshotID(snapshotID); err != nil {
			return nil, err
		}
		return manifest.Load(repo, snapshotID)
	}

	list, err := manifest.List(repo)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, vaulterrors.New(vaulterrors.KindSnapshotNotFound, "", nil)
	}
	return list[0], nil // List is already sorted newest-first, id-ascending on ties
}

func prepareDestination(dest string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(dest, 0o755); mkErr != nil {
				return vaulterrors.New(vaulterrors.KindIOError, dest, mkErr)
			}
			return nil
		}
		return vaulterrors.New(vaulterrors.KindIOError, dest, err)
	}
	if len(entries) > 0 {
		return vaulterrors.New(vaulterrors.KindDestinationNotEmpty, dest, nil)
	}
	return nil
}

// Selector picks which snapshot(s) Delete targets; it mirrors the CLI's
// --snapshot/--all mutual exclusion at the engine API boundary.
type Selector interface {
	isSelector()
}

// SelectorSnapshot targets a single snapshot by id.
type SelectorSnapshot struct{ ID string }

// SelectorAll targets every snapshot in the repository.
type SelectorAll struct{}

func (SelectorSnapshot) isSelector() {}
func (SelectorAll) isSelector()      {}

// DeleteReport summarizes what Delete removed (or, in dry-run mode, would
// remove).
type DeleteReport struct {
	SnapshotIDs []string
	Orphans     []chunkstore.ChunkHash
	DryRun      bool
}

// Delete unreferences the snapshot(s) selected by sel and, unless dryRun is
// set, removes the resulting orphan chunks and manifest files. Chunk-remove
// failures are logged and skipped: the index has already recorded that the
// snapshot is gone, so retrying delete is safe.
func Delete(repo *repository.Repository, store *chunkstore.Store, idx *refindex.Index, sel Selector, dryRun bool, logger *slog.Logger) (*DeleteReport, error) {
	logger = logging.Default(logger).With("component", "snapshot-engine")

	ids, err := resolveSelector(repo, sel)
	if err != nil {
		return nil, err
	}

	report := &DeleteReport{DryRun: dryRun}
	for _, id := range ids {
		orphans := idx.RemoveSnapshot(id)
		report.SnapshotIDs = append(report.SnapshotIDs, id)
		report.Orphans = append(report.Orphans, orphans...)

		if dryRun {
			continue
		}

		for _, h := range orphans {
			if err := store.Remove(h); err != nil {
				logger.Warn("failed to remove orphan chunk", "hash", h.String(), "error", err)
			}
		}
		if err := idx.Save(); err != nil {
			return nil, err
		}
		if err := manifest.Remove(repo, id); err != nil {
			return nil, err
		}
	}

	if !dryRun {
		if _, isAll := sel.(SelectorAll); isAll && idx.Len() > 0 {
			logger.Warn("index nonempty after delete --all; this indicates prior corruption", "remaining_chunks", idx.Len())
		}
	}

	logger.Info("delete complete", "snapshots", len(report.SnapshotIDs), "orphans", len(report.Orphans), "dry_run", dryRun)
	return report, nil
}

func resolveSelector(repo *repository.Repository, sel Selector) ([]string, error) {
	switch s := sel.(type) {
	case SelectorSnapshot:
		if err := pathsafe.ValidateSnapshotID(s.ID); err != nil {
			return nil, err
		}
		path, err := repo.SnapshotPath(s.ID)
		if err != nil {
			return nil, err
		}
		if _, statErr := os.Stat(path); statErr != nil {
			if os.IsNotExist(statErr) {
				return nil, vaulterrors.New(vaulterrors.KindSnapshotNotFound, s.ID, nil)
			}
			return nil, vaulterrors.New(vaulterrors.KindIOError, path, statErr)
		}
		return []string{s.ID}, nil
	case SelectorAll:
		list, err := manifest.List(repo)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(list))
		for i, m := range list {
			ids[i] = m.ID
		}
		return ids, nil
	default:
		return nil, vaulterrors.New(vaulterrors.KindArgMissing, "", nil)
	}
}
