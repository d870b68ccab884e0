package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"snapvault/internal/chunkstore"
	"snapvault/internal/logging"
	"snapvault/internal/manifest"
	"snapvault/internal/refindex"
	"snapvault/internal/repository"
)

// VerifyReport lists the violations Verify found and the orphan temp files
// it swept, without mutating any manifest, chunk, or index entry.
type VerifyReport struct {
	Violations           []string
	OrphanTempFilesSwept []string
}

// Verify checks the three cross-reference invariants a repository must
// hold: every chunk a manifest names exists and is indexed under that
// manifest's id; every index entry has a live chunk file and a nonempty
// referrer set; every chunk file on disk still hashes to its own filename.
// It also sweeps orphaned *.tmp-* files left by an interrupted Put.
func Verify(repo *repository.Repository, store *chunkstore.Store, idx *refindex.Index, logger *slog.Logger) (*VerifyReport, error) {
	logger = logging.Default(logger).With("component", "snapshot-engine")
	report := &VerifyReport{}

	manifests, err := manifest.List(repo)
	if err != nil {
		return nil, err
	}

	referencedByManifests := make(map[chunkstore.ChunkHash]struct{})
	for _, m := range manifests {
		for _, f := range m.Files {
			for _, hashStr := range f.Chunks {
				h, parseErr := chunkstore.ParseChunkHash(hashStr)
				if parseErr != nil {
					report.Violations = append(report.Violations,
						fmt.Sprintf("manifest %s: file %s: malformed chunk hash %q", m.ID, f.Path, hashStr))
					continue
				}
				referencedByManifests[h] = struct{}{}

				if !store.Has(h) {
					report.Violations = append(report.Violations,
						fmt.Sprintf("manifest %s: file %s: missing chunk %s", m.ID, f.Path, hashStr))
					continue
				}
				refs := idx.Referrers(h)
				if _, ok := refs[m.ID]; !ok {
					report.Violations = append(report.Violations,
						fmt.Sprintf("manifest %s: chunk %s is not indexed under this snapshot", m.ID, hashStr))
				}
			}
		}
	}

	for _, h := range idx.Hashes() {
		refs := idx.Referrers(h)
		if len(refs) == 0 {
			report.Violations = append(report.Violations, fmt.Sprintf("index: chunk %s has an empty referrer set", h.String()))
		}
		if !store.Has(h) {
			report.Violations = append(report.Violations, fmt.Sprintf("index: chunk %s has no backing file", h.String()))
		}
	}

	sweptFiles, violations := verifyChunkFiles(repo, idx, logger)
	report.OrphanTempFilesSwept = sweptFiles
	report.Violations = append(report.Violations, violations...)

	logger.Info("verify complete", "manifests", len(manifests), "violations", len(report.Violations),
		"orphan_temp_files_swept", len(report.OrphanTempFilesSwept))
	return report, nil
}

// verifyChunkFiles walks the on-disk shard layout, rehashing every chunk
// blob and removing stray *.tmp-* files left by an interrupted Put.
func verifyChunkFiles(repo *repository.Repository, idx *refindex.Index, logger *slog.Logger) ([]string, []string) {
	var swept []string
	var violations []string

	shards, err := os.ReadDir(repo.ChunksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return swept, violations
		}
		violations = append(violations, fmt.Sprintf("chunks dir: %v", err))
		return swept, violations
	}

	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(repo.ChunksDir(), shard.Name())
		entries, err := os.ReadDir(shardDir)
		if err != nil {
			violations = append(violations, fmt.Sprintf("shard %s: %v", shard.Name(), err))
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(shardDir, name)

			if strings.Contains(name, ".tmp-") {
				if err := os.Remove(path); err != nil {
					logger.Warn("failed to remove orphan temp file", "path", path, "error", err)
				} else {
					logger.Info("removed orphan temp file", "path", path)
					swept = append(swept, path)
				}
				continue
			}

			h, err := chunkstore.ParseChunkHash(name)
			if err != nil {
				violations = append(violations, fmt.Sprintf("shard %s: unexpected file %s", shard.Name(), name))
				continue
			}

			data, err := os.ReadFile(path)
			if err != nil {
				violations = append(violations, fmt.Sprintf("chunk %s: %v", name, err))
				continue
			}
			if chunkstore.ChunkHash(blake3.Sum256(data)) != h {
				violations = append(violations, fmt.Sprintf("chunk %s: content does not match its hash", name))
			}
			if refs := idx.Referrers(h); len(refs) == 0 {
				violations = append(violations, fmt.Sprintf("chunk %s: on disk but absent from index", name))
			}
		}
	}

	return swept, violations
}
