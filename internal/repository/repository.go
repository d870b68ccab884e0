// Package repository owns a SnapVault repository's directory layout and
// config.json: a small value type wrapping a root path with accessor
// methods for the paths beneath it, plus Init/Open constructors.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"snapvault/internal/atomicfile"
	"snapvault/internal/logging"
	"snapvault/internal/pathsafe"
	"snapvault/internal/vaulterrors"
)

const (
	// ConfigVersion is the only config.json schema version this engine
	// understands.
	ConfigVersion = 1
	// ChunkSize is the fixed chunking window.
	ChunkSize = 1 << 20 // 1 MiB
	// HashAlgorithm is recorded in config.json for forward compatibility;
	// this version only ever writes and accepts "blake3".
	HashAlgorithm = "blake3"

	maxConfigBytes = 1 << 20 // 1 MiB cap on config.json
)

// Config is the on-disk schema of config.json.
type Config struct {
	Version   int    `json:"version"`
	ChunkSize int    `json:"chunk_size"`
	Hash      string `json:"hash"`
}

// Repository is an opened SnapVault repository: a root directory plus its
// cached config. Config is read once at Open and never hot-reloaded.
//
// Repository takes no lock on its root: two processes mutating the same
// repository at once are not serialized, and the later index.json save
// overwrites the earlier one.
type Repository struct {
	root   string
	config Config
	logger *slog.Logger
}

// Root returns the repository's root directory.
func (r *Repository) Root() string { return r.root }

// Config returns the cached, parsed config.json contents.
func (r *Repository) Config() Config { return r.config }

// SnapshotsDir returns the directory holding snapshot manifests.
func (r *Repository) SnapshotsDir() string { return filepath.Join(r.root, "snapshots") }

// ChunksDir returns the directory holding sharded chunk blobs.
func (r *Repository) ChunksDir() string { return filepath.Join(r.root, "data", "chunks") }

// IndexPath returns the path to index.json.
func (r *Repository) IndexPath() string { return filepath.Join(r.root, "index.json") }

// configPath returns the path to config.json.
func (r *Repository) configPath() string { return filepath.Join(r.root, "config.json") }

// SnapshotPath returns the manifest path for id, re-validating id as
// defense in depth.
func (r *Repository) SnapshotPath(id string) (string, error) {
	if err := pathsafe.ValidateSnapshotID(id); err != nil {
		return "", err
	}
	return filepath.Join(r.SnapshotsDir(), id+".json"), nil
}

// Init creates a new repository at root. It fails with REPO_ALREADY_EXISTS
// if root exists and is non-empty. The repository is left either fully
// formed or entirely absent: any failure during creation removes a
// partially created root.
func Init(root string, logger *slog.Logger) (repo *Repository, err error) {
	logger = logging.Default(logger).With("component", "repository")

	if entries, statErr := os.ReadDir(root); statErr == nil {
		if len(entries) > 0 {
			return nil, vaulterrors.New(vaulterrors.KindRepoAlreadyExists, root, nil)
		}
	} else if !os.IsNotExist(statErr) {
		return nil, vaulterrors.New(vaulterrors.KindIOError, root, statErr)
	}

	created := false
	defer func() {
		if err != nil && created {
			os.RemoveAll(root)
		}
	}()

	if mkErr := os.MkdirAll(root, 0o700); mkErr != nil {
		return nil, vaulterrors.New(vaulterrors.KindIOError, root, mkErr)
	}
	created = true

	cfg := Config{Version: ConfigVersion, ChunkSize: ChunkSize, Hash: HashAlgorithm}
	r := &Repository{root: root, config: cfg, logger: logger}

	if mkErr := os.MkdirAll(r.SnapshotsDir(), 0o700); mkErr != nil {
		return nil, vaulterrors.New(vaulterrors.KindIOError, r.SnapshotsDir(), mkErr)
	}
	if mkErr := os.MkdirAll(r.ChunksDir(), 0o700); mkErr != nil {
		return nil, vaulterrors.New(vaulterrors.KindIOError, r.ChunksDir(), mkErr)
	}

	data, jsonErr := json.Marshal(cfg)
	if jsonErr != nil {
		return nil, vaulterrors.New(vaulterrors.KindIOError, r.configPath(), jsonErr)
	}
	if wrErr := atomicfile.WriteFile(r.configPath(), data, 0o600); wrErr != nil {
		return nil, vaulterrors.New(vaulterrors.KindIOError, r.configPath(), wrErr)
	}
	if wrErr := atomicfile.WriteFile(r.IndexPath(), []byte("{}"), 0o600); wrErr != nil {
		return nil, vaulterrors.New(vaulterrors.KindIOError, r.IndexPath(), wrErr)
	}

	if runtime.GOOS != "windows" {
		if chErr := os.Chmod(root, 0o700); chErr != nil {
			return nil, vaulterrors.New(vaulterrors.KindIOError, root, chErr)
		}
	}

	logger.Info("repository initialized", "root", root)
	return r, nil
}

// Open loads an existing repository's config.json. It fails with
// REPO_NOT_FOUND if root is missing, NOT_A_REPOSITORY if config.json is
// absent or malformed, UNSUPPORTED_VERSION if config.version is not 1, and
// CORRUPT_REPOSITORY if config.json exceeds the 1 MiB read cap.
func Open(root string, logger *slog.Logger) (*Repository, error) {
	logger = logging.Default(logger).With("component", "repository")

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.New(vaulterrors.KindRepoNotFound, root, nil)
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, root, err)
	}

	configPath := filepath.Join(root, "config.json")
	data, err := atomicfile.ReadFileLimit(configPath, maxConfigBytes)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vaulterrors.New(vaulterrors.KindNotARepository, root, nil)
		}
		var tooLarge *atomicfile.ErrTooLarge
		if errors.As(err, &tooLarge) {
			return nil, vaulterrors.New(vaulterrors.KindCorruptRepository, configPath, err)
		}
		return nil, vaulterrors.New(vaulterrors.KindIOError, configPath, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, vaulterrors.New(vaulterrors.KindNotARepository, root, err)
	}
	if cfg.Version != ConfigVersion {
		return nil, vaulterrors.New(vaulterrors.KindUnsupportedVersion, fmt.Sprintf("%d", cfg.Version), nil)
	}

	logger.Info("repository opened", "root", root)
	return &Repository{root: root, config: cfg, logger: logger}, nil
}
