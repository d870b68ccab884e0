package main

import (
	"log/slog"

	"snapvault/internal/chunkstore"
	"snapvault/internal/refindex"
	"snapvault/internal/repository"
)

// openEngine loads the three pieces every operation beyond init needs: the
// opened repository, a chunk store rooted at its chunks directory, and the
// parsed reference index.
func openEngine(repoPath string, logger *slog.Logger) (*repository.Repository, *chunkstore.Store, *refindex.Index, error) {
	repo, err := repository.Open(repoPath, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	store := chunkstore.New(repo.ChunksDir(), logger)
	idx, err := refindex.Load(repo.IndexPath(), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return repo, store, idx, nil
}
