package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/chunkstore"
	"snapvault/internal/refindex"
	"snapvault/internal/snapshot"
)

func newListCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, err := repoFlag(cmd)
			if err != nil {
				return err
			}

			repo, store, idx, err := openEngine(repoPath, logger)
			if err != nil {
				return err
			}

			manifests, err := snapshot.List(repo)
			if err != nil {
				return err
			}
			for _, m := range manifests {
				fmt.Printf("%s  %s  %d files  %d unique chunks  %d bytes stored\n",
					m.ID, m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
					m.Stats.FileCount, m.Stats.UniqueChunks, m.Stats.StoredSize)
			}

			printRepoSummary(store, idx)
			return nil
		},
	}
}

func printRepoSummary(store *chunkstore.Store, idx *refindex.Index) {
	stats, err := snapshot.Stats(store, idx)
	if err != nil {
		return // best-effort summary line; List itself already succeeded
	}
	fmt.Printf("---\n%d unique chunks, %d bytes stored across the repository\n", stats.UniqueChunks, stats.StoredBytes)
}
