package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/snapshot"
	"snapvault/internal/vaulterrors"
)

func newBackupCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot a source directory into the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, err := repoFlag(cmd)
			if err != nil {
				return err
			}
			source, _ := cmd.Flags().GetString("source")
			if source == "" {
				return vaulterrors.New(vaulterrors.KindArgMissing, "--source", nil)
			}

			repo, store, idx, err := openEngine(repoPath, logger)
			if err != nil {
				return err
			}

			result, err := snapshot.Backup(repo, store, idx, source, logger)
			if err != nil {
				return err
			}

			fmt.Printf("created snapshot %s: %d files, %d unique chunks, %d new, %d reused\n",
				result.Manifest.ID, result.Manifest.Stats.FileCount, result.Manifest.Stats.UniqueChunks,
				result.NewChunks, result.ReusedChunks)
			return nil
		},
	}
	cmd.Flags().String("source", "", "directory to snapshot (required)")
	return cmd
}
