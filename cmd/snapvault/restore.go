package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/snapshot"
	"snapvault/internal/vaulterrors"
)

func newRestoreCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a snapshot into an empty destination directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, err := repoFlag(cmd)
			if err != nil {
				return err
			}
			dest, _ := cmd.Flags().GetString("dest")
			if dest == "" {
				return vaulterrors.New(vaulterrors.KindArgMissing, "--dest", nil)
			}
			snapshotID, _ := cmd.Flags().GetString("snapshot")

			repo, store, _, err := openEngine(repoPath, logger)
			if err != nil {
				return err
			}

			m, err := snapshot.Restore(repo, store, dest, snapshotID, logger)
			if err != nil {
				return err
			}

			fmt.Printf("restored snapshot %s into %s (%d files)\n", m.ID, dest, len(m.Files))
			return nil
		},
	}
	cmd.Flags().String("dest", "", "destination directory (required; must be empty or absent)")
	cmd.Flags().String("snapshot", "", "snapshot id to restore (default: most recent)")
	return cmd
}
