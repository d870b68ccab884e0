package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/snapshot"
	"snapvault/internal/vaulterrors"
)

func newDeleteCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a snapshot (or all snapshots) and garbage-collect orphan chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, err := repoFlag(cmd)
			if err != nil {
				return err
			}
			snapshotID, _ := cmd.Flags().GetString("snapshot")
			all, _ := cmd.Flags().GetBool("all")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			sel, err := resolveSelector(snapshotID, all)
			if err != nil {
				return err
			}

			repo, store, idx, err := openEngine(repoPath, logger)
			if err != nil {
				return err
			}

			report, err := snapshot.Delete(repo, store, idx, sel, dryRun, logger)
			if err != nil {
				return err
			}

			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			fmt.Printf("%s %d snapshot(s), %d orphan chunk(s)\n", verb, len(report.SnapshotIDs), len(report.Orphans))
			return nil
		},
	}
	cmd.Flags().String("snapshot", "", "snapshot id to delete")
	cmd.Flags().Bool("all", false, "delete every snapshot in the repository")
	cmd.Flags().Bool("dry-run", false, "compute and report orphan chunks without removing anything")
	return cmd
}

// resolveSelector enforces the CLI's --snapshot/--all mutual exclusion
// before the engine ever sees a Selector.
func resolveSelector(snapshotID string, all bool) (snapshot.Selector, error) {
	if all && snapshotID != "" {
		return nil, vaulterrors.New(vaulterrors.KindArgConflict, "--snapshot and --all", nil)
	}
	if !all && snapshotID == "" {
		return nil, vaulterrors.New(vaulterrors.KindArgMissing, "--snapshot or --all", nil)
	}
	if all {
		return snapshot.SelectorAll{}, nil
	}
	return snapshot.SelectorSnapshot{ID: snapshotID}, nil
}
