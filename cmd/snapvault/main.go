// Command snapvault is a local, content-addressed, deduplicating snapshot
// backup tool.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to every component via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"snapvault/internal/vaulterrors"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rootCmd := &cobra.Command{
		Use:           "snapvault",
		Short:         "Content-addressed, deduplicating snapshot backups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("repo", "", "repository root directory (required)")

	rootCmd.AddCommand(
		newInitCmd(logger),
		newBackupCmd(logger),
		newListCmd(logger),
		newRestoreCmd(logger),
		newDeleteCmd(logger),
		newVerifyCmd(logger),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error's vaulterrors.Kind to one of four exit code
// classes: 0 success, 1 user error, 2 integrity failure, 3 unclassified I/O.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch vaulterrors.KindOf(err) {
	case vaulterrors.KindRepoAlreadyExists,
		vaulterrors.KindRepoNotFound,
		vaulterrors.KindNotARepository,
		vaulterrors.KindUnsupportedVersion,
		vaulterrors.KindSourceNotFound,
		vaulterrors.KindSourceNotDirectory,
		vaulterrors.KindSnapshotNotFound,
		vaulterrors.KindInvalidSnapshotID,
		vaulterrors.KindDuplicateSnapshotID,
		vaulterrors.KindPathTraversal,
		vaulterrors.KindDestinationNotEmpty,
		vaulterrors.KindArgConflict,
		vaulterrors.KindArgMissing:
		return 1
	case vaulterrors.KindChunkMissing,
		vaulterrors.KindChunkCorrupt,
		vaulterrors.KindCorruptIndex,
		vaulterrors.KindCorruptManifest,
		vaulterrors.KindCorruptRepository:
		return 2
	default:
		return 3
	}
}

func repoFlag(cmd *cobra.Command) (string, error) {
	repo, _ := cmd.Flags().GetString("repo")
	if repo == "" {
		return "", vaulterrors.New(vaulterrors.KindArgMissing, "--repo", nil)
	}
	return repo, nil
}
