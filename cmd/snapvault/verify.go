package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/snapshot"
)

func newVerifyCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check repository invariants without modifying anything except stray temp files",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, err := repoFlag(cmd)
			if err != nil {
				return err
			}

			repo, store, idx, err := openEngine(repoPath, logger)
			if err != nil {
				return err
			}

			report, err := snapshot.Verify(repo, store, idx, logger)
			if err != nil {
				return err
			}

			for _, v := range report.Violations {
				fmt.Println("VIOLATION:", v)
			}
			for _, f := range report.OrphanTempFilesSwept {
				fmt.Println("swept orphan temp file:", f)
			}
			if len(report.Violations) == 0 {
				fmt.Println("repository is consistent")
			}
			return nil
		},
	}
}
