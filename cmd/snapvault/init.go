package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"snapvault/internal/repository"
)

func newInitCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new, empty repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath, err := repoFlag(cmd)
			if err != nil {
				return err
			}
			repo, err := repository.Init(repoPath, logger)
			if err != nil {
				return err
			}
			fmt.Printf("initialized repository at %s\n", repo.Root())
			return nil
		},
	}
}
