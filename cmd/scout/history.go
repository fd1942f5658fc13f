package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/workitem-scout/internal/cli"
)

func historyCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		Long:  `List recent related-item searches, or show one run's results with --run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			store, err := openHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open search history: %w", err)
			}
			defer func() { _ = store.Close() }()

			if runID != "" {
				run, err := store.GetSearchRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return cli.RenderRun(cmd.OutOrStdout(), run)
			}

			runs, err := store.GetRecentSearchRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return cli.RenderHistory(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the results of one run")
	return cmd
}
