// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/jobstream/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or expire recorded searches",
	Long: `History reads the search history store configured under history:
(SQLite by default, or Postgres) and prints a user's recent searches.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListHistory(ctx, user, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No searches recorded for %s\n", user)
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s  %-40s %4d jobs\n", r.CreatedAt.Local().Format("2006-01-02 15:04"), describeQuery(r.Query.ToQuery()), r.ResultCount)
	}
	return nil
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete records older than history.retention now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := history.Open(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := history.NewJanitor(store, cfg.History.CleanupSchedule, logger).RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired records\n", n)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("user", "", "user whose searches to list")
	historyCmd.Flags().Int("limit", 20, "maximum records to print")
	historyCmd.Flags().Bool("json", false, "output records as JSON")

	historyCmd.AddCommand(historyCleanupCmd)
	rootCmd.AddCommand(historyCmd)
}
