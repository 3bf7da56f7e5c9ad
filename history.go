package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopbulk/shopbulk/internal/history"
)

// defaultHistoryLimit caps unflagged history listings.
const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past bulk tag runs",
		Long: `List runs recorded in the local ledger, newest first.

The ledger is local bookkeeping only: runs submitted from other machines
do not appear, and an in-flight job is tracked via 'status' flags, never
via the ledger.`,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", defaultHistoryLimit, "maximum runs to list")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	store, err := history.Open(cmd.Context(), resolvedCfg.HistoryPath, logger)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	printHistory(runs)

	return nil
}
