package main

import (
	"github.com/spf13/cobra"

	"github.com/shopbulk/shopbulk/internal/tagging"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <tag>",
		Short: "Remove a tag from all products matching the filters",
		Long: `Remove a tag from every product matching the filter flags.

Products that do not carry the tag (case-insensitive) are skipped, so
re-running the same remove is safe and converges. The mutation runs as an
asynchronous platform bulk job; track it with 'shopbulk status' or pass
--wait to block until it finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(cmd, args[0], tagging.ActionRemove)
		},
	}

	addCriteriaFlags(cmd)
	cmd.Flags().Bool("wait", false, "poll until the job finishes and print the final summary")

	return cmd
}
