package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopbulk/shopbulk/internal/tagging"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <tag>",
		Short: "Show what a tag run would do without submitting anything",
		Long: `Collect the matching products and compute the mutation plan, then
print the pre-run counts without starting a bulk job.

With no filter flags at all there is nothing to preview: the command
reports zero products and exits cleanly.`,
		Args: cobra.ExactArgs(1),
		RunE: runPreview,
	}

	addCriteriaFlags(cmd)
	cmd.Flags().String("action", string(tagging.ActionApply), "mutation to preview: apply or remove")

	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	actionStr, err := cmd.Flags().GetString("action")
	if err != nil {
		return err
	}

	action := tagging.Action(actionStr)
	if action != tagging.ActionApply && action != tagging.ActionRemove {
		return fmt.Errorf("invalid --action %q: must be apply or remove", actionStr)
	}

	runner, err := buildRunner(logger)
	if err != nil {
		return err
	}

	result, err := runner.Preview(cmd.Context(), criteria, args[0], action)
	if err != nil {
		return err
	}

	printPreview(result)

	return nil
}
