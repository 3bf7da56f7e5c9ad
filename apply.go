package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shopbulk/shopbulk/internal/history"
	"github.com/shopbulk/shopbulk/internal/tagging"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <tag>",
		Short: "Add a tag to all products matching the filters",
		Long: `Add a tag to every product matching the filter flags.

Products that already carry the tag (case-insensitive) are skipped, so
re-running the same apply is safe and converges. The mutation runs as an
asynchronous platform bulk job; track it with 'shopbulk status' or pass
--wait to block until it finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(cmd, args[0], tagging.ActionApply)
		},
	}

	addCriteriaFlags(cmd)
	cmd.Flags().Bool("wait", false, "poll until the job finishes and print the final summary")

	return cmd
}

// addCriteriaFlags registers the shared filter flags.
func addCriteriaFlags(cmd *cobra.Command) {
	cmd.Flags().String("keyword", "", "free-text title search")
	cmd.Flags().String("product-type", "", "exact product type match")
	cmd.Flags().String("collection", "", "collection membership")
}

// criteriaFromFlags reads the shared filter flags into FilterCriteria.
func criteriaFromFlags(cmd *cobra.Command) (tagging.FilterCriteria, error) {
	keyword, err := cmd.Flags().GetString("keyword")
	if err != nil {
		return tagging.FilterCriteria{}, err
	}

	productType, err := cmd.Flags().GetString("product-type")
	if err != nil {
		return tagging.FilterCriteria{}, err
	}

	collection, err := cmd.Flags().GetString("collection")
	if err != nil {
		return tagging.FilterCriteria{}, err
	}

	return tagging.FilterCriteria{
		Keyword:       keyword,
		ProductType:   productType,
		CollectionRef: collection,
	}, nil
}

// runTag executes the submission pipeline for apply or remove.
func runTag(cmd *cobra.Command, tag string, action tagging.Action) error {
	logger := buildLogger()

	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	wait, err := cmd.Flags().GetBool("wait")
	if err != nil {
		return err
	}

	runner, err := buildRunner(logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	result, err := runner.Run(ctx, criteria, tag, action)
	if err != nil {
		return err
	}

	recordRun(ctx, logger, criteria, result)

	if result.Handle == nil {
		printPreRunSummary(result.Summary, "nothing to submit")
		return nil
	}

	printPreRunSummary(result.Summary, fmt.Sprintf("job %s started", result.Handle.ID))

	if !wait {
		if !flagJSON {
			fmt.Println()
			fmt.Println("Track progress with:")
			fmt.Println("  " + statusCommandFor(*result.Handle, result.Context))
		}

		return nil
	}

	final, err := watchJob(ctx, logger, runner, *result.Handle, result.Context, resolvedCfg.PollInterval)
	if err != nil {
		return err
	}

	if final != nil {
		recordOutcome(ctx, logger, result.Handle.ID, final)
		printFinalSummary(final)
	}

	return nil
}

// recordRun writes the submission to the local run ledger. Bookkeeping is
// best-effort: a broken ledger warns and never fails the run.
func recordRun(ctx context.Context, logger *slog.Logger, criteria tagging.FilterCriteria, result tagging.RunResult) {
	store, err := history.Open(ctx, resolvedCfg.HistoryPath, logger)
	if err != nil {
		logger.Warn("run history unavailable", slog.String("error", err.Error()))
		return
	}
	defer store.Close()

	query, _ := tagging.BuildQuery(criteria)

	run := history.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Action:    string(result.Summary.Action),
		Tag:       result.Summary.Tag,
		Query:     query,
		State:     history.StateNoop,
		Total:     result.Summary.Total,
		Updated:   result.Summary.Updated,
		Skipped:   result.Summary.Skipped,
	}

	if result.Handle != nil {
		run.JobID = result.Handle.ID
		run.State = history.StateSubmitted
	}

	if err := store.RecordSubmission(ctx, run); err != nil {
		logger.Warn("recording run failed", slog.String("error", err.Error()))
	}
}

// recordOutcome updates the ledger with a terminal summary, best-effort.
func recordOutcome(ctx context.Context, logger *slog.Logger, jobID string, final *tagging.FinalSummary) {
	store, err := history.Open(ctx, resolvedCfg.HistoryPath, logger)
	if err != nil {
		logger.Warn("run history unavailable", slog.String("error", err.Error()))
		return
	}
	defer store.Close()

	state := history.StateReconciled
	if final.Degraded {
		state = history.StateDegraded
	}

	if err := store.RecordOutcome(ctx, jobID, state, final.Updated, final.Failed, final.Skipped); err != nil {
		logger.Warn("recording outcome failed", slog.String("error", err.Error()))
	}
}
