package tagging

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// BulkStatus is the platform's view of the asynchronous job, re-exported
// for callers that compose polling with reconciliation.
type BulkStatus = admin.BulkOperation

// PlatformClient is the full platform surface the pipeline needs.
// *admin.Client implements it.
type PlatformClient interface {
	ProductSearcher
	JobStarter
	CurrentOperationFetcher
	ResultFetcher
}

// Runner composes the pipeline: query building, exhaustive collection,
// idempotent planning, and job submission. Polling and reconciliation are
// exposed separately because they happen on later request cycles.
type Runner struct {
	collector  *Collector
	submitter  *Submitter
	poller     *Poller
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewRunner wires the pipeline against one platform client.
// pageSize <= 0 and pageDelay <= 0 select the collector defaults.
func NewRunner(client PlatformClient, pageSize int, pageDelay time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		collector:  NewCollector(client, pageSize, pageDelay, logger),
		submitter:  NewSubmitter(client, logger),
		poller:     NewPoller(client, logger),
		reconciler: NewReconciler(client, logger),
		logger:     logger,
	}
}

// PreviewResult is the outcome of a dry run. Active is false when blank
// criteria made the whole request a no-op — zero products, no error.
type PreviewResult struct {
	Active  bool
	Summary PreRunSummary
	Records []MutationRecord
}

// Preview resolves criteria, collects the matching set, and computes the
// mutation plan without submitting anything.
func (r *Runner) Preview(ctx context.Context, criteria FilterCriteria, tag string, action Action) (PreviewResult, error) {
	query, ok := BuildQuery(criteria)
	if !ok {
		r.logger.Info("blank criteria, nothing to preview")

		return PreviewResult{Active: false, Summary: PreRunSummary{Tag: NormalizeTag(tag), Action: action}}, nil
	}

	products, err := r.collector.CollectAll(ctx, query)
	if err != nil {
		return PreviewResult{}, err
	}

	records, pre := PlanMutation(products, tag, action)

	return PreviewResult{Active: true, Summary: pre, Records: records}, nil
}

// RunResult is the outcome of a submission request. Handle is nil when
// nothing was submitted (blank criteria, empty match, or fully con-
// verged set); Context is only meaningful when Handle is non-nil.
type RunResult struct {
	Handle  *JobHandle
	Summary PreRunSummary
	Context JobContext
}

// Run executes the full submission pipeline. Collection failures abort
// before any planning; submission failures abort before any handle is
// returned. A run that finds nothing to change is a success with a nil
// handle.
func (r *Runner) Run(ctx context.Context, criteria FilterCriteria, tag string, action Action) (RunResult, error) {
	preview, err := r.Preview(ctx, criteria, tag, action)
	if err != nil {
		return RunResult{}, err
	}

	if !preview.Active {
		return RunResult{Summary: preview.Summary}, nil
	}

	handle, pre, err := r.submitter.Submit(ctx, preview.Records, preview.Summary)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Handle: handle, Summary: pre}
	if handle != nil {
		result.Context = JobContext{
			TotalFiltered:  pre.Total,
			TotalProcessed: pre.Updated,
			Tag:            pre.Tag,
			Action:         pre.Action,
		}
	}

	return result, nil
}

// CheckStatus performs one status read. See Poller.CheckStatus.
func (r *Runner) CheckStatus(ctx context.Context) (*BulkStatus, error) {
	return r.poller.CheckStatus(ctx)
}

// Reconcile produces the final summary for a terminal job.
// See Reconciler.Reconcile.
func (r *Runner) Reconcile(ctx context.Context, status *BulkStatus, jc JobContext) *FinalSummary {
	return r.reconciler.Reconcile(ctx, status, jc)
}
