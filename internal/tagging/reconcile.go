package tagging

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// resultScanBuffer bounds result line length (1 MiB). Bulk result lines
// carry one mutation payload each and stay far below this.
const resultScanBuffer = 1 << 20

// ResultFetcher downloads a completed job's result stream.
// *admin.Client implements it.
type ResultFetcher interface {
	DownloadResult(ctx context.Context, resultURL string) (io.ReadCloser, error)
}

// Reconciler recomputes authoritative counts from a completed job's raw
// per-record result stream, resolving any drift from the pre-run estimate.
type Reconciler struct {
	fetcher ResultFetcher
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(fetcher ResultFetcher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{fetcher: fetcher, logger: logger}
}

// resultLine is the per-record result shape. A line is a failure when it
// is unparsable, carries envelope-level errors, or carries mutation-level
// userErrors; otherwise it is a success.
type resultLine struct {
	Data *struct {
		ProductUpdate *struct {
			Product *struct {
				ID string `json:"id"`
			} `json:"product"`
			UserErrors []admin.UserError `json:"userErrors"`
		} `json:"productUpdate"`
	} `json:"data"`
	Errors []admin.GraphQLError `json:"errors"`
}

// failed classifies one parsed result line.
func (l *resultLine) failed() bool {
	if len(l.Errors) > 0 {
		return true
	}

	if l.Data == nil || l.Data.ProductUpdate == nil {
		return true
	}

	return len(l.Data.ProductUpdate.UserErrors) > 0
}

// Reconcile produces the final summary for a terminal job. It returns nil
// unless status is COMPLETED with a usable result location. Per-record
// errors are local (they increment Failed and never abort the remaining
// records), so the returned summary always satisfies
// Total == Updated + Failed + Skipped by construction.
//
// If the result fetch itself fails, everything submitted is presumed
// failed and the summary is marked Degraded with the cause attached. A
// degraded summary is a distinct outcome, never confusable with a genuine
// zero-failure run.
func (r *Reconciler) Reconcile(ctx context.Context, status *admin.BulkOperation, jc JobContext) *FinalSummary {
	if status == nil || status.Status != admin.BulkStatusCompleted || status.ResultURL == "" {
		return nil
	}

	body, err := r.fetcher.DownloadResult(ctx, status.ResultURL)
	if err != nil {
		r.logger.Error("result fetch failed, producing degraded summary",
			slog.String("job_id", status.ID),
			slog.String("error", err.Error()),
		)

		return degradedSummary(jc, err)
	}
	defer body.Close()

	updated, failed, scanErr := countResults(body)
	if scanErr != nil {
		// Stream broke mid-read; what was not counted is presumed failed.
		r.logger.Error("result stream truncated, producing degraded summary",
			slog.String("job_id", status.ID),
			slog.String("error", scanErr.Error()),
		)

		return degradedSummary(jc, scanErr)
	}

	attempted := updated + failed

	// Negative drift from an inconsistent job clamps to zero skipped.
	skipped := jc.TotalFiltered - attempted
	if skipped < 0 {
		skipped = 0
	}

	summary := &FinalSummary{
		Updated: updated,
		Failed:  failed,
		Skipped: skipped,
		Total:   updated + failed + skipped,
		Tag:     jc.Tag,
		Action:  jc.Action,
	}

	r.logger.Info("job reconciled",
		slog.String("job_id", status.ID),
		slog.Int("updated", summary.Updated),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
	)

	return summary
}

// countResults classifies each result line as success or failure.
// Unparsable lines count as failures; blank lines are ignored.
func countResults(body io.Reader) (updated, failed int, err error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), resultScanBuffer)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rl resultLine
		if jsonErr := json.Unmarshal(line, &rl); jsonErr != nil {
			failed++
			continue
		}

		if rl.failed() {
			failed++
		} else {
			updated++
		}
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return 0, 0, scanErr
	}

	return updated, failed, nil
}

// degradedSummary is the fallback when the result stream is unusable:
// updated is zero, everything submitted is presumed failed, and the
// remainder was skipped before submission. The arithmetic invariant holds
// by construction.
func degradedSummary(jc JobContext, cause error) *FinalSummary {
	skipped := jc.TotalFiltered - jc.TotalProcessed
	if skipped < 0 {
		skipped = 0
	}

	return &FinalSummary{
		Updated:  0,
		Failed:   jc.TotalProcessed,
		Skipped:  skipped,
		Total:    jc.TotalProcessed + skipped,
		Tag:      jc.Tag,
		Action:   jc.Action,
		Degraded: true,
		Err:      cause,
	}
}
