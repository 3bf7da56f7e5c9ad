package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/shopbulk/shopbulk/internal/history"
	"github.com/shopbulk/shopbulk/internal/tagging"
)

// progressf prints a transient progress line to stderr. Only emitted when
// stderr is a terminal and quiet mode is off — piped output stays clean.
func progressf(format string, args ...any) {
	if flagQuiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return
	}

	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// skippedLabel names the skipped bucket for the action: products that
// already had the tag (apply) or did not have it (remove).
func skippedLabel(action tagging.Action) string {
	if action == tagging.ActionRemove {
		return "did not have tag"
	}

	return "already had tag"
}

// printPreRunSummary prints submission-time counts. note describes the
// job outcome ("job X started", "nothing to submit").
func printPreRunSummary(pre tagging.PreRunSummary, note string) {
	if flagJSON {
		printJSON(struct {
			tagging.PreRunSummary
			Note string `json:"note"`
		}{pre, note})

		return
	}

	fmt.Printf("%s %q: %s\n", pre.Action, pre.Tag, note)
	fmt.Printf("  matched:  %d\n", pre.Total)
	fmt.Printf("  to update: %d (estimate)\n", pre.Updated)
	fmt.Printf("  %s: %d\n", skippedLabel(pre.Action), pre.Skipped)
}

// printFinalSummary prints reconciled counts. Degraded summaries are
// flagged loudly so they are never mistaken for a clean zero-failure run.
func printFinalSummary(final *tagging.FinalSummary) {
	if flagJSON {
		printJSON(final)
		return
	}

	fmt.Printf("%s %q: finished\n", final.Action, final.Tag)
	fmt.Printf("  updated: %d\n", final.Updated)
	fmt.Printf("  failed:  %d\n", final.Failed)
	fmt.Printf("  %s: %d\n", skippedLabel(final.Action), final.Skipped)
	fmt.Printf("  total:   %d\n", final.Total)

	if final.Degraded {
		fmt.Fprintf(os.Stderr, "Warning: result stream was unavailable (%v); all submitted records presumed failed.\n", final.Err)
	}
}

// printPreview prints a dry-run plan.
func printPreview(result tagging.PreviewResult) {
	if flagJSON {
		printJSON(struct {
			PreviewMode bool                  `json:"previewMode"`
			Summary     tagging.PreRunSummary `json:"summary"`
		}{result.Active, result.Summary})

		return
	}

	if !result.Active {
		fmt.Println("No filters set; nothing to preview.")
		return
	}

	pre := result.Summary
	fmt.Printf("preview %s %q:\n", pre.Action, pre.Tag)
	fmt.Printf("  matched:  %d\n", pre.Total)
	fmt.Printf("  would update: %d\n", pre.Updated)
	fmt.Printf("  %s: %d\n", skippedLabel(pre.Action), pre.Skipped)
}

// printJobStatus prints one poll result.
func printJobStatus(status *tagging.BulkStatus) {
	if flagJSON {
		printJSON(struct {
			ID          string `json:"id"`
			Status      string `json:"status"`
			ErrorCode   string `json:"errorCode,omitempty"`
			ObjectCount int64  `json:"objectCount"`
		}{status.ID, status.Status, status.ErrorCode, status.ObjectCount})

		return
	}

	fmt.Printf("job %s: %s", status.ID, status.Status)

	if status.ErrorCode != "" {
		fmt.Printf(" (%s)", status.ErrorCode)
	}

	fmt.Printf(", %d objects processed\n", status.ObjectCount)
}

// printHistory prints ledger rows, newest first.
func printHistory(runs []history.Run) {
	if flagJSON {
		printJSON(runs)
		return
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	for _, r := range runs {
		fmt.Printf("%s  %-6s %-12s tag=%q total=%d updated=%d failed=%d skipped=%d\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.Action, r.State, r.Tag, r.Total, r.Updated, r.Failed, r.Skipped)
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}
