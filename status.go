package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/shopbulk/shopbulk/internal/tagging"
)

// watchTimeout caps a --wait / --watch polling session. Platform bulk
// jobs over tens of thousands of records finish well inside this.
const watchTimeout = 2 * time.Hour

// errJobStillRunning drives the retry loop while the job is non-terminal.
var errJobStillRunning = errors.New("job still running")

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the current bulk job and reconcile its outcome",
		Long: `Check the platform's current bulk mutation job.

The job context printed by 'apply' and 'remove' must be passed back via
flags — the tool keeps no session between invocations. Without a complete,
valid context there is no active job to report on. When the job has
completed, its result stream is fetched and reconciled into final counts.`,
		RunE: runStatus,
	}

	cmd.Flags().String("job-id", "", "bulk job ID from the submitting run")
	cmd.Flags().Int("total-filtered", -1, "total matched products from the submitting run")
	cmd.Flags().Int("total-processed", -1, "submitted record count from the submitting run")
	cmd.Flags().String("tag", "", "tag from the submitting run")
	cmd.Flags().String("action", "", "action from the submitting run: apply or remove")
	cmd.Flags().Bool("watch", false, "poll until the job reaches a terminal state")
	cmd.Flags().Duration("interval", 0, "poll interval for --watch (default from config)")

	return cmd
}

// contextCarrierFromFlags rebuilds the transport-neutral parameter carrier
// from the status flags. Unset numeric flags stay off the carrier so the
// codec sees them as missing rather than as zero.
func contextCarrierFromFlags(cmd *cobra.Command) (url.Values, error) {
	v := url.Values{}

	jobID, err := cmd.Flags().GetString("job-id")
	if err != nil {
		return nil, err
	}

	if jobID != "" {
		v.Set(tagging.ParamJobID, jobID)
	}

	for flag, param := range map[string]string{
		"total-filtered":  tagging.ParamTotalFiltered,
		"total-processed": tagging.ParamTotalProcessed,
	} {
		n, err := cmd.Flags().GetInt(flag)
		if err != nil {
			return nil, err
		}

		if n >= 0 {
			v.Set(param, strconv.Itoa(n))
		}
	}

	tag, err := cmd.Flags().GetString("tag")
	if err != nil {
		return nil, err
	}

	if tag != "" {
		v.Set(tagging.ParamTag, tag)
	}

	action, err := cmd.Flags().GetString("action")
	if err != nil {
		return nil, err
	}

	if action != "" {
		v.Set(tagging.ParamAction, action)
	}

	return v, nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	carrier, err := contextCarrierFromFlags(cmd)
	if err != nil {
		return err
	}

	handle, jc, ok := tagging.DecodeJobContext(carrier)
	if !ok {
		// Fail closed: an incomplete or corrupt context means no active
		// job, never fabricated totals.
		fmt.Println("No active job. Pass the full context printed by 'apply' or 'remove'.")
		return nil
	}

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return err
	}

	if interval <= 0 {
		interval = resolvedCfg.PollInterval
	}

	runner, err := buildRunner(logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var status *tagging.BulkStatus

	if watch {
		status, err = pollUntilTerminal(ctx, logger, runner, handle, interval)
	} else {
		status, err = pollOnce(ctx, runner, handle)
	}

	if err != nil {
		return err
	}

	if status == nil {
		fmt.Println("No active job.")
		return nil
	}

	printJobStatus(status)

	final := runner.Reconcile(ctx, status, jc)
	if final == nil {
		return nil
	}

	recordOutcome(ctx, logger, handle.ID, final)
	printFinalSummary(final)

	return nil
}

// pollOnce performs a single status read and validates it against the
// tracked handle. A current job with a different ID means the tracked job
// has been superseded — fail closed, no summary.
func pollOnce(ctx context.Context, runner *tagging.Runner, handle tagging.JobHandle) (*tagging.BulkStatus, error) {
	status, err := runner.CheckStatus(ctx)
	if err != nil {
		return nil, err
	}

	if status == nil || status.ID != handle.ID {
		return nil, nil
	}

	return status, nil
}

// pollUntilTerminal repeatedly reads job status at a constant cadence
// until the job reaches a terminal state. Transient poll failures are
// retried on the next tick; the job context stays valid throughout. The
// loop lives here, in the embedding layer — the poller itself never
// sleeps.
func pollUntilTerminal(
	ctx context.Context, logger *slog.Logger, runner *tagging.Runner,
	handle tagging.JobHandle, interval time.Duration,
) (*tagging.BulkStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, watchTimeout)
	defer cancel()

	var status *tagging.BulkStatus

	backoff := retry.NewConstant(interval)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := runner.CheckStatus(ctx)
		if err != nil {
			var pollErr *tagging.PollError
			if errors.As(err, &pollErr) {
				logger.Warn("poll failed, retrying",
					slog.String("error", err.Error()),
				)

				return retry.RetryableError(err)
			}

			return err
		}

		if s == nil || s.ID != handle.ID {
			// Superseded or vanished; stop watching without a summary.
			status = nil
			return nil
		}

		if !s.Terminal() {
			progressf("job %s: %s (%d objects)", s.ID, s.Status, s.ObjectCount)
			return retry.RetryableError(fmt.Errorf("%w: %s", errJobStillRunning, s.Status))
		}

		status = s

		return nil
	})
	if err != nil {
		return nil, err
	}

	return status, nil
}

// watchJob is the --wait path used by apply and remove: poll to terminal,
// then reconcile.
func watchJob(
	ctx context.Context, logger *slog.Logger, runner *tagging.Runner,
	handle tagging.JobHandle, jc tagging.JobContext, interval time.Duration,
) (*tagging.FinalSummary, error) {
	status, err := pollUntilTerminal(ctx, logger, runner, handle, interval)
	if err != nil {
		return nil, err
	}

	if status == nil {
		fmt.Println("Job no longer tracked.")
		return nil, nil
	}

	printJobStatus(status)

	return runner.Reconcile(ctx, status, jc), nil
}

// statusCommandFor renders the resume command line carrying the job
// context, so a later invocation (or another machine) can pick up polling.
func statusCommandFor(handle tagging.JobHandle, jc tagging.JobContext) string {
	return fmt.Sprintf(
		"shopbulk status --job-id %q --total-filtered %d --total-processed %d --tag %q --action %s --watch",
		handle.ID, jc.TotalFiltered, jc.TotalProcessed, jc.Tag, jc.Action,
	)
}
