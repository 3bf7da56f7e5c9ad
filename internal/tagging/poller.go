package tagging

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// CurrentOperationFetcher reads the account's current bulk job.
// *admin.Client implements it.
type CurrentOperationFetcher interface {
	CurrentBulkOperation(ctx context.Context) (*admin.BulkOperation, error)
}

// Poller performs exactly one status read per invocation. Concurrent
// callers within one client session are collapsed into a single in-flight
// platform read via singleflight — status checks are pure reads, so every
// caller can safely share one result. The poller never sleeps or retries;
// the embedding layer owns cadence and cancellation.
type Poller struct {
	fetcher CurrentOperationFetcher
	logger  *slog.Logger
	group   singleflight.Group
}

// NewPoller creates a Poller.
func NewPoller(fetcher CurrentOperationFetcher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{fetcher: fetcher, logger: logger}
}

// CheckStatus fetches the current bulk job's lifecycle state. Returns nil
// with no error when the account has no bulk job at all. Failures are
// recoverable per-call (*PollError): the caller simply retries on its next
// tick, and any held job context stays valid.
func (p *Poller) CheckStatus(ctx context.Context) (*admin.BulkOperation, error) {
	v, err, shared := p.group.Do("current", func() (any, error) {
		return p.fetcher.CurrentBulkOperation(ctx)
	})
	if err != nil {
		return nil, &PollError{Err: err}
	}

	op, _ := v.(*admin.BulkOperation)
	if op != nil {
		p.logger.Debug("job status",
			slog.String("job_id", op.ID),
			slog.String("status", op.Status),
			slog.Bool("shared_read", shared),
		)
	}

	return op, nil
}
