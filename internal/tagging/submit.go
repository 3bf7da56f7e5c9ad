package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// uploadFilename is the declared name for the staged JSONL payload.
const uploadFilename = "bulk_tag_mutations.jsonl"

// JobStarter covers the three platform calls submission needs.
// *admin.Client implements it.
type JobStarter interface {
	CreateStagedUpload(ctx context.Context, filename string) (*admin.StagedTarget, error)
	UploadStaged(ctx context.Context, target *admin.StagedTarget, filename string, content []byte) error
	RunTagUpdateJob(ctx context.Context, stagedUploadPath string) (*admin.BulkOperation, error)
}

// Submitter packages a mutation plan into a line-delimited record stream,
// stages it, and starts the platform's asynchronous bulk job.
type Submitter struct {
	starter JobStarter
	logger  *slog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(starter JobStarter, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Submitter{starter: starter, logger: logger}
}

// Submit serializes records as JSONL, uploads them to a staged slot, and
// starts the bulk job. An empty record list is a valid success outcome:
// the estimate is returned with a nil handle and nothing is submitted.
//
// Each failure stage is distinguishable via errors.Is against
// ErrStagedUpload, ErrUpload, or ErrJobStart, and every failure
// short-circuits with a nil handle so the caller never polls a job that
// was never created. The returned PreRunSummary's Updated count remains an
// estimate; confirmed successes come from reconciliation.
func (s *Submitter) Submit(ctx context.Context, records []MutationRecord, pre PreRunSummary) (*JobHandle, PreRunSummary, error) {
	if len(records) == 0 {
		s.logger.Info("nothing to submit",
			slog.Int("total", pre.Total),
			slog.Int("skipped", pre.Skipped),
		)

		return nil, pre, nil
	}

	payload, err := marshalRecords(records)
	if err != nil {
		return nil, pre, err
	}

	target, err := s.starter.CreateStagedUpload(ctx, uploadFilename)
	if err != nil {
		return nil, pre, fmt.Errorf("%w: %w", ErrStagedUpload, err)
	}

	if err := s.starter.UploadStaged(ctx, target, uploadFilename, payload); err != nil {
		return nil, pre, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	key := target.Key()
	if key == "" {
		return nil, pre, fmt.Errorf("%w: staged target has no key parameter", ErrUpload)
	}

	op, err := s.starter.RunTagUpdateJob(ctx, key)
	if err != nil {
		return nil, pre, fmt.Errorf("%w: %w", ErrJobStart, err)
	}

	s.logger.Info("bulk job submitted",
		slog.String("job_id", op.ID),
		slog.Int("records", len(records)),
		slog.Int("skipped", pre.Skipped),
	)

	return &JobHandle{ID: op.ID}, pre, nil
}

// mutationLine is the JSONL line shape: one self-contained $input value
// for the templated per-record mutation.
type mutationLine struct {
	Input MutationRecord `json:"input"`
}

// marshalRecords serializes records as newline-delimited JSON.
func marshalRecords(records []MutationRecord) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	for i, r := range records {
		if err := enc.Encode(mutationLine{Input: r}); err != nil {
			return nil, fmt.Errorf("tagging: serializing record %d: %w", i, err)
		}
	}

	return buf.Bytes(), nil
}
