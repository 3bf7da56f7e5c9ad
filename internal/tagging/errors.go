package tagging

import (
	"errors"
	"fmt"
)

// Sentinel causes for submission failures. Each stage of submission fails
// distinguishably so callers never poll a job that was never created.
// Use errors.Is(err, tagging.ErrStagedUpload) etc. to check.
var (
	ErrStagedUpload = errors.New("tagging: staged upload request failed")
	ErrUpload       = errors.New("tagging: upload failed")
	ErrJobStart     = errors.New("tagging: job start failed")
)

// FetchError reports a failed page or result retrieval. Collection aborts
// on the first FetchError — a partial product set must never be mutated as
// if it were complete.
type FetchError struct {
	Page int // 1-based page number, 0 when not page-scoped
	Err  error
}

func (e *FetchError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("tagging: fetching page %d: %v", e.Page, e.Err)
	}

	return fmt.Sprintf("tagging: fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PollError reports a failed status query. It is recoverable per-call:
// the caller retries on the next poll tick, and the job context stays valid.
type PollError struct {
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("tagging: polling job status: %v", e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}
