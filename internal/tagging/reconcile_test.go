package tagging

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// fakeResultFetcher serves a scripted result stream.
type fakeResultFetcher struct {
	content string
	err     error
	readErr error // injected mid-stream read failure
}

func (f *fakeResultFetcher) DownloadResult(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}

	if f.readErr != nil {
		return io.NopCloser(&failingReader{err: f.readErr}), nil
	}

	return io.NopCloser(strings.NewReader(f.content)), nil
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func completedOp() *admin.BulkOperation {
	return &admin.BulkOperation{
		ID:        "gid://shopify/BulkOperation/42",
		Status:    admin.BulkStatusCompleted,
		ResultURL: "https://storage.example/results.jsonl",
	}
}

const cleanLine = `{"data":{"productUpdate":{"product":{"id":"gid://shopify/Product/1"},"userErrors":[]}}}`

const userErrorLine = `{"data":{"productUpdate":{"product":null,"userErrors":[{"field":["tags"],"message":"invalid tag"}]}}}`

func TestReconcile_CleanRun(t *testing.T) {
	lines := make([]string, 7)
	for i := range lines {
		lines[i] = cleanLine
	}

	fetcher := &fakeResultFetcher{content: strings.Join(lines, "\n") + "\n"}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 10, TotalProcessed: 7, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)

	assert.Equal(t, 7, final.Updated)
	assert.Equal(t, 0, final.Failed)
	assert.Equal(t, 3, final.Skipped)
	assert.Equal(t, 10, final.Total)
	assert.False(t, final.Degraded)
	assert.Equal(t, final.Total, final.Updated+final.Failed+final.Skipped)
}

func TestReconcile_ValidationError(t *testing.T) {
	// 7 result lines: 1 carries a validation userError, 6 are clean.
	lines := []string{cleanLine, cleanLine, cleanLine, userErrorLine, cleanLine, cleanLine, cleanLine}

	fetcher := &fakeResultFetcher{content: strings.Join(lines, "\n")}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 10, TotalProcessed: 7, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)

	assert.Equal(t, 6, final.Updated)
	assert.Equal(t, 1, final.Failed)
	assert.Equal(t, 3, final.Skipped)
	assert.Equal(t, 10, final.Total)
}

func TestReconcile_MalformedLinesCountAsFailures(t *testing.T) {
	lines := []string{cleanLine, "{not json", cleanLine, "garbage%%", `{"data":null}`}

	fetcher := &fakeResultFetcher{content: strings.Join(lines, "\n")}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 5, TotalProcessed: 5, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)

	// 2 unparsable + 1 missing payload.
	assert.GreaterOrEqual(t, final.Failed, 2)
	assert.Equal(t, 3, final.Failed)
	assert.Equal(t, 2, final.Updated)
	assert.Equal(t, final.Total, final.Updated+final.Failed+final.Skipped)
}

func TestReconcile_EnvelopeErrorLineIsFailure(t *testing.T) {
	lines := []string{`{"errors":[{"message":"throttled"}]}`, cleanLine}

	fetcher := &fakeResultFetcher{content: strings.Join(lines, "\n")}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 2, TotalProcessed: 2, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)
	assert.Equal(t, 1, final.Failed)
	assert.Equal(t, 1, final.Updated)
}

func TestReconcile_BlankLinesIgnored(t *testing.T) {
	fetcher := &fakeResultFetcher{content: "\n" + cleanLine + "\n\n" + cleanLine + "\n"}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 2, TotalProcessed: 2, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)
	assert.Equal(t, 2, final.Updated)
	assert.Equal(t, 0, final.Failed)
}

func TestReconcile_FetchFailureDegrades(t *testing.T) {
	cause := errors.New("storage unreachable")
	fetcher := &fakeResultFetcher{err: cause}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 10, TotalProcessed: 7, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)

	// Everything submitted is presumed failed; the rest never left.
	assert.Equal(t, 0, final.Updated)
	assert.Equal(t, 7, final.Failed)
	assert.Equal(t, 3, final.Skipped)
	assert.Equal(t, 10, final.Total)

	// A degraded summary is a distinct, error-bearing outcome.
	assert.True(t, final.Degraded)
	assert.ErrorIs(t, final.Err, cause)
}

func TestReconcile_MidStreamFailureDegrades(t *testing.T) {
	fetcher := &fakeResultFetcher{readErr: errors.New("connection reset")}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 4, TotalProcessed: 4, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)
	assert.True(t, final.Degraded)
	assert.Equal(t, 4, final.Failed)
}

func TestReconcile_ClampsNegativeSkipped(t *testing.T) {
	// The platform processed more lines than we thought we submitted.
	lines := []string{cleanLine, cleanLine, cleanLine}

	fetcher := &fakeResultFetcher{content: strings.Join(lines, "\n")}
	r := NewReconciler(fetcher, testLogger())

	jc := JobContext{TotalFiltered: 2, TotalProcessed: 2, Tag: "sale", Action: ActionApply}

	final := r.Reconcile(context.Background(), completedOp(), jc)
	require.NotNil(t, final)

	assert.Equal(t, 0, final.Skipped)
	assert.Equal(t, 3, final.Updated)
	assert.Equal(t, final.Total, final.Updated+final.Failed+final.Skipped)
}

func TestReconcile_NotCompletedReturnsNil(t *testing.T) {
	r := NewReconciler(&fakeResultFetcher{}, testLogger())
	jc := JobContext{TotalFiltered: 1, TotalProcessed: 1}

	for _, status := range []string{admin.BulkStatusCreated, admin.BulkStatusRunning, admin.BulkStatusFailed, admin.BulkStatusCanceled} {
		op := &admin.BulkOperation{ID: "op", Status: status, ResultURL: "https://storage.example/r"}
		assert.Nil(t, r.Reconcile(context.Background(), op, jc), status)
	}

	assert.Nil(t, r.Reconcile(context.Background(), nil, jc))

	// Completed without a usable result location is also not reconcilable.
	op := &admin.BulkOperation{ID: "op", Status: admin.BulkStatusCompleted}
	assert.Nil(t, r.Reconcile(context.Background(), op, jc))
}
