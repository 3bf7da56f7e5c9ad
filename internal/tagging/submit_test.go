package tagging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// fakeStarter scripts the three submission calls.
type fakeStarter struct {
	stagedErr error
	uploadErr error
	runErr    error

	target *admin.StagedTarget

	createCalls int
	uploadCalls int
	runCalls    int

	uploaded   []byte
	stagedPath string
}

func (f *fakeStarter) CreateStagedUpload(context.Context, string) (*admin.StagedTarget, error) {
	f.createCalls++
	if f.stagedErr != nil {
		return nil, f.stagedErr
	}

	if f.target != nil {
		return f.target, nil
	}

	return &admin.StagedTarget{
		URL: "https://storage.example/upload",
		Parameters: []admin.StagedParameter{
			{Name: "key", Value: "tmp/bulk/vars.jsonl"},
		},
	}, nil
}

func (f *fakeStarter) UploadStaged(_ context.Context, _ *admin.StagedTarget, _ string, content []byte) error {
	f.uploadCalls++
	if f.uploadErr != nil {
		return f.uploadErr
	}

	f.uploaded = content

	return nil
}

func (f *fakeStarter) RunTagUpdateJob(_ context.Context, stagedPath string) (*admin.BulkOperation, error) {
	f.runCalls++
	if f.runErr != nil {
		return nil, f.runErr
	}

	f.stagedPath = stagedPath

	return &admin.BulkOperation{ID: "gid://shopify/BulkOperation/42", Status: admin.BulkStatusCreated}, nil
}

func someRecords(n int) []MutationRecord {
	records := make([]MutationRecord, 0, n)
	for range n {
		records = append(records, MutationRecord{
			ProductID: "gid://shopify/Product/1",
			Tags:      []string{"sale"},
		})
	}

	return records
}

func TestSubmit_EmptyRecordsIsSuccessWithNoHandle(t *testing.T) {
	starter := &fakeStarter{}
	s := NewSubmitter(starter, testLogger())

	pre := PreRunSummary{Total: 3, Skipped: 3, Tag: "sale", Action: ActionApply}

	handle, got, err := s.Submit(context.Background(), nil, pre)
	require.NoError(t, err)
	assert.Nil(t, handle)
	assert.Equal(t, pre, got)

	// Nothing touched the platform.
	assert.Zero(t, starter.createCalls)
	assert.Zero(t, starter.uploadCalls)
	assert.Zero(t, starter.runCalls)
}

func TestSubmit_Success(t *testing.T) {
	starter := &fakeStarter{}
	s := NewSubmitter(starter, testLogger())

	records := []MutationRecord{
		{ProductID: "gid://shopify/Product/1", Tags: []string{"new", "sale"}},
		{ProductID: "gid://shopify/Product/2", Tags: []string{"sale"}},
	}
	pre := PreRunSummary{Updated: 2, Total: 2, Tag: "sale", Action: ActionApply}

	handle, got, err := s.Submit(context.Background(), records, pre)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "gid://shopify/BulkOperation/42", handle.ID)
	assert.Equal(t, pre, got)
	assert.Equal(t, "tmp/bulk/vars.jsonl", starter.stagedPath)

	// One self-contained JSON line per record.
	lines := strings.Split(strings.TrimRight(string(starter.uploaded), "\n"), "\n")
	require.Len(t, lines, 2)

	var first struct {
		Input MutationRecord `json:"input"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "gid://shopify/Product/1", first.Input.ProductID)
	assert.Equal(t, []string{"new", "sale"}, first.Input.Tags)
}

func TestSubmit_StagedUploadFailure(t *testing.T) {
	starter := &fakeStarter{stagedErr: errors.New("denied")}
	s := NewSubmitter(starter, testLogger())

	handle, _, err := s.Submit(context.Background(), someRecords(1), PreRunSummary{})
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrStagedUpload)
	assert.NotErrorIs(t, err, ErrUpload)

	// Short-circuited before upload and job start.
	assert.Zero(t, starter.uploadCalls)
	assert.Zero(t, starter.runCalls)
}

func TestSubmit_UploadFailure(t *testing.T) {
	starter := &fakeStarter{uploadErr: errors.New("network down")}
	s := NewSubmitter(starter, testLogger())

	handle, _, err := s.Submit(context.Background(), someRecords(1), PreRunSummary{})
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrUpload)
	assert.NotErrorIs(t, err, ErrStagedUpload)
	assert.Zero(t, starter.runCalls)
}

func TestSubmit_JobStartFailure(t *testing.T) {
	starter := &fakeStarter{runErr: errors.New("rejected")}
	s := NewSubmitter(starter, testLogger())

	handle, _, err := s.Submit(context.Background(), someRecords(1), PreRunSummary{})
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrJobStart)
}

func TestSubmit_TargetWithoutKey(t *testing.T) {
	starter := &fakeStarter{target: &admin.StagedTarget{URL: "https://storage.example/upload"}}
	s := NewSubmitter(starter, testLogger())

	handle, _, err := s.Submit(context.Background(), someRecords(1), PreRunSummary{})
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrUpload)
	assert.Zero(t, starter.runCalls)
}
