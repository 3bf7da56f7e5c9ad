package admin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
)

// jsonlMimeType is the declared MIME type for bulk mutation input uploads.
const jsonlMimeType = "text/jsonl"

// stagedUploadsCreateMutation requests a single-use upload slot for bulk
// mutation variables.
const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters {
        name
        value
      }
    }
    userErrors {
      field
      message
    }
  }
}`

type stagedUploadsCreateResponse struct {
	StagedUploadsCreate struct {
		StagedTargets []struct {
			URL         string `json:"url"`
			ResourceURL string `json:"resourceUrl"`
			Parameters  []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"parameters"`
		} `json:"stagedTargets"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"stagedUploadsCreate"`
}

// CreateStagedUpload requests a write-once upload slot for a JSONL payload
// of the given filename. The returned target's parameters must accompany
// the subsequent upload, and its "key" parameter identifies the staged
// content when starting the bulk job.
func (c *Client) CreateStagedUpload(ctx context.Context, filename string) (*StagedTarget, error) {
	c.logger.Info("creating staged upload",
		slog.String("filename", filename),
	)

	variables := map[string]any{
		"input": []map[string]any{{
			"resource":   "BULK_MUTATION_VARIABLES",
			"filename":   filename,
			"mimeType":   jsonlMimeType,
			"httpMethod": "POST",
		}},
	}

	var sr stagedUploadsCreateResponse
	if err := c.Do(ctx, stagedUploadsCreateMutation, variables, &sr); err != nil {
		return nil, fmt.Errorf("admin: creating staged upload: %w", err)
	}

	if len(sr.StagedUploadsCreate.UserErrors) > 0 {
		return nil, fmt.Errorf("admin: staged upload rejected: %s",
			sr.StagedUploadsCreate.UserErrors[0].Message)
	}

	if len(sr.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, fmt.Errorf("admin: staged upload response contains no targets")
	}

	raw := sr.StagedUploadsCreate.StagedTargets[0]
	target := &StagedTarget{
		URL:         raw.URL,
		ResourceURL: raw.ResourceURL,
	}

	for _, p := range raw.Parameters {
		target.Parameters = append(target.Parameters, StagedParameter{Name: p.Name, Value: p.Value})
	}

	return target, nil
}

// UploadStaged posts content to a staged upload target as a multipart form.
// The target's parameters are sent as form fields ahead of the file part,
// as the storage backend requires. The target URL is pre-authenticated, so
// no access token is sent.
func (c *Client) UploadStaged(ctx context.Context, target *StagedTarget, filename string, content []byte) error {
	c.logger.Info("uploading staged content",
		slog.String("filename", filename),
		slog.Int("size", len(content)),
	)

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)
	for _, p := range target.Parameters {
		if err := w.WriteField(p.Name, p.Value); err != nil {
			return fmt.Errorf("admin: writing upload field %s: %w", p.Name, err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("admin: creating upload file part: %w", err)
	}

	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("admin: writing upload content: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("admin: finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &buf)
	if err != nil {
		return fmt.Errorf("admin: creating upload request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("admin: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	// Drain body to reuse connection.
	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return fmt.Errorf("admin: draining upload response body: %w", drainErr)
	}

	c.logger.Debug("staged content uploaded")

	return nil
}

// bulkRunMutation starts an asynchronous bulk mutation over previously
// staged JSONL variables. The mutation string is templated once; the
// platform applies it per line of the staged file.
const bulkRunMutation = `
mutation bulkRun($mutation: String!, $stagedUploadPath: String!) {
  bulkOperationRunMutation(mutation: $mutation, stagedUploadPath: $stagedUploadPath) {
    bulkOperation {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`

// tagUpdateMutation is the per-record mutation the platform runs for each
// line of the staged file. Each line supplies one $input value.
const tagUpdateMutation = `
mutation call($input: ProductInput!) {
  productUpdate(input: $input) {
    product {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

type bulkRunResponse struct {
	BulkOperationRunMutation struct {
		BulkOperation struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"bulkOperation"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"bulkOperationRunMutation"`
}

// RunTagUpdateJob starts a bulk product-update job over the staged upload
// identified by stagedUploadPath (the staged target's "key" parameter).
// Returns the new operation's handle; the job runs out-of-band on the
// platform and must be polled via CurrentBulkOperation.
func (c *Client) RunTagUpdateJob(ctx context.Context, stagedUploadPath string) (*BulkOperation, error) {
	c.logger.Info("starting bulk mutation job",
		slog.String("staged_upload_path", stagedUploadPath),
	)

	variables := map[string]any{
		"mutation":         tagUpdateMutation,
		"stagedUploadPath": stagedUploadPath,
	}

	var br bulkRunResponse
	if err := c.Do(ctx, bulkRunMutation, variables, &br); err != nil {
		return nil, fmt.Errorf("admin: starting bulk job: %w", err)
	}

	if len(br.BulkOperationRunMutation.UserErrors) > 0 {
		return nil, fmt.Errorf("admin: bulk job rejected: %s",
			br.BulkOperationRunMutation.UserErrors[0].Message)
	}

	op := &BulkOperation{
		ID:     br.BulkOperationRunMutation.BulkOperation.ID,
		Status: br.BulkOperationRunMutation.BulkOperation.Status,
	}

	if op.ID == "" {
		return nil, fmt.Errorf("admin: bulk job response contains no operation")
	}

	c.logger.Info("bulk mutation job started",
		slog.String("operation_id", op.ID),
		slog.String("status", op.Status),
	)

	return op, nil
}

// currentBulkOperationQuery reads the account's current (most recent)
// bulk mutation job. The platform exposes "current", not lookup by ID.
const currentBulkOperationQuery = `
query currentBulkOperation {
  currentBulkOperation(type: MUTATION) {
    id
    status
    errorCode
    objectCount
    url
  }
}`

type currentBulkOperationResponse struct {
	CurrentBulkOperation *struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		ErrorCode   string `json:"errorCode"`
		ObjectCount string `json:"objectCount"`
		URL         string `json:"url"`
	} `json:"currentBulkOperation"`
}

// CurrentBulkOperation fetches the account's current bulk mutation job.
// Returns nil (no error) when the account has never run one.
func (c *Client) CurrentBulkOperation(ctx context.Context) (*BulkOperation, error) {
	var cr currentBulkOperationResponse
	if err := c.Do(ctx, currentBulkOperationQuery, nil, &cr); err != nil {
		return nil, fmt.Errorf("admin: fetching current bulk operation: %w", err)
	}

	if cr.CurrentBulkOperation == nil {
		return nil, nil
	}

	op := &BulkOperation{
		ID:          cr.CurrentBulkOperation.ID,
		Status:      cr.CurrentBulkOperation.Status,
		ErrorCode:   cr.CurrentBulkOperation.ErrorCode,
		ResultURL:   cr.CurrentBulkOperation.URL,
		ObjectCount: parseObjectCount(cr.CurrentBulkOperation.ObjectCount, c.logger),
	}

	c.logger.Debug("fetched current bulk operation",
		slog.String("operation_id", op.ID),
		slog.String("status", op.Status),
		slog.Int64("object_count", op.ObjectCount),
	)

	return op, nil
}

// parseObjectCount parses the string-typed objectCount field.
// The API serializes unsigned 64-bit counts as strings; an unparsable
// value degrades to zero with a warning rather than failing the poll.
func parseObjectCount(raw string, logger *slog.Logger) int64 {
	if raw == "" {
		return 0
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("invalid objectCount in bulk operation, using zero",
			slog.String("raw", raw),
		)

		return 0
	}

	return n
}

// DownloadResult fetches the result JSONL from a completed operation's
// result URL. The URL is pre-authenticated and ephemeral, so no access
// token is sent. Callers own closing the returned reader.
func (c *Client) DownloadResult(ctx context.Context, resultURL string) (io.ReadCloser, error) {
	c.logger.Info("downloading bulk operation result")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("admin: creating result download request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin: result download failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		resp.Body.Close()

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return resp.Body, nil
}
