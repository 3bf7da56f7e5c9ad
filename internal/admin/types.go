package admin

// Product is a catalog entity snapshot taken at collection time.
// Fields are normalized from the API response — callers never see raw
// GraphQL edges. The snapshot may be stale by the time a bulk job runs;
// eventual consistency is accepted, not corrected.
type Product struct {
	ID          string // platform-scoped GID, e.g. "gid://shopify/Product/1"
	Title       string
	Handle      string
	ProductType string
	Tags        []string
}

// ProductPage is one page of a product search.
type ProductPage struct {
	Products    []Product
	HasNextPage bool
	EndCursor   string
}

// Bulk operation lifecycle states as reported by the platform.
const (
	BulkStatusCreated   = "CREATED"
	BulkStatusRunning   = "RUNNING"
	BulkStatusCompleted = "COMPLETED"
	BulkStatusFailed    = "FAILED"
	BulkStatusCanceled  = "CANCELED"
)

// BulkOperation is the platform's view of an asynchronous bulk job.
// This system only reads it; the platform owns its lifecycle.
type BulkOperation struct {
	ID          string
	Status      string
	ErrorCode   string
	ObjectCount int64
	ResultURL   string // where the result JSONL can be downloaded once COMPLETED
}

// Terminal reports whether the operation has reached a final state
// and polling should stop.
func (op *BulkOperation) Terminal() bool {
	switch op.Status {
	case BulkStatusCompleted, BulkStatusFailed, BulkStatusCanceled:
		return true
	default:
		return false
	}
}

// StagedTarget is a single-use upload slot returned by stagedUploadsCreate.
// Parameters must be sent as form fields alongside the uploaded content.
type StagedTarget struct {
	URL         string
	ResourceURL string
	Parameters  []StagedParameter
}

// StagedParameter is one name/value pair required by the staged upload.
// The "key" parameter doubles as the stagedUploadPath passed to
// bulkOperationRunMutation.
type StagedParameter struct {
	Name  string
	Value string
}

// Key returns the value of the "key" parameter, or empty if absent.
func (t *StagedTarget) Key() string {
	for _, p := range t.Parameters {
		if p.Name == "key" {
			return p.Value
		}
	}

	return ""
}
